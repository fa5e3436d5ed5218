// Package di wires the application together. Providers are plain
// constructors; wire generates the assembly in wire_gen.go.
package di

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"closedesk/application/automation"
	"closedesk/application/ports"
	"closedesk/application/services"
	"closedesk/infrastructure/config"
	"closedesk/infrastructure/messaging/eventbridge"
	"closedesk/infrastructure/notify"
	"closedesk/infrastructure/persistence/dynamodb"
	infrarealtime "closedesk/infrastructure/realtime"
	"closedesk/interfaces/http/rest"
	"closedesk/interfaces/realtime"
	"closedesk/pkg/auth"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	awsses "github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideSESClient creates an SES client
func ProvideSESClient(awsCfg aws.Config) *awsses.Client {
	return awsses.NewFromConfig(awsCfg)
}

// ProvideRedisClient creates the Redis client for the event bridge, or
// nil when no Redis URL is configured.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// ProvideVerifier creates the token verifier. The secret is injected
// through configuration; in development a random boot-time secret is
// generated when none is set, so no literal ever ships.
func ProvideVerifier(cfg *config.Config, logger *zap.Logger) (*auth.Verifier, error) {
	secret := cfg.JWTSecret
	if secret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET is required outside development")
		}
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		secret = hex.EncodeToString(buf)
		// The secret itself never goes to the log; set JWT_SECRET to
		// mint tokens that this instance will accept.
		logger.Warn("JWT_SECRET not set, generated a boot-time secret; tokens from other processes will not verify")
	}
	return auth.NewVerifier(secret, cfg.JWTIssuer)
}

// ProvideTransactionRepository creates the transaction store
func ProvideTransactionRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.TransactionRepository {
	return dynamodb.NewTransactionRepository(client, cfg.DynamoDBTable, cfg.IndexName, logger)
}

// ProvideTaskRepository creates the task store
func ProvideTaskRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.TaskRepository {
	return dynamodb.NewTaskRepository(client, cfg.DynamoDBTable, cfg.IndexName, cfg.GSI2IndexName, logger)
}

// ProvideMessageRepository creates the message log
func ProvideMessageRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.MessageRepository {
	return dynamodb.NewMessageRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideDocumentRepository creates the document store
func ProvideDocumentRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.DocumentRepository {
	return dynamodb.NewDocumentRepository(client, cfg.DynamoDBTable, cfg.IndexName, cfg.GSI2IndexName, logger)
}

// ProvideConnectionStore creates the in-process session registry
func ProvideConnectionStore() realtime.ConnectionStore {
	return realtime.NewMemoryStore()
}

// ProvideHub creates the realtime hub
func ProvideHub(store realtime.ConnectionStore, verifier *auth.Verifier, logger *zap.Logger) *realtime.Hub {
	return realtime.NewHub(store, verifier, logger)
}

// ProvideWebSocketHandler creates the realtime endpoint handler
func ProvideWebSocketHandler(hub *realtime.Hub, cfg *config.Config, logger *zap.Logger) *realtime.WebSocketHandler {
	return realtime.NewWebSocketHandler(hub, cfg.AuthGracePeriod, logger)
}

// ProvideRedisBridge creates the cross-instance event bridge, or nil
// when Redis is not configured.
func ProvideRedisBridge(client *redis.Client, cfg *config.Config, hub *realtime.Hub, logger *zap.Logger) *infrarealtime.RedisBridge {
	if client == nil {
		return nil
	}
	return infrarealtime.NewRedisBridge(client, cfg.RedisChannel, uuid.NewString(), hub, logger)
}

// ProvideEventBridgePublisher creates the downstream event publisher,
// or nil when no bus is configured.
func ProvideEventBridgePublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) *eventbridge.Publisher {
	if cfg.EventBusName == "" {
		return nil
	}
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideDispatcher assembles the dispatcher with whichever forwarders
// are configured.
func ProvideDispatcher(hub *realtime.Hub, bridge *infrarealtime.RedisBridge, publisher *eventbridge.Publisher, logger *zap.Logger) *realtime.Dispatcher {
	var forwarders []realtime.Forwarder
	if bridge != nil {
		forwarders = append(forwarders, bridge)
	}
	if publisher != nil {
		forwarders = append(forwarders, publisher)
	}
	return realtime.NewDispatcher(hub, logger, forwarders...)
}

// ProvideEmitter exposes the dispatcher as the application emit port
func ProvideEmitter(dispatcher *realtime.Dispatcher) ports.Emitter {
	return dispatcher
}

// ProvideMailer creates the email sender: SES when a sender identity is
// configured, the log mailer otherwise.
func ProvideMailer(client *awsses.Client, cfg *config.Config, logger *zap.Logger) ports.EmailSender {
	if cfg.SESSender == "" {
		return notify.NewLogMailer(logger)
	}
	return notify.NewSESMailer(client, cfg.SESSender, logger)
}

// ProvideScorer creates the document scorer
func ProvideScorer() ports.DocumentScorer {
	return automation.NewHeuristicScorer()
}

// ProvideDocumentVerifier creates the document verification pipeline
func ProvideDocumentVerifier(documents ports.DocumentRepository, scorer ports.DocumentScorer, emitter ports.Emitter, logger *zap.Logger) *automation.Verifier {
	return automation.NewVerifier(documents, scorer, emitter, logger)
}

// ProvideEngine creates the automation engine
func ProvideEngine(
	transactions ports.TransactionRepository,
	documents ports.DocumentRepository,
	verifier *automation.Verifier,
	emitter ports.Emitter,
	email ports.EmailSender,
	cfg *config.Config,
	logger *zap.Logger,
) *automation.Engine {
	return automation.NewEngine(transactions, documents, verifier, emitter, email, automation.Options{
		ReminderThreshold:    cfg.ReminderThreshold,
		ReminderCooldown:     cfg.ReminderCooldown,
		RiskHorizon:          cfg.RiskHorizon,
		ReminderInterval:     cfg.ReminderInterval,
		RiskInterval:         cfg.RiskInterval,
		VerificationInterval: cfg.VerificationInterval,
	}, logger)
}

// ProvideTransactionService creates the transaction service
func ProvideTransactionService(transactions ports.TransactionRepository, emitter ports.Emitter, email ports.EmailSender, logger *zap.Logger) *services.TransactionService {
	return services.NewTransactionService(transactions, emitter, email, logger)
}

// ProvideTaskService creates the task service
func ProvideTaskService(tasks ports.TaskRepository, messages ports.MessageRepository, emitter ports.Emitter, logger *zap.Logger) *services.TaskService {
	return services.NewTaskService(tasks, messages, emitter, logger)
}

// ProvideDocumentService creates the document service
func ProvideDocumentService(documents ports.DocumentRepository, verifier *automation.Verifier, logger *zap.Logger) *services.DocumentService {
	return services.NewDocumentService(documents, verifier, logger)
}

// ProvideRouter creates the HTTP router
func ProvideRouter(
	transactions *services.TransactionService,
	tasks *services.TaskService,
	documents *services.DocumentService,
	ws *realtime.WebSocketHandler,
	verifier *auth.Verifier,
	cfg *config.Config,
	logger *zap.Logger,
) *rest.Router {
	return rest.NewRouter(transactions, tasks, documents, ws, verifier, cfg.EnableCORS, logger)
}
