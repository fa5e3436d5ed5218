//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"closedesk/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideSESClient,
	ProvideRedisClient,
	ProvideVerifier,
	ProvideTransactionRepository,
	ProvideTaskRepository,
	ProvideMessageRepository,
	ProvideDocumentRepository,
	ProvideConnectionStore,
	ProvideHub,
	ProvideWebSocketHandler,
	ProvideRedisBridge,
	ProvideEventBridgePublisher,
	ProvideDispatcher,
	ProvideEmitter,
	ProvideMailer,
	ProvideScorer,
	ProvideDocumentVerifier,
	ProvideEngine,
	ProvideTransactionService,
	ProvideTaskService,
	ProvideDocumentService,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
