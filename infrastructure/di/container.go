package di

import (
	"closedesk/application/automation"
	"closedesk/application/ports"
	"closedesk/application/services"
	"closedesk/infrastructure/config"
	infrarealtime "closedesk/infrastructure/realtime"
	"closedesk/interfaces/http/rest"
	"closedesk/interfaces/realtime"
	"closedesk/pkg/auth"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config          *config.Config
	Logger          *zap.Logger
	Verifier        *auth.Verifier
	TransactionRepo ports.TransactionRepository
	TaskRepo        ports.TaskRepository
	MessageRepo     ports.MessageRepository
	DocumentRepo    ports.DocumentRepository
	Email           ports.EmailSender
	Hub             *realtime.Hub
	WSHandler       *realtime.WebSocketHandler
	Bridge          *infrarealtime.RedisBridge
	Dispatcher      *realtime.Dispatcher
	Transactions    *services.TransactionService
	Tasks           *services.TaskService
	Documents       *services.DocumentService
	Engine          *automation.Engine
	Router          *rest.Router
}
