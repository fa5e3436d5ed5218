// Package rest wires the HTTP surface: the REST API, the realtime
// endpoint, health and metrics.
package rest

import (
	"net/http"

	"closedesk/application/services"
	"closedesk/interfaces/http/rest/handlers"
	"closedesk/interfaces/http/rest/middleware"
	"closedesk/interfaces/realtime"
	"closedesk/pkg/auth"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	transactions *services.TransactionService
	tasks        *services.TaskService
	documents    *services.DocumentService
	ws           *realtime.WebSocketHandler
	verifier     *auth.Verifier
	enableCORS   bool
	logger       *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	transactions *services.TransactionService,
	tasks *services.TaskService,
	documents *services.DocumentService,
	ws *realtime.WebSocketHandler,
	verifier *auth.Verifier,
	enableCORS bool,
	logger *zap.Logger,
) *Router {
	return &Router{
		transactions: transactions,
		tasks:        tasks,
		documents:    documents,
		ws:           ws,
		verifier:     verifier,
		enableCORS:   enableCORS,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.closedesk.io"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health and metrics
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	router.Handle("/metrics", promhttp.Handler())

	// Realtime endpoint. Connections authenticate in-band after the
	// upgrade, so no HTTP auth middleware here.
	router.Handle("/ws", rt.ws)

	// API routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.verifier, rt.logger))

		transactionHandler := handlers.NewTransactionHandler(rt.transactions, rt.logger)
		taskHandler := handlers.NewTaskHandler(rt.tasks, rt.logger)
		documentHandler := handlers.NewDocumentHandler(rt.documents, rt.logger)

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", transactionHandler.Create)
			r.Get("/", transactionHandler.List)
			r.Get("/{transactionID}", transactionHandler.Get)
			r.Post("/{transactionID}/transition", transactionHandler.Transition)
			r.Get("/{transactionID}/next-statuses", transactionHandler.NextStatuses)
			r.Get("/{transactionID}/tasks", taskHandler.ListByTransaction)
			r.Get("/{transactionID}/documents", documentHandler.ListByTransaction)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", taskHandler.Create)
			r.Get("/{taskID}", taskHandler.Get)
			r.Put("/{taskID}/status", taskHandler.UpdateStatus)
			r.Post("/{taskID}/complete", taskHandler.Complete)
			r.Post("/{taskID}/messages", taskHandler.PostMessage)
			r.Get("/{taskID}/messages", taskHandler.ListMessages)
			r.Post("/{taskID}/messages/read", taskHandler.MarkMessagesRead)
			r.Get("/{taskID}/messages/unread", taskHandler.UnreadCount)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", documentHandler.Upload)
			r.Get("/{documentID}", documentHandler.Get)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
