package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"closedesk/application/services"
	"closedesk/domain/model"
	"closedesk/pkg/auth"
	"closedesk/pkg/validate"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TaskHandler handles task and task-message HTTP requests.
type TaskHandler struct {
	tasks  *services.TaskService
	logger *zap.Logger
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(tasks *services.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, logger: logger}
}

// CreateTaskRequest is the request body for creating a task.
type CreateTaskRequest struct {
	TransactionID string    `json:"transaction_id" validate:"required"`
	Title         string    `json:"title" validate:"required,max=200"`
	AssignedTo    string    `json:"assigned_to" validate:"required"`
	DueDate       time.Time `json:"due_date" validate:"required"`
	Priority      string    `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	AIReminder    bool      `json:"ai_reminder,omitempty"`
}

// UpdateTaskStatusRequest is the request body for a task status change.
type UpdateTaskStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress completed"`
}

// PostMessageRequest is the request body for posting a task message.
type PostMessageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// taskView decorates a task with its derived effective status.
type taskView struct {
	*model.Task
	EffectiveStatus model.TaskStatus `json:"effective_status"`
}

func viewOf(task *model.Task) taskView {
	return taskView{Task: task, EffectiveStatus: task.EffectiveStatus(time.Now())}
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		respondBadRequest(w, "Validation error: "+err.Error())
		return
	}

	identity, err := auth.GetIdentity(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	task, err := h.tasks.Create(r.Context(), &model.Task{
		TransactionID: req.TransactionID,
		Title:         req.Title,
		AssignedTo:    req.AssignedTo,
		AssignedBy:    identity.UserID,
		DueDate:       req.DueDate,
		Priority:      model.TaskPriority(req.Priority),
		AIReminder:    req.AIReminder,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, viewOf(task))
}

// Get handles GET /tasks/{taskID}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Get(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(task))
}

// ListByTransaction handles GET /transactions/{transactionID}/tasks.
func (h *TaskHandler) ListByTransaction(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListByTransaction(r.Context(), chi.URLParam(r, "transactionID"))
	if err != nil {
		respondError(w, err)
		return
	}
	views := make([]taskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, viewOf(task))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"tasks": views})
}

// UpdateStatus handles PUT /tasks/{taskID}/status.
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateTaskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		respondBadRequest(w, "Validation error: "+err.Error())
		return
	}

	task, err := h.tasks.UpdateStatus(r.Context(), chi.URLParam(r, "taskID"), model.TaskStatus(req.Status))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(task))
}

// Complete handles POST /tasks/{taskID}/complete.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Complete(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(task))
}

// PostMessage handles POST /tasks/{taskID}/messages.
func (h *TaskHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "Invalid request body: "+err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		respondBadRequest(w, "Validation error: "+err.Error())
		return
	}

	identity, err := auth.GetIdentity(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	msg, err := h.tasks.PostMessage(r.Context(), &model.Message{
		TaskID:     chi.URLParam(r, "taskID"),
		SenderID:   identity.UserID,
		SenderRole: string(identity.Role),
		Body:       req.Body,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

// ListMessages handles GET /tasks/{taskID}/messages.
func (h *TaskHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.tasks.ListMessages(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

// MarkMessagesRead handles POST /tasks/{taskID}/messages/read. It runs
// the read-receipt sweep for the caller's role.
func (h *TaskHandler) MarkMessagesRead(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.GetIdentity(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.tasks.MarkMessagesRead(r.Context(), chi.URLParam(r, "taskID"), string(identity.Role)); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// UnreadCount handles GET /tasks/{taskID}/messages/unread.
func (h *TaskHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.GetIdentity(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	count, err := h.tasks.UnreadCount(r.Context(), chi.URLParam(r, "taskID"), string(identity.Role))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"count": count})
}
