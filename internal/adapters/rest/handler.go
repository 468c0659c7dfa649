package rest

import (
	"context"
	"net/http"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/services"
)

// TaskPool is the background executor behind the task routes.
type TaskPool interface {
	Submit(ctx context.Context, spec services.TaskSpec) (string, error)
	Status(ctx context.Context, id string) (domain.TaskRecord, error)
	List(ctx context.Context, limit int) ([]domain.TaskRecord, error)
	Result(ctx context.Context, id string) (services.TaskResult, error)
	Cancel(ctx context.Context, id string) (domain.TaskRecord, error)
}

// Handler manages the HTTP interface for our application.
type Handler struct {
	pool   TaskPool
	router *http.ServeMux // Standard library router
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(pool TaskPool) *Handler {
	h := &Handler{
		pool:   pool,
		router: http.NewServeMux(),
	}

	// Register Routes
	h.routes()

	return h
}

// ServeHTTP satisfies the http.Handler interface.
// It acts as a proxy, passing the request to our internal router.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// routes defines the mapping between URLs and methods.
func (h *Handler) routes() {
	// Health Check
	h.router.HandleFunc("GET /health", h.HealthCheck)
	// Task lifecycle
	h.router.HandleFunc("POST /tasks", h.SubmitTask)
	h.router.HandleFunc("GET /tasks", h.ListTasks)
	h.router.HandleFunc("GET /tasks/{id}", h.GetTask)
	h.router.HandleFunc("GET /tasks/{id}/result", h.GetTaskResult)
	h.router.HandleFunc("DELETE /tasks/{id}", h.CancelTask)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "Cadence is live"})
}
