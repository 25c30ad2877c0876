package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/takumi/taskdeck/internal/middleware"
	"github.com/takumi/taskdeck/internal/model"
	"github.com/takumi/taskdeck/internal/task"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	// Create は指定プロジェクト配下に新規タスクを作成する。
	Create(ctx context.Context, identity *model.Identity, projectID, title, description string) (*model.Task, error)
	// ListForProject はプロジェクト配下のタスク一覧を返す。
	ListForProject(ctx context.Context, identity *model.Identity, projectID string) ([]*model.Task, error)
	// Update はタスクを部分更新する。
	Update(ctx context.Context, identity *model.Identity, projectID, taskID string, patch task.Patch) (*model.Task, error)
	// Delete はタスクを削除する。
	Delete(ctx context.Context, identity *model.Identity, projectID, taskID string) (*model.Task, error)
}

// TaskHandler はタスク管理のHTTPハンドラー。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{
		service: service,
	}
}

// createTaskRequest はタスク作成リクエストのボディ。
type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// updateTaskRequest はタスク更新リクエストのボディ。
// 指定されたフィールドのみ更新する。
type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// taskResponse はタスク情報のAPIレスポンス。
type taskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	ProjectID   string    `json:"project_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateTask はタスク作成を処理する。
// POST /api/projects/:id/tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	projectID := chi.URLParam(r, "id")

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	t, err := h.service.Create(r.Context(), identity, projectID, req.Title, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toTaskResponse(t))
}

// ListTasks はプロジェクト配下のタスク一覧を返す。
// GET /api/projects/:id/tasks
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	projectID := chi.URLParam(r, "id")

	tasks, err := h.service.ListForProject(r.Context(), identity, projectID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	result := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		result = append(result, toTaskResponse(t))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// UpdateTask はタスクの部分更新を処理する。
// PATCH /api/projects/:id/tasks/:taskID
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	projectID := chi.URLParam(r, "id")
	taskID := chi.URLParam(r, "taskID")

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	t, err := h.service.Update(r.Context(), identity, projectID, taskID, task.Patch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toTaskResponse(t))
}

// DeleteTask はタスク削除を処理する。
// DELETE /api/projects/:id/tasks/:taskID
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	projectID := chi.URLParam(r, "id")
	taskID := chi.URLParam(r, "taskID")

	if _, err := h.service.Delete(r.Context(), identity, projectID, taskID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toTaskResponse はmodel.TaskからAPIレスポンスに変換する。
func toTaskResponse(t *model.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		ProjectID:   t.ProjectID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
