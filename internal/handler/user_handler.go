package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/takumi/taskdeck/internal/middleware"
	"github.com/takumi/taskdeck/internal/model"
	"github.com/takumi/taskdeck/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// Get は最新のユーザーレコードを取得する。
	Get(ctx context.Context, userID string) (*model.User, error)
	// UpdateProfile はプロフィールを部分更新する。メールアドレスは変更不可。
	UpdateProfile(ctx context.Context, identity *model.Identity, patch user.ProfilePatch) (*model.User, error)
	// Withdraw はユーザーの退会処理を実行する。
	// 所有プロジェクトと配下タスクを連鎖削除したうえでユーザーを削除する。
	Withdraw(ctx context.Context, identity *model.Identity) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
// 指定されたフィールドのみ更新する。
type updateProfileRequest struct {
	Name     *string `json:"name"`
	Country  *string `json:"country"`
	Password *string `json:"password"`
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Country    string    `json:"country"`
	ProjectIDs []string  `json:"project_ids"`
	CreatedAt  time.Time `json:"created_at"`
}

// Me は認証済みユーザー自身の情報を返す。
// GET /api/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	u, err := h.service.Get(r.Context(), identity.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(u))
}

// UpdateProfile はプロフィールの部分更新を処理する。
// PATCH /api/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), identity, user.ProfilePatch{
		Name:     req.Name,
		Country:  req.Country,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(u))
}

// Withdraw はユーザーの退会処理を実行する。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	if err := h.service.Withdraw(r.Context(), identity); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
// パスワードハッシュは含めない。
func toUserResponse(u *model.User) userResponse {
	ids := u.ProjectIDs
	if ids == nil {
		ids = []string{}
	}
	return userResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Country:    u.Country,
		ProjectIDs: ids,
		CreatedAt:  u.CreatedAt,
	}
}
