package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/notekeeper/internal/model"
	"github.com/hitoshi/notekeeper/internal/user"
)

// UserServiceInterface は管理者ハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	List(ctx context.Context) ([]model.PublicUser, error)
	UpdateRole(ctx context.Context, actorID, userID string, in user.UpdateRoleInput) (*model.PublicUser, error)
}

// AdminHandler は管理者向けユーザー管理のHTTPハンドラー。
type AdminHandler struct {
	service UserServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service UserServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// ListUsers は全ユーザーの公開情報を返す。
// GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request, _ *model.User) {
	users, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// UpdateRole は指定ユーザーのロールを変更する。
// PATCH /api/admin/users/{id}/role
func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request, actor *model.User) {
	var in user.UpdateRoleInput
	if err := decodeJSON(w, r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	updated, err := h.service.UpdateRole(r.Context(), actor.ID, chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
