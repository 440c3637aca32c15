package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/notekeeper/internal/model"
	"github.com/hitoshi/notekeeper/internal/note"
)

// NoteServiceInterface はノートハンドラーが必要とするサービスインターフェース。
type NoteServiceInterface interface {
	List(ctx context.Context, userID string) ([]note.View, error)
	Get(ctx context.Context, userID, noteID string) (*note.View, error)
	Create(ctx context.Context, userID string, in note.Input) (*note.View, error)
	Update(ctx context.Context, userID, noteID string, in note.Input) (*note.View, error)
	Delete(ctx context.Context, userID, noteID string) error
}

// NoteHandler はノートのHTTPハンドラー。
// 全てのメソッドは認証済みユーザーを引数に取り、そのユーザーのノートのみを扱う。
type NoteHandler struct {
	service NoteServiceInterface
}

// NewNoteHandler はNoteHandlerを生成する。
func NewNoteHandler(service NoteServiceInterface) *NoteHandler {
	return &NoteHandler{service: service}
}

// List はノート一覧を返す。
// GET /api/notes
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request, user *model.User) {
	notes, err := h.service.List(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// Get はノートを1件返す。
// GET /api/notes/{id}
func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request, user *model.User) {
	n, err := h.service.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Create はノートを作成する。
// POST /api/notes
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request, user *model.User) {
	var in note.Input
	if err := decodeJSON(w, r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	n, err := h.service.Create(r.Context(), user.ID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// Update はノートを更新する。
// PUT /api/notes/{id}
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request, user *model.User) {
	var in note.Input
	if err := decodeJSON(w, r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	n, err := h.service.Update(r.Context(), user.ID, chi.URLParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Delete はノートを削除する。
// DELETE /api/notes/{id}
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request, user *model.User) {
	if err := h.service.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Note deleted successfully"})
}
