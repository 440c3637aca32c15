package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/notekeeper/internal/model"
	"github.com/hitoshi/notekeeper/internal/note"
)

type mockNoteService struct {
	listFn   func(ctx context.Context, userID string) ([]note.View, error)
	getFn    func(ctx context.Context, userID, noteID string) (*note.View, error)
	createFn func(ctx context.Context, userID string, in note.Input) (*note.View, error)
	updateFn func(ctx context.Context, userID, noteID string, in note.Input) (*note.View, error)
	deleteFn func(ctx context.Context, userID, noteID string) error
}

func (m *mockNoteService) List(ctx context.Context, userID string) ([]note.View, error) {
	return m.listFn(ctx, userID)
}

func (m *mockNoteService) Get(ctx context.Context, userID, noteID string) (*note.View, error) {
	return m.getFn(ctx, userID, noteID)
}

func (m *mockNoteService) Create(ctx context.Context, userID string, in note.Input) (*note.View, error) {
	return m.createFn(ctx, userID, in)
}

func (m *mockNoteService) Update(ctx context.Context, userID, noteID string, in note.Input) (*note.View, error) {
	return m.updateFn(ctx, userID, noteID, in)
}

func (m *mockNoteService) Delete(ctx context.Context, userID, noteID string) error {
	return m.deleteFn(ctx, userID, noteID)
}

var noteOwner = &model.User{ID: "user-1", Role: model.RoleUser}

// withURLParam はchiのURLパラメータをリクエストに設定する。
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestNoteHandler_List_EmptyReturnsArray(t *testing.T) {
	h := NewNoteHandler(&mockNoteService{
		listFn: func(ctx context.Context, userID string) ([]note.View, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q", userID)
			}
			return []note.View{}, nil
		},
	})

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/notes", nil), noteOwner)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestNoteHandler_Create_Returns201(t *testing.T) {
	var got note.Input
	h := NewNoteHandler(&mockNoteService{
		createFn: func(ctx context.Context, userID string, in note.Input) (*note.View, error) {
			got = in
			return &note.View{ID: "n1", Title: in.Title, Content: in.Content, Tags: in.Tags, Color: model.DefaultNoteColor}, nil
		},
	})

	body := `{"title":"Groceries","content":"milk","tags":["food"]}`
	w := httptest.NewRecorder()
	h.Create(w, httptest.NewRequest(http.MethodPost, "/api/notes", strings.NewReader(body)), noteOwner)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	if got.Title != "Groceries" || len(got.Tags) != 1 {
		t.Errorf("input = %+v", got)
	}
	var v note.View
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.ID != "n1" || v.Color != model.DefaultNoteColor {
		t.Errorf("view = %+v", v)
	}
}

func TestNoteHandler_Create_ValidationErrorListsFields(t *testing.T) {
	h := NewNoteHandler(&mockNoteService{
		createFn: func(ctx context.Context, userID string, in note.Input) (*note.View, error) {
			return nil, model.NewValidationError([]model.FieldError{
				{Field: "title", Message: "Title is required"},
				{Field: "content", Message: "Content is required"},
			})
		},
	})

	w := httptest.NewRecorder()
	h.Create(w, httptest.NewRequest(http.MethodPost, "/api/notes", strings.NewReader(`{}`)), noteOwner)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeErrorBody(t, w)
	if len(body.Errors) != 2 {
		t.Errorf("errors = %+v, want 2 entries", body.Errors)
	}
}

func TestNoteHandler_Get_PassesIDAndMapsNotFound(t *testing.T) {
	var gotID string
	h := NewNoteHandler(&mockNoteService{
		getFn: func(ctx context.Context, userID, noteID string) (*note.View, error) {
			gotID = noteID
			return nil, model.NewNoteNotFoundError()
		},
	})

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/notes/abc", nil), "id", "abc")
	w := httptest.NewRecorder()
	h.Get(w, req, noteOwner)

	if gotID != "abc" {
		t.Errorf("noteID = %q", gotID)
	}
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestNoteHandler_Update_MalformedBody(t *testing.T) {
	h := NewNoteHandler(&mockNoteService{
		updateFn: func(ctx context.Context, userID, noteID string, in note.Input) (*note.View, error) {
			t.Error("service should not be called")
			return nil, nil
		},
	})

	req := withURLParam(httptest.NewRequest(http.MethodPut, "/api/notes/n1", strings.NewReader(`not json`)), "id", "n1")
	w := httptest.NewRecorder()
	h.Update(w, req, noteOwner)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestNoteHandler_Delete(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"deleted", nil, http.StatusOK},
		{"not found", model.NewNoteNotFoundError(), http.StatusNotFound},
		{"store failure", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewNoteHandler(&mockNoteService{
				deleteFn: func(ctx context.Context, userID, noteID string) error {
					return tt.err
				},
			})

			req := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/notes/n1", nil), "id", "n1")
			w := httptest.NewRecorder()
			h.Delete(w, req, noteOwner)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if tt.status == http.StatusInternalServerError && strings.Contains(w.Body.String(), "connection reset") {
				t.Error("internal error detail leaked")
			}
		})
	}
}
