package validation

import (
	"strings"
	"testing"

	"github.com/hitoshi/notekeeper/internal/model"
)

type signupForm struct {
	Username string `json:"username" validate:"min=3"`
	Email    string `json:"email" validate:"email"`
	Password string `json:"password" validate:"min=6"`
}

type noteForm struct {
	Title string   `json:"title" validate:"required,max=5"`
	Color string   `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Tags  []string `json:"-"`
}

func TestStruct_Valid_ReturnsNil(t *testing.T) {
	v := New()
	err := v.Struct(signupForm{Username: "alice", Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestStruct_ListsEveryFailingField(t *testing.T) {
	v := New()

	err := v.Struct(signupForm{Username: "al", Email: "not-an-email", Password: "123"})

	apiErr, ok := model.AsAPIError(err)
	if !ok {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Kind != model.KindValidation {
		t.Errorf("Kind = %q, want %q", apiErr.Kind, model.KindValidation)
	}

	want := map[string]string{
		"username": "Username must be at least 3 characters long",
		"email":    "Please enter a valid email",
		"password": "Password must be at least 6 characters long",
	}
	if len(apiErr.Fields) != len(want) {
		t.Fatalf("len(Fields) = %d, want %d: %+v", len(apiErr.Fields), len(want), apiErr.Fields)
	}
	for _, f := range apiErr.Fields {
		if want[f.Field] != f.Message {
			t.Errorf("field %q message = %q, want %q", f.Field, f.Message, want[f.Field])
		}
	}
}

func TestStruct_UsesJSONNames(t *testing.T) {
	v := New()

	err := v.Struct(noteForm{Title: "too long title", Color: "red"})

	apiErr, ok := model.AsAPIError(err)
	if !ok {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	got := map[string]string{}
	for _, f := range apiErr.Fields {
		got[f.Field] = f.Message
	}
	if got["title"] != "Title must be at most 5 characters long" {
		t.Errorf("title message = %q", got["title"])
	}
	if got["color"] != "Color must be a hex color" {
		t.Errorf("color message = %q", got["color"])
	}
}

func TestField(t *testing.T) {
	v := New()

	if err := v.Field("role", "admin", "oneof=user admin"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	err := v.Field("role", "root", "oneof=user admin")
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if len(apiErr.Fields) != 1 || apiErr.Fields[0].Field != "role" {
		t.Fatalf("Fields = %+v", apiErr.Fields)
	}
	if apiErr.Fields[0].Message != "Role must be one of: user, admin" {
		t.Errorf("message = %q", apiErr.Fields[0].Message)
	}
}

func TestStruct_NonStructInput_ReturnsPlainError(t *testing.T) {
	v := New()

	err := v.Struct("not a struct")
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := model.AsAPIError(err); ok {
		t.Error("non-struct input should not produce a validation APIError")
	}
}

type secretForm struct {
	Password string `json:"password" validate:"min=6,maxbytes=72"`
}

func TestStruct_MaxBytesCountsBytesNotRunes(t *testing.T) {
	v := New()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"ascii at limit", strings.Repeat("a", 72), false},
		{"ascii over limit", strings.Repeat("a", 73), true},
		// 40文字だが2バイト文字のため80バイトになる
		{"multibyte over limit", strings.Repeat("é", 40), true},
		{"multibyte within limit", strings.Repeat("é", 36), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(secretForm{Password: tt.password})
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("expected nil, got %v", err)
				}
				return
			}

			apiErr, ok := model.AsAPIError(err)
			if !ok || apiErr.Kind != model.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			if len(apiErr.Fields) != 1 || apiErr.Fields[0].Message != "Password must be at most 72 bytes long" {
				t.Errorf("Fields = %+v", apiErr.Fields)
			}
		})
	}
}
