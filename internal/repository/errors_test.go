package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestTranslateError_UniqueViolation(t *testing.T) {
	pqErr := &pq.Error{Code: "23505", Constraint: "users_email_key"}

	err := fmt.Errorf("failed to insert user: %w", translateError(pqErr))

	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("errors.Is(err, ErrDuplicate) = false, err = %v", err)
	}
	constraint, ok := ConstraintOf(err)
	if !ok {
		t.Fatal("ConstraintOf returned ok = false")
	}
	if constraint != "users_email_key" {
		t.Errorf("constraint = %q, want %q", constraint, "users_email_key")
	}

	var unwrapped *pq.Error
	if !errors.As(err, &unwrapped) {
		t.Error("original *pq.Error should remain in the chain")
	}
}

func TestTranslateError_OtherErrorsPassThrough(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"foreign key violation", &pq.Error{Code: "23503", Constraint: "notes_user_id_fkey"}},
		{"plain error", errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err)
			if got != tt.err {
				t.Errorf("translateError returned %v, want original error", got)
			}
			if errors.Is(got, ErrDuplicate) {
				t.Error("non-unique error should not match ErrDuplicate")
			}
			if _, ok := ConstraintOf(got); ok {
				t.Error("ConstraintOf should report false")
			}
		})
	}
}

func TestNullString(t *testing.T) {
	if ns := nullString(""); ns.Valid {
		t.Error("empty string should map to NULL")
	}
	if ns := nullString("g-1"); !ns.Valid || ns.String != "g-1" {
		t.Errorf("nullString(\"g-1\") = %+v", ns)
	}
}

func TestNonNilTags(t *testing.T) {
	if got := nonNilTags(nil); got == nil || len(got) != 0 {
		t.Errorf("nonNilTags(nil) = %#v, want empty slice", got)
	}
	tags := []string{"a"}
	if got := nonNilTags(tags); len(got) != 1 || got[0] != "a" {
		t.Errorf("nonNilTags(%v) = %v", tags, got)
	}
}
