package app

import (
	"bytes"
	"context"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestNewRootCommand_RegistersSubcommands(t *testing.T) {
	root := NewRootCommand(io.Discard)

	for _, path := range [][]string{
		{"serve"},
		{"worker"},
		{"migrate"},
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "version"},
		{"promote-admin"},
		{"generate-secret"},
		{"healthcheck"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd == root {
			t.Errorf("subcommand %v not registered: %v", path, err)
		}
	}
}

func TestMigrateDown_DefaultsToOneStep(t *testing.T) {
	root := NewRootCommand(io.Discard)
	down, _, err := root.Find([]string{"migrate", "down"})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got := down.Flags().Lookup("steps").DefValue; got != "1" {
		t.Errorf("steps default = %q, want 1", got)
	}
}

func TestGenerateSecret_PrintsHexSecret(t *testing.T) {
	var out bytes.Buffer
	if err := Run(&out, []string{"generate-secret"}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	secret := strings.TrimSpace(out.String())
	if len(secret) != secretBytes*2 {
		t.Errorf("len = %d, want %d", len(secret), secretBytes*2)
	}
	if _, err := hex.DecodeString(secret); err != nil {
		t.Errorf("secret is not hex: %v", err)
	}
}

func TestPromoteAdmin_RequiresEmailArgument(t *testing.T) {
	if err := Run(io.Discard, []string{"promote-admin"}); err == nil {
		t.Error("expected error without email argument")
	}
}

func TestRun_UnknownCommand_ReturnsError(t *testing.T) {
	if err := Run(io.Discard, []string{"fetch"}); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestRun_WithMissingEnv_ReturnsError(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "JWT_SECRET", "GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "BACKEND_URL", "FRONTEND_URL"} {
		t.Setenv(key, "")
	}

	for _, args := range [][]string{{}, {"serve"}, {"worker"}, {"migrate"}} {
		if err := Run(io.Discard, args); err == nil {
			t.Errorf("Run(%v) with missing env should return error", args)
		}
	}
}

// TestRun_Serve_UnreachableDatabase はDBに接続できない場合にserveが起動せずエラーを返すことを検証する。
func TestRun_Serve_UnreachableDatabase(t *testing.T) {
	setTestEnv(t)

	err := Run(io.Discard, []string{"serve"})
	if err == nil {
		t.Fatal("expected database connection error")
	}
	if strings.Contains(err.Error(), "user:pass@") {
		t.Errorf("error leaks credentials: %v", err)
	}
}

func TestHealthcheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"healthy", http.StatusOK, false},
		{"unhealthy", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					t.Errorf("path = %q", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			u, _ := url.Parse(srv.URL)
			err := runHealthcheck(context.Background(), u.Port())
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
