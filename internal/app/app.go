// Package app はコマンドの実行とコンポーネントのワイヤリングを行う。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/notekeeper/internal/auth"
	"github.com/hitoshi/notekeeper/internal/config"
	"github.com/hitoshi/notekeeper/internal/database"
	"github.com/hitoshi/notekeeper/internal/handler"
	"github.com/hitoshi/notekeeper/internal/logger"
	"github.com/hitoshi/notekeeper/internal/metrics"
	"github.com/hitoshi/notekeeper/internal/middleware"
	"github.com/hitoshi/notekeeper/internal/note"
	"github.com/hitoshi/notekeeper/internal/repository"
	"github.com/hitoshi/notekeeper/internal/security"
	"github.com/hitoshi/notekeeper/internal/user"
	"github.com/hitoshi/notekeeper/internal/validation"
	"github.com/hitoshi/notekeeper/internal/worker/cleanup"
)

const (
	shutdownTimeout   = 30 * time.Second
	secretBytes       = 64
	defaultServerPort = "5000"
)

// Init はアプリケーションの初期化を行う。
// .envがあれば環境変数に読み込み、Configを構築してJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. 設定読み込み前にもログを使えるようにする
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. .envは存在しなくてもよい
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", slog.String("error", err.Error()))
	}

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// server はAPIサーバーの構成要素をまとめたもの。
type server struct {
	http    *http.Server
	limiter *middleware.RateLimiter
}

// newServer はDB接続から全依存関係をワイヤリングし、HTTPサーバーを構築する。
func newServer(cfg *config.Config, db *sql.DB) (*server, error) {
	// 1. リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	noteRepo := repository.NewPostgresNoteRepo(db)

	// 2. 共通コンポーネント
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)
	validator := validation.New()
	textSanitizer := security.NewTextSanitizer()

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, auth.WithTTL(cfg.TokenTTL))
	if err != nil {
		return nil, fmt.Errorf("failed to create token issuer: %w", err)
	}

	// 3. ドメインサービス
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(auth.ServiceDeps{
		OAuth:     oauthProvider,
		Users:     userRepo,
		Hasher:    auth.NewBcryptHasher(cfg.BcryptCost),
		Tokens:    tokens,
		Sanitizer: textSanitizer,
		Validator: validator,
		Metrics:   collector,
	}, auth.ServiceConfig{ResetTokenTTL: cfg.ResetTokenTTL})

	noteService := note.NewService(noteRepo, validator, security.NewContentSanitizer(), textSanitizer)
	userService := user.NewService(userRepo, validator)

	// 4. ルーター
	limiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitCredential),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		TokenVerifier:     tokens,
		UserFinder:        userRepo,
		CORSAllowedOrigin: cfg.FrontendURL,
		RateLimiter:       limiter,
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(registry),
		HealthChecker:     db,
		Production:        cfg.IsProduction(),

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			FrontendURL:  cfg.FrontendURL,
			CookieSecure: cfg.CookieSecure,
		},

		NoteService: noteService,
		UserService: userService,
	})

	return &server{
		http: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		limiter: limiter,
	}, nil
}

// runServe はAPIサーバーモードで起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	srv, err := newServer(cfg, db)
	if err != nil {
		return err
	}
	defer srv.limiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", srv.http.Addr),
			slog.String("env", cfg.AppEnv),
		)
		if err := srv.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動し、期限切れのリセットトークンを定期的に削除する。
// ctxがキャンセルされるまでブロックする。
func runWorker(ctx context.Context, cfg *config.Config) error {
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("worker starting", slog.Duration("cleanup_interval", cfg.CleanupInterval))

	job := cleanup.NewCleanupJob(repository.NewPostgresUserRepo(db), slog.Default(), nil)
	job.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrateUp は未適用のマイグレーションをすべて適用する。
func runMigrateUp(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", database.RedactURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runMigrateDown は直近のマイグレーションをsteps件戻す。
func runMigrateDown(cfg *config.Config, steps int) error {
	slog.Info("rolling back database migrations",
		slog.String("database_url", database.RedactURL(cfg.DatabaseURL)),
		slog.Int("steps", steps),
	)

	if err := database.RollbackMigrations(cfg.DatabaseURL, steps); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	slog.Info("database rollback completed successfully")
	return nil
}

// runMigrateVersion は現在のスキーマバージョンをwに出力する。
func runMigrateVersion(w io.Writer, cfg *config.Config) error {
	version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "version=%d dirty=%t\n", version, dirty)
	return err
}

// runPromoteAdmin はメールアドレスで指定したユーザーを管理者に昇格する。
func runPromoteAdmin(ctx context.Context, w io.Writer, cfg *config.Config, email string) error {
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := user.NewService(repository.NewPostgresUserRepo(db), validation.New())
	promoted, err := svc.PromoteByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to promote %s: %w", email, err)
	}

	_, err = fmt.Fprintf(w, "%s (%s) is now %s\n", promoted.Username, promoted.Email, promoted.Role)
	return err
}

// generateSecret はトークン署名用のランダムな秘密鍵をwに出力する。
func generateSecret(w io.Writer) error {
	secret, err := auth.RandomSecret(secretBytes)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, secret)
	return err
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(ctx context.Context, port string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://localhost:"+port+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}
