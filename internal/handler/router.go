package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/notekeeper/internal/metrics"
	"github.com/hitoshi/notekeeper/internal/middleware"
	"github.com/hitoshi/notekeeper/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenVerifier     middleware.TokenVerifier
	UserFinder        middleware.UserFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector
	MetricsHandler    http.Handler
	HealthChecker     HealthChecker
	Production        bool

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ノート
	NoteService NoteServiceInterface

	// 管理者
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// 全ルート共通のミドルウェア:
//
//	Recovery → Logging → Metrics → SecureHeaders → CORS
//
// 認証が必要なルートはさらに Auth → RateLimit(General) を通り、
// 管理者ルートは最後にRequireRole(admin)で認可する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewSecureHeadersMiddleware(deps.Production))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteAPIError(w, &model.APIError{
			Kind:     model.KindNotFound,
			Code:     "ROUTE_NOT_FOUND",
			Message:  "Route not found",
			Category: "system",
			Action:   "Check the request path.",
		})
	})

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	noteHandler := NewNoteHandler(deps.NoteService)
	adminHandler := NewAdminHandler(deps.UserService)

	authenticate := middleware.NewAuthMiddleware(deps.TokenVerifier, deps.UserFinder)

	// --- 認証不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/auth", func(r chi.Router) {
		// 認証情報を受け付けるエンドポイントはIP単位で制限する
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.CredentialMiddleware())
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Post("/forgot-password", authHandler.ForgotPassword)
		})

		r.Get("/google", authHandler.GoogleLogin)
		r.Get("/google/callback", authHandler.GoogleCallback)

		r.With(authenticate, deps.RateLimiter.GeneralMiddleware()).Get("/me", WithUser(authHandler.Me))
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/notes", func(r chi.Router) {
			r.Get("/", WithUser(noteHandler.List))
			r.Post("/", WithUser(noteHandler.Create))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", WithUser(noteHandler.Get))
				r.Put("/", WithUser(noteHandler.Update))
				r.Delete("/", WithUser(noteHandler.Delete))
			})
		})

		r.Route("/api/admin/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin))
			r.Get("/", WithUser(adminHandler.ListUsers))
			r.Patch("/{id}/role", WithUser(adminHandler.UpdateRole))
		})
	})

	return r
}
