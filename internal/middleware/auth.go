package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/notekeeper/internal/model"
)

type contextKey string

const userContextKey contextKey = "user"

// TokenVerifier はベアラートークンを検証し、ユーザーIDを返す。
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserFinder はユーザーIDからユーザーを取得する。
// 存在しない場合はnil, nilを返す。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// NewAuthMiddleware はAuthorizationヘッダーのベアラートークンを検証し、
// 解決したユーザーをコンテキストに格納するミドルウェアを返す。
// トークン欠落・無効・ユーザー不在はいずれも同じ401を返す。
func NewAuthMiddleware(verifier TokenVerifier, users UserFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				WriteAPIError(w, model.NewUnauthorizedError())
				return
			}

			userID, err := verifier.Verify(token)
			if err != nil {
				WriteAPIError(w, model.NewUnauthorizedError())
				return
			}

			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				slog.Error("failed to load authenticated user",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			if user == nil {
				WriteAPIError(w, model.NewUnauthorizedError())
				return
			}

			setLogUserID(r.Context(), user.ID)
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}

// RequireRole は認証済みユーザーが指定ロールのいずれかを持つ場合のみ通過させる。
// NewAuthMiddlewareの後に配置する。
func RequireRole(roles ...model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				WriteAPIError(w, model.NewUnauthorizedError())
				return
			}
			if !user.HasRole(roles...) {
				slog.Warn("role check failed",
					slog.String("user_id", user.ID),
					slog.String("role", string(user.Role)),
				)
				WriteAPIError(w, model.NewForbiddenError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// ContextWithUser はユーザーを格納したコンテキストを返す。
func ContextWithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext はコンテキストから認証済みユーザーを取得する。
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userContextKey).(*model.User)
	return user, ok && user != nil
}

// UserIDFromContext はコンテキストから認証済みユーザーのIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return "", errors.New("user not found in context")
	}
	return user.ID, nil
}
