// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/notekeeper/internal/auth"
	"github.com/hitoshi/notekeeper/internal/model"
)

const (
	oauthStateCookie = "oauth_state"
	stateBytes       = 16
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Signup(ctx context.Context, in auth.SignupInput) (*auth.AuthResult, error)
	Login(ctx context.Context, in auth.LoginInput) (*auth.AuthResult, error)
	ForgotPassword(ctx context.Context, in auth.ForgotPasswordInput) (string, error)
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*auth.AuthResult, error)
	CurrentUser(ctx context.Context, userID string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	FrontendURL  string
	CookieSecure bool
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// Signup はローカルアカウントを作成する。
// POST /api/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in auth.SignupInput
	if err := decodeJSON(w, r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.service.Signup(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Login はメールアドレスとパスワードでログインする。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ForgotPassword はパスワードリセットを受け付ける。
// メールアドレスの登録有無にかかわらず同じメッセージを返す。
// POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in auth.ForgotPasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	msg, err := h.service.ForgotPassword(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: msg})
}

// Me は現在のログインユーザー情報を返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request, user *model.User) {
	current, err := h.service.CurrentUser(r.Context(), user.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, current.Public())
}

// GoogleLogin はGoogle OAuthフローを開始する。
// GET /api/auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := auth.RandomSecret(stateBytes)
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		h.redirectFailure(w, r, "auth_failed")
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback はOAuthコールバックを処理する。
// 成功時はトークンとユーザー情報をクエリに付けてフロントエンドへリダイレクトする。
// 失敗時は原因を含まないエラー種別のみを付けてログイン画面へリダイレクトする。
// GET /api/auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	// stateクッキーは結果にかかわらず削除する
	stateCookie, cookieErr := r.Cookie(oauthStateCookie)
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	query := r.URL.Query()
	state := query.Get("state")
	if cookieErr != nil || state == "" || subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(state)) != 1 {
		slog.Warn("oauth state mismatch")
		h.redirectFailure(w, r, "auth_failed")
		return
	}

	if providerErr := query.Get("error"); providerErr != "" {
		slog.Warn("oauth provider returned error", slog.String("error", providerErr))
		h.redirectFailure(w, r, "auth_failed")
		return
	}

	result, err := h.service.HandleCallback(r.Context(), query.Get("code"))
	if err != nil {
		slog.Error("oauth callback failed", slog.String("error", err.Error()))
		if apiErr, ok := model.AsAPIError(err); ok && apiErr.Kind == model.KindConflict && apiErr.Retryable {
			h.redirectFailure(w, r, "auth_conflict")
			return
		}
		h.redirectFailure(w, r, "auth_failed")
		return
	}

	userJSON, err := json.Marshal(result.User)
	if err != nil {
		slog.Error("failed to encode user", slog.String("error", err.Error()))
		h.redirectFailure(w, r, "auth_failed")
		return
	}

	params := url.Values{}
	params.Set("token", result.Token)
	params.Set("user", string(userJSON))
	http.Redirect(w, r, h.config.FrontendURL+"/auth/callback?"+params.Encode(), http.StatusTemporaryRedirect)
}

func (h *AuthHandler) redirectFailure(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.config.FrontendURL+"/login?error="+url.QueryEscape(reason), http.StatusTemporaryRedirect)
}
