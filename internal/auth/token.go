package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL はセッショントークンの有効期間。
const DefaultTokenTTL = 7 * 24 * time.Hour

// ErrInvalidToken はトークン検証の失敗を表す。
// 署名不一致・期限切れ・形式不正を呼び出し側には区別しない。
var ErrInvalidToken = errors.New("invalid token")

// TokenVerifier はベアラートークンを検証しユーザーIDを返すインターフェース。
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// sessionClaims はセッショントークンのクレーム。
type sessionClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenIssuer はHS256で署名したセッショントークンを発行・検証する。
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption はTokenIssuerの設定を変更する。
type TokenOption func(*TokenIssuer)

// WithClock は現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) TokenOption {
	return func(t *TokenIssuer) {
		t.now = now
	}
}

// WithTTL はトークンの有効期間を変更する。
func WithTTL(ttl time.Duration) TokenOption {
	return func(t *TokenIssuer) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// NewTokenIssuer はTokenIssuerを生成する。secretは起動時に一度だけ読み込んだ値を渡す。
func NewTokenIssuer(secret string, opts ...TokenOption) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	t := &TokenIssuer{
		secret: []byte(secret),
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Issue はuserIDを埋め込んだトークンを発行する。有効期限は発行時刻+TTL。
func (t *TokenIssuer) Issue(userID string) (string, error) {
	now := t.now()
	claims := sessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify は署名を検証した後に有効期限を確認し、ユーザーIDを返す。
// 失敗理由はdebugログにのみ記録し、呼び出し側にはErrInvalidTokenを返す。
func (t *TokenIssuer) Verify(token string) (string, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		slog.Debug("token verification failed", slog.String("error", err.Error()))
		return "", ErrInvalidToken
	}
	if !parsed.Valid || claims.UserID == "" {
		slog.Debug("token verification failed", slog.String("error", "missing userId claim"))
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

var _ TokenVerifier = (*TokenIssuer)(nil)
