// Package auth はローカル認証・Google連携認証・セッショントークンを提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/notekeeper/internal/metrics"
	"github.com/hitoshi/notekeeper/internal/model"
	"github.com/hitoshi/notekeeper/internal/repository"
	"github.com/hitoshi/notekeeper/internal/security"
	"github.com/hitoshi/notekeeper/internal/validation"
)

// ForgotPasswordMessage はパスワード再設定要求に対する固定の応答メッセージ。
// メールアドレスの登録有無にかかわらず同じ文言を返す。
const ForgotPasswordMessage = "If that email exists, a reset link has been sent"

const (
	resetTokenBytes       = 32
	placeholderSecretSize = 32
	// DefaultResetTokenTTL はパスワードリセットトークンの有効期間。
	DefaultResetTokenTTL = time.Hour
)

// ErrNoVerifiedEmail はIdPのプロフィールに検証済みメールアドレスが無いことを表す。
var ErrNoVerifiedEmail = errors.New("federated profile has no verified email")

// CredentialStore は認証フローが利用するユーザー永続化の操作。
type CredentialStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	LinkGoogleID(ctx context.Context, userID, googleID string) (*model.User, error)
	SetResetToken(ctx context.Context, userID, token string, expiry time.Time) error
}

// TokenSigner はユーザーIDからセッショントークンを発行する。
type TokenSigner interface {
	Issue(userID string) (string, error)
}

// ResetNotifier はパスワードリセットトークンを利用者に届ける。
type ResetNotifier interface {
	NotifyReset(ctx context.Context, user *model.User, token string, expiry time.Time) error
}

// LogResetNotifier は配送手段の代わりにリセット要求をログに記録する。
// トークン自体はログに出力しない。
type LogResetNotifier struct{}

// NotifyReset はリセット要求をログに記録する。
func (LogResetNotifier) NotifyReset(_ context.Context, user *model.User, _ string, expiry time.Time) error {
	slog.Info("password reset requested",
		slog.String("user_id", user.ID),
		slog.Time("expires_at", expiry),
	)
	return nil
}

// SignupInput はローカルサインアップの入力。
type SignupInput struct {
	Username string `json:"username" validate:"min=3"`
	Email    string `json:"email" validate:"email"`
	Password string `json:"password" validate:"min=6,maxbytes=72"`
}

// LoginInput はローカルログインの入力。
type LoginInput struct {
	Email    string `json:"email" validate:"email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordInput はパスワード再設定要求の入力。
type ForgotPasswordInput struct {
	Email string `json:"email" validate:"email"`
}

// AuthResult は認証成功時に返すトークンと公開ユーザー情報。
type AuthResult struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	ResetTokenTTL time.Duration
}

// ServiceDeps は認証サービスの依存コンポーネント。
// Notifier、Sanitizer、Validator、Metricsは未指定の場合に既定実装を使う。
type ServiceDeps struct {
	OAuth     OAuthProvider
	Users     CredentialStore
	Hasher    Hasher
	Tokens    TokenSigner
	Notifier  ResetNotifier
	Sanitizer security.Sanitizer
	Validator *validation.Validator
	Metrics   metrics.MetricsCollector
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth     OAuthProvider
	users     CredentialStore
	hasher    Hasher
	tokens    TokenSigner
	notifier  ResetNotifier
	sanitizer security.Sanitizer
	validator *validation.Validator
	metrics   metrics.MetricsCollector
	config    ServiceConfig
	now       func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

// NewService はServiceを生成する。
func NewService(deps ServiceDeps, config ServiceConfig) *Service {
	if deps.Notifier == nil {
		deps.Notifier = LogResetNotifier{}
	}
	if deps.Sanitizer == nil {
		deps.Sanitizer = security.NewTextSanitizer()
	}
	if deps.Validator == nil {
		deps.Validator = validation.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if config.ResetTokenTTL <= 0 {
		config.ResetTokenTTL = DefaultResetTokenTTL
	}
	return &Service{
		oauth:     deps.OAuth,
		users:     deps.Users,
		hasher:    deps.Hasher,
		tokens:    deps.Tokens,
		notifier:  deps.Notifier,
		sanitizer: deps.Sanitizer,
		validator: deps.Validator,
		metrics:   deps.Metrics,
		config:    config,
		now:       time.Now,
	}
}

// Signup はローカルアカウントを作成し、トークンを発行する。
func (s *Service) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	result, err := s.signup(ctx, in)
	s.record(metrics.FlowSignup, err)
	return result, err
}

func (s *Service) signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in.Username = s.sanitizer.Sanitize(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	existing, err := s.users.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		return nil, model.NewUserExistsError()
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: digest,
		Role:         model.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewUserExistsError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user signed up", slog.String("user_id", user.ID))
	return s.issue(user)
}

// Login はメールアドレスとパスワードで認証し、トークンを発行する。
// ユーザー不在とパスワード不一致は同一のエラーを返す。
func (s *Service) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	result, err := s.login(ctx, in)
	s.record(metrics.FlowLogin, err)
	return result, err
}

func (s *Service) login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.Resolve(ctx, model.LocalCredentials{Email: in.Email, Password: in.Password})
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return s.issue(user)
}

// ForgotPassword は登録済みのメールアドレスにリセットトークンを発行する。
// 入力形式の誤り以外は常にForgotPasswordMessageを返す。保存や通知の失敗はログにのみ記録する。
func (s *Service) ForgotPassword(ctx context.Context, in ForgotPasswordInput) (string, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validator.Struct(in); err != nil {
		s.record(metrics.FlowForgotPassword, err)
		return "", err
	}
	s.record(metrics.FlowForgotPassword, nil)

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		slog.Error("failed to look up user for password reset", slog.String("error", err.Error()))
		return ForgotPasswordMessage, nil
	}
	if user == nil {
		return ForgotPasswordMessage, nil
	}

	token, err := RandomSecret(resetTokenBytes)
	if err != nil {
		slog.Error("failed to generate reset token", slog.String("error", err.Error()))
		return ForgotPasswordMessage, nil
	}
	expiry := s.now().Add(s.config.ResetTokenTTL)

	if err := s.users.SetResetToken(ctx, user.ID, token, expiry); err != nil {
		slog.Error("failed to store reset token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return ForgotPasswordMessage, nil
	}

	if err := s.notifier.NotifyReset(ctx, user, token, expiry); err != nil {
		slog.Error("failed to deliver reset token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
	return ForgotPasswordMessage, nil
}

// GetLoginURL はIdPの認可URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback は認可コードからプロフィールを取得し、ユーザーを特定または作成してトークンを発行する。
func (s *Service) HandleCallback(ctx context.Context, code string) (*AuthResult, error) {
	result, err := s.handleCallback(ctx, code)
	s.record(metrics.FlowGoogle, err)
	return result, err
}

func (s *Service) handleCallback(ctx context.Context, code string) (*AuthResult, error) {
	if code == "" {
		return nil, errors.New("authorization code is required")
	}

	profile, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	user, err := s.Resolve(ctx, *profile)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// CurrentUser は指定IDのユーザーを返す。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// Resolve は認証情報からユーザーを特定する。
// LocalCredentialsはパスワードを照合し、FederatedProfileは紐付けまたは作成を行う。
func (s *Service) Resolve(ctx context.Context, creds model.Credentials) (*model.User, error) {
	switch c := creds.(type) {
	case model.LocalCredentials:
		return s.resolveLocal(ctx, c)
	case model.FederatedProfile:
		return s.resolveFederated(ctx, c)
	default:
		return nil, fmt.Errorf("unsupported credentials type %T", creds)
	}
}

func (s *Service) resolveLocal(ctx context.Context, c model.LocalCredentials) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(c.Email))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		// ユーザー不在でも照合1回分の時間をかける
		s.hasher.Verify(c.Password, s.dummyHash())
		return nil, model.NewInvalidCredentialsError()
	}
	if !s.hasher.Verify(c.Password, user.PasswordHash) {
		return nil, model.NewInvalidCredentialsError()
	}
	return user, nil
}

// resolveFederated はメールアドレスで既存ユーザーを探し、
// 未連携なら紐付け、連携済みならそのまま、不在なら新規作成する。
func (s *Service) resolveFederated(ctx context.Context, p model.FederatedProfile) (*model.User, error) {
	email := normalizeEmail(p.PrimaryEmail())
	if email == "" {
		return nil, ErrNoVerifiedEmail
	}
	if p.ExternalID == "" {
		return nil, errors.New("federated profile has no external id")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user != nil {
		switch user.GoogleID {
		case p.ExternalID:
			return user, nil
		case "":
			return s.link(ctx, user, p)
		default:
			// 別のGoogleアカウントに紐づいたユーザーには切り替えない
			slog.Warn("email already linked to another google account", slog.String("user_id", user.ID))
			return nil, model.NewIdentityConflictError(false)
		}
	}

	return s.createFederated(ctx, email, p)
}

func (s *Service) link(ctx context.Context, user *model.User, p model.FederatedProfile) (*model.User, error) {
	linked, err := s.users.LinkGoogleID(ctx, user.ID, p.ExternalID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewIdentityConflictError(true)
		}
		return nil, fmt.Errorf("failed to link google account: %w", err)
	}
	if linked == nil {
		return nil, fmt.Errorf("user %s disappeared while linking", user.ID)
	}

	slog.Info("google account linked", slog.String("user_id", linked.ID))
	return linked, nil
}

func (s *Service) createFederated(ctx context.Context, email string, p model.FederatedProfile) (*model.User, error) {
	username := s.sanitizer.Sanitize(DeriveUsername(p.DisplayName))
	if err := s.validator.Field("username", username, "min=3"); err != nil {
		return nil, err
	}

	secret, err := RandomSecret(placeholderSecretSize)
	if err != nil {
		return nil, err
	}
	digest, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: digest,
		Role:         model.RoleUser,
		GoogleID:     p.ExternalID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, s.createConflict(ctx, email, err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user created via google", slog.String("user_id", user.ID))
	return user, nil
}

// createConflict は作成時の一意制約違反を分類する。
// 同じメールアドレスのユーザーが既に作成されていれば並行コールバックとみなし再試行可能とする。
// それ以外は導出したユーザー名の衝突であり、再試行しても解消しない。
func (s *Service) createConflict(ctx context.Context, email string, cause error) error {
	constraint, _ := repository.ConstraintOf(cause)
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		slog.Error("failed to re-check email after conflict", slog.String("error", err.Error()))
	}
	retryable := existing != nil
	slog.Warn("federated account creation conflicted",
		slog.String("constraint", constraint),
		slog.Bool("retryable", retryable),
	)
	return model.NewIdentityConflictError(retryable)
}

func (s *Service) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user.Public()}, nil
}

// dummyHash はユーザー不在時の照合に使うダイジェストを返す。
func (s *Service) dummyHash() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("notekeeper-dummy-password")
		if err != nil {
			slog.Error("failed to prepare dummy hash", slog.String("error", err.Error()))
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}

func (s *Service) record(flow string, err error) {
	s.metrics.RecordAuthAttempt(flow, outcomeOf(err))
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	apiErr, ok := model.AsAPIError(err)
	if !ok {
		return metrics.OutcomeError
	}
	switch apiErr.Kind {
	case model.KindConflict:
		return metrics.OutcomeConflict
	case model.KindInternal:
		return metrics.OutcomeError
	default:
		return metrics.OutcomeFailure
	}
}

// DeriveUsername はIdPの表示名から空白を除去し小文字化したユーザー名を導出する。
func DeriveUsername(displayName string) string {
	return strings.ToLower(strings.Join(strings.Fields(displayName), ""))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
