// Package user は管理者向けのユーザー管理ロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/notekeeper/internal/model"
)

// Store はユーザー管理に必要な永続化操作。
type Store interface {
	List(ctx context.Context) ([]*model.User, error)
	UpdateRole(ctx context.Context, userID string, role model.Role) (*model.User, error)
	UpdateRoleByEmail(ctx context.Context, email string, role model.Role) (*model.User, error)
}

// FieldValidator は単一フィールドの検証を行う。
type FieldValidator interface {
	Field(field string, value any, tag string) error
}

// UpdateRoleInput はロール変更のリクエストボディ。
type UpdateRoleInput struct {
	Role string `json:"role"`
}

// Service はユーザー管理のサービス層。
type Service struct {
	users     Store
	validator FieldValidator
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(users Store, validator FieldValidator) *Service {
	return &Service{users: users, validator: validator}
}

// List は全ユーザーの公開情報を返す。
func (s *Service) List(ctx context.Context) ([]model.PublicUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	result := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		result = append(result, u.Public())
	}
	return result, nil
}

// UpdateRole は指定ユーザーのロールを変更する。
// 未定義のロールは検証エラーを返す。
// 存在しないユーザーとUUIDとして不正なIDはどちらもNotFoundを返す。
func (s *Service) UpdateRole(ctx context.Context, actorID, userID string, in UpdateRoleInput) (*model.PublicUser, error) {
	if err := s.validator.Field("role", in.Role, "required,oneof=user admin"); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(userID); err != nil {
		return nil, model.NewUserNotFoundError()
	}

	updated, err := s.users.UpdateRole(ctx, userID, model.Role(in.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	if updated == nil {
		return nil, model.NewUserNotFoundError()
	}

	slog.Info("user role updated",
		slog.String("actor_id", actorID),
		slog.String("user_id", updated.ID),
		slog.String("role", string(updated.Role)),
	)

	public := updated.Public()
	return &public, nil
}

// PromoteByEmail はメールアドレスで指定したユーザーを管理者に昇格する。
// 運用コマンドから使用する。
func (s *Service) PromoteByEmail(ctx context.Context, email string) (*model.PublicUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.validator.Field("email", email, "required,email"); err != nil {
		return nil, err
	}

	updated, err := s.users.UpdateRoleByEmail(ctx, email, model.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to promote user: %w", err)
	}
	if updated == nil {
		return nil, model.NewUserNotFoundError()
	}

	slog.Info("user promoted to admin", slog.String("user_id", updated.ID))

	public := updated.Public()
	return &public, nil
}
