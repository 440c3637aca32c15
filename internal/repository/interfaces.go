// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/notekeeper/internal/model"
)

// UserRepository はユーザー（認証情報）の永続化インターフェース。
// 検索系メソッドは見つからない場合にnilを返す。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByUsernameOrEmail はユーザー名またはメールアドレスが一致するユーザーを1件取得する。
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error)

	// FindByGoogleID はGoogleアカウントIDでユーザーを取得する。
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)

	// Create はユーザーを作成する。IDとタイムスタンプはDB側で採番しuserに反映する。
	// 一意制約違反の場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// LinkGoogleID は既存ユーザーにGoogleアカウントIDを紐付ける。
	LinkGoogleID(ctx context.Context, userID, googleID string) (*model.User, error)

	// UpdateRole はユーザーのロールを更新し、更新後のユーザーを返す。
	UpdateRole(ctx context.Context, userID string, role model.Role) (*model.User, error)

	// UpdateRoleByEmail はメールアドレスで指定したユーザーのロールを更新する。
	UpdateRoleByEmail(ctx context.Context, email string, role model.Role) (*model.User, error)

	// SetResetToken はパスワードリセットトークンと有効期限を保存する。
	SetResetToken(ctx context.Context, userID, token string, expiry time.Time) error

	// ClearExpiredResetTokens は期限切れのリセットトークンを削除し、対象件数を返す。
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)

	// List は全ユーザーを作成日時の昇順で返す。
	List(ctx context.Context) ([]*model.User, error)
}

// NoteRepository はノートの永続化インターフェース。
// すべての操作は所有ユーザーで絞り込む。
type NoteRepository interface {
	// ListByUser はユーザーのノートを作成日時の降順で返す。
	ListByUser(ctx context.Context, userID string) ([]*model.Note, error)

	// FindByIDAndUser は指定IDのノートを取得する。所有者が異なる場合もnilを返す。
	FindByIDAndUser(ctx context.Context, id, userID string) (*model.Note, error)

	// Create はノートを作成する。
	Create(ctx context.Context, note *model.Note) error

	// Update はノートを更新する。対象が存在しない場合はfalseを返す。
	Update(ctx context.Context, note *model.Note) (bool, error)

	// DeleteByIDAndUser はノートを削除する。対象が存在しない場合はfalseを返す。
	DeleteByIDAndUser(ctx context.Context, id, userID string) (bool, error)
}
