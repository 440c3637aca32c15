// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限ロールを表す。
type Role string

const (
	// RoleUser は一般ユーザーのロール。新規作成時のデフォルト。
	RoleUser Role = "user"
	// RoleAdmin は管理者ロール。
	RoleAdmin Role = "admin"
)

// Valid はロールが定義済みの値かどうかを返す。
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User はサービス利用ユーザーを表す。
// PasswordHashはGoogleログインのみのユーザーでもプレースホルダーのハッシュが必ず入る。
type User struct {
	ID               string
	Username         string
	Email            string
	PasswordHash     string
	Role             Role
	GoogleID         string // 未連携の場合は空文字
	ResetToken       string
	ResetTokenExpiry time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PublicUser はレスポンスに含めてよいユーザー情報の射影。
// パスワードハッシュやリセットトークンは含まない。
type PublicUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// Public はユーザーの公開情報を返す。
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}

// HasValidResetGrant はパスワードリセットトークンが存在し、有効期限内かどうかを返す。
func (u *User) HasValidResetGrant(now time.Time) bool {
	return u.ResetToken != "" && now.Before(u.ResetTokenExpiry)
}

// HasRole は指定ロールのいずれかを持つかどうかを返す。
func (u *User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
