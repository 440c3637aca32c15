package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/notekeeper/internal/model"
)

const userColumns = `id, username, email, password_hash, role, google_id,
	reset_token, reset_token_expiry, created_at, updated_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	var role string
	var googleID, resetToken sql.NullString
	var resetExpiry sql.NullTime

	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &role, &googleID,
		&resetToken, &resetExpiry, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = model.Role(role)
	user.GoogleID = googleID.String
	user.ResetToken = resetToken.String
	if resetExpiry.Valid {
		user.ResetTokenExpiry = resetExpiry.Time
	}
	return user, nil
}

// findOne は1行を返すクエリを実行する。該当行がない場合はnilを返す。
func (r *PostgresUserRepo) findOne(ctx context.Context, op, query string, args ...any) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "find user by ID",
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByEmail はメールアドレスでユーザーを取得する。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "find user by email",
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByUsernameOrEmail はユーザー名またはメールアドレスが一致するユーザーを取得する。
func (r *PostgresUserRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	return r.findOne(ctx, "find user by username or email",
		`SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $2 LIMIT 1`, username, email)
}

// FindByGoogleID はGoogleアカウントIDでユーザーを取得する。
func (r *PostgresUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return r.findOne(ctx, "find user by google ID",
		`SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID)
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password_hash, role, google_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		user.Username, user.Email, user.PasswordHash, string(user.Role), nullString(user.GoogleID),
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", translateError(err))
	}

	return nil
}

// LinkGoogleID は既存ユーザーにGoogleアカウントIDを紐付ける。
// 対象ユーザーが存在しない場合はnilを返す。
func (r *PostgresUserRepo) LinkGoogleID(ctx context.Context, userID, googleID string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`UPDATE users SET google_id = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		userID, googleID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to link google ID: %w", translateError(err))
	}
	return user, nil
}

// UpdateRole はユーザーのロールを更新する。対象ユーザーが存在しない場合はnilを返す。
func (r *PostgresUserRepo) UpdateRole(ctx context.Context, userID string, role model.Role) (*model.User, error) {
	return r.findOne(ctx, "update user role",
		`UPDATE users SET role = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+userColumns,
		userID, string(role))
}

// UpdateRoleByEmail はメールアドレスで指定したユーザーのロールを更新する。
func (r *PostgresUserRepo) UpdateRoleByEmail(ctx context.Context, email string, role model.Role) (*model.User, error) {
	return r.findOne(ctx, "update user role by email",
		`UPDATE users SET role = $2, updated_at = now()
		 WHERE email = $1
		 RETURNING `+userColumns,
		email, string(role))
}

// SetResetToken はパスワードリセットトークンと有効期限を保存する。
func (r *PostgresUserRepo) SetResetToken(ctx context.Context, userID, token string, expiry time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token = $2, reset_token_expiry = $3, updated_at = now()
		 WHERE id = $1`,
		userID, token, expiry,
	)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// ClearExpiredResetTokens は期限切れのリセットトークンを削除する。
func (r *PostgresUserRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET reset_token = NULL, reset_token_expiry = NULL
		 WHERE reset_token IS NOT NULL AND reset_token_expiry <= $1`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired reset tokens: %w", err)
	}
	return result.RowsAffected()
}

// List は全ユーザーを作成日時の昇順で返す。
func (r *PostgresUserRepo) List(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
