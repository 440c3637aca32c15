package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/notekeeper/internal/model"
)

const noteColumns = `id, user_id, title, content, tags, color, created_at, updated_at`

// PostgresNoteRepo はPostgreSQLを使用したノートリポジトリ。
type PostgresNoteRepo struct {
	db *sql.DB
}

// NewPostgresNoteRepo はPostgresNoteRepoを生成する。
func NewPostgresNoteRepo(db *sql.DB) *PostgresNoteRepo {
	return &PostgresNoteRepo{db: db}
}

func scanNote(row rowScanner) (*model.Note, error) {
	note := &model.Note{}
	var tags pq.StringArray
	err := row.Scan(
		&note.ID, &note.UserID, &note.Title, &note.Content, &tags,
		&note.Color, &note.CreatedAt, &note.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	note.Tags = []string(tags)
	if note.Tags == nil {
		note.Tags = []string{}
	}
	return note, nil
}

// ListByUser はユーザーのノートを作成日時の降順で返す。
func (r *PostgresNoteRepo) ListByUser(ctx context.Context, userID string) ([]*model.Note, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := []*model.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}

	return notes, nil
}

// FindByIDAndUser は所有者が一致するノートを取得する。見つからない場合はnilを返す。
func (r *PostgresNoteRepo) FindByIDAndUser(ctx context.Context, id, userID string) (*model.Note, error) {
	note, err := scanNote(r.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find note: %w", err)
	}
	return note, nil
}

// Create はノートを作成する。IDとタイムスタンプはDB側で採番する。
func (r *PostgresNoteRepo) Create(ctx context.Context, note *model.Note) error {
	if note.Color == "" {
		note.Color = model.DefaultNoteColor
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO notes (user_id, title, content, tags, color)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		note.UserID, note.Title, note.Content, pq.Array(nonNilTags(note.Tags)), note.Color,
	).Scan(&note.ID, &note.CreatedAt, &note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}

	return nil
}

// Update はノートの内容を上書きする。対象が存在しない場合はfalseを返す。
func (r *PostgresNoteRepo) Update(ctx context.Context, note *model.Note) (bool, error) {
	err := r.db.QueryRowContext(ctx,
		`UPDATE notes SET title = $3, content = $4, tags = $5, color = $6, updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING created_at, updated_at`,
		note.ID, note.UserID, note.Title, note.Content, pq.Array(nonNilTags(note.Tags)), note.Color,
	).Scan(&note.CreatedAt, &note.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update note: %w", err)
	}
	return true, nil
}

// DeleteByIDAndUser はノートを削除する。対象が存在しない場合はfalseを返す。
func (r *PostgresNoteRepo) DeleteByIDAndUser(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notes WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete note: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// compile-time interface check
var _ NoteRepository = (*PostgresNoteRepo)(nil)
