// Package note はユーザーが所有するノートのCRUDを提供する。
package note

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/notekeeper/internal/model"
	"github.com/hitoshi/notekeeper/internal/repository"
	"github.com/hitoshi/notekeeper/internal/security"
)

// StructValidator は構造体の検証タグを評価する。
type StructValidator interface {
	Struct(s any) error
}

// Input はノート作成・更新のリクエストボディ。
type Input struct {
	Title   string   `json:"title" validate:"required,max=100"`
	Content string   `json:"content" validate:"required"`
	Tags    []string `json:"tags" validate:"max=20,dive,max=50"`
	Color   string   `json:"color" validate:"omitempty,hexcolor"`
}

// View はノートのレスポンス表現。
type View struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Service はノートのサービス層。全ての操作は所有者で絞り込む。
type Service struct {
	notes     repository.NoteRepository
	validator StructValidator
	content   security.Sanitizer
	text      security.Sanitizer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(notes repository.NoteRepository, validator StructValidator, content, text security.Sanitizer) *Service {
	return &Service{
		notes:     notes,
		validator: validator,
		content:   content,
		text:      text,
	}
}

// List はユーザーのノートを新しい順に返す。
func (s *Service) List(ctx context.Context, userID string) ([]View, error) {
	notes, err := s.notes.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	views := make([]View, 0, len(notes))
	for _, n := range notes {
		views = append(views, toView(n))
	}
	return views, nil
}

// Get は指定ノートを返す。
// IDが不正・存在しない・他ユーザー所有のいずれもNotFoundとして扱う。
func (s *Service) Get(ctx context.Context, userID, noteID string) (*View, error) {
	if !validID(noteID) {
		return nil, model.NewNoteNotFoundError()
	}

	n, err := s.notes.FindByIDAndUser(ctx, noteID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	if n == nil {
		return nil, model.NewNoteNotFoundError()
	}
	v := toView(n)
	return &v, nil
}

// Create はノートを作成する。
func (s *Service) Create(ctx context.Context, userID string, in Input) (*View, error) {
	n, err := s.prepare(in)
	if err != nil {
		return nil, err
	}
	n.UserID = userID

	if err := s.notes.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	slog.Info("note created",
		slog.String("user_id", userID),
		slog.String("note_id", n.ID),
	)

	v := toView(n)
	return &v, nil
}

// Update はノートの内容を置き換える。
func (s *Service) Update(ctx context.Context, userID, noteID string, in Input) (*View, error) {
	if !validID(noteID) {
		return nil, model.NewNoteNotFoundError()
	}

	n, err := s.prepare(in)
	if err != nil {
		return nil, err
	}
	n.ID = noteID
	n.UserID = userID

	found, err := s.notes.Update(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to update note: %w", err)
	}
	if !found {
		return nil, model.NewNoteNotFoundError()
	}

	v := toView(n)
	return &v, nil
}

// Delete はノートを削除する。
func (s *Service) Delete(ctx context.Context, userID, noteID string) error {
	if !validID(noteID) {
		return model.NewNoteNotFoundError()
	}

	found, err := s.notes.DeleteByIDAndUser(ctx, noteID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	if !found {
		return model.NewNoteNotFoundError()
	}

	slog.Info("note deleted",
		slog.String("user_id", userID),
		slog.String("note_id", noteID),
	)
	return nil
}

// prepare は入力を無害化・正規化してから検証し、保存用のノートを組み立てる。
func (s *Service) prepare(in Input) (*model.Note, error) {
	in.Title = s.text.Sanitize(in.Title)
	in.Content = strings.TrimSpace(s.content.Sanitize(in.Content))
	in.Color = strings.TrimSpace(in.Color)
	in.Tags = s.normalizeTags(in.Tags)

	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	color := in.Color
	if color == "" {
		color = model.DefaultNoteColor
	}
	return &model.Note{
		Title:   in.Title,
		Content: in.Content,
		Tags:    in.Tags,
		Color:   strings.ToLower(color),
	}, nil
}

// normalizeTags は各タグを無害化し、空のタグと重複を取り除く。
func (s *Service) normalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = s.text.Sanitize(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		result = append(result, t)
	}
	return result
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func toView(n *model.Note) View {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return View{
		ID:        n.ID,
		Title:     n.Title,
		Content:   n.Content,
		Tags:      tags,
		Color:     n.Color,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}
