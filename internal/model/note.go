package model

import "time"

// DefaultNoteColor はノートの背景色の既定値。
const DefaultNoteColor = "#ffffff"

// Note はユーザーが作成するメモを表す。
type Note struct {
	ID        string
	UserID    string
	Title     string
	Content   string
	Tags      []string
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
