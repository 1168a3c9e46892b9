package models

import "time"

// Note is a single text note owned by a user. Category is a free string,
// not a reference to a Category record.
type Note struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Title      string     `json:"title,omitempty"`
	Content    string     `json:"content"`
	Category   string     `json:"category"`
	DateAdded  time.Time  `json:"dateAdded"`
	DateEdited *time.Time `json:"dateEdited,omitempty"`
}

// NoteDraft is a note that has not been stored yet. A zero DateAdded is
// stamped with the current time on insert.
type NoteDraft struct {
	UserID    string
	Title     string
	Content   string
	Category  string
	DateAdded time.Time
}

// NotePatch carries the fields to overwrite on update; nil fields are kept.
type NotePatch struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	Category *string `json:"category,omitempty"`
}

// Apply merges p over n.
func (p NotePatch) Apply(n Note) Note {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Category != nil {
		n.Category = *p.Category
	}
	return n
}
