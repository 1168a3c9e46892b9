package models

// Category is a user-defined label for notes.
type Category struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"userId"`
}

// DefaultCategories are seeded for every new user.
var DefaultCategories = []string{"Work", "Study", "Personal"}
