// Package models defines the domain types for notekeep.
package models

// User is a registered account. PasswordHash is a bcrypt hash and never
// leaves the process in API responses.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
}

// Profile is the public view of a User.
type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Profile strips credentials from u.
func (u User) Profile() Profile {
	return Profile{ID: u.ID, Email: u.Email, Username: u.Username}
}
