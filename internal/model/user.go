// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// PasswordHash carries the `json:"-"` tag so a User can never leak its hash
// through encoding/json, no matter which handler serializes it.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"` // always stored trimmed and lower-cased
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Profile is the public view of a user returned by the auth endpoints.
type Profile struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// PublicProfile returns the id/name/email triple issued alongside tokens.
func (u *User) PublicProfile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email}
}
