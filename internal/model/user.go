// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. There is no inheritance;
// Go favours composition.
package model

import "time"

// User is a registered account.
//
// PasswordHash carries `json:"-"` so the bcrypt hash can never leak into a
// response, even if a handler serialises the whole struct.
//
// Photo is the asset store path ("images/users/1700000000_me.png"), empty
// when the user registered without one. PhotoURL is filled in by the
// service layer from the store and is never persisted.
type User struct {
	ID           string    `json:"id"           db:"id"`
	Name         string    `json:"name"         db:"name"`
	Email        string    `json:"email"        db:"email"`
	PhoneNumber  string    `json:"phone_number" db:"phone_number"`
	Photo        string    `json:"photo"        db:"photo"`
	PhotoURL     string    `json:"photo_url,omitempty"`
	PasswordHash string    `json:"-"            db:"password"`
	CreatedAt    time.Time `json:"created_at"   db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"   db:"updated_at"`
}

// AccessToken is the server-side record of an issued bearer token.
// The JWT's "jti" claim is the ID. Deleting the row revokes the token
// even though its signature and expiry are still valid.
type AccessToken struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}
