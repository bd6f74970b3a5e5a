// Package user defines the account model used throughout the application,
// particularly for authentication and party ownership.
package user

import "time"

// User represents a registered account.
// Every party belongs to exactly one user.
type User struct {
	// ID is the storage-assigned numeric identifier of the user.
	ID int64 `json:"id"`

	// Username is unique across all accounts.
	Username string `json:"username"`

	// PasswordHash is the bcrypt hash of the password. Responses carry models.UserInfo instead.
	PasswordHash string `json:"passwordHash"`

	CreatedAt time.Time `json:"createdAt"`
}
