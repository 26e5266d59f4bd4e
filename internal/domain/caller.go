package domain

import "time"

// Caller is an authenticated principal owning credentials and channels.
// Identity is immutable after creation.
type Caller struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	LastLogin    *time.Time
}
