package model

import "time"

// User is an account that can own reviews and submit review requests.
// An empty PasswordHash means the account cannot log in (e.g. imported authors).
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
