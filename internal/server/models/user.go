package models

import "time"

// User is one account. PasswordHash holds a bcrypt encoding and is never
// rendered or logged.
type User struct {
	ID           string
	UserName     string
	PasswordHash string
	CreatedAt    time.Time
}
