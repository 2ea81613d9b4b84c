package models

import "github.com/google/uuid"

// User is the account identity behind a connected session.
type User struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	IsEphemeral bool      `json:"isEphemeral"`
}
