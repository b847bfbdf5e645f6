// Package models holds server-side rows that carry fields never sent over
// the wire.
package models

import sm "loyalty/internal/shared/models"

// UserRecord is a user together with its stored password hash.
type UserRecord struct {
	sm.User
	PasswordHash string
}

// BusinessRecord is a business together with the user that owns it.
type BusinessRecord struct {
	sm.Business
	OwnerID string
}
