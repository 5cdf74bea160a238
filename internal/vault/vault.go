// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

// Package vault provides persistent storage for session tokens.
package vault

import (
	"errors"

	"github.com/askelund/wgarchive/internal/session"
)

var (
	// ErrNotFound indicates that no session is stored in the vault
	ErrNotFound = errors.New("no stored session found")
	// ErrUnavailable indicates that the backing secret store cannot be reached
	ErrUnavailable = errors.New("secret store unavailable")
)

// Vault is implemented by each session storage backend. Callers must treat
// every operation as fallible and degrade to "no cached session" on error
// rather than aborting.
type Vault interface {
	// Load retrieves the stored session. Returns ErrNotFound when no session
	// is stored.
	Load() (session.Session, error)
	// Save stores the given session, replacing any previous one.
	Save(sess session.Session) error
	// Clear removes any stored session and username.
	Clear() error
	// SaveUsername stores the login email so later runs can pre-fill it.
	SaveUsername(username string) error
	// LoadUsername retrieves the stored login email, if any.
	LoadUsername() (string, error)
}
