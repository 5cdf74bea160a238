// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

package vault

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/askelund/wgarchive/internal/session"
)

const (
	serviceName    = "wgarchive"
	keyAuthToken   = "idu"
	keyLoginDigest = "login_md5"
	keyUsername    = "username"
)

// Keyring stores the session in the OS keyring (Secret Service on Linux,
// Keychain on macOS, Credential Manager on Windows).
type Keyring struct{}

// NewKeyring returns a Vault backed by the OS keyring
func NewKeyring() *Keyring {
	return &Keyring{}
}

// Load implements the Vault interface
func (k *Keyring) Load() (session.Session, error) {
	authToken, err := keyring.Get(serviceName, keyAuthToken)
	if err != nil {
		return session.Session{}, wrapErr(err)
	}
	loginDigest, err := keyring.Get(serviceName, keyLoginDigest)
	if err != nil {
		return session.Session{}, wrapErr(err)
	}
	sess := session.New(authToken, loginDigest)
	if !sess.Valid() {
		return session.Session{}, ErrNotFound
	}
	return sess, nil
}

// Save implements the Vault interface
func (k *Keyring) Save(sess session.Session) error {
	if err := keyring.Set(serviceName, keyAuthToken, sess.AuthToken); err != nil {
		return wrapErr(err)
	}
	if err := keyring.Set(serviceName, keyLoginDigest, sess.LoginDigest); err != nil {
		return wrapErr(err)
	}
	return nil
}

// Clear implements the Vault interface
func (k *Keyring) Clear() error {
	var lastErr error
	for _, key := range []string{keyAuthToken, keyLoginDigest, keyUsername} {
		if err := keyring.Delete(serviceName, key); err != nil &&
			!errors.Is(err, keyring.ErrNotFound) {
			lastErr = wrapErr(err)
		}
	}
	return lastErr
}

// SaveUsername implements the Vault interface
func (k *Keyring) SaveUsername(username string) error {
	if err := keyring.Set(serviceName, keyUsername, username); err != nil {
		return wrapErr(err)
	}
	return nil
}

// LoadUsername implements the Vault interface
func (k *Keyring) LoadUsername() (string, error) {
	username, err := keyring.Get(serviceName, keyUsername)
	if err != nil {
		return "", wrapErr(err)
	}
	return username, nil
}

func wrapErr(err error) error {
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %s", ErrUnavailable, err)
}
