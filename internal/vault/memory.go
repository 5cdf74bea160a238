// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

package vault

import (
	"sync"

	"github.com/askelund/wgarchive/internal/session"
)

// Memory is an in-process Vault for tests and for systems without a usable
// keyring. Reads can run concurrently, writes are serialized.
type Memory struct {
	mu       sync.RWMutex
	sess     session.Session
	hasSess  bool
	username string
}

// NewMemory returns a Vault that stores the session in process memory only
func NewMemory() *Memory {
	return &Memory{}
}

// Load implements the Vault interface
func (m *Memory) Load() (session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.hasSess {
		return session.Session{}, ErrNotFound
	}
	return m.sess, nil
}

// Save implements the Vault interface
func (m *Memory) Save(sess session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = sess
	m.hasSess = true
	return nil
}

// Clear implements the Vault interface
func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sess = session.Session{}
	m.hasSess = false
	m.username = ""
	return nil
}

// SaveUsername implements the Vault interface
func (m *Memory) SaveUsername(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.username = username
	return nil
}

// LoadUsername implements the Vault interface
func (m *Memory) LoadUsername() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.username == "" {
		return "", ErrNotFound
	}
	return m.username, nil
}
