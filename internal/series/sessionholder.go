// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

package series

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/askelund/wgarchive/internal/archive"
	"github.com/askelund/wgarchive/internal/session"
)

// sessionHolder guards the session shared by all in-flight day fetches. The
// session is an immutable value, replaced wholesale on refresh; readers never
// observe a half-updated token pair.
type sessionHolder struct {
	reauth ReauthFunc
	sf     singleflight.Group

	mu   sync.RWMutex
	sess session.Session
	used bool
}

func newSessionHolder(sess session.Session, reauth ReauthFunc) *sessionHolder {
	return &sessionHolder{sess: sess, reauth: reauth}
}

// current returns the session to fetch with
func (h *sessionHolder) current() session.Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sess
}

// refresh exchanges the session for a fresh one when the given stale session
// is still the current one. Concurrent callers coalesce into a single
// re-authentication; a caller whose session was already replaced gets the
// replacement without consuming the one refresh the range is allowed.
func (h *sessionHolder) refresh(ctx context.Context, stale session.Session) (session.Session, error) {
	h.mu.RLock()
	if h.sess != stale {
		fresh := h.sess
		h.mu.RUnlock()
		return fresh, nil
	}
	h.mu.RUnlock()

	result, err, _ := h.sf.Do("refresh", func() (any, error) {
		h.mu.Lock()
		if h.sess != stale {
			fresh := h.sess
			h.mu.Unlock()
			return fresh, nil
		}
		if h.used {
			h.mu.Unlock()
			return nil, fmt.Errorf("%w: session expired again after re-authentication", archive.ErrSessionExpired)
		}
		h.used = true
		h.mu.Unlock()

		if h.reauth == nil {
			return nil, fmt.Errorf("%w: no re-authentication path available", archive.ErrSessionExpired)
		}
		fresh, err := h.reauth(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: re-authentication failed: %s", archive.ErrSessionExpired, err)
		}

		h.mu.Lock()
		h.sess = fresh
		h.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return session.Session{}, err
	}
	return result.(session.Session), nil
}
