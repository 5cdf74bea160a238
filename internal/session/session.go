// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

// Package session defines the token pair that authorizes archive requests.
package session

import (
	"net/http"
	"time"

	"github.com/Xuanwo/go-locale"
	"golang.org/x/text/language"
)

// DefaultLang is the language cookie value the site expects when no host
// locale can be determined.
const DefaultLang = "en-"

// Session holds the opaque token pair the site hands out on login. A Session
// is a value type; a refreshed session replaces the old one wholesale, the
// fields are never mutated in place.
type Session struct {
	// AuthToken is the site's idu cookie value
	AuthToken string
	// LoginDigest is the site's login_md5 cookie value
	LoginDigest string
	// SessionCookie and DeviceID are optional cookies the site may set during login
	SessionCookie string
	DeviceID      string
	// Lang is the langc language cookie value
	Lang string
	// ExpiresAt is an optional expiry hint; the zero value means unknown
	ExpiresAt time.Time
}

// New returns a Session for the given token pair with the language cookie
// derived from the host locale.
func New(authToken, loginDigest string) Session {
	return Session{
		AuthToken:   authToken,
		LoginDigest: loginDigest,
		Lang:        langCookie(),
	}
}

// Valid reports whether the session is fully populated. The tokens are opaque
// strings, so this only guards against partial sessions; whether the site
// still accepts them can only be probed (see the auth package).
func (s Session) Valid() bool {
	return s.AuthToken != "" && s.LoginDigest != ""
}

// Cookies returns the session as the cookie set the site expects on
// authenticated requests.
func (s Session) Cookies() []*http.Cookie {
	lang := s.Lang
	if lang == "" {
		lang = DefaultLang
	}
	cookies := []*http.Cookie{
		{Name: "idu", Value: s.AuthToken},
		{Name: "login_md5", Value: s.LoginDigest},
		{Name: "langc", Value: lang},
	}
	if s.SessionCookie != "" {
		cookies = append(cookies, &http.Cookie{Name: "session", Value: s.SessionCookie})
	}
	if s.DeviceID != "" {
		cookies = append(cookies, &http.Cookie{Name: "deviceid", Value: s.DeviceID})
	}
	return cookies
}

// langCookie derives the site's langc cookie value from the host locale,
// falling back to DefaultLang when detection fails.
func langCookie() string {
	tag, err := locale.Detect()
	if err != nil || tag == language.Und {
		return DefaultLang
	}
	base, conf := tag.Base()
	if conf == language.No {
		return DefaultLang
	}
	return base.String() + "-"
}
