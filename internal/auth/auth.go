// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

// Package auth exchanges credentials for archive sessions and probes their
// validity.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/askelund/wgarchive/internal/http"
	"github.com/askelund/wgarchive/internal/logger"
	"github.com/askelund/wgarchive/internal/session"
	"github.com/askelund/wgarchive/internal/vault"
)

const (
	apiPath     = "/int/iapi.php"
	archivePath = "/archive.php"
	apiTimeout  = time.Second * 15

	// loginFormMarker appears in the archive page served to unauthenticated
	// visitors
	loginFormMarker = "wg_login"
)

var (
	// ErrInvalidCredentials indicates the site rejected the email/password pair
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnreachable indicates a transport-level failure, distinguished from
	// "token invalid"
	ErrUnreachable = errors.New("login service unreachable")
	// ErrUnexpectedResponse indicates a successful-looking response that did not
	// carry the expected token fields
	ErrUnexpectedResponse = errors.New("unexpected login response")
)

// loginResponse is the JSON document the site's login endpoint returns
type loginResponse struct {
	Return  string `json:"return"`
	Message string `json:"message"`
	Data    struct {
		IDUser   json.Number `json:"id_user"`
		LoginMD5 string      `json:"login_md5"`
	} `json:"data"`
}

// Client performs authentication against the archive site
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger
	vault   vault.Vault
}

// New returns a new authentication Client
func New(baseURL string, httpClient *http.Client, log *logger.Logger, store vault.Vault) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
		logger:  log,
		vault:   store,
	}
}

// LoginWithPassword exchanges an email/password pair for a Session. The site
// hands out the token pair in the login response body and may set additional
// cookies during the exchange.
func (c *Client) LoginWithPassword(ctx context.Context, email, password string) (session.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return session.Session{}, ErrInvalidCredentials
	}

	// Visit the main page first so the site can hand out its baseline cookies
	if _, _, err := c.http.GetBody(ctx, c.baseURL, nil, c.headers(), nil); err != nil {
		return session.Session{}, fmt.Errorf("%w: %s", ErrUnreachable, err)
	}

	query := url.Values{}
	query.Set("q", "wg_login")
	query.Set("username", email)
	query.Set("password", password)

	result := new(loginResponse)
	code, err := c.http.GetWithTimeout(ctx, c.baseURL+apiPath, result, query, c.headers(), nil, apiTimeout)
	if err != nil {
		return session.Session{}, fmt.Errorf("%w: %s", ErrUnreachable, err)
	}
	if code != 200 {
		return session.Session{}, fmt.Errorf("%w: HTTP %d", ErrUnexpectedResponse, code)
	}
	if result.Return != "OK" {
		if result.Message != "" {
			c.logger.Debug("login rejected by site", "message", result.Message)
		}
		return session.Session{}, ErrInvalidCredentials
	}
	if result.Data.IDUser.String() == "" || result.Data.LoginMD5 == "" {
		return session.Session{}, fmt.Errorf("%w: token fields missing", ErrUnexpectedResponse)
	}

	sess := session.New(result.Data.IDUser.String(), result.Data.LoginMD5)
	for _, cookie := range c.http.Cookies(c.baseURL) {
		switch cookie.Name {
		case "session":
			sess.SessionCookie = cookie.Value
		case "deviceid":
			sess.DeviceID = cookie.Value
		}
	}
	return sess, nil
}

// LoginWithTokens accepts an operator-supplied token pair verbatim, for when
// automated login is blocked. No network call is made; validity is established
// lazily on first use.
func (c *Client) LoginWithTokens(authToken, loginDigest string) (session.Session, error) {
	sess := session.New(strings.TrimSpace(authToken), strings.TrimSpace(loginDigest))
	if !sess.Valid() {
		return session.Session{}, fmt.Errorf("%w: both tokens are required", ErrInvalidCredentials)
	}
	return sess, nil
}

// Validate issues a lightweight authenticated probe against the archive page.
// It returns false with a nil error when the site no longer accepts the
// session, and a non-nil error only on transport failure.
func (c *Client) Validate(ctx context.Context, sess session.Session) (bool, error) {
	if !sess.Valid() {
		return false, nil
	}
	code, body, err := c.http.GetBody(ctx, c.baseURL+archivePath, nil, c.headers(), sess.Cookies())
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrUnreachable, err)
	}
	if code >= 300 && code < 400 {
		return false, nil
	}
	if code != 200 {
		return false, nil
	}
	return !strings.Contains(body, loginFormMarker), nil
}

// Invalidate drops the cached copy of the session from the vault. It is a
// local-only operation and never contacts the server.
func (c *Client) Invalidate(sess session.Session) {
	if err := c.vault.Clear(); err != nil && !errors.Is(err, vault.ErrNotFound) {
		c.logger.Warn("failed to clear cached session", logger.Err(err))
	}
}

func (c *Client) headers() map[string]string {
	return map[string]string{"Referer": c.baseURL}
}
