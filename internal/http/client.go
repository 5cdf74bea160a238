// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

package http

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/askelund/wgarchive/internal/logger"
)

const (
	// DefaultTimeout is the default timeout value for the HTTPClient
	DefaultTimeout = time.Second * 10
)

var (
	// version is the version of the application (will be set at build time)
	version = "dev"
	// UserAgent is the User-Agent that the HTTP client sends with archive requests
	UserAgent = fmt.Sprintf("Mozilla/5.0 (%s; %s) wgarchive/%s (+https://github.com/askelund/wgarchive/)",
		runtime.GOOS,
		runtime.GOARCH,
		version,
	)

	ErrNonPointerTarget = errors.New("target must be a non-nil pointer")
)

// Client is a type wrapper for the Go stdlib http.Client.
//
// The client keeps a cookie jar so that cookies handed out by the site during
// login are carried into subsequent requests. Redirects are not followed; the
// archive signals an expired session with a redirect to its login page and
// callers need to see that response as-is.
type Client struct {
	*http.Client
	logger *logger.Logger
}

// New returns a new HTTP client
func New(log *logger.Logger) *Client {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}
	httpTransport := &http.Transport{TLSClientConfig: tlsConfig}
	jar, _ := cookiejar.New(nil)
	// No Client.Timeout: every request carries a context deadline and the
	// archive fetches need more headroom than the default.
	httpClient := &http.Client{
		Transport: httpTransport,
		Jar:       jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &Client{httpClient, log}
}

// Get performs a HTTP GET request for the given URL and json-unmarshals the response
// into target
func (h *Client) Get(ctx context.Context, endpoint string, target any, query url.Values,
	headers map[string]string, cookies []*http.Cookie,
) (int, error) {
	return h.GetWithTimeout(ctx, endpoint, target, query, headers, cookies, DefaultTimeout)
}

// GetWithTimeout performs a HTTP GET request for the given URL and timeout and
// JSON-unmarshals the response into target
func (h *Client) GetWithTimeout(ctx context.Context, endpoint string, target any, query url.Values,
	headers map[string]string, cookies []*http.Cookie, timeout time.Duration,
) (int, error) {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return 0, ErrNonPointerTarget
	}

	response, err := h.do(ctx, http.MethodGet, endpoint, query, nil, headers, cookies, timeout)
	if err != nil {
		return 0, err
	}
	defer h.closeBody(response.Body)

	// Unmarshal the JSON API response into target
	if err = json.NewDecoder(response.Body).Decode(target); err != nil {
		return response.StatusCode, fmt.Errorf("failed to decode JSON: %w", err)
	}

	return response.StatusCode, nil
}

// GetBody performs a HTTP GET request for the given URL and returns the raw
// response body. Used for the archive's HTML pages where no structured format
// is available.
func (h *Client) GetBody(ctx context.Context, endpoint string, query url.Values,
	headers map[string]string, cookies []*http.Cookie,
) (int, string, error) {
	return h.GetBodyWithTimeout(ctx, endpoint, query, headers, cookies, DefaultTimeout)
}

// GetBodyWithTimeout performs a HTTP GET request for the given URL and timeout and
// returns the raw response body
func (h *Client) GetBodyWithTimeout(ctx context.Context, endpoint string, query url.Values,
	headers map[string]string, cookies []*http.Cookie, timeout time.Duration,
) (int, string, error) {
	response, err := h.do(ctx, http.MethodGet, endpoint, query, nil, headers, cookies, timeout)
	if err != nil {
		return 0, "", err
	}
	defer h.closeBody(response.Body)

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return response.StatusCode, "", fmt.Errorf("failed to read response body: %w", err)
	}
	return response.StatusCode, string(body), nil
}

// PostForm performs a form-encoded HTTP POST request for the given URL and returns
// the raw response body
func (h *Client) PostForm(ctx context.Context, endpoint string, form url.Values,
	headers map[string]string, cookies []*http.Cookie,
) (int, string, error) {
	return h.PostFormWithTimeout(ctx, endpoint, form, headers, cookies, DefaultTimeout)
}

// PostFormWithTimeout performs a form-encoded HTTP POST request for the given URL
// and timeout and returns the raw response body
func (h *Client) PostFormWithTimeout(ctx context.Context, endpoint string, form url.Values,
	headers map[string]string, cookies []*http.Cookie, timeout time.Duration,
) (int, string, error) {
	if headers == nil {
		headers = make(map[string]string)
	}
	headers["Content-Type"] = "application/x-www-form-urlencoded"

	response, err := h.do(ctx, http.MethodPost, endpoint, nil, strings.NewReader(form.Encode()),
		headers, cookies, timeout)
	if err != nil {
		return 0, "", err
	}
	defer h.closeBody(response.Body)

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return response.StatusCode, "", fmt.Errorf("failed to read response body: %w", err)
	}
	return response.StatusCode, string(body), nil
}

// Cookies returns the cookies the jar currently holds for the given endpoint
func (h *Client) Cookies(endpoint string) []*http.Cookie {
	reqURL, err := url.Parse(endpoint)
	if err != nil || h.Jar == nil {
		return nil
	}
	return h.Jar.Cookies(reqURL)
}

func (h *Client) do(ctx context.Context, method, endpoint string, query url.Values, body io.Reader,
	headers map[string]string, cookies []*http.Cookie, timeout time.Duration,
) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Prepare URL and query parameters
	reqURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if len(query) > 0 {
		reqURL.RawQuery = query.Encode()
	}

	// Prepare HTTP request
	request, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed create new HTTP request with context: %w", err)
	}
	request.Header.Set("User-Agent", UserAgent)
	for k, v := range headers {
		request.Header.Set(k, v)
	}
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}

	// Execute HTTP request
	response, err := h.Do(request)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	if response == nil {
		return nil, errors.New("nil response received")
	}
	return response, nil
}

func (h *Client) closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		h.logger.Error("failed to close HTTP request body", logger.Err(err))
	}
}
