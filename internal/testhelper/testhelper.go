// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

// Package testhelper provides shared helpers for the wgarchive test suites.
package testhelper

import (
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
)

// RoundTripFunc is the signature of a mocked HTTP round trip.
type RoundTripFunc func(req *http.Request) (*http.Response, error)

// MockRoundTripper satisfies http.RoundTripper with a user-provided function,
// so tests can serve canned responses without a network.
type MockRoundTripper struct {
	Fn RoundTripFunc
}

// RoundTrip implements the http.RoundTripper interface
func (m MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.Fn(req)
}

// FileResponse returns a RoundTripFunc that serves the contents of the given
// testdata file with a 200 status code.
func FileResponse(t *testing.T, path string) RoundTripFunc {
	t.Helper()
	return func(req *http.Request) (*http.Response, error) {
		data, err := os.Open(path)
		if err != nil {
			t.Fatalf("failed to open response fixture file: %s", err)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       data,
			Header:     make(http.Header),
		}, nil
	}
}

// StringResponse returns a RoundTripFunc that serves the given body with the
// given status code.
func StringResponse(code int, body string) RoundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: code,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
		}, nil
	}
}
