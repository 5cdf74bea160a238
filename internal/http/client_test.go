// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

package http

import (
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/askelund/wgarchive/internal/logger"
	"github.com/askelund/wgarchive/internal/testhelper"
)

type testType struct {
	Return string `json:"return"`
	Count  int    `json:"count"`
}

func TestNew(t *testing.T) {
	client := New(logger.NewLogger(slog.LevelError, io.Discard))
	if client == nil {
		t.Fatal("expected client to be non-nil")
	}
	if client.Jar == nil {
		t.Error("expected client to have a cookie jar")
	}
}

func TestClient_Get(t *testing.T) {
	t.Run("getting and serializing JSON should work", func(t *testing.T) {
		var gotCookie, gotHeader string
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			if c, err := req.Cookie("idu"); err == nil {
				gotCookie = c.Value
			}
			gotHeader = req.Header.Get("Referer")
			return testhelper.StringResponse(200, `{"return":"OK","count":3}`)(req)
		}

		client := New(logger.NewLogger(slog.LevelError, io.Discard))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}
		query := url.Values{}
		query.Add("q", "wg_login")
		headers := map[string]string{"Referer": "https://www.example.com"}
		cookies := []*stdhttp.Cookie{{Name: "idu", Value: "12345"}}

		target := new(testType)
		code, err := client.Get(t.Context(), "https://example.com", target, query, headers, cookies)
		if err != nil {
			t.Fatalf("failed to get JSON response: %s", err)
		}
		if code != 200 {
			t.Errorf("expected status code 200, got %d", code)
		}
		if target.Return != "OK" {
			t.Errorf("expected return field to be OK, got %s", target.Return)
		}
		if target.Count != 3 {
			t.Errorf("expected count field to be 3, got %d", target.Count)
		}
		if gotCookie != "12345" {
			t.Errorf("expected idu cookie to be sent, got %q", gotCookie)
		}
		if gotHeader != "https://www.example.com" {
			t.Errorf("expected Referer header to be sent, got %q", gotHeader)
		}
	})
	t.Run("get with non-pointer target should fail", func(t *testing.T) {
		client := New(logger.NewLogger(slog.LevelError, io.Discard))
		client.Transport = testhelper.MockRoundTripper{Fn: testhelper.StringResponse(200, `{}`)}
		if _, err := client.Get(t.Context(), "https://example.com", testType{}, nil, nil, nil); err == nil {
			t.Fatal("expected non-pointer target to fail")
		}
	})
	t.Run("get with broken JSON should fail", func(t *testing.T) {
		client := New(logger.NewLogger(slog.LevelError, io.Discard))
		client.Transport = testhelper.MockRoundTripper{Fn: testhelper.StringResponse(200, `{"return":`)}
		target := new(testType)
		if _, err := client.Get(t.Context(), "https://example.com", target, nil, nil, nil); err == nil {
			t.Fatal("expected broken JSON to fail")
		}
	})
}

func TestClient_GetBody(t *testing.T) {
	t.Run("getting a raw HTML body should work", func(t *testing.T) {
		client := New(logger.NewLogger(slog.LevelError, io.Discard))
		client.Transport = testhelper.MockRoundTripper{
			Fn: testhelper.StringResponse(200, "<html><body>archive</body></html>"),
		}
		code, body, err := client.GetBody(t.Context(), "https://example.com", nil, nil, nil)
		if err != nil {
			t.Fatalf("failed to get HTML body: %s", err)
		}
		if code != 200 {
			t.Errorf("expected status code 200, got %d", code)
		}
		if !strings.Contains(body, "archive") {
			t.Errorf("expected body to contain archive marker, got %q", body)
		}
	})
	t.Run("timeout should surface as error", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		}
		client := New(logger.NewLogger(slog.LevelError, io.Discard))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}
		_, _, err := client.GetBodyWithTimeout(t.Context(), "https://example.com", nil, nil, nil,
			time.Millisecond*50)
		if err == nil {
			t.Fatal("expected timeout to fail the request")
		}
	})
}

func TestClient_PostForm(t *testing.T) {
	t.Run("posting form data should work", func(t *testing.T) {
		var gotContentType, gotBody string
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			gotContentType = req.Header.Get("Content-Type")
			if err := req.ParseForm(); err != nil {
				t.Fatalf("failed to parse posted form: %s", err)
			}
			gotBody = req.PostForm.Get("id_spot")
			return testhelper.StringResponse(200, "<table class=\"daily-archive\"></table>")(req)
		}

		client := New(logger.NewLogger(slog.LevelError, io.Discard))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}

		form := url.Values{}
		form.Set("id_spot", "48743")
		code, _, err := client.PostForm(t.Context(), "https://example.com", form, nil, nil)
		if err != nil {
			t.Fatalf("failed to post form: %s", err)
		}
		if code != 200 {
			t.Errorf("expected status code 200, got %d", code)
		}
		if gotContentType != "application/x-www-form-urlencoded" {
			t.Errorf("expected form content type, got %q", gotContentType)
		}
		if gotBody != "48743" {
			t.Errorf("expected posted id_spot to be 48743, got %q", gotBody)
		}
	})
}
