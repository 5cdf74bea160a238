// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

package session

import (
	"strings"
	"testing"
)

func TestSession_Valid(t *testing.T) {
	tests := []struct {
		name        string
		authToken   string
		loginDigest string
		want        bool
	}{
		{"both tokens present", "123456", "d41d8cd98f00b204e9800998ecf8427e", true},
		{"missing auth token", "", "d41d8cd98f00b204e9800998ecf8427e", false},
		{"missing login digest", "123456", "", false},
		{"both tokens missing", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sess := Session{AuthToken: tc.authToken, LoginDigest: tc.loginDigest}
			if sess.Valid() != tc.want {
				t.Errorf("expected Valid to return %t", tc.want)
			}
		})
	}
}

func TestSession_Cookies(t *testing.T) {
	t.Run("mandatory cookies are always present", func(t *testing.T) {
		sess := New("123456", "d41d8cd98f00b204e9800998ecf8427e")
		cookies := sess.Cookies()
		found := make(map[string]string)
		for _, c := range cookies {
			found[c.Name] = c.Value
		}
		if found["idu"] != "123456" {
			t.Errorf("expected idu cookie to be 123456, got %q", found["idu"])
		}
		if found["login_md5"] != "d41d8cd98f00b204e9800998ecf8427e" {
			t.Errorf("unexpected login_md5 cookie: %q", found["login_md5"])
		}
		if !strings.HasSuffix(found["langc"], "-") {
			t.Errorf("expected langc cookie to end with a dash, got %q", found["langc"])
		}
	})
	t.Run("optional cookies only when set", func(t *testing.T) {
		sess := Session{AuthToken: "1", LoginDigest: "2"}
		if len(sess.Cookies()) != 3 {
			t.Errorf("expected 3 cookies, got %d", len(sess.Cookies()))
		}
		sess.SessionCookie = "abc"
		sess.DeviceID = "dev-1"
		if len(sess.Cookies()) != 5 {
			t.Errorf("expected 5 cookies, got %d", len(sess.Cookies()))
		}
	})
	t.Run("empty lang falls back to default", func(t *testing.T) {
		sess := Session{AuthToken: "1", LoginDigest: "2"}
		for _, c := range sess.Cookies() {
			if c.Name == "langc" && c.Value == "" {
				t.Error("expected langc cookie to carry the default language")
			}
		}
	})
}
