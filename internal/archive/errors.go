// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

package archive

import "errors"

var (
	// ErrSessionExpired indicates the site no longer accepts the session tokens
	ErrSessionExpired = errors.New("session expired")
	// ErrParseFailure indicates a page whose rows were present but entirely
	// unparseable, a sign of systematic format drift
	ErrParseFailure = errors.New("archive page could not be parsed")
	// ErrUnreachable indicates a transport-level failure
	ErrUnreachable = errors.New("archive unreachable")
	// ErrNoData indicates that an entire requested range yielded nothing
	ErrNoData = errors.New("no archive data for the requested range")
)
