// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

// Package archive fetches and parses the site's per-day archive pages.
package archive

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/askelund/wgarchive/internal/http"
	"github.com/askelund/wgarchive/internal/logger"
	"github.com/askelund/wgarchive/internal/model"
	"github.com/askelund/wgarchive/internal/session"
	"github.com/askelund/wgarchive/internal/spot"
	"github.com/askelund/wgarchive/internal/timeseries"
)

const (
	archiveAjaxPath = "/ajax/ajax_archive.php"
	fetchTimeout    = time.Second * 20

	// minUseHr is the site's minimum-usable-hours form parameter
	minUseHr = 6

	// loginFormMarker appears in responses served to unauthenticated visitors
	loginFormMarker = "wg_login"
	// noDataMarker appears on pages that authenticated fine but have no
	// observations for the requested day
	noDataMarker = "No data"
)

// archiveVariables are the observation fields requested from the archive
var archiveVariables = []string{"WINDSPD", "WINDDIR", "GUST", "TMP", "SLP"}

// Page is the tagged outcome of a single day fetch: the parsed observations
// plus how many rows the page carried and how many of those had to be skipped.
type Page struct {
	Day          time.Time
	Observations []timeseries.Observation
	Rows         int
	Skipped      int
}

// Pager fetches one calendar day of archived observations at a time, the
// site's native pagination unit.
type Pager struct {
	baseURL   string
	stepHours int
	timeout   time.Duration
	http      *http.Client
	logger    *logger.Logger
}

// Option overrides a Pager default.
type Option func(*Pager)

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Pager) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// New returns a new archive Pager. stepHours is the site's observation
// interval; values below 1 fall back to the site default of 2 hours.
func New(baseURL string, stepHours int, httpClient *http.Client, log *logger.Logger,
	opts ...Option,
) *Pager {
	if stepHours < 1 {
		stepHours = 2
	}
	pager := &Pager{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		stepHours: stepHours,
		timeout:   fetchTimeout,
		http:      httpClient,
		logger:    log,
	}
	for _, opt := range opts {
		opt(pager)
	}
	return pager
}

// FetchDay fetches and parses the archive table for exactly one calendar day.
// A day without observations returns an empty page, not an error.
func (p *Pager) FetchDay(ctx context.Context, sess session.Session, sp spot.Spot, m model.Model,
	day time.Time,
) (*Page, error) {
	day = timeseries.Day(day)

	form := url.Values{}
	form.Set("date_from", day.Format(time.DateOnly))
	form.Set("date_to", day.Format(time.DateOnly))
	form.Set("step", strconv.Itoa(p.stepHours))
	form.Set("min_use_hr", strconv.Itoa(minUseHr))
	form.Set("id_spot", strconv.Itoa(sp.ID))
	form.Set("id_model", strconv.Itoa(m.ID))
	form.Set("id_stats_type", "")
	for _, variable := range archiveVariables {
		form.Add("arch_params[]", variable)
	}

	headers := map[string]string{"Referer": p.baseURL + "/archive.php"}
	code, body, err := p.http.PostFormWithTimeout(ctx, p.baseURL+archiveAjaxPath, form, headers,
		sess.Cookies(), p.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, err)
	}

	switch {
	case code >= 300 && code < 400, code == 401, code == 403:
		return nil, ErrSessionExpired
	case code != 200:
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnreachable, code)
	case strings.Contains(body, loginFormMarker):
		return nil, ErrSessionExpired
	}

	page, err := parsePage(body, day, p.stepHours)
	if err != nil {
		return nil, err
	}
	if page.Skipped > 0 {
		p.logger.Warn("archive page parsed partially",
			"day", day.Format(time.DateOnly), "rows", page.Rows, "skipped", page.Skipped)
	}
	return page, nil
}
