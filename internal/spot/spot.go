// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

// Package spot resolves human search strings to archive spot identifiers.
package spot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/askelund/wgarchive/internal/http"
	"github.com/askelund/wgarchive/internal/logger"
	"github.com/askelund/wgarchive/internal/session"
)

const (
	apiPath    = "/int/iapi.php"
	apiTimeout = time.Second * 10

	// maxResults caps how many site suggestions are turned into spots
	maxResults = 10
)

// ErrEmptyQuery indicates that the caller passed an empty or whitespace-only
// search string
var ErrEmptyQuery = errors.New("search query must not be empty")

// Spot is a named geographic location tracked by the site. Immutable once
// resolved.
type Spot struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// String returns the user-facing representation of the spot
func (s Spot) String() string {
	if s.Country != "" {
		return fmt.Sprintf("%s - %s (ID: %d)", s.Country, s.Name, s.ID)
	}
	return fmt.Sprintf("%s (ID: %d)", s.Name, s.ID)
}

// searchResponse is the JSON document the site's autocomplete endpoint returns
type searchResponse struct {
	Suggestions []struct {
		Value  string      `json:"value"`
		Data   json.Number `json:"data"`
		LatLon string      `json:"latlon"`
	} `json:"suggestions"`
}

// Directory performs spot searches against the site
type Directory struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger
}

// New returns a new spot Directory
func New(baseURL string, httpClient *http.Client, log *logger.Logger) *Directory {
	return &Directory{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpClient,
		logger:  log,
	}
}

// Search submits the query to the site's spot search endpoint and returns the
// matching spots in the site's own relevance order. An empty result is not an
// error; the site's "no matches" answer is a valid outcome.
func (d *Directory) Search(ctx context.Context, sess session.Session, query string) ([]Spot, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	params := url.Values{}
	params.Set("q", "autocomplete_ss")
	params.Set("type_info", "true")
	params.Set("all", "0")
	params.Set("latlon", "1")
	params.Set("country", "1")
	params.Set("favourite", "1")
	params.Set("custom", "1")
	params.Set("stations", "1")
	params.Set("geonames", "40")
	params.Set("spots", "1")
	params.Set("priority_sort", "1")
	params.Set("query", query)

	result := new(searchResponse)
	code, err := d.http.GetWithTimeout(ctx, d.baseURL+apiPath, result, params,
		map[string]string{"Referer": d.baseURL}, sess.Cookies(), apiTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to search for spots: %w", err)
	}
	if code != 200 {
		return nil, fmt.Errorf("spot search returned unexpected status: HTTP %d", code)
	}

	spots := make([]Spot, 0, len(result.Suggestions))
	for _, suggestion := range result.Suggestions {
		if len(spots) >= maxResults {
			break
		}
		id, err := strconv.Atoi(suggestion.Data.String())
		if err != nil {
			d.logger.Debug("skipping suggestion with non-numeric id", "value", suggestion.Value)
			continue
		}
		s := Spot{ID: id, Name: suggestion.Value}
		// The site encodes the country as a "Country - Name" prefix
		if country, name, found := strings.Cut(suggestion.Value, " - "); found {
			s.Country = country
			s.Name = name
		}
		s.Lat, s.Lon = parseLatLon(suggestion.LatLon)
		spots = append(spots, s)
	}
	return spots, nil
}

// parseLatLon reads the site's "lat lon" suggestion field, tolerating a comma
// separator and absent values
func parseLatLon(latlon string) (float64, float64) {
	fields := strings.FieldsFunc(strings.TrimSpace(latlon), func(r rune) bool {
		return r == ' ' || r == ','
	})
	if len(fields) != 2 {
		return 0, 0
	}
	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0
	}
	lon, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0
	}
	return lat, lon
}
