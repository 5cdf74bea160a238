// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

// Package timeseries defines the gap-aware observation series the archive
// fetcher produces.
package timeseries

import (
	"encoding/json"
	"sort"
	"time"
)

// Measure is a numeric field that may be absent on the source page. Absent
// fields stay absent; they are never coerced to zero.
type Measure struct {
	Set   bool
	Value float64
}

// Some returns a present Measure with the given value
func Some(value float64) Measure {
	return Measure{Set: true, Value: value}
}

// MarshalJSON implements the json.Marshaler interface, emitting null for
// absent measures
func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Set {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (m *Measure) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Measure{}
		return nil
	}
	if err := json.Unmarshal(data, &m.Value); err != nil {
		return err
	}
	m.Set = true
	return nil
}

// Observation is a single archived measurement instant. Wind speed and gusts
// are in the site's native unit (knots), direction in compass degrees.
type Observation struct {
	Time        time.Time `json:"time"`
	WindSpeed   Measure   `json:"wind_speed"`
	WindGust    Measure   `json:"wind_gust"`
	WindDirDeg  Measure   `json:"wind_dir_deg"`
	Temperature Measure   `json:"temperature"`
	Pressure    Measure   `json:"pressure"`
}

// Series is an ordered sequence of observations with strictly increasing,
// unique timestamps.
type Series []Observation

// Merge combines observations from multiple page fetches into a Series. The
// input order is fetch order: when two fetches carry the same instant (a page
// boundary artifact), the later-fetched observation wins since it reflects
// the freshest page state.
func Merge(observations []Observation) Series {
	byTime := make(map[int64]Observation, len(observations))
	for _, obs := range observations {
		byTime[obs.Time.UTC().Unix()] = obs
	}
	series := make(Series, 0, len(byTime))
	for _, obs := range byTime {
		obs.Time = obs.Time.UTC()
		series = append(series, obs)
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Time.Before(series[j].Time)
	})
	return series
}

// Timespan returns the first and last timestamps of the series
func (s Series) Timespan() (time.Time, time.Time) {
	if len(s) == 0 {
		return time.Time{}, time.Time{}
	}
	return s[0].Time, s[len(s)-1].Time
}
