// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

// Package almanac computes per-day daylight and moon annotations for a spot,
// so chart renderers can shade nights and label phases without touching the
// network.
package almanac

import (
	"time"

	"github.com/nathan-osman/go-sunrise"
	"github.com/wneessen/go-moonphase"

	"github.com/askelund/wgarchive/internal/spot"
	"github.com/askelund/wgarchive/internal/timeseries"
)

// Day annotates one calendar day of a fetched range
type Day struct {
	Date      time.Time `json:"date"`
	Sunrise   time.Time `json:"sunrise"`
	Sunset    time.Time `json:"sunset"`
	MoonPhase string    `json:"moon_phase"`
}

// For returns the annotations for every day of the range at the spot's
// coordinates, keyed by UTC midnight. Spots without known coordinates get
// moon phases only; sunrise and sunset stay zero.
func For(sp spot.Spot, dateRange timeseries.DateRange) map[time.Time]Day {
	days := dateRange.Days()
	annotations := make(map[time.Time]Day, len(days))
	hasCoords := sp.Lat != 0 || sp.Lon != 0
	for _, date := range days {
		day := Day{
			Date:      date,
			MoonPhase: moonphase.New(date.Add(12 * time.Hour)).PhaseName(),
		}
		if hasCoords {
			day.Sunrise, day.Sunset = sunrise.SunriseSunset(sp.Lat, sp.Lon,
				date.Year(), date.Month(), date.Day())
		}
		annotations[date] = day
	}
	return annotations
}
