// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

// Package presenter renders spot listings and fetch summaries for the
// terminal front-end. The series itself is emitted as JSON elsewhere.
package presenter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/askelund/wgarchive/internal/model"
	"github.com/askelund/wgarchive/internal/series"
	"github.com/askelund/wgarchive/internal/spot"
)

// SpotTable renders search results as an aligned table, preserving the
// site's relevance order.
func SpotTable(spots []spot.Spot) string {
	if len(spots) == 0 {
		return "no spots found\n"
	}
	rows := make([][]string, 0, len(spots)+1)
	rows = append(rows, []string{"#", "ID", "NAME", "COUNTRY"})
	for i, s := range spots {
		rows = append(rows, []string{
			strconv.Itoa(i + 1), strconv.Itoa(s.ID), s.Name, s.Country,
		})
	}
	return renderTable(rows)
}

// ModelTable renders the static forecast model list.
func ModelTable(models []model.Model) string {
	rows := make([][]string, 0, len(models)+1)
	rows = append(rows, []string{"ID", "MODEL", "RESOLUTION", "COVERAGE"})
	for _, m := range models {
		rows = append(rows, []string{
			strconv.Itoa(m.ID), m.Label, fmt.Sprintf("%d km", m.ResolutionKm), m.Coverage,
		})
	}
	return renderTable(rows)
}

// Summary renders the outcome of a range fetch. A partial series is made
// visibly distinct from full success so scripts piping the JSON can still
// alert on stderr output.
func Summary(result *series.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s | %s | %s\n", result.Spot, result.Model, result.Range)
	if len(result.Series) > 0 {
		first, last := result.Series.Timespan()
		fmt.Fprintf(&b, "%d observations from %s to %s\n", len(result.Series),
			first.Format(time.RFC3339), last.Format(time.RFC3339))
	} else {
		b.WriteString("no observations\n")
	}
	if result.SkippedRows > 0 {
		fmt.Fprintf(&b, "%d unparseable row(s) skipped\n", result.SkippedRows)
	}
	if result.Partial() {
		fmt.Fprintf(&b, "PARTIAL SERIES: %d day(s) failed:\n", len(result.FailedDays))
		for _, day := range result.FailedDays {
			fmt.Fprintf(&b, "  - %s\n", day.Format(time.DateOnly))
		}
	} else {
		b.WriteString("all requested days fetched\n")
	}
	return b.String()
}

// renderTable pads every cell to its column width. Widths are computed with
// runewidth so wide-rune spot names stay aligned.
func renderTable(rows [][]string) string {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for col, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[col] {
				widths[col] = w
			}
		}
	}
	var b strings.Builder
	for _, row := range rows {
		for col, cell := range row {
			if col > 0 {
				b.WriteString("  ")
			}
			b.WriteString(runewidth.FillRight(cell, widths[col]))
		}
		b.WriteString("\n")
	}
	return b.String()
}
