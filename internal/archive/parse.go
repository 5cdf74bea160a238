// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

package archive

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/askelund/wgarchive/internal/timeseries"
)

// rotationRx extracts the wind direction from the SVG arrow's rotate transform
var rotationRx = regexp.MustCompile(`rotate\((-?\d+)`)

type variable int

const (
	varIgnored variable = iota
	varWindSpeed
	varWindGust
	varWindDirection
	varTemperature
	varPressure
)

// varColumn is one variable block of the archive table header. The header's
// colspan tells how many time points the block spans.
type varColumn struct {
	kind    variable
	colspan int
}

// parsePage turns the archive's HTML answer into a Page. The table is
// transposed: each <tr> is a calendar date, each variable block spans one
// column per time point. Parsing is best-effort per row; only a page whose
// present rows are entirely unparseable fails.
func parsePage(body string, day time.Time, stepHours int) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrParseFailure, err)
	}

	table := doc.Find("table.daily-archive").First()
	if table.Length() == 0 {
		if strings.Contains(body, noDataMarker) {
			return &Page{Day: day}, nil
		}
		return nil, fmt.Errorf("%w: archive table not found", ErrParseFailure)
	}

	rows := table.Find("tr")
	if rows.Length() <= 2 {
		return &Page{Day: day}, nil
	}

	header := parseHeader(rows.Eq(0))
	if len(header) == 0 {
		return nil, fmt.Errorf("%w: variable header row not found", ErrParseFailure)
	}
	points := header[0].colspan

	page := &Page{Day: day}
	// The first two rows are the variable and hour headers
	rows.Slice(2, rows.Length()).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return
		}
		rowDate, err := time.ParseInLocation("02.01.2006", strings.TrimSpace(cells.Eq(0).Text()), time.UTC)
		if err != nil {
			page.Rows++
			page.Skipped++
			return
		}

		for point := 0; point < points; point++ {
			obs := timeseries.Observation{
				Time: rowDate.Add(time.Duration(point*stepHours) * time.Hour),
			}
			parsed, garbled := parsePoint(cells, header, point, &obs)
			switch {
			case parsed:
				page.Rows++
				page.Observations = append(page.Observations, obs)
			case garbled:
				page.Rows++
				page.Skipped++
			}
			// a point carrying only placeholders is an absent instant, not a row
		}
	})

	if page.Rows > 0 && len(page.Observations) == 0 {
		return nil, fmt.Errorf("%w: %d rows present, none parseable", ErrParseFailure, page.Rows)
	}
	return page, nil
}

// parsePoint fills obs with the values of one time point. It reports whether
// any field parsed and whether any cell carried content that failed to parse.
func parsePoint(cells *goquery.Selection, header []varColumn, point int, obs *timeseries.Observation) (parsed, garbled bool) {
	col := 1 + point // skip the date column
	for _, block := range header {
		cell := cells.Eq(col)
		col += block.colspan
		if cell.Length() == 0 {
			continue
		}

		if block.kind == varWindDirection {
			deg, ok := parseRotation(cell)
			if ok {
				obs.WindDirDeg = timeseries.Some(deg)
				parsed = true
			} else if hasContent(cell) {
				garbled = true
			}
			continue
		}

		text := strings.TrimSpace(cell.Text())
		if text == "" || isPlaceholder(text) {
			continue
		}
		value, err := strconv.ParseFloat(text, 64)
		if err != nil {
			garbled = true
			continue
		}
		switch block.kind {
		case varWindSpeed:
			obs.WindSpeed = timeseries.Some(value)
			parsed = true
		case varWindGust:
			obs.WindGust = timeseries.Some(value)
			parsed = true
		case varTemperature:
			obs.Temperature = timeseries.Some(value)
			parsed = true
		case varPressure:
			obs.Pressure = timeseries.Some(value)
			parsed = true
		}
	}
	return parsed, garbled
}

// parseHeader reads the variable blocks from the table's first header row
func parseHeader(row *goquery.Selection) []varColumn {
	var header []varColumn
	row.Find("td").Each(func(_ int, cell *goquery.Selection) {
		spanAttr, ok := cell.Attr("colspan")
		if !ok {
			return
		}
		colspan, err := strconv.Atoi(strings.TrimSpace(spanAttr))
		if err != nil || colspan < 1 {
			return
		}
		header = append(header, varColumn{
			kind:    classifyVariable(cell.Text()),
			colspan: colspan,
		})
	})
	return header
}

func classifyVariable(label string) variable {
	switch {
	case strings.Contains(label, "Wind speed"):
		return varWindSpeed
	case strings.Contains(label, "Wind gusts"):
		return varWindGust
	case strings.Contains(label, "Wind direction"):
		return varWindDirection
	case strings.Contains(label, "Temperature"):
		return varTemperature
	case strings.Contains(label, "Pressure"):
		return varPressure
	}
	return varIgnored
}

// parseRotation reads the wind direction off the SVG arrow's rotate transform,
// normalized to compass degrees
func parseRotation(cell *goquery.Selection) (float64, bool) {
	transform, ok := cell.Find("svg g").First().Attr("transform")
	if !ok {
		return 0, false
	}
	match := rotationRx.FindStringSubmatch(transform)
	if match == nil {
		return 0, false
	}
	deg, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return math.Mod(math.Mod(float64(deg), 360)+360, 360), true
}

func hasContent(cell *goquery.Selection) bool {
	if cell.Find("svg").Length() > 0 {
		return true
	}
	text := strings.TrimSpace(cell.Text())
	return text != "" && !isPlaceholder(text)
}

// isPlaceholder reports whether the cell text is one of the dashes the site
// renders for missing values
func isPlaceholder(text string) bool {
	switch text {
	case "-", "–", "—", "x":
		return true
	}
	return false
}
