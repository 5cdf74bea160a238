// SPDX-FileCopyrightText: The wgarchive authors
//
// SPDX-License-Identifier: MIT

// Package model holds the static reference list of weather models the archive
// can be queried against.
package model

import "fmt"

// Model is a named forecast/analysis dataset
type Model struct {
	ID           int    `json:"id"`
	Label        string `json:"label"`
	ResolutionKm int    `json:"resolution_km"`
	Coverage     string `json:"coverage"`
}

// String returns the user-facing representation of the model
func (m Model) String() string {
	return fmt.Sprintf("%s (%d km, %s)", m.Label, m.ResolutionKm, m.Coverage)
}

// The archive's supported models. The list is static site reference data and
// GFS is the designated default.
var models = []Model{
	{ID: 3, Label: "GFS", ResolutionKm: 13, Coverage: "World"},
	{ID: 117, Label: "IFS-HRES", ResolutionKm: 9, Coverage: "World"},
	{ID: 21, Label: "WRF", ResolutionKm: 9, Coverage: "Europe"},
	{ID: 43, Label: "ICON", ResolutionKm: 7, Coverage: "Europe"},
	{ID: 45, Label: "ICON", ResolutionKm: 13, Coverage: "World"},
}

// All returns the full model list in display order
func All() []Model {
	out := make([]Model, len(models))
	copy(out, models)
	return out
}

// Default returns the designated default model
func Default() Model {
	return models[0]
}

// ByID returns the model with the given identifier
func ByID(id int) (Model, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}
