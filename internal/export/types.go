// Package export renders a story map board to PDF via headless Chrome.
package export

import (
	"errors"
	"time"
)

// Board is the renderer's view of one story map: journeys across the
// top, releases down the side, stories in the cells.
type Board struct {
	Name        string
	Description string
	ExportedAt  time.Time
	Journeys    []Journey
	Releases    []ReleaseRow
}

// Journey groups its steps for the header rows.
type Journey struct {
	Name  string
	Steps []Step
}

type Step struct {
	ID   string
	Name string
}

// ReleaseRow holds one release and its cells, aligned with the
// flattened step order of the journeys.
type ReleaseRow struct {
	Name  string
	Cells []Cell
}

type Cell struct {
	Stories []StoryCard
}

type StoryCard struct {
	Title  string
	Status string
	Size   *int
}

// ErrPDFDependencyMissing indicates the Chrome runtime is unavailable.
var ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
