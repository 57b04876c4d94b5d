package app

import (
	"time"

	"storymapper/api/internal/export"
)

// exportBoard reshapes the board payload into the grid the PDF renderer
// draws: one row per release, one column per step in journey order.
func exportBoard(board wireBoard) export.Board {
	out := export.Board{
		Name:        board.StoryMap.Name,
		Description: board.StoryMap.Description,
		ExportedAt:  time.Now(),
	}

	stepOrder := make([]string, 0, len(board.Steps))
	for _, journey := range board.Journeys {
		exportJourney := export.Journey{Name: journey.Name}
		for _, step := range board.Steps {
			if step.JourneyID != journey.ID {
				continue
			}
			exportJourney.Steps = append(exportJourney.Steps, export.Step{ID: step.ID, Name: step.Name})
			stepOrder = append(stepOrder, step.ID)
		}
		out.Journeys = append(out.Journeys, exportJourney)
	}

	// Stories arrive sorted by sort_order already.
	cells := make(map[string]map[string][]export.StoryCard)
	for _, story := range board.Stories {
		byStep := cells[story.ReleaseID]
		if byStep == nil {
			byStep = make(map[string][]export.StoryCard)
			cells[story.ReleaseID] = byStep
		}
		byStep[story.StepID] = append(byStep[story.StepID], export.StoryCard{
			Title:  story.Title,
			Status: story.Status,
			Size:   story.Size,
		})
	}

	for _, release := range board.Releases {
		row := export.ReleaseRow{Name: release.Name}
		for _, stepID := range stepOrder {
			row.Cells = append(row.Cells, export.Cell{Stories: cells[release.ID][stepID]})
		}
		out.Releases = append(out.Releases, row)
	}
	return out
}
