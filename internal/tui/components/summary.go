package components

import (
	"fmt"
	"strings"
)

// SummaryData aggregates the facts shown once a run settles.
type SummaryData struct {
	Total      int
	Completed  int
	Finished   bool
	Cancelled  bool
	RefineUsed bool
	Reason     string
	Err        error
}

// Summary renders a textual run summary.
type Summary struct {
	data SummaryData
}

// NewSummary creates a Summary.
func NewSummary(data SummaryData) Summary {
	return Summary{data: data}
}

// View renders the summary; it is empty while the run is in progress.
func (s Summary) View() string {
	d := s.data
	var lines []string
	if d.Total > 0 {
		lines = append(lines, fmt.Sprintf("Steps: %d/%d completed", d.Completed, d.Total))
	}

	switch {
	case d.Cancelled:
		lines = append(lines, "Run cancelled")
	case d.Err != nil:
		lines = append(lines, "Run failed: "+d.Err.Error())
	case d.Finished:
		lines = append(lines, "Run finished successfully")
	default:
		return strings.Join(lines, "\n")
	}

	if d.Finished && d.Err == nil && !d.Cancelled {
		if d.RefineUsed {
			lines = append(lines, "Refinement: applied")
		} else {
			lines = append(lines, "Refinement: not needed")
		}
		if d.Reason != "" {
			lines = append(lines, "Reason: "+d.Reason)
		}
	}
	return strings.Join(lines, "\n")
}
