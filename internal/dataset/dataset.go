package dataset

import (
	"errors"
	"time"

	"outbreak-mcp/internal/epi"
)

var (
	ErrDatasetNotFound   = errors.New("dataset not found")
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
	ErrNoOutcomeColumn   = errors.New("outcome column not found")
	ErrEmptyGrid         = errors.New("dataset has no header row")
)

// Dataset is an imported line list together with the analysis settings it was saved with.
type Dataset struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Source          string        `json:"source,omitempty"`
	Layout          epi.Layout    `json:"layout"`
	YatesCorrection bool          `json:"yatesCorrection"`
	Factors         []epi.Factor  `json:"factors"`
	Subjects        []epi.Subject `json:"-"`
	ImportedAt      time.Time     `json:"importedAt"`
}

// Info is the listing view of a dataset.
type Info struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Source     string     `json:"source,omitempty"`
	Layout     epi.Layout `json:"layout"`
	Subjects   int        `json:"subjects"`
	Factors    int        `json:"factors"`
	ImportedAt time.Time  `json:"importedAt"`
}

// Info summarises the dataset without its subjects.
func (d *Dataset) Info() Info {
	return Info{
		ID:         d.ID,
		Name:       d.Name,
		Source:     d.Source,
		Layout:     d.Layout,
		Subjects:   len(d.Subjects),
		Factors:    len(d.Factors),
		ImportedAt: d.ImportedAt,
	}
}

// Request turns the dataset into an engine request using its stored settings.
func (d *Dataset) Request() epi.AnalysisRequest {
	return epi.AnalysisRequest{
		Layout:                 d.Layout,
		Subjects:               d.Subjects,
		Factors:                d.Factors,
		YatesCorrectionEnabled: d.YatesCorrection,
	}
}
