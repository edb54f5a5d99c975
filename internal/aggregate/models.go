package aggregate

import (
	"time"

	"github.com/i474232898/solar-fits-dashboard/internal/observation"
)

// Summary condenses the loaded observations of a year.
type Summary struct {
	Count   int     `json:"count"`
	AvgMean float64 `json:"avgMean"`
	MaxMax  float64 `json:"maxMax"`
	MinMin  float64 `json:"minMin"`
}

// Point is one observation on the year's time series.
type Point struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"` // always UTC
	Label     string    `json:"label"`

	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Stdev float64 `json:"stdev"`
}

// Warning flags a loaded observation that was left out of part of the view.
type Warning struct {
	Key    observation.Key  `json:"key"`
	Kind   observation.Kind `json:"kind"`
	Reason string           `json:"reason"`
}

// View is the aggregate projection of a year. Summary is nil when no
// observation of the year is loaded yet.
type View struct {
	Year     string    `json:"year"`
	Empty    bool      `json:"empty"`
	Summary  *Summary  `json:"summary"`
	Series   []Point   `json:"series"`
	Warnings []Warning `json:"warnings,omitempty"`
}
