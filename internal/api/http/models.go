package httpapi

import (
	"github.com/i474232898/solar-fits-dashboard/internal/cache"
	"github.com/i474232898/solar-fits-dashboard/internal/observation"
)

// yearQuery identifies a year bucket.
type yearQuery struct {
	Year string `validate:"required,numeric,len=4"`
}

// selectYearRequest is the body of PUT /year.
type selectYearRequest struct {
	Year string `json:"year" validate:"required,numeric,len=4"`
}

// observationQuery identifies one observation from path parameters.
type observationQuery struct {
	Year     string `validate:"required,numeric,len=4"`
	Filename string `validate:"required,max=255,pathsegment"`
}

type failureBody struct {
	Kind    observation.Kind `json:"kind"`
	Message string           `json:"message"`
}

// observationResponse is the dashboard view of one file row.
type observationResponse struct {
	Year     string             `json:"year"`
	Filename string             `json:"filename"`
	Label    string             `json:"label,omitempty"`
	Status   cache.Status       `json:"status"`
	Stats    *observation.Stats `json:"stats,omitempty"`
	Failure  *failureBody       `json:"failure,omitempty"`
}

func newObservationResponse(key observation.Key, st cache.State) observationResponse {
	resp := observationResponse{
		Year:     key.Year,
		Filename: key.Filename,
		Status:   st.Status,
	}
	if label, err := observation.FormatLabel(key.Filename); err == nil {
		resp.Label = label
	}

	switch st.Status {
	case cache.StatusLoaded:
		stats := st.Record.Stats
		resp.Stats = &stats
	case cache.StatusFailed:
		resp.Failure = &failureBody{
			Kind:    observation.KindOf(st.Err),
			Message: st.Err.Error(),
		}
	}
	return resp
}
