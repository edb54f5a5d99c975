package observation

import (
	"fmt"
	"math"
)

// Key identifies one observation. It is comparable and used directly as a map key.
type Key struct {
	Year     string `json:"year"`
	Filename string `json:"filename"`
}

// NewKey builds a Key for a file inside a year bucket.
func NewKey(year, filename string) Key {
	return Key{Year: year, Filename: filename}
}

// String returns a canonical "year/filename" form for logs.
func (k Key) String() string {
	return k.Year + "/" + k.Filename
}

// Stats are the pixel statistics computed upstream for a FITS file.
type Stats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Stdev float64 `json:"stdev"`
}

// Finite reports whether every statistic is a finite number.
func (s Stats) Finite() bool {
	for _, v := range [...]float64{s.Min, s.Max, s.Mean, s.Stdev} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Record is the derived payload for one observation. Histogram and Image are
// base64-encoded PNGs and are treated as opaque.
// A Record is never modified after it has been cached.
type Record struct {
	Stats     Stats  `json:"stats"`
	Histogram string `json:"histogram"`
	Image     string `json:"image"`
}

// RawStats mirrors the upstream stats object; nil fields were missing from the payload.
type RawStats struct {
	Min   *float64 `json:"min"`
	Max   *float64 `json:"max"`
	Mean  *float64 `json:"mean"`
	Stdev *float64 `json:"stdev"`
}

// Payload is the unvalidated upstream body for a FITS data request.
type Payload struct {
	Stats     *RawStats `json:"stats"`
	Histogram string    `json:"histogram"`
	Image     string    `json:"image"`
}

// Record validates the payload and converts it into a Record.
// Missing or non-finite statistics yield ErrMalformedData.
// Ordering between min, mean and max is not checked.
func (p Payload) Record() (Record, error) {
	if p.Stats == nil {
		return Record{}, fmt.Errorf("%w: missing stats object", ErrMalformedData)
	}

	fields := []struct {
		name string
		v    *float64
	}{
		{"min", p.Stats.Min},
		{"max", p.Stats.Max},
		{"mean", p.Stats.Mean},
		{"stdev", p.Stats.Stdev},
	}
	for _, f := range fields {
		if f.v == nil {
			return Record{}, fmt.Errorf("%w: missing stats.%s", ErrMalformedData, f.name)
		}
		if math.IsNaN(*f.v) || math.IsInf(*f.v, 0) {
			return Record{}, fmt.Errorf("%w: stats.%s is not finite", ErrMalformedData, f.name)
		}
	}

	return Record{
		Stats: Stats{
			Min:   *p.Stats.Min,
			Max:   *p.Stats.Max,
			Mean:  *p.Stats.Mean,
			Stdev: *p.Stats.Stdev,
		},
		Histogram: p.Histogram,
		Image:     p.Image,
	}, nil
}
