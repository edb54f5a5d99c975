package observation

import (
	"fmt"
	"regexp"
	"time"
)

// LabelLayout is the display format for observation times, e.g. "23/10/2022 08:46".
const LabelLayout = "02/01/2006 15:04"

// filenamePattern matches <INSTR>.<YYYYMMDD>_<HHMM[SS]>.<rest>, e.g.
// AIA.20221023_084600.0094.synoptic.fits.
var filenamePattern = regexp.MustCompile(`^[A-Za-z0-9-]+\.(\d{8})_(\d{4})(\d{2})?[^.]*\.`)

// ParseTimestamp extracts the UTC observation time encoded in a filename.
func ParseTimestamp(filename string) (time.Time, error) {
	m := filenamePattern.FindStringSubmatch(filename)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q does not match INSTR.YYYYMMDD_HHMM.*", ErrMalformedKey, filename)
	}

	value, layout := m[1]+m[2], "200601021504"
	if m[3] != "" {
		value, layout = value+m[3], layout+"05"
	}

	ts, err := time.ParseInLocation(layout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrMalformedKey, filename, err)
	}
	return ts, nil
}

// FormatLabel renders the observation time of filename as "DD/MM/YYYY HH:MM".
func FormatLabel(filename string) (string, error) {
	ts, err := ParseTimestamp(filename)
	if err != nil {
		return "", err
	}
	return ts.Format(LabelLayout), nil
}
