package observation

import (
	"errors"
	"testing"
	"time"
)

func TestFormatLabel(t *testing.T) {
	got, err := FormatLabel("AIA.20221023_084600.0094.synoptic.fits")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "23/10/2022 08:46" {
		t.Fatalf("expected %q, got %q", "23/10/2022 08:46", got)
	}
}

func TestParseTimestampSeconds(t *testing.T) {
	ts, err := ParseTimestamp("AIA.20230101_235959.0171.synoptic.fits")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2023, time.January, 1, 23, 59, 59, 0, time.UTC)
	if !ts.Equal(want) {
		t.Fatalf("expected %v, got %v", want, ts)
	}

	ts, err = ParseTimestamp("HMI.20230101_1200.fits")
	if err != nil {
		t.Fatalf("unexpected error without seconds: %v", err)
	}
	if ts.Hour() != 12 || ts.Minute() != 0 {
		t.Fatalf("unexpected time %v", ts)
	}
}

func TestParseTimestampMalformed(t *testing.T) {
	cases := []string{
		"",
		"notes.txt",
		"AIA_20221023_084600.fits",
		"AIA.2022102_084600.fits",
		"AIA.20221399_084600.fits",
		"AIA.20221023_2599.fits",
		"AIA.20221023-084600.fits",
	}
	for _, name := range cases {
		if _, err := ParseTimestamp(name); !errors.Is(err, ErrMalformedKey) {
			t.Errorf("%q: expected ErrMalformedKey, got %v", name, err)
		}
	}
}
