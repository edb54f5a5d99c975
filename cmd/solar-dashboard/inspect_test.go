package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/i474232898/solar-fits-dashboard/internal/observation"
	"github.com/i474232898/solar-fits-dashboard/internal/session"
)

type fakeUpstream struct{}

func (fakeUpstream) Years(context.Context) ([]string, error) { return []string{"2022", "2023"}, nil }

func (fakeUpstream) Files(context.Context, string) ([]string, error) {
	return []string{
		"AIA.20221023_084600.0094.synoptic.fits",
		"AIA.20221024_084600.0094.synoptic.fits",
		"AIA.20221025_084600.0094.synoptic.fits",
	}, nil
}

func (fakeUpstream) FITSData(_ context.Context, key observation.Key) (observation.Payload, error) {
	if strings.Contains(key.Filename, "20221024") {
		return observation.Payload{}, observation.ErrDataUnavailable
	}
	lo, hi, mean, sd := 1.0, 10.0, 5.0, 2.0
	return observation.Payload{
		Stats: &observation.RawStats{Min: &lo, Max: &hi, Mean: &mean, Stdev: &sd},
		Image: "aW1hZ2U=",
	}, nil
}

func TestInspectYear(t *testing.T) {
	s := session.New(context.Background(), "inspect", fakeUpstream{}, session.Options{})
	defer s.Close()

	var out bytes.Buffer
	view, err := inspectYear(context.Background(), s, "", 0, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Year != "2022" || view.Summary == nil || view.Summary.Count != 2 {
		t.Fatalf("unexpected view %+v", view)
	}

	report := out.String()
	for _, want := range []string{"23/10/2022 08:46", "failed", "2022: 2 observations", "5 B"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestInspectYearLimit(t *testing.T) {
	s := session.New(context.Background(), "inspect", fakeUpstream{}, session.Options{})
	defer s.Close()

	var out bytes.Buffer
	view, err := inspectYear(context.Background(), s, "2022", 1, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Summary == nil || view.Summary.Count != 1 {
		t.Fatalf("limit not applied: %+v", view.Summary)
	}
}
