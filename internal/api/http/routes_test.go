package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/i474232898/solar-fits-dashboard/internal/observation"
	"github.com/i474232898/solar-fits-dashboard/internal/session"
)

const (
	fileA = "AIA.20221023_084600.0094.synoptic.fits"
	fileB = "AIA.20221024_084600.0094.synoptic.fits"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR")

// fakeUpstream serves a fixed catalog in-process.
type fakeUpstream struct {
	yearsErr error
}

func (f fakeUpstream) Years(context.Context) ([]string, error) {
	if f.yearsErr != nil {
		return nil, f.yearsErr
	}
	return []string{"2022", "2023"}, nil
}

func (fakeUpstream) Files(_ context.Context, year string) ([]string, error) {
	if year == "2022" {
		return []string{fileA, fileB}, nil
	}
	return nil, observation.ErrDataUnavailable
}

func (fakeUpstream) FITSData(_ context.Context, key observation.Key) (observation.Payload, error) {
	if key.Filename != fileA {
		return observation.Payload{}, observation.ErrDataUnavailable
	}
	lo, hi, mean, sd := 1.0, 250.0, 42.0, 3.0
	enc := base64.StdEncoding.EncodeToString(pngBytes)
	return observation.Payload{
		Stats:     &observation.RawStats{Min: &lo, Max: &hi, Mean: &mean, Stdev: &sd},
		Histogram: enc,
		Image:     enc,
	}, nil
}

func newTestApp(t *testing.T, up session.Upstream) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(recover.New())
	m := session.NewManager(context.Background(), up, session.Options{})
	t.Cleanup(m.Close)
	RegisterRoutes(app, m)
	return app
}

func do(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func createSession(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, body := do(t, app, http.MethodPost, "/api/v1/sessions", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, resp.StatusCode, body)
	}
	var out struct {
		ID          string   `json:"id"`
		Years       []string `json:"years"`
		DefaultYear string   `json:"defaultYear"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.DefaultYear != "2022" || len(out.Years) != 2 {
		t.Fatalf("unexpected session body %s", body)
	}
	return out.ID
}

// TestBrowseYear walks the dashboard flow: select a year, expand a file,
// read the aggregate and the rendered images.
func TestBrowseYear(t *testing.T) {
	app := newTestApp(t, fakeUpstream{})
	base := "/api/v1/sessions/" + createSession(t, app)

	resp, body := do(t, app, http.MethodPut, base+"/year", `{"year":"2022"}`)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), fileA) {
		t.Fatalf("select year: %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, app, http.MethodPost, base+"/observations/2022/"+fileA+"/expand?wait=true", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expand: %d %s", resp.StatusCode, body)
	}
	var obs observationResponse
	if err := json.Unmarshal(body, &obs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if obs.Status != "loaded" || obs.Label != "23/10/2022 08:46" || obs.Stats == nil || obs.Stats.Mean != 42 {
		t.Fatalf("unexpected observation %+v", obs)
	}

	resp, body = do(t, app, http.MethodGet, base+"/aggregate/2022", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("aggregate: %d %s", resp.StatusCode, body)
	}
	var view struct {
		Empty   bool `json:"empty"`
		Summary struct {
			Count  int     `json:"count"`
			MaxMax float64 `json:"maxMax"`
		} `json:"summary"`
	}
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Empty || view.Summary.Count != 1 || view.Summary.MaxMax != 250 {
		t.Fatalf("unexpected aggregate %s", body)
	}

	for _, path := range []string{"/image.png", "/histogram.png"} {
		resp, body = do(t, app, http.MethodGet, base+"/observations/2022/"+fileA+path, "")
		if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
			t.Fatalf("%s: %d %q", path, resp.StatusCode, resp.Header.Get("Content-Type"))
		}
	}

	resp, body = do(t, app, http.MethodGet, base+"/aggregate/2022/chart.png", "")
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(string(body), "\x89PNG") {
		t.Fatalf("chart: %d", resp.StatusCode)
	}
}

// trendUpstream serves a loaded record for every 2022 file, each with its own
// statistics.
type trendUpstream struct{ fakeUpstream }

func (trendUpstream) FITSData(_ context.Context, key observation.Key) (observation.Payload, error) {
	lo, hi, mean, sd := 1.0, 250.0, 42.0, 3.0
	if key.Filename == fileB {
		lo, hi, mean, sd = 5.0, 400.0, 80.0, 6.0
	}
	return observation.Payload{
		Stats: &observation.RawStats{Min: &lo, Max: &hi, Mean: &mean, Stdev: &sd},
	}, nil
}

func TestTrendChartVaryingSeries(t *testing.T) {
	app := newTestApp(t, trendUpstream{})
	base := "/api/v1/sessions/" + createSession(t, app)

	for _, name := range []string{fileA, fileB} {
		resp, body := do(t, app, http.MethodPost, base+"/observations/2022/"+name+"/expand?wait=true", "")
		if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"status":"loaded"`) {
			t.Fatalf("expand %s: %d %s", name, resp.StatusCode, body)
		}
	}

	resp, body := do(t, app, http.MethodGet, base+"/aggregate/2022/chart.png", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, resp.StatusCode, body)
	}
	if resp.Header.Get("Content-Type") != "image/png" || !strings.HasPrefix(string(body), "\x89PNG") {
		t.Fatalf("chart is not a PNG: %q", resp.Header.Get("Content-Type"))
	}
}

func TestEmptyAggregate(t *testing.T) {
	app := newTestApp(t, fakeUpstream{})
	base := "/api/v1/sessions/" + createSession(t, app)

	resp, body := do(t, app, http.MethodGet, base+"/aggregate/2023", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"summary":null`) {
		t.Fatalf("expected explicit empty summary: %d %s", resp.StatusCode, body)
	}

	resp, _ = do(t, app, http.MethodGet, base+"/aggregate/2023/chart.png", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestFailedObservation(t *testing.T) {
	app := newTestApp(t, fakeUpstream{})
	base := "/api/v1/sessions/" + createSession(t, app)

	resp, body := do(t, app, http.MethodPost, base+"/observations/2022/"+fileB+"/expand?wait=true", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expand: %d %s", resp.StatusCode, body)
	}
	var obs observationResponse
	if err := json.Unmarshal(body, &obs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if obs.Status != "failed" || obs.Failure == nil || obs.Failure.Kind != observation.KindDataUnavailable {
		t.Fatalf("unexpected observation %+v", obs)
	}

	resp, _ = do(t, app, http.MethodGet, base+"/observations/2022/"+fileB+"/image.png", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d for failed image, got %d", http.StatusNotFound, resp.StatusCode)
	}

	// Loaded entries cannot be retried.
	do(t, app, http.MethodPost, base+"/observations/2022/"+fileA+"/expand?wait=true", "")
	resp, _ = do(t, app, http.MethodPost, base+"/observations/2022/"+fileA+"/retry", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}

	resp, body = do(t, app, http.MethodGet, base+"/status", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), string(observation.KindDataUnavailable)) {
		t.Fatalf("status should report last error: %s", body)
	}
}

func TestValidation(t *testing.T) {
	app := newTestApp(t, fakeUpstream{})
	base := "/api/v1/sessions/" + createSession(t, app)

	cases := []struct {
		method, target, body string
		want                 int
	}{
		{http.MethodGet, base + "/files/20x2", "", http.StatusBadRequest},
		{http.MethodPut, base + "/year", `{"year":"22"}`, http.StatusBadRequest},
		{http.MethodGet, base + "/observations/2022/x..fits", "", http.StatusBadRequest},
		{http.MethodGet, base + "/files/2024", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/sessions/nope/status", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		resp, body := do(t, app, tc.method, tc.target, tc.body)
		if resp.StatusCode != tc.want {
			t.Errorf("%s %s: expected status %d, got %d (%s)", tc.method, tc.target, tc.want, resp.StatusCode, body)
		}
	}
}

func TestYearListFailure(t *testing.T) {
	app := newTestApp(t, fakeUpstream{yearsErr: observation.ErrTransport})

	resp, body := do(t, app, http.MethodPost, "/api/v1/sessions", "")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d", http.StatusBadGateway, resp.StatusCode)
	}
	var out struct {
		ID   string           `json:"id"`
		Kind observation.Kind `json:"kind"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID == "" || out.Kind != observation.KindTransport {
		t.Fatalf("unexpected body %s", body)
	}

	resp, _ = do(t, app, http.MethodGet, "/api/v1/sessions/"+out.ID+"/years", "")
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status %d on retry, got %d", http.StatusBadGateway, resp.StatusCode)
	}

	resp, _ = do(t, app, http.MethodDelete, "/api/v1/sessions/"+out.ID, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, resp.StatusCode)
	}
}
