// Package upstream talks to the FITS data service that lists years, lists files
// per year and serves per-file statistics and rendered images.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/solar-fits-dashboard/internal/observation"
)

// Client is the HTTP/JSON client for the data service. It is safe for
// concurrent use.
type Client struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewClient creates a Client for the service rooted at baseURL
// (e.g. http://localhost:5000).
func NewClient(baseURL string, client *http.Client, maxRetries int) *Client {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      maxRetries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: newCircuitBreaker("fits-data-service"),
	}
}

// Years returns the available years in service order.
func (c *Client) Years(ctx context.Context) ([]string, error) {
	var years []string
	if err := c.getJSON(ctx, "/api/years", &years); err != nil {
		return nil, fmt.Errorf("list years: %w", err)
	}
	if years == nil {
		years = []string{}
	}
	return years, nil
}

// Files returns the filenames of one year in service order.
func (c *Client) Files(ctx context.Context, year string) ([]string, error) {
	var files []string
	if err := c.getJSON(ctx, "/api/files/"+url.PathEscape(year), &files); err != nil {
		return nil, fmt.Errorf("list files for %s: %w", year, err)
	}
	if files == nil {
		files = []string{}
	}
	return files, nil
}

// FITSData fetches the derived data of one observation. The payload is returned
// unvalidated; see observation.Payload.Record.
func (c *Client) FITSData(ctx context.Context, key observation.Key) (observation.Payload, error) {
	var payload observation.Payload
	path := "/api/fits-data/" + url.PathEscape(key.Year) + "/" + url.PathEscape(key.Filename)
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return observation.Payload{}, fmt.Errorf("fits data for %s: %w", key, err)
	}
	return payload, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return classify(ctx, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return classify(ctx, ctx.Err())
		}
		return fmt.Errorf("%w: decode %s: %v", observation.ErrMalformedData, path, err)
	}
	return nil
}

// classify maps a request failure onto the observation error kinds.
func classify(ctx context.Context, err error) error {
	var serr *statusError
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", observation.ErrTimeout, err)
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%w: %v", observation.ErrCanceled, err)
	case errors.As(err, &serr):
		if serr.Message != "" {
			return fmt.Errorf("%w: %s", observation.ErrDataUnavailable, serr.Message)
		}
		if serr.Code >= 400 && serr.Code < 500 {
			return fmt.Errorf("%w: %v", observation.ErrDataUnavailable, serr)
		}
		return fmt.Errorf("%w: %v", observation.ErrTransport, serr)
	default:
		return fmt.Errorf("%w: %v", observation.ErrTransport, err)
	}
}
