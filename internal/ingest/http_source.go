package ingest

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/banshee-data/hotspot.report/internal/hotspot"
	"github.com/banshee-data/hotspot.report/internal/timeutil"
)

// maxExportBytes bounds a downloaded report export.
const maxExportBytes = 64 << 20

// HTTPClient is the subset of *http.Client used to fetch exports. Tests
// substitute a canned implementation.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource downloads a JSON or CSV report export on every call. The
// export is treated as CSV when the URL path ends in .csv or the response
// is served as text/csv.
type HTTPSource struct {
	Client HTTPClient
	URL    string
	Clock  timeutil.Clock
}

// NewHTTPSource returns an HTTPSource using client, or http.DefaultClient
// when client is nil.
func NewHTTPSource(rawURL string, client HTTPClient) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{Client: client, URL: rawURL, Clock: timeutil.RealClock{}}
}

// IsURL reports whether s names an http or https resource.
func IsURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Reports fetches and decodes the export.
func (s *HTTPSource) Reports(ctx context.Context) ([]hotspot.Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/csv;q=0.9")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: unexpected status %s", s.URL, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxExportBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.URL, err)
	}
	if len(data) > maxExportBytes {
		return nil, fmt.Errorf("export %s exceeds %d bytes", s.URL, maxExportBytes)
	}
	diagf("fetched %d bytes from %s", len(data), s.URL)

	in := &Input{Data: data, Source: s.URL, CSV: s.isCSV(resp)}
	reports, err := in.Reports(s.Clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.URL, err)
	}
	return reports, nil
}

func (s *HTTPSource) isCSV(resp *http.Response) bool {
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil && mt == "text/csv" {
		return true
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), ".csv")
}
