package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hotspot.report/internal/timeutil"
)

// cannedClient returns queued responses in order and records requests.
type cannedClient struct {
	mu        sync.Mutex
	requests  []*http.Request
	responses []cannedResponse
}

type cannedResponse struct {
	status      int
	body        string
	contentType string
	err         error
}

func (c *cannedClient) add(status int, contentType, body string) *cannedClient {
	c.responses = append(c.responses, cannedResponse{status: status, body: body, contentType: contentType})
	return c
}

func (c *cannedClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if len(c.responses) == 0 {
		return nil, errors.New("no canned response")
	}
	r := c.responses[0]
	c.responses = c.responses[1:]
	if r.err != nil {
		return nil, r.err
	}
	h := make(http.Header)
	if r.contentType != "" {
		h.Set("Content-Type", r.contentType)
	}
	return &http.Response{
		StatusCode: r.status,
		Status:     http.StatusText(r.status),
		Header:     h,
		Body:       io.NopCloser(bytes.NewBufferString(r.body)),
		Request:    req,
	}, nil
}

func TestHTTPSource_JSON(t *testing.T) {
	client := (&cannedClient{}).add(http.StatusOK, "application/json",
		`[{"crimeType": "theft", "location": {"lat": 1, "lng": 2}}]`)
	src := NewHTTPSource("https://data.example.org/crimes", client)

	reports, err := src.Reports(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "theft", reports[0].Type)
	assert.Equal(t, 2.0, reports[0].Lng)

	require.Len(t, client.requests, 1)
	assert.Equal(t, http.MethodGet, client.requests[0].Method)
	assert.Contains(t, client.requests[0].Header.Get("Accept"), "application/json")
}

func TestHTTPSource_CSVDetection(t *testing.T) {
	body := "offense_group,latitude,longitude,report_date\nproperty,38.9,-77.0,2025/05/01\n"
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		url         string
		contentType string
	}{
		{"content type", "https://data.example.org/export", "text/csv; charset=utf-8"},
		{"extension", "https://data.example.org/export.CSV?x=1", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := (&cannedClient{}).add(http.StatusOK, tt.contentType, body)
			src := &HTTPSource{Client: client, URL: tt.url, Clock: timeutil.NewMockClock(now)}

			reports, err := src.Reports(context.Background())
			require.NoError(t, err)
			require.Len(t, reports, 1)
			assert.Equal(t, "property", reports[0].Type)
		})
	}
}

func TestHTTPSource_Errors(t *testing.T) {
	client := &cannedClient{}
	client.add(http.StatusServiceUnavailable, "", "down")
	client.responses = append(client.responses, cannedResponse{err: errors.New("connection refused")})
	client.add(http.StatusOK, "application/json", `{"not": "an array"}`)
	src := NewHTTPSource("https://data.example.org/crimes.json", client)
	ctx := context.Background()

	_, err := src.Reports(ctx)
	assert.ErrorContains(t, err, "unexpected status")

	_, err = src.Reports(ctx)
	assert.ErrorContains(t, err, "connection refused")

	_, err = src.Reports(ctx)
	assert.True(t, errors.Is(err, ErrNotArray), "got %v", err)
}

func TestHTTPSource_Server(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"incidentType": "assault", "lat": 3, "lng": 4}]`))
	}))
	defer ts.Close()

	reports, err := NewHTTPSource(ts.URL, nil).Reports(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "assault", reports[0].Type)
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://data.example.org/crimes.csv"))
	assert.True(t, IsURL("http://localhost:8080/export"))
	assert.False(t, IsURL("crimes.csv"))
	assert.False(t, IsURL("/var/data/crimes.json"))
	assert.False(t, IsURL("ftp://data.example.org/crimes.csv"))
	assert.False(t, IsURL("https://"))
}
