// Package testutil provides shared test helpers for HTTP handlers and
// command-line runs.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t testing.TB, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// Serve runs a request through h and returns the recorder.
func Serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, NewTestRequest(method, path))
	return rec
}

// DecodeJSON unmarshals data into v, failing the test on error.
func DecodeJSON(t testing.TB, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("invalid JSON %q: %v", data, err)
	}
}

// AssertJSONError checks for an {"error": ...} body whose message contains
// substr.
func AssertJSONError(t testing.TB, rec *httptest.ResponseRecorder, status int, substr string) {
	t.Helper()
	AssertStatusCode(t, rec.Code, status)

	var body map[string]string
	DecodeJSON(t, rec.Body.Bytes(), &body)
	if msg, ok := body["error"]; !ok || !strings.Contains(msg, substr) {
		t.Errorf("error body = %v, want message containing %q", body, substr)
	}
}

// WriteFile writes content to name inside a fresh temp directory and
// returns the path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
