package version

import "testing"

func TestString(t *testing.T) {
	origV, origSHA, origTime := Version, GitSHA, BuildTime
	t.Cleanup(func() { Version, GitSHA, BuildTime = origV, origSHA, origTime })

	Version, GitSHA, BuildTime = "1.2.0", "abc123", "2025-06-01T00:00:00Z"
	want := "hotspot 1.2.0 (git abc123, built 2025-06-01T00:00:00Z)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
