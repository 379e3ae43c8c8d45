package ingest

import (
	"context"
	"fmt"

	"github.com/banshee-data/hotspot.report/internal/fsutil"
	"github.com/banshee-data/hotspot.report/internal/hotspot"
	"github.com/banshee-data/hotspot.report/internal/timeutil"
)

// FileSource re-reads a JSON or CSV report file on every call. It backs the
// hotspot service, which refreshes from the same export periodically.
type FileSource struct {
	FS    fsutil.FileSystem
	Path  string
	Clock timeutil.Clock
}

// NewFileSource returns a FileSource reading path from the OS filesystem.
func NewFileSource(path string) *FileSource {
	return &FileSource{FS: fsutil.OSFileSystem{}, Path: path, Clock: timeutil.RealClock{}}
}

// Reports reads and decodes the file.
func (s *FileSource) Reports(ctx context.Context) ([]hotspot.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := s.FS.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report source: %w", err)
	}

	in := &Input{Data: data, Source: s.Path, CSV: isCSVPath(s.Path)}
	reports, err := in.Reports(s.Clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.Path, err)
	}
	return reports, nil
}
