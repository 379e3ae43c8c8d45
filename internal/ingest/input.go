package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/banshee-data/hotspot.report/internal/fsutil"
	"github.com/banshee-data/hotspot.report/internal/hotspot"
)

// Input is report data found among the invocation arguments.
type Input struct {
	Data   []byte
	Source string // "argument N" or the file path
	CSV    bool
}

// ResolveInput finds report data in args. The first argument is tried as a
// JSON literal, then as a path to a JSON or .csv file; failing both, the
// first argument that parses as JSON is used. It returns ErrNoInput when
// nothing matches.
func ResolveInput(args []string, fsys fsutil.FileSystem) (*Input, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no report data provided: %w", ErrNoInput)
	}

	first := args[0]
	if json.Valid([]byte(first)) {
		return &Input{Data: []byte(first), Source: "argument 1"}, nil
	}

	if fsutil.IsRegularFile(fsys, first) {
		data, err := fsys.ReadFile(first)
		switch {
		case err != nil:
			opsf("failed to read %s: %v", first, err)
		case isCSVPath(first):
			return &Input{Data: data, Source: first, CSV: true}, nil
		case json.Valid(bytes.TrimSpace(data)):
			return &Input{Data: data, Source: first}, nil
		default:
			diagf("%s is not valid JSON, scanning remaining arguments", first)
		}
	}

	for i, arg := range args[1:] {
		if json.Valid([]byte(arg)) {
			return &Input{Data: []byte(arg), Source: fmt.Sprintf("argument %d", i+2)}, nil
		}
	}
	return nil, ErrNoInput
}

// Reports decodes the input. CSV rows without a date are dated now.
func (in *Input) Reports(now time.Time) ([]hotspot.Report, error) {
	if in.CSV {
		return ParseCSV(bytes.NewReader(in.Data), now)
	}
	return DecodeReports(in.Data)
}

func isCSVPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
