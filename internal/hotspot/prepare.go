package hotspot

import (
	"time"

	"github.com/banshee-data/hotspot.report/internal/geo"
)

// Prepare attaches a recency weight to every report. now is fixed once by
// the caller so that all reports in a batch are weighted against the same
// instant.
func Prepare(reports []Report, now time.Time, w TimeWeighter) []WeightedReport {
	if len(reports) == 0 {
		return nil
	}

	rows := make([]WeightedReport, len(reports))
	for i, r := range reports {
		rows[i] = WeightedReport{
			Report:     r,
			TimeWeight: w.Weight(r.ReportedAt, now),
		}
	}
	return rows
}

// TypeInput is the coordinate set and weights of one incident type.
type TypeInput struct {
	Type    string
	Points  []geo.Point
	Weights []float64
}

// Len returns the number of reports of the type.
func (in TypeInput) Len() int {
	return len(in.Points)
}

// GroupByType splits rows by incident type, preserving the order in which
// types first occur. Rows without a type are dropped and counted.
func GroupByType(rows []WeightedReport) (groups []TypeInput, untyped int) {
	index := make(map[string]int)
	for _, r := range rows {
		if !r.HasType {
			untyped++
			continue
		}
		i, ok := index[r.Type]
		if !ok {
			i = len(groups)
			index[r.Type] = i
			groups = append(groups, TypeInput{Type: r.Type})
		}
		groups[i].Points = append(groups[i].Points, r.Point())
		groups[i].Weights = append(groups[i].Weights, r.TimeWeight)
	}
	return groups, untyped
}
