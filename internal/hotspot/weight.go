package hotspot

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// decayWindowDays is the e-folding time of the recency weight.
	decayWindowDays = 30.0
	// weightFloor is the smallest weight any dated report can receive.
	weightFloor = 0.1
	// undatedWeight is given to reports with no usable timestamp; they are
	// treated as fully current.
	undatedWeight = 1.0
	// maxGrowthExponent bounds exp(-days/30) for far-future timestamps so
	// weights, and densities summed from them, stay finite.
	maxGrowthExponent = 300.0
)

// TimeWeighter converts report timestamps into recency weights.
type TimeWeighter struct {
	DecayFactor float64
}

// NewTimeWeighter returns a TimeWeighter for the given decay factor.
func NewTimeWeighter(decayFactor float64) TimeWeighter {
	return TimeWeighter{DecayFactor: decayFactor}
}

// Floor returns the lower bound of Weight for dated reports:
// max(0.1, 0.1*DecayFactor).
func (w TimeWeighter) Floor() float64 {
	return math.Max(weightFloor, weightFloor*w.DecayFactor)
}

// Weight returns exp(-days/30) * DecayFactor, floored at Floor, where days is
// the age of ts relative to now. Future timestamps give negative ages and
// weights above DecayFactor. Growth is only bounded once the exponent
// reaches maxGrowthExponent, roughly 25 years ahead of now.
func (w TimeWeighter) Weight(ts Timestamp, now time.Time) float64 {
	if !ts.Valid {
		return undatedWeight
	}

	days := now.Sub(ts.Time).Hours() / 24
	exponent := math.Min(-days/decayWindowDays, maxGrowthExponent)
	return math.Max(w.Floor(), math.Exp(exponent)*w.DecayFactor)
}

// timestampLayouts are tried in order against string timestamps. Layouts
// without a zone are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp interprets a decoded JSON value as a report time. It
// accepts ISO-8601 strings, epoch milliseconds and Mongo extended JSON
// ({"$date": ...}). Anything else yields an invalid Timestamp.
func ParseTimestamp(v interface{}) Timestamp {
	switch val := v.(type) {
	case string:
		return parseTimestampString(val)
	case float64:
		return epochMillis(val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return Timestamp{}
		}
		return epochMillis(f)
	case map[string]interface{}:
		if d, ok := val["$date"]; ok {
			return ParseTimestamp(d)
		}
		if n, ok := val["$numberLong"].(string); ok {
			ms, err := strconv.ParseInt(n, 10, 64)
			if err != nil {
				return Timestamp{}
			}
			return At(time.UnixMilli(ms).UTC())
		}
	}
	return Timestamp{}
}

func parseTimestampString(s string) Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return At(t)
		}
	}
	return Timestamp{}
}

func epochMillis(ms float64) Timestamp {
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return Timestamp{}
	}
	return At(time.UnixMilli(int64(ms)).UTC())
}
