package hotspot

// Select ranks each type's candidates by density and keeps at most
// maxPerType of them. Types appear in the order given, which the engine
// keeps as the order of first occurrence in the input. The result is never
// nil so that it encodes as an empty JSON array.
func Select(results []TypeResult, maxPerType int) []Cluster {
	out := make([]Cluster, 0, len(results)*max(maxPerType, 0))
	for _, res := range results {
		if len(res.Candidates) == 0 || maxPerType <= 0 {
			continue
		}

		candidates := make([]Cluster, len(res.Candidates))
		copy(candidates, res.Candidates)
		sortByDensity(candidates)

		if len(candidates) > maxPerType {
			candidates = candidates[:maxPerType]
		}
		out = append(out, candidates...)
	}
	return out
}
