package stats

import "sort"

// WeakZones returns up to top subjects with the lowest average score.
// A non-positive top returns every subject.
func WeakZones(zones []Zone, top int) []Zone {
	out := make([]Zone, len(zones))
	copy(out, zones)
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgScore == out[j].AvgScore {
			return out[i].Subject < out[j].Subject
		}
		return out[i].AvgScore < out[j].AvgScore
	})
	if top > 0 && top < len(out) {
		out = out[:top]
	}
	return out
}
