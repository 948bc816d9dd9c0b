package storage

import "sort"

// squaredL2 returns the squared Euclidean distance between two vectors of equal length.
func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// rankRecords orders records by distance to the query and keeps the n nearest.
// Ties keep insertion order.
func rankRecords(records []Record, query []float32, n int) []Match {
	matches := make([]Match, 0, len(records))
	for _, r := range records {
		if len(r.Embedding) != len(query) {
			continue
		}
		matches = append(matches, Match{
			ID:       r.ID,
			Document: r.Document,
			Metadata: r.Metadata,
			Distance: squaredL2(r.Embedding, query),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > n {
		matches = matches[:n]
	}
	return matches
}
