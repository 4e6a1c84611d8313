package soundscape

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the durable collection.
// Values are record clarities, or note x positions in the tracks variant.
type Stats struct {
	Variant    Variant          `json:"variant"`
	Count      int              `json:"count"`
	Mean       float64          `json:"mean"`
	StdDev     float64          `json:"std_dev"`
	Median     float64          `json:"median"`
	Min        float64          `json:"min"`
	Max        float64          `json:"max"`
	ByCategory map[Category]int `json:"by_category"`
}

// RecordStats computes descriptive statistics over the durable collection
func (st *Store) RecordStats() Stats {
	st.mu.Lock()
	values, byCategory := st.statValues()
	v := st.profile.Variant
	st.mu.Unlock()

	out := Stats{Variant: v, Count: len(values), ByCategory: byCategory}
	if len(values) == 0 {
		return out
	}

	sort.Float64s(values)
	out.Mean = stat.Mean(values, nil)
	if len(values) > 1 {
		out.StdDev = stat.StdDev(values, nil)
	}
	out.Median = stat.Quantile(0.5, stat.Empirical, values, nil)
	out.Min = values[0]
	out.Max = values[len(values)-1]
	return out
}

func (st *Store) statValues() ([]float64, map[Category]int) {
	byCategory := make(map[Category]int, len(categories))
	for _, c := range categories {
		byCategory[c] = 0
	}

	var values []float64
	switch st.profile.Variant {
	case VariantEvents:
		for _, r := range st.s.records {
			values = append(values, r.Clarity)
			byCategory[r.Category]++
		}
	case VariantMoments:
		for _, m := range st.s.moments {
			values = append(values, m.Clarity)
			byCategory[m.Category]++
		}
	case VariantTracks:
		for _, c := range categories {
			for _, n := range st.s.tracks[c].Notes {
				values = append(values, n.X)
			}
			byCategory[c] = len(st.s.tracks[c].Notes)
		}
	}
	return values, byCategory
}
