package profile

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary condenses the round times of a benchmark run.
type Summary struct {
	Rounds int
	Mean   float64
	StdDev float64
	P50    float64
	P95    float64
	P99    float64
	Total  float64
}

// Summarize computes the summary statistics of round times in seconds.
func Summarize(roundTimes []float64) Summary {
	if len(roundTimes) == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), roundTimes...)
	sort.Float64s(sorted)
	var total float64
	for _, t := range sorted {
		total += t
	}
	mean, std := stat.MeanStdDev(sorted, nil)
	if len(sorted) == 1 {
		std = 0
	}
	return Summary{
		Rounds: len(sorted),
		Mean:   mean,
		StdDev: std,
		P50:    stat.Quantile(0.50, stat.Empirical, sorted, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
		P99:    stat.Quantile(0.99, stat.Empirical, sorted, nil),
		Total:  total,
	}
}
