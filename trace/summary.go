package trace

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the lateness distribution of a set of fires, in ticks.
type Summary struct {
	Count       int     `json:"count"`
	Early       int     `json:"early"`
	MeanLate    float64 `json:"mean_late"`
	StdDevLate  float64 `json:"stddev_late"`
	MaxLate     float64 `json:"max_late"`
	MinLate     float64 `json:"min_late"`
	MedianLate  float64 `json:"median_late"`
	Percent99th float64 `json:"p99_late"`
}

// Summarize computes lateness statistics.
func Summarize(fires []Fire) Summary {
	s := Summary{Count: len(fires)}
	if len(fires) == 0 {
		return s
	}

	late := make([]float64, len(fires))
	for i, f := range fires {
		late[i] = float64(f.Lateness)
		if f.Lateness < 0 {
			s.Early++
		}
	}

	s.MeanLate, s.StdDevLate = stat.MeanStdDev(late, nil)
	if len(late) == 1 {
		s.StdDevLate = 0
	}
	s.MaxLate = floats.Max(late)
	s.MinLate = floats.Min(late)

	sorted := append([]float64(nil), late...)
	floats.Argsort(sorted, make([]int, len(sorted)))
	s.MedianLate = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.Percent99th = stat.Quantile(0.99, stat.Empirical, sorted, nil)
	return s
}
