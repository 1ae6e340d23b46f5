package forecast

import (
	"fmt"
	"math"
	"time"
)

const day = 24 * time.Hour

// dailyStats holds per-cell daily reductions, each indexed [day][cell].
type dailyStats struct {
	min  [][]float64
	max  [][]float64
	mean [][]float64
}

// dayBins maps every timestep onto a UTC calendar day. Days between the
// first and last step are all present, even when no step falls in them.
func dayBins(times []time.Time) ([]time.Time, []int, error) {
	if len(times) == 0 {
		return nil, nil, fmt.Errorf("%w: empty time axis", ErrShapeMismatch)
	}
	for i := 1; i < len(times); i++ {
		if times[i].Before(times[i-1]) {
			return nil, nil, fmt.Errorf("time axis is not sorted at index %d", i)
		}
	}
	start := times[0].UTC().Truncate(day)
	last := times[len(times)-1].UTC().Truncate(day)
	n := int(last.Sub(start)/day) + 1

	days := make([]time.Time, n)
	for i := range days {
		days[i] = start.Add(time.Duration(i) * day)
	}
	bins := make([]int, len(times))
	for i, t := range times {
		bins[i] = int(t.UTC().Truncate(day).Sub(start) / day)
	}
	return days, bins, nil
}

// resampleDaily reduces hourly (or any sub-daily) steps into daily
// min/max/mean per cell. NaN inputs are skipped; a cell with no defined
// input on a day is NaN in every output.
func resampleDaily(steps [][]float64, bins []int, nDays, nCells int) dailyStats {
	st := dailyStats{
		min:  make([][]float64, nDays),
		max:  make([][]float64, nDays),
		mean: make([][]float64, nDays),
	}
	counts := make([][]int, nDays)
	for d := 0; d < nDays; d++ {
		st.min[d] = filled(nCells, math.Inf(1))
		st.max[d] = filled(nCells, math.Inf(-1))
		st.mean[d] = make([]float64, nCells)
		counts[d] = make([]int, nCells)
	}

	for s, step := range steps {
		d := bins[s]
		for c, v := range step {
			if math.IsNaN(v) {
				continue
			}
			if v < st.min[d][c] {
				st.min[d][c] = v
			}
			if v > st.max[d][c] {
				st.max[d][c] = v
			}
			st.mean[d][c] += v
			counts[d][c]++
		}
	}

	for d := 0; d < nDays; d++ {
		for c := 0; c < nCells; c++ {
			if counts[d][c] == 0 {
				st.min[d][c], st.max[d][c], st.mean[d][c] = math.NaN(), math.NaN(), math.NaN()
				continue
			}
			st.mean[d][c] /= float64(counts[d][c])
		}
	}
	return st
}

func difference(a, b [][]float64) [][]float64 {
	out := make([][]float64, len(a))
	for d := range a {
		out[d] = make([]float64, len(a[d]))
		for c := range a[d] {
			out[d][c] = a[d][c] - b[d][c]
		}
	}
	return out
}

func filled(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}
