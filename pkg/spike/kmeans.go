// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package spike

import "math"

// Clusters is the outcome of a two-cluster k-means run
type Clusters struct {
	Low, High   float64
	LowN, HighN int
	Iterations  int
}

// Ratio returns High/Low
func (c Clusters) Ratio() float64 {
	return c.High / c.Low
}

// TwoMeans runs Lloyd's algorithm with k=2 over one-dimensional data. It is
// seeded with the smallest and largest observation so the result does not
// depend on input order. ok is false when the data cannot be split into two
// non-empty clusters or the assignment fails to settle within maxIter rounds.
func TwoMeans(data []float64, maxIter int) (Clusters, bool) {
	if len(data) < 2 {
		return Clusters{}, false
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range data {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return Clusters{}, false
	}

	centers := [2]float64{lo, hi}
	assign := make([]int, len(data))
	for i := range assign {
		assign[i] = -1
	}

	for iter := 1; iter <= maxIter; iter++ {
		changed := false
		for i, v := range data {
			k := 0
			if math.Abs(v-centers[1]) < math.Abs(v-centers[0]) {
				k = 1
			}
			if assign[i] != k {
				assign[i] = k
				changed = true
			}
		}

		var sum [2]float64
		var n [2]int
		for i, v := range data {
			sum[assign[i]] += v
			n[assign[i]]++
		}
		if n[0] == 0 || n[1] == 0 {
			return Clusters{}, false
		}
		centers = [2]float64{sum[0] / float64(n[0]), sum[1] / float64(n[1])}

		if !changed {
			return Clusters{
				Low:        centers[0],
				High:       centers[1],
				LowN:       n[0],
				HighN:      n[1],
				Iterations: iter,
			}, true
		}
	}
	return Clusters{}, false
}
