package util

import (
	"math"
	"sync"
)

// ----------------------------------------------------------------------------
// Summary Statistics
// ----------------------------------------------------------------------------

type Stats struct {
	StdDeviation float64 `json:"std_deviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	MinMaxRatio  float64 `json:"min_max_ratio"`
}

// NewStats computes the standard deviation, minimum, maximum and mean of
// values. An empty input yields the zero Stats.
func NewStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	lo, hi := values[0], values[0]
	var sum float64
	for _, v := range values {
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}

	ratio := 1.0
	if hi > 0 {
		ratio = lo / hi
	}

	return Stats{
		StdDeviation: math.Sqrt(sq / float64(len(values))), // population formula
		Min:          lo,
		Max:          hi,
		Mean:         mean,
		MinMaxRatio:  ratio,
	}
}

type DistributionStats struct {
	Stats
	DistributionQuality float64 `json:"distribution_quality"`
}

// NewDistributionStats rates how evenly counts (e.g. rows per table) are
// spread. Quality is 1 for a perfectly even spread and approaches 0 as the
// coefficient of variation grows and the min/max ratio shrinks.
func NewDistributionStats(counts []float64) DistributionStats {
	stats := NewStats(counts)

	var cv float64
	if stats.Mean > 0 {
		cv = stats.StdDeviation / stats.Mean
	}

	var quality float64
	if len(counts) > 0 {
		quality = (1.0-math.Min(1.0, cv))*0.5 + stats.MinMaxRatio*0.5
	}

	return DistributionStats{Stats: stats, DistributionQuality: quality}
}

// ----------------------------------------------------------------------------
// SizeHistogram
// ----------------------------------------------------------------------------

// SizeSummary is a snapshot of a SizeHistogram.
type SizeSummary struct {
	Count  int64 `json:"count"`
	Total  int64 `json:"total_bytes"`
	Avg    int   `json:"avg_bytes"`
	Median int   `json:"median_bytes"`
	P95    int   `json:"p95_bytes"`
}

// SizeHistogram tracks the distribution of encoded sizes in exponential
// buckets from 16 bytes up to the ingest limit and beyond.
//
// Thread-safety: all methods are safe for concurrent use.
type SizeHistogram struct {
	mutex      sync.RWMutex
	boundaries []int
	buckets    []int64
	count      int64
	sum        int64
}

// NewSizeHistogram creates an empty histogram.
func NewSizeHistogram() *SizeHistogram {
	boundaries := []int{
		16, 64, 256, 1024, 4096, // bytes
		16384, 65536, 262144, 1048576, // KB
		2097152, 4194304, // the ingest limit and above
	}
	return &SizeHistogram{
		boundaries: boundaries,
		buckets:    make([]int64, len(boundaries)+1),
	}
}

// AddSample records one size.
func (h *SizeHistogram) AddSample(size int) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	idx := len(h.boundaries)
	for i, b := range h.boundaries {
		if size <= b {
			idx = i
			break
		}
	}
	h.buckets[idx]++
	h.count++
	h.sum += int64(size)
}

// Count returns the number of samples.
func (h *SizeHistogram) Count() int64 {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.count
}

// AverageSize returns the exact mean of all samples.
func (h *SizeHistogram) AverageSize() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if h.count == 0 {
		return 0
	}
	return int(h.sum / h.count)
}

// Percentile estimates the given percentile (0-100) from the buckets.
func (h *SizeHistogram) Percentile(p int) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if h.count == 0 || p < 0 || p > 100 {
		return 0
	}
	target := int64(math.Ceil(float64(h.count) * float64(p) / 100.0))
	if target == 0 {
		target = 1
	}

	var cumulative int64
	for i, n := range h.buckets {
		cumulative += n
		if cumulative < target {
			continue
		}
		switch {
		case i == 0:
			return h.boundaries[0] / 2
		case i < len(h.boundaries):
			return (h.boundaries[i-1] + h.boundaries[i]) / 2
		default:
			return h.boundaries[len(h.boundaries)-1] * 2
		}
	}
	return int(h.sum / h.count)
}

// Summary returns count, total, mean, median and p95 in one call.
func (h *SizeHistogram) Summary() SizeSummary {
	h.mutex.RLock()
	count, sum := h.count, h.sum
	h.mutex.RUnlock()
	return SizeSummary{
		Count:  count,
		Total:  sum,
		Avg:    h.AverageSize(),
		Median: h.Percentile(50),
		P95:    h.Percentile(95),
	}
}
