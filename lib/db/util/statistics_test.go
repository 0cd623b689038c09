package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStats(t *testing.T) {
	s := NewStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.Equal(t, 5.0, s.Mean)
	assert.InDelta(t, 2.0, s.StdDeviation, 1e-9)
	assert.InDelta(t, 2.0/9.0, s.MinMaxRatio, 1e-9)

	assert.Equal(t, Stats{}, NewStats(nil))
}

func TestDistributionQuality(t *testing.T) {
	even := NewDistributionStats([]float64{10, 10, 10})
	assert.InDelta(t, 1.0, even.DistributionQuality, 1e-9)

	skewed := NewDistributionStats([]float64{0, 0, 30})
	assert.Less(t, skewed.DistributionQuality, even.DistributionQuality)

	assert.Zero(t, NewDistributionStats(nil).DistributionQuality)
}

func TestSizeHistogram(t *testing.T) {
	h := NewSizeHistogram()
	assert.Equal(t, SizeSummary{}, h.Summary())

	for i := 0; i < 90; i++ {
		h.AddSample(50) // 16 < x <= 64
	}
	for i := 0; i < 10; i++ {
		h.AddSample(3000) // 1024 < x <= 4096
	}

	s := h.Summary()
	assert.Equal(t, int64(100), s.Count)
	assert.Equal(t, int64(90*50+10*3000), s.Total)
	assert.Equal(t, (90*50+10*3000)/100, s.Avg)
	assert.Equal(t, (16+64)/2, s.Median)
	assert.Equal(t, (1024+4096)/2, s.P95)

	h.AddSample(10 << 20)
	assert.Equal(t, 4194304*2, h.Percentile(100))
	assert.Zero(t, h.Percentile(101))
}
