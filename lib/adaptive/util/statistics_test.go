package util

import (
	"math"
	"testing"
)

func TestNewStats(t *testing.T) {
	s := NewStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})

	if s.Mean != 5 {
		t.Errorf("Expected mean 5, got %f", s.Mean)
	}
	if s.StdDeviation != 2 {
		t.Errorf("Expected std deviation 2, got %f", s.StdDeviation)
	}
	if s.Min != 2 || s.Max != 9 {
		t.Errorf("Expected min 2 and max 9, got %f and %f", s.Min, s.Max)
	}
	if math.Abs(s.MinMaxRatio-2.0/9.0) > 1e-9 {
		t.Errorf("Unexpected min/max ratio %f", s.MinMaxRatio)
	}

	if empty := NewStats(nil); empty != (Stats{}) {
		t.Errorf("Expected zero stats for no values, got %+v", empty)
	}
}

func TestSizeHistogram(t *testing.T) {
	h := NewSizeHistogram()

	if h.MedianEstimate() != 0 || h.AverageSize() != 0 {
		t.Errorf("Empty histogram should report zero")
	}

	for i := 0; i < 100; i++ {
		h.AddSample(10)
	}
	h.AddSample(1 << 20)

	if h.GetCount() != 101 {
		t.Errorf("Expected 101 samples, got %d", h.GetCount())
	}
	if median := h.MedianEstimate(); median != 8 {
		t.Errorf("Expected median estimate 8 (first bucket), got %d", median)
	}
	if avg := h.AverageSize(); avg != (100*10+1<<20)/101 {
		t.Errorf("Unexpected average %d", avg)
	}
	if p100 := h.GetPercentileEstimate(100); p100 <= 1<<18 {
		t.Errorf("Expected 100th percentile in a large bucket, got %d", p100)
	}
	if h.GetPercentileEstimate(101) != 0 {
		t.Errorf("Invalid percentile should return 0")
	}

	h.Reset()
	if h.GetCount() != 0 {
		t.Errorf("Expected empty histogram after reset")
	}
}
