package util

import (
	"math"
)

// ----------------------------------------------------------------------------
// SizeHistogram
// ----------------------------------------------------------------------------

// SizeHistogram tracks the distribution of key or value sizes in exponential
// buckets from 16 bytes to 4 GB. It is not safe for concurrent use.
type SizeHistogram struct {
	boundaries []int
	buckets    []int64 // len(boundaries)+1, the last one collects larger sizes
	count      int64
	sum        int64
}

// NewSizeHistogram creates an empty histogram.
func NewSizeHistogram() *SizeHistogram {
	boundaries := []int{
		16, 64, 256, 1024, 4096,
		16384, 65536, 262144, 1048576,
		4194304, 16777216, 67108864,
		268435456, 1073741824, 4294967296,
	}
	return &SizeHistogram{
		boundaries: boundaries,
		buckets:    make([]int64, len(boundaries)+1),
	}
}

// Add records one size.
func (h *SizeHistogram) Add(size int) {
	idx := len(h.boundaries)
	for i, boundary := range h.boundaries {
		if size <= boundary {
			idx = i
			break
		}
	}
	h.buckets[idx]++
	h.count++
	h.sum += int64(size)
}

// Count returns the number of recorded sizes.
func (h *SizeHistogram) Count() int64 {
	return h.count
}

// Average returns the exact mean of all recorded sizes.
func (h *SizeHistogram) Average() int {
	if h.count == 0 {
		return 0
	}
	return int(h.sum / h.count)
}

// Percentile estimates the given percentile (0-100) from the bucket bounds.
func (h *SizeHistogram) Percentile(p int) int {
	if h.count == 0 || p < 0 || p > 100 {
		return 0
	}
	target := int64(math.Ceil(float64(h.count) * float64(p) / 100.0))
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
	return h.Average()
}

// ----------------------------------------------------------------------------
// Namespace sampling
// ----------------------------------------------------------------------------

// SampleStats summarizes the first entries of a namespace.
type SampleStats struct {
	Samples         int64 `json:"samples"`
	AvgKeySize      int   `json:"avg_key_size"`
	AvgValueSize    int   `json:"avg_value_size"`
	MedianValueSize int   `json:"median_value_size"`
	P90ValueSize    int   `json:"p90_value_size"`
}

// SampleNamespace walks at most limit entries and reports their size
// distribution. Values are estimates for anything but tiny namespaces.
func SampleNamespace(walk Walker, limit int) (SampleStats, error) {
	keys := NewSizeHistogram()
	values := NewSizeHistogram()
	err := walk(func(key, value []byte) bool {
		keys.Add(len(key))
		values.Add(len(value))
		return keys.Count() < int64(limit)
	})
	if err != nil {
		return SampleStats{}, err
	}
	return SampleStats{
		Samples:         values.Count(),
		AvgKeySize:      keys.Average(),
		AvgValueSize:    values.Average(),
		MedianValueSize: values.Percentile(50),
		P90ValueSize:    values.Percentile(90),
	}, nil
}
