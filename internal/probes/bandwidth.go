package probes

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/user/netmon/internal/model"
)

// Ranges of the synthetic sampler, in Mbps. Upper bounds are exclusive.
const (
	MinDownloadMbps = 50.0
	MaxDownloadMbps = 100.0
	MinUploadMbps   = 10.0
	MaxUploadMbps   = 30.0
)

// BandwidthSampler produces a throughput reading.
type BandwidthSampler interface {
	Sample(ctx context.Context) model.BandwidthSample
}

// SyntheticSampler draws uniform placeholder readings. It performs no
// network transfer and exists until a real speed test backs the sampler.
type SyntheticSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSyntheticSampler seeds the sampler; seed 0 uses the current time.
func NewSyntheticSampler(seed int64) *SyntheticSampler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SyntheticSampler{rng: rand.New(rand.NewSource(seed))}
}

// Sample returns download in [50, 100) and upload in [10, 30), each rounded
// to two decimals.
func (s *SyntheticSampler) Sample(ctx context.Context) model.BandwidthSample {
	s.mu.Lock()
	defer s.mu.Unlock()

	return model.BandwidthSample{
		DownloadMbps: s.uniform(MinDownloadMbps, MaxDownloadMbps),
		UploadMbps:   s.uniform(MinUploadMbps, MaxUploadMbps),
	}
}

func (s *SyntheticSampler) uniform(lo, hi float64) float64 {
	v := math.Round((lo+s.rng.Float64()*(hi-lo))*100) / 100
	if v >= hi {
		v = hi - 0.01
	}
	return v
}
