package rng

import (
	crand "crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync"
)

// Source yields uniform integers for shuffles, dice and wheel spins.
// The server always plays from Crypto; Seeded exists so a recorded
// action log can be replayed against an identical deal.
type Source interface {
	// Intn returns a uniform value in [0, n). n must be > 0.
	Intn(n int) int
}

type cryptoSource struct{}

// Crypto returns a Source backed by crypto/rand.
func Crypto() Source {
	return cryptoSource{}
}

func (cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("rng: Intn with non-positive bound")
	}
	// Rejection sampling to avoid modulo bias.
	bound := uint64(n)
	limit := (^uint64(0) / bound) * bound
	var buf [8]byte
	for {
		if _, err := crand.Read(buf[:]); err != nil {
			panic("rng: crypto source unavailable: " + err.Error())
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < limit {
			return int(v % bound)
		}
	}
}

type seededSource struct {
	mu sync.Mutex
	r  *mrand.Rand
}

// Seeded returns a deterministic Source for replay and tests.
func Seeded(seed int64) Source {
	return &seededSource{r: mrand.New(mrand.NewSource(seed))}
}

func (s *seededSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

// Shuffle permutes n elements using src via Fisher-Yates.
func Shuffle(src Source, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		swap(i, j)
	}
}
