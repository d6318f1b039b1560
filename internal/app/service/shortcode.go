package service

import (
	"crypto/rand"
	"errors"
	"math/big"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	// DefaultShortCodeLength is the length of generated short codes.
	DefaultShortCodeLength = 8

	shortCodeAlphabet     = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	defaultFilterCapacity = 100_000
	filterFalsePositive   = 0.001
	maxScreenAttempts     = 16
)

// ErrCodeSpaceExhausted is returned when no free short code could be found.
var ErrCodeSpaceExhausted = errors.New("could not allocate a free short code")

// ShortCodeGenerator draws random base62 short codes and screens them against
// a bloom filter of codes already in use. The store stays authoritative; the
// filter only saves lookups for codes known to be taken.
type ShortCodeGenerator struct {
	length   int
	capacity uint

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewShortCodeGenerator returns a generator for codes of the given length.
// capacity sizes the filter; zero picks a default.
func NewShortCodeGenerator(length int, capacity uint) *ShortCodeGenerator {
	if length <= 0 {
		length = DefaultShortCodeLength
	}
	if capacity == 0 {
		capacity = defaultFilterCapacity
	}
	return &ShortCodeGenerator{
		length:   length,
		capacity: capacity,
		filter:   bloom.NewWithEstimates(capacity, filterFalsePositive),
	}
}

// Next returns a candidate the filter has not seen.
func (g *ShortCodeGenerator) Next() (string, error) {
	for i := 0; i < maxScreenAttempts; i++ {
		code, err := randomCode(g.length)
		if err != nil {
			return "", err
		}
		if !g.MaybeTaken(code) {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}

// MaybeTaken reports whether code may already be assigned.
func (g *ShortCodeGenerator) MaybeTaken(code string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.filter.TestString(code)
}

// Remember marks code as assigned.
func (g *ShortCodeGenerator) Remember(code string) {
	g.mu.Lock()
	g.filter.AddString(code)
	g.mu.Unlock()
}

// Reset rebuilds the filter from the full set of assigned codes.
func (g *ShortCodeGenerator) Reset(codes []string) {
	capacity := g.capacity
	if n := uint(len(codes)) * 2; n > capacity {
		capacity = n
	}
	filter := bloom.NewWithEstimates(capacity, filterFalsePositive)
	for _, code := range codes {
		filter.AddString(code)
	}

	g.mu.Lock()
	g.filter = filter
	g.mu.Unlock()
}

func randomCode(length int) (string, error) {
	base := big.NewInt(int64(len(shortCodeAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", err
		}
		buf[i] = shortCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
