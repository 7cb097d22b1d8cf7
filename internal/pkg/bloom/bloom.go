// Package bloom is an in-process bloom filter used as a negative cache for
// sale ids when no shared Redis filter is configured.
package bloom

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
)

type BloomFilter struct {
	mu        sync.RWMutex
	words     []uint64
	size      uint64
	hashCount uint64
	added     uint64
}

func NewBloomFilter(size, hashCount uint64) *BloomFilter {
	if size == 0 {
		size = 64
	}
	if hashCount == 0 {
		hashCount = 1
	}
	return &BloomFilter{
		words:     make([]uint64, (size+63)/64),
		size:      size,
		hashCount: hashCount,
	}
}

func NewBloomFilterWithExpectedItems(expectedItems uint64, falsePositiveProb float64) *BloomFilter {
	size, hashCount := OptimalParameters(expectedItems, falsePositiveProb)
	return NewBloomFilter(size, hashCount)
}

// Add satisfies the same contract as the Redis-backed filter.
func (bf *BloomFilter) Add(_ context.Context, item string) error {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	for _, pos := range bf.positions(item) {
		bf.words[pos/64] |= 1 << (pos % 64)
	}
	bf.added++
	return nil
}

func (bf *BloomFilter) Contains(_ context.Context, item string) (bool, error) {
	bf.mu.RLock()
	defer bf.mu.RUnlock()

	for _, pos := range bf.positions(item) {
		if bf.words[pos/64]&(1<<(pos%64)) == 0 {
			return false, nil
		}
	}
	return true, nil
}

func (bf *BloomFilter) Clear(_ context.Context) error {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	bf.words = make([]uint64, len(bf.words))
	bf.added = 0
	return nil
}

func (bf *BloomFilter) Added() uint64 {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.added
}

func (bf *BloomFilter) positions(item string) []uint64 {
	return Positions(item, bf.size, bf.hashCount)
}

// Positions returns the bit offsets for item using double hashing, h1 + i*h2.
// The Redis-backed filter uses the same layout.
func Positions(item string, size, hashCount uint64) []uint64 {
	h := fnv.New64a()
	h.Write([]byte(item))
	h1 := h.Sum64()

	h.Write([]byte{0xff})
	h2 := h.Sum64() | 1

	out := make([]uint64, hashCount)
	for i := uint64(0); i < hashCount; i++ {
		out[i] = (h1 + i*h2) % size
	}
	return out
}

// OptimalParameters returns the bit count and hash count for the expected
// number of items and false positive rate.
func OptimalParameters(expectedItems uint64, falsePositiveProb float64) (size, hashCount uint64) {
	if expectedItems == 0 {
		expectedItems = 1
	}
	if falsePositiveProb <= 0 || falsePositiveProb >= 1 {
		falsePositiveProb = 0.01
	}

	size = uint64(math.Ceil(-float64(expectedItems) * math.Log(falsePositiveProb) / math.Pow(math.Log(2), 2)))
	hashCount = uint64(math.Max(1, math.Round(float64(size)/float64(expectedItems)*math.Log(2))))
	return size, hashCount
}
