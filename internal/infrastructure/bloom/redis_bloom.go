package bloom

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/bloom"
)

const SaleIndexKey = "bloom:sale_ids"

// RedisBloomFilter is a bloom filter stored as a Redis bitmap, shared by all
// instances. It backs the sale id index.
type RedisBloomFilter struct {
	client *redis.Client
	key    string
	m      uint64 // size in bits
	k      uint64 // number of hash functions
}

func NewRedisBloomFilter(client *redis.Client, key string, m, k uint64) *RedisBloomFilter {
	if m == 0 {
		m = 64
	}
	if k == 0 {
		k = 1
	}
	return &RedisBloomFilter{
		client: client,
		key:    key,
		m:      m,
		k:      k,
	}
}

// NewSaleIndex sizes the filter for capacity ids at the given false positive rate.
func NewSaleIndex(client *redis.Client, capacity uint64, falseRate float64) *RedisBloomFilter {
	m, k := bloom.OptimalParameters(capacity, falseRate)
	return NewRedisBloomFilter(client, SaleIndexKey, m, k)
}

func (bf *RedisBloomFilter) Add(ctx context.Context, element string) error {
	pipe := bf.client.Pipeline()
	for _, pos := range bloom.Positions(element, bf.m, bf.k) {
		pipe.SetBit(ctx, bf.key, int64(pos), 1)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// AddAll seeds the filter in one round trip, e.g. from the repository at startup.
func (bf *RedisBloomFilter) AddAll(ctx context.Context, elements []string) error {
	if len(elements) == 0 {
		return nil
	}

	pipe := bf.client.Pipeline()
	for _, element := range elements {
		for _, pos := range bloom.Positions(element, bf.m, bf.k) {
			pipe.SetBit(ctx, bf.key, int64(pos), 1)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (bf *RedisBloomFilter) Contains(ctx context.Context, element string) (bool, error) {
	positions := bloom.Positions(element, bf.m, bf.k)

	pipe := bf.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(positions))
	for i, pos := range positions {
		cmds[i] = pipe.GetBit(ctx, bf.key, int64(pos))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	for _, cmd := range cmds {
		if cmd.Val() == 0 {
			return false, nil
		}
	}
	return true, nil
}

func (bf *RedisBloomFilter) Clear(ctx context.Context) error {
	return bf.client.Del(ctx, bf.key).Err()
}

func (bf *RedisBloomFilter) Params() (m, k uint64) {
	return bf.m, bf.k
}
