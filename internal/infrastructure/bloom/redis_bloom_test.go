package bloom

import (
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestNewSaleIndexSizing(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	index := NewSaleIndex(client, 100000, 0.01)
	m, k := index.Params()

	// ~9.6 bits per element and 7 hashes at 1%.
	if m < 950000 || m > 970000 {
		t.Errorf("m = %d", m)
	}
	if k != 7 {
		t.Errorf("k = %d", k)
	}
	if index.key != SaleIndexKey {
		t.Errorf("key = %s", index.key)
	}
}
