// Package redis keeps the disposable read-side data shared across instances:
// cached listings and the ranking of contended offers.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/application/ports"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/monitoring"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

const (
	listingKeyPrefix = "listing:"
	listingIndexKey  = "listing:keys"
	hotOffersKey     = "hot_offers"
	memberSeparator  = "|"
)

type Cache struct {
	client *redis.Client
	logger *logger.Logger
}

func NewCache(conn *Connection, log *logger.Logger) *Cache {
	return &Cache{
		client: conn.GetClient(),
		logger: log,
	}
}

func listingKey(key string) string {
	return listingKeyPrefix + key
}

func (c *Cache) GetListing(ctx context.Context, key string) ([]*sale.Sale, bool, error) {
	payload, err := c.client.Get(ctx, listingKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		monitoring.RecordCacheLookup("listing", false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var sales []*sale.Sale
	if err := json.Unmarshal(payload, &sales); err != nil {
		c.logger.Warn("Dropping unreadable listing cache entry", "key", key, "error", err)
		c.client.Del(ctx, listingKey(key))
		monitoring.RecordCacheLookup("listing", false)
		return nil, false, nil
	}

	monitoring.RecordCacheLookup("listing", true)
	return sales, true, nil
}

func (c *Cache) SetListing(ctx context.Context, key string, sales []*sale.Sale, ttl time.Duration) error {
	payload, err := json.Marshal(sales)
	if err != nil {
		return fmt.Errorf("encode listing: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, listingKey(key), payload, ttl)
	pipe.SAdd(ctx, listingIndexKey, key)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *Cache) InvalidateListings(ctx context.Context) error {
	keys, err := c.client.SMembers(ctx, listingIndexKey).Result()
	if err != nil {
		return err
	}

	toDelete := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		toDelete = append(toDelete, listingKey(key))
	}
	toDelete = append(toDelete, listingIndexKey)
	return c.client.Del(ctx, toDelete...).Err()
}

func (c *Cache) RecordContention(ctx context.Context, saleID, offerID string) error {
	return c.client.ZIncrBy(ctx, hotOffersKey, 1, hotOfferMember(saleID, offerID)).Err()
}

func (c *Cache) TopContended(ctx context.Context, limit int) ([]ports.HotOffer, error) {
	if limit <= 0 {
		return []ports.HotOffer{}, nil
	}

	entries, err := c.client.ZRevRangeWithScores(ctx, hotOffersKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]ports.HotOffer, 0, len(entries))
	for _, entry := range entries {
		member, ok := entry.Member.(string)
		if !ok {
			continue
		}
		saleID, offerID, ok := parseHotOfferMember(member)
		if !ok {
			continue
		}
		out = append(out, ports.HotOffer{
			SaleID:      saleID,
			OfferID:     offerID,
			Contentions: int64(entry.Score),
		})
	}
	return out, nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func hotOfferMember(saleID, offerID string) string {
	return saleID + memberSeparator + offerID
}

func parseHotOfferMember(member string) (saleID, offerID string, ok bool) {
	saleID, offerID, ok = strings.Cut(member, memberSeparator)
	if !ok || saleID == "" || offerID == "" {
		return "", "", false
	}
	return saleID, offerID, true
}
