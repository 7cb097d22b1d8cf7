// Package bootstrap opens the storage the configuration selects. The server
// and the command line tools share it so they always agree on the backend.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/application/ports"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/config"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/bloom"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/monitoring"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/persistence/memory"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/persistence/mongo"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/persistence/redis"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/persistence/sqldb"
	pkgbloom "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/bloom"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/clock"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

const dbMetricsInterval = 30 * time.Second

// Catalog is a product catalog that can also be written, for seeding.
type Catalog interface {
	ports.ProductCatalog
	UpsertProduct(ctx context.Context, p sale.ProductSnapshot, price decimal.Decimal) error
}

type Infrastructure struct {
	Sales   ports.SaleRepository
	Catalog Catalog
	Cache   ports.Cache
	Index   ports.SaleIndex

	// RedisEnabled reports whether Cache is shared through Redis.
	RedisEnabled bool

	closers []func() error
}

// Open connects the sale store, the catalog, the cache and the sale index.
// Callers must Close the result.
func Open(ctx context.Context, cfg *config.Config, clk clock.Clock, log *logger.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{}

	if err := infra.openStore(ctx, cfg, log); err != nil {
		infra.Close()
		return nil, err
	}
	if err := infra.openCache(ctx, cfg, clk, log); err != nil {
		infra.Close()
		return nil, err
	}
	return infra, nil
}

func (i *Infrastructure) openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		i.Sales = memory.NewStore()
		i.Catalog = memory.NewCatalog()
		log.Warn("Using in-memory sale store; data is lost on restart")

	case config.DriverMongo:
		store, err := mongo.Connect(ctx, cfg.Mongo)
		if err != nil {
			return fmt.Errorf("connect to mongo: %w", err)
		}
		i.closers = append(i.closers, store.Close)
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("create mongo indexes: %w", err)
		}
		i.Sales = store
		i.Catalog = mongo.NewCatalog(store)
		log.Info("Connected to MongoDB", "database", cfg.Mongo.Database)

	default:
		conn, err := sqldb.NewConnection(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		i.closers = append(i.closers, conn.Close)

		migrations, err := sqldb.MigrationSource(conn.Dialect(), cfg.Database.MigrationsPath)
		if err != nil {
			return fmt.Errorf("load migrations: %w", err)
		}
		if err := sqldb.RunMigrations(ctx, conn, migrations, log); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}

		monitoring.NewDBMetricsCollector(conn.GetDB()).StartCollecting(ctx, dbMetricsInterval)

		i.Sales = sqldb.NewSaleRepository(conn)
		i.Catalog = sqldb.NewCatalogRepository(conn)
		log.Info("Connected to database", "driver", cfg.Database.Driver)
	}
	return nil
}

func (i *Infrastructure) openCache(ctx context.Context, cfg *config.Config, clk clock.Clock, log *logger.Logger) error {
	if !cfg.Redis.Enabled {
		i.Cache = memory.NewCache(clk)
		i.Index = pkgbloom.NewBloomFilterWithExpectedItems(cfg.Redis.BloomCapacity, cfg.Redis.BloomFalseRate)
		return nil
	}

	conn, err := redis.NewConnection(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	i.closers = append(i.closers, conn.Close)

	i.Cache = redis.NewCache(conn, log)
	i.Index = bloom.NewSaleIndex(conn.GetClient(), cfg.Redis.BloomCapacity, cfg.Redis.BloomFalseRate)
	i.RedisEnabled = true
	log.Info("Connected to Redis", "address", cfg.Redis.Addr())
	return nil
}

// WarmIndex adds every stored sale id to the sale index. Soft-deleted sales
// are included; the repository still answers NotFound for them.
func (i *Infrastructure) WarmIndex(ctx context.Context) (int, error) {
	sales, err := i.Sales.ListSales(ctx, sale.ListFilter{IncludeDeleted: true})
	if err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(sales))
	for _, s := range sales {
		ids = append(ids, s.ID)
	}

	if bulk, ok := i.Index.(interface {
		AddAll(ctx context.Context, ids []string) error
	}); ok {
		return len(ids), bulk.AddAll(ctx, ids)
	}
	for _, id := range ids {
		if err := i.Index.Add(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// CachePinger returns the cache as a health probe, or nil when the cache is
// process-local.
func (i *Infrastructure) CachePinger() ports.Cache {
	if !i.RedisEnabled {
		return nil
	}
	return i.Cache
}

func (i *Infrastructure) Close() error {
	var first error
	for n := len(i.closers) - 1; n >= 0; n-- {
		if err := i.closers[n](); err != nil && first == nil {
			first = err
		}
	}
	i.closers = nil
	return first
}
