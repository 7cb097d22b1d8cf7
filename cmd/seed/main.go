// Command seed fills the configured store with demo products and sales: one
// scheduled, one live and one already over. It prints an admin token for the
// admin API.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/application/commands"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/application/use_cases"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/config"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/user"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/auth"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/bootstrap"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/clock"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/generator"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

const seedAdminID = "seed-admin"

type seedPlan struct {
	title    string
	startsIn time.Duration
	duration time.Duration
	offers   int
}

func main() {
	configPath := flag.String("config", "config.json", "Path to configuration file")
	products := flag.Int("products", 12, "Number of catalog products to create")
	stock := flag.Int("stock", 100, "Stock per offer")
	maxPerBuyer := flag.Int("max-per-buyer", 2, "Per-buyer limit per offer")
	seed := flag.Int64("seed", 0, "Random seed for generated products (0 picks one)")
	flag.Parse()

	log := logger.NewLogger()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("Failed to load configuration", "error", err)
	}
	if cfg.Database.Driver == config.DriverMemory {
		log.Fatal("Seeding the in-memory store has no effect; choose a persistent database.driver")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	clk := clock.NewRealClock()
	infra, err := bootstrap.Open(ctx, cfg, clk, log)
	if err != nil {
		log.Fatal("Failed to open storage", "error", err)
	}
	defer infra.Close()

	items := generator.NewItemGenerator()
	if *seed != 0 {
		items = generator.NewSeededItemGenerator(*seed)
	}
	fixtures, err := seedProducts(ctx, infra.Catalog, items, *products)
	if err != nil {
		log.Fatal("Failed to seed products", "error", err)
	}
	log.Info("Seeded products", "requested", *products, "verified", len(fixtures))

	admin := use_cases.NewAdminUseCase(
		infra.Sales,
		infra.Catalog,
		infra.Cache,
		infra.Index,
		auth.ContextAuth{},
		generator.NewTypeIDGenerator(),
		clk,
		log,
	)
	createSale := commands.NewCreateSaleHandler(admin, log)
	adminCtx := auth.WithCaller(ctx, &user.Caller{ID: seedAdminID, Role: user.RoleAdmin})

	plans := []seedPlan{
		{title: "Midnight Madness", startsIn: 2 * time.Hour, duration: 4 * time.Hour, offers: 3},
		{title: "Lunchtime Lightning Deals", startsIn: -30 * time.Minute, duration: 3 * time.Hour, offers: 4},
		{title: "Weekend Clearance", startsIn: -48 * time.Hour, duration: 24 * time.Hour, offers: 2},
	}

	for _, plan := range plans {
		if plan.offers > len(fixtures) {
			log.Fatal("Not enough verified products for a sale; raise -products",
				"sale", plan.title, "offers", plan.offers, "verified", len(fixtures))
		}
	}

	next := 0
	for _, plan := range plans {
		start := clk.Now().Add(plan.startsIn).Truncate(time.Minute)
		input := use_cases.CreateSaleInput{
			Title:       plan.title,
			Description: fmt.Sprintf("%d verified merchants, limited stock", plan.offers),
			StartsAt:    start,
			EndsAt:      start.Add(plan.duration),
		}
		for i := 0; i < plan.offers; i++ {
			fixture := fixtures[next%len(fixtures)]
			next++
			input.Offers = append(input.Offers, use_cases.OfferInput{
				ProductID:        fixture.ProductID,
				OriginalPrice:    fixture.Price,
				SalePrice:        items.GenerateSalePrice(fixture.Price),
				TotalStock:       *stock,
				MaxUnitsPerBuyer: *maxPerBuyer,
			})
		}

		created, err := createSale.Handle(adminCtx, input)
		if err != nil {
			log.Fatal("Failed to create sale", "title", plan.title, "error", err)
		}
		log.Info("Created sale",
			"sale_id", created.ID,
			"title", created.Title,
			"phase", sale.EvaluatePhase(created, clk.Now()),
			"offers", len(created.Offers),
		)
		for _, offer := range created.Offers {
			fmt.Printf("%s\t%s\t%s\t%s\n", created.ID, offer.ID, offer.ProductName, offer.SalePrice.StringFixed(2))
		}
	}

	authenticator := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenLifetime(), log)
	token, err := authenticator.IssueToken(seedAdminID, user.RoleAdmin)
	if err != nil {
		log.Fatal("Failed to issue admin token", "error", err)
	}
	fmt.Printf("\nAdmin token (valid %s):\n%s\n", cfg.Auth.TokenLifetime(), token)
}

// seedProducts writes n products. Every fourth one belongs to an unverified
// merchant; only the verified products are returned for use in sales.
func seedProducts(ctx context.Context, catalog bootstrap.Catalog, items *generator.ItemGenerator, n int) ([]generator.ProductFixture, error) {
	if n < 1 {
		n = 1
	}
	verified := make([]generator.ProductFixture, 0, n)
	for i := 0; i < n; i++ {
		fixture := items.GenerateProduct(i%4 != 3)
		snapshot := sale.ProductSnapshot{
			ProductID:        fixture.ProductID,
			MerchantID:       fixture.MerchantID,
			Name:             fixture.Name,
			Image:            fixture.Image,
			MerchantLabel:    fixture.MerchantLabel,
			MerchantVerified: fixture.MerchantVerified,
		}
		if err := catalog.UpsertProduct(ctx, snapshot, fixture.Price); err != nil {
			return nil, err
		}
		if fixture.MerchantVerified {
			verified = append(verified, fixture)
		}
	}
	return verified, nil
}
