// Command loadtest hammers a single offer's reserve endpoint with concurrent
// buyers and reports whether the server ever sold more than the stock.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/pkg/logger"
)

func main() {
	config := &LoadTestConfig{}
	flag.StringVar(&config.BaseURL, "url", "http://localhost:8080", "Base URL of the service")
	flag.StringVar(&config.SaleID, "sale", "", "Sale id to target")
	flag.StringVar(&config.OfferID, "offer", "", "Offer id to target")
	flag.IntVar(&config.ConcurrentUsers, "users", 100, "Concurrent users")
	flag.IntVar(&config.RequestsPerUser, "requests", 5, "Reserve requests per user")
	flag.IntVar(&config.Quantity, "quantity", 1, "Units per reserve request")
	flag.IntVar(&config.SharedBuyers, "buyers", 0, "Distinct buyer ids shared by the users (0 means one per user)")
	profile := flag.String("profile", "", "Preset: light, heavy or stress")
	output := flag.String("out", "", "Write the JSON report to this file")
	flag.Parse()

	log := logger.NewLogger()

	switch *profile {
	case "":
	case "light":
		config.ConcurrentUsers = 50
		config.RequestsPerUser = 2
	case "heavy":
		config.ConcurrentUsers = 500
		config.RequestsPerUser = 10
	case "stress":
		config.ConcurrentUsers = 1000
		config.RequestsPerUser = 20
	default:
		log.Fatal("Unknown profile", "profile", *profile)
	}

	if config.SaleID == "" || config.OfferID == "" {
		log.Fatal("Both -sale and -offer are required")
	}
	if config.ConcurrentUsers < 1 || config.RequestsPerUser < 1 || config.Quantity < 1 {
		log.Fatal("users, requests and quantity must be positive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting load test",
		"url", config.BaseURL,
		"sale_id", config.SaleID,
		"offer_id", config.OfferID,
		"users", config.ConcurrentUsers,
		"requests_per_user", config.RequestsPerUser,
	)

	metrics, err := NewLoadTester(config).Run(ctx)
	if err != nil {
		log.Fatal("Load test failed", "error", err)
	}

	metrics.PrintReport(os.Stdout)

	filename := *output
	if filename == "" {
		filename = fmt.Sprintf("load_test_results_%s.json", time.Now().Format("20060102_150405"))
	}
	if err := metrics.SaveToFile(filename); err != nil {
		log.Error("Failed to save results", "error", err)
	} else {
		log.Info("Results saved", "file", filename)
	}

	if metrics.Oversold || !metrics.Consistent {
		os.Exit(1)
	}
}
