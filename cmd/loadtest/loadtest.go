package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type LoadTestConfig struct {
	BaseURL         string
	SaleID          string
	OfferID         string
	ConcurrentUsers int
	RequestsPerUser int
	Quantity        int
	// SharedBuyers caps the distinct buyer ids so per-buyer quotas are hit.
	SharedBuyers int
}

type TestResult struct {
	TotalRequests      int64
	SuccessfulRequests int64
	ReservedUnits      int64
	ResponseTimes      []time.Duration
	Outcomes           map[string]int64
	mutex              sync.Mutex
}

type OfferSnapshot struct {
	ID             string `json:"id"`
	TotalStock     int    `json:"total_stock"`
	UnitsSold      int    `json:"units_sold"`
	RemainingStock int    `json:"remaining_stock"`
}

type SaleSnapshot struct {
	ID     string          `json:"id"`
	Phase  string          `json:"phase"`
	Offers []OfferSnapshot `json:"offers"`
}

type errorBody struct {
	Code string `json:"code"`
}

type PerformanceMetrics struct {
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `json:"end_time"`
	TotalDuration   time.Duration    `json:"total_duration"`
	ThroughputRPS   float64          `json:"throughput_rps"`
	TotalRequests   int64            `json:"total_requests"`
	Reservations    int64            `json:"reservations"`
	ReservedUnits   int64            `json:"reserved_units"`
	P50ResponseTime time.Duration    `json:"p50_response_time"`
	P95ResponseTime time.Duration    `json:"p95_response_time"`
	P99ResponseTime time.Duration    `json:"p99_response_time"`
	Outcomes        map[string]int64 `json:"outcomes"`

	StockBefore OfferSnapshot `json:"stock_before"`
	StockAfter  OfferSnapshot `json:"stock_after"`
	Oversold    bool          `json:"oversold"`
	// Consistent is false when the server's units_sold moved by a different
	// amount than the tester saw reserved.
	Consistent bool `json:"consistent"`
}

type LoadTester struct {
	config *LoadTestConfig
	result *TestResult
	client *http.Client
	buyers []string
}

func NewLoadTester(config *LoadTestConfig) *LoadTester {
	buyerCount := config.ConcurrentUsers
	if config.SharedBuyers > 0 && config.SharedBuyers < buyerCount {
		buyerCount = config.SharedBuyers
	}
	buyers := make([]string, buyerCount)
	for i := range buyers {
		buyers[i] = "buyer-" + uuid.NewString()
	}

	return &LoadTester{
		config: config,
		result: &TestResult{
			ResponseTimes: make([]time.Duration, 0, config.ConcurrentUsers*config.RequestsPerUser),
			Outcomes:      make(map[string]int64),
		},
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        1000,
				MaxIdleConnsPerHost: 200,
				MaxConnsPerHost:     400,
			},
		},
		buyers: buyers,
	}
}

func (lt *LoadTester) recordResponse(duration time.Duration, outcome string, units int) {
	atomic.AddInt64(&lt.result.TotalRequests, 1)
	if outcome == "ok" {
		atomic.AddInt64(&lt.result.SuccessfulRequests, 1)
		atomic.AddInt64(&lt.result.ReservedUnits, int64(units))
	}

	lt.result.mutex.Lock()
	lt.result.ResponseTimes = append(lt.result.ResponseTimes, duration)
	lt.result.Outcomes[outcome]++
	lt.result.mutex.Unlock()
}

func (lt *LoadTester) fetchOffer(ctx context.Context) (OfferSnapshot, error) {
	url := fmt.Sprintf("%s/api/v1/sales/%s", lt.config.BaseURL, lt.config.SaleID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return OfferSnapshot{}, err
	}

	resp, err := lt.client.Do(req)
	if err != nil {
		return OfferSnapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return OfferSnapshot{}, fmt.Errorf("get sale: status %d", resp.StatusCode)
	}

	var envelope struct {
		Data SaleSnapshot `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return OfferSnapshot{}, fmt.Errorf("decode sale: %w", err)
	}
	for _, offer := range envelope.Data.Offers {
		if offer.ID == lt.config.OfferID {
			return offer, nil
		}
	}
	return OfferSnapshot{}, fmt.Errorf("offer %s not in sale %s", lt.config.OfferID, lt.config.SaleID)
}

func (lt *LoadTester) reserve(ctx context.Context, buyerID string) {
	url := fmt.Sprintf("%s/api/v1/sales/%s/offers/%s/reserve", lt.config.BaseURL, lt.config.SaleID, lt.config.OfferID)
	body, _ := json.Marshal(map[string]interface{}{
		"buyer_id": buyerID,
		"quantity": lt.config.Quantity,
	})

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		lt.recordResponse(time.Since(start), "request_error", 0)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := lt.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		lt.recordResponse(duration, "transport_error", 0)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		io.Copy(io.Discard, resp.Body)
		lt.recordResponse(duration, "ok", lt.config.Quantity)
		return
	}

	var failure errorBody
	outcome := fmt.Sprintf("http_%d", resp.StatusCode)
	if json.NewDecoder(resp.Body).Decode(&failure) == nil && failure.Code != "" {
		outcome = failure.Code
	}
	lt.recordResponse(duration, outcome, 0)
}

func (lt *LoadTester) simulateUser(ctx context.Context, userID int, wg *sync.WaitGroup, start <-chan struct{}) {
	defer wg.Done()

	buyerID := lt.buyers[userID%len(lt.buyers)]
	<-start

	for i := 0; i < lt.config.RequestsPerUser; i++ {
		select {
		case <-ctx.Done():
			return
		default:
			lt.reserve(ctx, buyerID)
		}
	}
}

// Run fires every user at once against one offer and checks the stock
// afterwards.
func (lt *LoadTester) Run(ctx context.Context) (*PerformanceMetrics, error) {
	before, err := lt.fetchOffer(ctx)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < lt.config.ConcurrentUsers; i++ {
		wg.Add(1)
		go lt.simulateUser(ctx, i, &wg, start)
	}

	startTime := time.Now()
	close(start)
	wg.Wait()
	endTime := time.Now()

	after, err := lt.fetchOffer(ctx)
	if err != nil {
		return nil, err
	}

	metrics := lt.calculateMetrics(startTime, endTime)
	metrics.StockBefore = before
	metrics.StockAfter = after
	metrics.Oversold = after.UnitsSold > after.TotalStock
	metrics.Consistent = int64(after.UnitsSold-before.UnitsSold) == metrics.ReservedUnits
	return metrics, nil
}

func (lt *LoadTester) calculateMetrics(startTime, endTime time.Time) *PerformanceMetrics {
	lt.result.mutex.Lock()
	defer lt.result.mutex.Unlock()

	metrics := &PerformanceMetrics{
		StartTime:     startTime,
		EndTime:       endTime,
		TotalDuration: endTime.Sub(startTime),
		TotalRequests: atomic.LoadInt64(&lt.result.TotalRequests),
		Reservations:  atomic.LoadInt64(&lt.result.SuccessfulRequests),
		ReservedUnits: atomic.LoadInt64(&lt.result.ReservedUnits),
		Outcomes:      make(map[string]int64, len(lt.result.Outcomes)),
	}
	for outcome, n := range lt.result.Outcomes {
		metrics.Outcomes[outcome] = n
	}

	if metrics.TotalDuration.Seconds() > 0 {
		metrics.ThroughputRPS = float64(metrics.TotalRequests) / metrics.TotalDuration.Seconds()
	}
	if len(lt.result.ResponseTimes) > 0 {
		metrics.P50ResponseTime = calculatePercentile(lt.result.ResponseTimes, 50)
		metrics.P95ResponseTime = calculatePercentile(lt.result.ResponseTimes, 95)
		metrics.P99ResponseTime = calculatePercentile(lt.result.ResponseTimes, 99)
	}
	return metrics
}

func calculatePercentile(durations []time.Duration, percentile int) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	index := int(float64(len(sorted)) * float64(percentile) / 100.0)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

func (pm *PerformanceMetrics) PrintReport(w io.Writer) {
	fmt.Fprintf(w, "RESERVATION LOAD TEST RESULTS\n")
	fmt.Fprintf(w, "Test Duration: %v\n", pm.TotalDuration.Round(time.Millisecond))
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "THROUGHPUT:\n")
	fmt.Fprintf(w, "- Requests: %d (%.2f requests/second)\n", pm.TotalRequests, pm.ThroughputRPS)
	fmt.Fprintf(w, "- Reservations: %d for %d units\n", pm.Reservations, pm.ReservedUnits)
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "RESPONSE TIMES:\n")
	fmt.Fprintf(w, "- P50: %v\n", pm.P50ResponseTime.Round(time.Microsecond))
	fmt.Fprintf(w, "- P95: %v\n", pm.P95ResponseTime.Round(time.Microsecond))
	fmt.Fprintf(w, "- P99: %v\n", pm.P99ResponseTime.Round(time.Microsecond))
	fmt.Fprintf(w, "\n")

	outcomes := make([]string, 0, len(pm.Outcomes))
	for outcome := range pm.Outcomes {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)
	fmt.Fprintf(w, "OUTCOMES:\n")
	for _, outcome := range outcomes {
		fmt.Fprintf(w, "- %s: %d\n", outcome, pm.Outcomes[outcome])
	}
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "STOCK:\n")
	fmt.Fprintf(w, "- Before: %d/%d sold\n", pm.StockBefore.UnitsSold, pm.StockBefore.TotalStock)
	fmt.Fprintf(w, "- After: %d/%d sold\n", pm.StockAfter.UnitsSold, pm.StockAfter.TotalStock)
	fmt.Fprintf(w, "- Oversold: %v\n", pm.Oversold)
	fmt.Fprintf(w, "- Consistent with observed reservations: %v\n", pm.Consistent)
}

func (pm *PerformanceMetrics) SaveToFile(filename string) error {
	data, err := json.MarshalIndent(pm, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
