package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Nixend-creator/DynamicEconomy/internal/auction"
	"github.com/Nixend-creator/DynamicEconomy/internal/auth"
	"github.com/Nixend-creator/DynamicEconomy/internal/market"
	"github.com/Nixend-creator/DynamicEconomy/pkg/response"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	minRounds      = 10
	maxRounds      = 40
	numPlayers     = 6
	goodsPerPlayer = 3
	seedAmount     = 400
	seedBalance    = 1000
	defaultServer  = "http://localhost:8080"
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
	rejections int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))

	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// apiError is a non-success envelope. Outcome failures such as COOLDOWN are
// rejections, not transport failures.
type apiError struct {
	status int
	code   string
	msg    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("status %d: %s %s", e.status, e.code, e.msg)
}

func (e *apiError) rejection() bool {
	return e.status == http.StatusConflict || e.status == http.StatusUnprocessableEntity ||
		e.status == http.StatusNotFound
}

// simulationClient handles HTTP communication with the market API. Every
// simulated player shares it and brings its own token.
type simulationClient struct {
	baseURL string
	client  *http.Client

	mu    sync.Mutex
	stats map[string]*routeStats
}

// player is one logged-in simulated trader.
type player struct {
	id      string
	token   string
	goods   []string
	limiter *rate.Limiter
}

func newSimulationClient(baseURL string) *simulationClient {
	return &simulationClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		stats: map[string]*routeStats{
			"auth":       {name: "Authentication"},
			"categories": {name: "Categories"},
			"goods":      {name: "Category Goods"},
			"preview":    {name: "Sell Preview"},
			"sell":       {name: "Sell"},
			"buy":        {name: "Buy"},
			"account":    {name: "Account"},
			"list":       {name: "Auction List"},
			"page":       {name: "Auction Page"},
			"purchase":   {name: "Auction Buy"},
			"admin":      {name: "Admin"},
		},
	}
}

func (sc *simulationClient) record(route string, d time.Duration, err error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	rs := sc.stats[route]
	rs.addDuration(d)
	if err == nil {
		return
	}
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.rejection() {
		rs.rejections++
		return
	}
	rs.failures++
}

// do sends one request and decodes the envelope's data into out.
func (sc *simulationClient) do(ctx context.Context, route, method, path, token string, body, out any) (err error) {
	start := time.Now()
	defer func() {
		sc.record(route, time.Since(start), err)
	}()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, sc.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("route", route).Int("status", resp.StatusCode).Str("response", string(respBody)).Msg("API response")

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *response.Error `json:"error"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}
	if !envelope.Success {
		apiErr := &apiError{status: resp.StatusCode}
		if envelope.Error != nil {
			apiErr.code = envelope.Error.Code
			apiErr.msg = envelope.Error.Message
		}
		return apiErr
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode data: %w", err)
		}
	}
	return nil
}

// login claims a player id with a fresh secret, or logs in the admin.
func (sc *simulationClient) login(ctx context.Context, playerID, secret string) (*auth.TokenResponse, error) {
	var token auth.TokenResponse
	err := sc.do(ctx, "auth", http.MethodPost, "/api/v1/auth/token", "",
		auth.Credentials{PlayerID: playerID, Secret: secret}, &token)
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// seed grants every player a starting balance and a few random goods.
func (sc *simulationClient) seed(ctx context.Context, adminToken string, players []*player) error {
	var snapshot []market.GoodSnapshot
	if err := sc.do(ctx, "admin", http.MethodGet, "/api/v1/market/snapshot", adminToken, nil, &snapshot); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if len(snapshot) == 0 {
		return errors.New("catalogue has no goods")
	}

	for _, p := range players {
		for i := 0; i < goodsPerPlayer; i++ {
			good := snapshot[rand.Intn(len(snapshot))].GoodKey
			req := market.GrantRequest{PlayerID: p.id, Good: good, Amount: seedAmount}
			if i == 0 {
				req.Balance = seedBalance
			}
			if err := sc.do(ctx, "admin", http.MethodPost, "/api/v1/admin/grant", adminToken, req, nil); err != nil {
				log.Warn().Err(err).Str("player_id", p.id).Str("good", good).Msg("Failed to grant goods")
				continue
			}
			p.goods = append(p.goods, good)
		}
	}
	return nil
}

// tally is what the simulated players achieved.
type tally struct {
	mu            sync.Mutex
	Sales         int
	UnitsSold     int
	Payout        float64
	Purchases     int
	Spent         float64
	Listings      int
	AuctionBuys   int
	ContractSales int
	Goods         map[string]int
}

func (t *tally) sale(r market.SellResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Sales++
	t.UnitsSold += r.Amount
	t.Payout += r.Payout
	t.Goods[r.GoodKey] += r.Amount
	if r.ContractBonus {
		t.ContractSales++
	}
}

func (t *tally) add(f func(*tally)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f(t)
}

// trade runs the player's rounds: browse, preview and sell, and now and then
// buy from the market or the auction board.
func trade(ctx context.Context, sc *simulationClient, p *player, rounds int, t *tally) error {
	logger := log.With().Str("player_id", p.id).Logger()

	for i := 0; i < rounds; i++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}

		var browse struct {
			Categories  []market.CategoryView `json:"categories"`
			HotCategory string                `json:"hot_category"`
		}
		if err := sc.do(ctx, "categories", http.MethodGet, "/api/v1/market/categories", p.token, nil, &browse); err != nil {
			logger.Error().Err(err).Msg("Failed to list categories")
			continue
		}
		if categories := browse.Categories; len(categories) > 0 {
			key := categories[rand.Intn(len(categories))].Key
			var goods []market.GoodView
			_ = sc.do(ctx, "goods", http.MethodGet, "/api/v1/market/categories/"+key, p.token, nil, &goods)
		}

		if len(p.goods) == 0 {
			continue
		}
		good := p.goods[rand.Intn(len(p.goods))]
		amount := rand.Intn(64) + 1

		var preview market.SellResult
		path := fmt.Sprintf("/api/v1/market/goods/%s/preview?amount=%d", good, amount)
		if err := sc.do(ctx, "preview", http.MethodGet, path, p.token, nil, &preview); err != nil {
			logger.Debug().Err(err).Str("good", good).Msg("Preview rejected")
		}

		var sold market.SellResult
		err := sc.do(ctx, "sell", http.MethodPost, "/api/v1/market/sell", p.token,
			market.SellRequest{Good: good, Amount: amount}, &sold)
		if err == nil {
			t.sale(sold)
			logger.Info().
				Str("good", good).
				Int("amount", sold.Amount).
				Float64("payout", sold.Payout).
				Float64("multiplier_after", sold.MultiplierAfter).
				Msg("Goods sold")
		} else {
			logger.Debug().Err(err).Str("good", good).Msg("Sale rejected")
		}

		switch rand.Intn(4) {
		case 0:
			var bought market.BuyResult
			if err := sc.do(ctx, "buy", http.MethodPost, "/api/v1/market/buy", p.token,
				market.BuyRequest{Good: good, Amount: rand.Intn(8) + 1}, &bought); err == nil {
				t.add(func(t *tally) { t.Purchases++; t.Spent += bought.Cost })
			}
		case 1:
			req := auction.ListRequest{
				Good:     good,
				Quantity: rand.Intn(16) + 1,
				Price:    math.Round((preview.PricePerUnit*1.2+0.5)*100) / 100,
			}
			if err := sc.do(ctx, "list", http.MethodPost, "/api/v1/auction", p.token, req, nil); err == nil {
				t.add(func(t *tally) { t.Listings++ })
			}
		case 2:
			var page auction.Page
			if err := sc.do(ctx, "page", http.MethodGet, "/api/v1/auction?page=1", p.token, nil, &page); err != nil {
				continue
			}
			for _, l := range page.Listings {
				if l.SellerID == p.id {
					continue
				}
				if err := sc.do(ctx, "purchase", http.MethodPost, "/api/v1/auction/"+l.ID+"/buy", p.token, nil, nil); err == nil {
					t.add(func(t *tally) { t.AuctionBuys++ })
				}
				break
			}
		default:
			var account market.AccountView
			_ = sc.do(ctx, "account", http.MethodGet, "/api/v1/account", p.token, nil, &account)
		}

		time.Sleep(time.Duration(rand.Intn(300)) * time.Millisecond)
	}
	return nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	keys := make([]string, 0, len(sc.stats))
	for k := range sc.stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println("\n📊 API Performance Statistics")
	fmt.Println(strings.Repeat("-", 111))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Rejected", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 111))

	for _, k := range keys {
		stats := sc.stats[k]
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			stats.rejections,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 111))
}

// main runs the market simulation against a running server. With
// DYNECO_ADMIN_SECRET set, the admin seeds every player with goods first.
func main() {
	baseURL := os.Getenv("DYNECO_SERVER")
	if baseURL == "" {
		baseURL = defaultServer
	}
	ctx := context.Background()
	sc := newSimulationClient(baseURL)

	runID := uuid.New().String()[:8]
	players := make([]*player, 0, numPlayers)
	for i := 0; i < numPlayers; i++ {
		id := fmt.Sprintf("sim-%s-%d", runID, i)
		token, err := sc.login(ctx, id, uuid.New().String())
		if err != nil {
			log.Fatal().Err(err).Str("player_id", id).Msg("Failed to authenticate player")
		}
		players = append(players, &player{
			id:    id,
			token: token.Token,
			// Stays under the server's per-player trading limit.
			limiter: rate.NewLimiter(rate.Every(600*time.Millisecond), 3),
		})
	}

	adminSecret := os.Getenv("DYNECO_ADMIN_SECRET")
	var adminToken string
	if adminSecret == "" {
		log.Warn().Msg("DYNECO_ADMIN_SECRET not set, players start with empty inventories")
	} else {
		token, err := sc.login(ctx, "sim-admin-"+runID, adminSecret)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to authenticate admin")
		}
		adminToken = token.Token
		if err := sc.seed(ctx, adminToken, players); err != nil {
			log.Fatal().Err(err).Msg("Failed to seed players")
		}
	}

	rounds := rand.Intn(maxRounds-minRounds) + minRounds
	log.Info().Int("players", len(players)).Int("rounds", rounds).Msg("Starting simulation")

	t := &tally{Goods: make(map[string]int)}
	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range players {
		g.Go(func() error {
			return trade(gctx, sc, p, rounds, t)
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Simulation aborted")
	}

	duration := time.Since(startTime)
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("🚀 MARKET SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf(`
📊 Trade Statistics
------------------
Sales:            %d
Units Sold:       %d
Total Payout:     %.2f
Contract Sales:   %d
Market Buys:      %d
Spent:            %.2f
Auction Listings: %d
Auction Buys:     %d
Duration:         %v

📈 Units Sold per Good
--------------------
`, t.Sales, t.UnitsSold, t.Payout, t.ContractSales, t.Purchases, t.Spent,
		t.Listings, t.AuctionBuys, duration.Round(time.Millisecond))

	maxCount := 0
	for _, count := range t.Goods {
		if count > maxCount {
			maxCount = count
		}
	}
	for good, count := range t.Goods {
		barLength := int(float64(count) / float64(maxCount) * 20)
		bar := strings.Repeat("█", barLength)
		fmt.Printf("%-16s: %s (%d)\n", good, bar, count)
	}

	if adminToken != "" {
		var info market.Info
		if err := sc.do(ctx, "admin", http.MethodGet, "/api/v1/admin/info", adminToken, nil, &info); err == nil {
			fmt.Println("\n🏦 Market State")
			fmt.Println("------------------")
			fmt.Printf("Hot Category:     %s\n", info.HotCategory)
			fmt.Printf("Contracts:        %d\n", info.ActiveContracts)
			fmt.Printf("Events:           %d\n", info.ActiveEvents)
			fmt.Printf("Listings:         %d\n", info.ActiveListings)
			fmt.Printf("Treasury:         %.2f (collected %.2f)\n", info.Treasury.Balance, info.Treasury.TotalCollected)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 80))

	log.Info().
		Int("sales", t.Sales).
		Int("units_sold", t.UnitsSold).
		Float64("payout", t.Payout).
		Dur("duration", duration).
		Msg("Simulation completed")

	sc.printPerformanceStats()
}
