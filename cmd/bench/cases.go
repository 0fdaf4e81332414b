// README: Deployment checks: connectivity, schema, HTTP surface, feed round trip, accept race and load.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"localpro/internal/modules/feed"
	"localpro/internal/types"
	"localpro/migrations"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{Name: "Env: Postgres connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return Result{Status: "FAIL", Note: "db not configured"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.db.Ping(ctx); err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			return Result{Status: "PASS"}
		}},
		{Name: "Env: Redis connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil {
				return Result{Status: "FAIL", Note: "redis not configured"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.redis.Ping(ctx).Err(); err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			return Result{Status: "PASS"}
		}},
		{Name: "Migration: apply (optional)", Run: func(ctx context.Context, r *Runner) Result {
			if !r.cfg.ApplyMigration {
				return Result{Status: "SKIP", Note: "apply-migration=false"}
			}
			if r.db == nil {
				return Result{Status: "FAIL", Note: "db not configured"}
			}
			if err := migrations.Apply(ctx, r.db); err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			return Result{Status: "PASS"}
		}},
		{Name: "Migration: tables exist", Run: checkTables},
		{Name: "Migration: rate card seeded", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return Result{Status: "FAIL", Note: "db not configured"}
			}
			var n int
			if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM service_rates").Scan(&n); err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			if n == 0 {
				return Result{Status: "FAIL", Note: "service_rates is empty"}
			}
			return Result{Status: "PASS", Note: fmt.Sprintf("categories=%d", n)}
		}},
		httpCase("API: health", http.MethodGet, base+"/health", "", nil, http.StatusOK),
		httpCase("API: bookings require auth", http.MethodGet, base+"/api/bookings", "", nil, http.StatusUnauthorized),
		{Name: "API: metrics exposed", Run: func(ctx context.Context, r *Runner) Result {
			body, status, err := r.fetch(ctx, http.MethodGet, base+"/metrics", "", nil)
			if err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			if status != http.StatusOK || !strings.Contains(body, "localpro_http_request_duration_seconds") {
				return Result{Status: "FAIL", Note: fmt.Sprintf("status=%d", status)}
			}
			return Result{Status: "PASS"}
		}},
		{Name: "Feed: redis round trip", Run: feedRoundTrip},
		{Name: "Booking: concurrent accept", Run: func(ctx context.Context, r *Runner) Result {
			return concurrentAccept(ctx, r)
		}},
		{Name: "Perf: health load", Run: func(ctx context.Context, r *Runner) Result {
			return perfLoad(ctx, r, base+"/health")
		}},
	}
}

func httpCase(name, method, url, token string, body any, want int) TestCase {
	return TestCase{Name: name, Run: func(ctx context.Context, r *Runner) Result {
		start := time.Now()
		_, status, err := r.fetch(ctx, method, url, token, body)
		if err != nil {
			return Result{Status: "FAIL", Note: err.Error()}
		}
		if status != want {
			return Result{Status: "FAIL", Latency: time.Since(start), Note: fmt.Sprintf("status=%d want=%d", status, want)}
		}
		return Result{Status: "PASS", Latency: time.Since(start)}
	}}
}

func (r *Runner) fetch(ctx context.Context, method, url, token string, body any) (string, int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return "", 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return string(b), resp.StatusCode, nil
}

var createTableRe = regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)

func checkTables(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: "FAIL", Note: "db not configured"}
	}
	stmts, err := migrations.Statements()
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	for _, s := range stmts {
		m := createTableRe.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		var exists bool
		err := r.db.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
			m[1],
		).Scan(&exists)
		if err != nil {
			return Result{Status: "FAIL", Note: err.Error()}
		}
		if !exists {
			return Result{Status: "FAIL", Note: "missing table: " + m[1]}
		}
	}
	return Result{Status: "PASS"}
}

// feedRoundTrip publishes a synthetic change and waits for it on a booking subscription.
func feedRoundTrip(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: "FAIL", Note: "redis not configured"}
	}
	bus := feed.NewRedisBus(r.redis, zap.NewNop())
	id := types.ID(fmt.Sprintf("bench-%d", time.Now().UnixNano()))
	got := make(chan feed.Change, 1)
	stop, err := bus.Subscribe(ctx, feed.Filter{BookingID: id}, func(c feed.Change) {
		select {
		case got <- c:
		default:
		}
	}, func() {})
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	defer stop()

	start := time.Now()
	if err := bus.Publish(ctx, feed.Change{BookingID: id, Status: "requested", OccurredAt: start}); err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	select {
	case <-got:
		return Result{Status: "PASS", Latency: time.Since(start)}
	case <-time.After(3 * time.Second):
		return Result{Status: "FAIL", Note: "change not delivered"}
	}
}

// concurrentAccept books once and fires parallel accepts; exactly one may win.
func concurrentAccept(ctx context.Context, r *Runner) Result {
	if r.cfg.CustomerToken == "" || r.cfg.ProviderToken == "" || r.cfg.ProviderID == "" {
		return Result{Status: "SKIP", Note: "customer/provider tokens not set"}
	}
	body, status, err := r.fetch(ctx, http.MethodPost, r.cfg.BaseURL+"/api/bookings", r.cfg.CustomerToken, map[string]any{
		"provider_id":      r.cfg.ProviderID,
		"service_category": "plumbing",
		"scheduled_date":   time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
		"scheduled_time":   "10:00",
		"payment_method":   "cash",
	})
	if err != nil || status != http.StatusCreated {
		return Result{Status: "FAIL", Note: fmt.Sprintf("create: status=%d err=%v", status, err)}
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(body), &created); err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}

	url := r.cfg.BaseURL + "/api/bookings/" + created.ID + "/accept"
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		succ int
		lost int
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, status, err := r.fetch(ctx, http.MethodPost, url, r.cfg.ProviderToken, nil)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch status {
			case http.StatusOK:
				succ++
			case http.StatusConflict:
				lost++
			}
		}()
	}
	wg.Wait()

	if succ != 1 {
		return Result{Status: "FAIL", Note: fmt.Sprintf("success=%d conflict=%d", succ, lost)}
	}
	return Result{Status: "PASS", Note: fmt.Sprintf("success=%d conflict=%d", succ, lost)}
}

func perfLoad(ctx context.Context, r *Runner, url string) Result {
	end := time.Now().Add(r.cfg.Duration)
	var (
		mu       sync.Mutex
		count    int64
		errCount int64
		wg       sync.WaitGroup
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				_, _, err := r.fetch(ctx, http.MethodGet, url, "", nil)
				mu.Lock()
				if err != nil {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: "FAIL", Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: "PASS", Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}
