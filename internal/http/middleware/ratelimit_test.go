package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestLimiterStoreEvictsIdleClients(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := newLimiterStore(60)
	store.now = func() time.Time { return clock }

	for i := 0; i < 100; i++ {
		store.get(fmt.Sprintf("10.0.0.%d", i))
	}
	if n := store.size(); n != 100 {
		t.Fatalf("expected 100 tracked clients, got %d", n)
	}

	clock = clock.Add(2 * time.Minute)
	store.get("active")
	clock = clock.Add(limiterIdleTTL)
	store.get("active")

	if n := store.size(); n != 1 {
		t.Fatalf("idle clients must be evicted, %d left", n)
	}
}

func TestLimiterStoreKeepsBudgetOfActiveClient(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := newLimiterStore(2)
	store.now = func() time.Time { return clock }

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(rateLimit(store, zap.NewNop()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes = append(codes, w.Code)
		clock = clock.Add(time.Second)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Fatalf("a sweep must not reset a live client's bucket, got %v", codes)
	}
}
