// README: Per-client token bucket limiter with idle eviction.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// limiterIdleTTL must exceed the one minute refill time of a bucket.
const limiterIdleTTL = 5 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterStore struct {
	mu        sync.Mutex
	perMin    int
	idleTTL   time.Duration
	limiters  map[string]*clientLimiter
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterStore(perMin int) *limiterStore {
	return &limiterStore{
		perMin:   perMin,
		idleTTL:  limiterIdleTTL,
		limiters: map[string]*clientLimiter{},
		now:      time.Now,
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if now.Sub(s.lastSweep) >= s.idleTTL {
		s.sweep(now)
	}
	cl, ok := s.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.perMin)), s.perMin)}
		s.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// sweep drops clients idle for longer than idleTTL. Caller holds mu.
func (s *limiterStore) sweep(now time.Time) {
	for key, cl := range s.limiters {
		if now.Sub(cl.lastSeen) > s.idleTTL {
			delete(s.limiters, key)
		}
	}
	s.lastSweep = now
}

func (s *limiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// RateLimit keys on the caller uid when Auth ran first, else on the client ip.
func RateLimit(perMinute int, log *zap.Logger) gin.HandlerFunc {
	return rateLimit(newLimiterStore(perMinute), log)
}

func rateLimit(store *limiterStore, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := CallerUID(c)
		if key == "" {
			key = c.ClientIP()
		}
		if !store.get(key).Allow() {
			log.Warn("rate limit exceeded", zap.String("key", key))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded, try again later"})
			return
		}
		c.Next()
	}
}
