// README: API gateway; builds the gin engine and delegates to module services.
package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"localpro/internal/http/handlers"
	"localpro/internal/http/middleware"
	"localpro/internal/infra"
	"localpro/internal/modules/booking"
	"localpro/internal/modules/earnings"
	"localpro/internal/modules/kyc"
	"localpro/internal/modules/notify"
	"localpro/internal/modules/pricing"
	"localpro/internal/modules/profile"
	"localpro/internal/modules/review"
)

type ServerDeps struct {
	Booking       *booking.Service
	KYC           *kyc.Service
	Review        *review.Service
	Earnings      *earnings.Service
	Notifications *notify.Service
	Profile       *profile.Service
	Pricing       *pricing.Service
	Feed          handlers.Subscriber
	Verifier      infra.TokenVerifier
	Log           *zap.Logger

	AllowedOrigins []string
	RatePerMinute  int
	Production     bool
}

type Server struct {
	deps ServerDeps
}

func NewServer(deps ServerDeps) *Server {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.RatePerMinute <= 0 {
		deps.RatePerMinute = 120
	}
	return &Server{deps: deps}
}

func (s *Server) Routes() *gin.Engine {
	if s.deps.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.Recovery(s.deps.Log), middleware.Metrics(), middleware.Logging(s.deps.Log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.deps.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	registerRoutes(r, s.deps)
	return r
}
