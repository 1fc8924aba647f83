// Package server exposes the cron and webhook endpoints over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	stripe "github.com/stripe/stripe-go"
	"go.uber.org/zap"

	"krewup/internal/scheduler"
)

type ProximityRunner interface {
	Run(ctx context.Context, now time.Time) (scheduler.RunResult, error)
}

type EventHandler interface {
	HandleEvent(ctx context.Context, event stripe.Event) error
}

// Pinger is a dependency checked by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Checker       ProximityRunner
	Reconciler    EventHandler
	RateCounter   RateCounter // optional
	CronSecret    string
	WebhookSecret string
	Health        map[string]Pinger
	Logger        *zap.Logger
}

type Server struct {
	deps Deps
	now  func() time.Time
}

func New(deps Deps) *Server {
	return &Server{
		deps: deps,
		now:  time.Now,
	}
}

// Router wires routes and middleware.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(Recovery(s.deps.Logger), AccessLog(s.deps.Logger))

	cron := r.PathPrefix("/api/cron").Subrouter()
	cron.Use(s.requireCronToken, RateLimit(s.deps.RateCounter, MaxCronRequestsPerMinute, s.deps.Logger))
	cron.HandleFunc("/check-proximity-alerts", s.handleCheckProximityAlerts).Methods(http.MethodGet)

	r.HandleFunc("/api/webhooks/stripe", s.handleStripeWebhook).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	healthy := true
	for name, p := range s.deps.Health {
		if err := p.Ping(ctx); err != nil {
			s.deps.Logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "ok"
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{"ok": healthy, "dependencies": status})
}
