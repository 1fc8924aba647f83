package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// ErrUnauthorized is returned for a missing or wrong cron bearer token.
var ErrUnauthorized = errors.New("unauthorized")

type proximityResponse struct {
	Success              bool   `json:"success"`
	Message              string `json:"message,omitempty"`
	JobsProcessed        int    `json:"jobsProcessed"`
	NotificationsCreated int    `json:"notificationsCreated"`
	Failed               int    `json:"failed,omitempty"`
	Skipped              bool   `json:"skipped,omitempty"`
	Error                string `json:"error,omitempty"`
}

// requireCronToken rejects a request before anything downstream, the rate
// limiter included, touches a datastore.
func (s *Server) requireCronToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.authorizeCron(r); err != nil {
			s.deps.Logger.Warn("rejected cron invocation", zap.String("client", clientIP(r)))
			writeJSON(w, http.StatusUnauthorized, proximityResponse{Error: err.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCheckProximityAlerts(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Checker.Run(r.Context(), s.now())
	if err != nil {
		s.deps.Logger.Error("proximity alert check failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, proximityResponse{Error: err.Error()})
		return
	}

	message := "Proximity alerts checked"
	if res.Skipped {
		message = "Proximity check already running"
	}

	writeJSON(w, http.StatusOK, proximityResponse{
		Success:              true,
		Message:              message,
		JobsProcessed:        res.JobsProcessed,
		NotificationsCreated: res.NotificationsCreated,
		Failed:               res.Failed,
		Skipped:              res.Skipped,
	})
}

func (s *Server) authorizeCron(r *http.Request) error {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") || s.deps.CronSecret == "" {
		return ErrUnauthorized
	}
	token := strings.TrimPrefix(header, "Bearer ")

	if subtle.ConstantTimeCompare([]byte(token), []byte(s.deps.CronSecret)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
