package server

import (
	"io"
	"net/http"

	"github.com/stripe/stripe-go/webhook"
	"go.uber.org/zap"
)

// MaxWebhookBodyBytes bounds the Stripe payload read.
const MaxWebhookBodyBytes = 65536

func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBodyBytes))
	if err != nil {
		s.deps.Logger.Warn("failed to read webhook body", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "unreadable body"})
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), s.deps.WebhookSecret)
	if err != nil {
		s.deps.Logger.Warn("webhook signature verification failed", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid signature"})
		return
	}

	if err := s.deps.Reconciler.HandleEvent(r.Context(), event); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"received": true})
}
