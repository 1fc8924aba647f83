package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go"
	"go.uber.org/zap"

	"krewup/internal/billing"
	"krewup/internal/scheduler"
)

const (
	cronSecret    = "cron-s3cret"
	webhookSecret = "whsec_test"
)

type testServer struct {
	checker    *fakeChecker
	reconciler *fakeReconciler
	counter    *fakeCounter
	handler    http.Handler
}

func newTestServer(health map[string]Pinger) *testServer {
	ts := &testServer{
		checker:    &fakeChecker{},
		reconciler: &fakeReconciler{},
		counter:    &fakeCounter{},
	}
	ts.handler = New(Deps{
		Checker:       ts.checker,
		Reconciler:    ts.reconciler,
		RateCounter:   ts.counter,
		CronSecret:    cronSecret,
		WebhookSecret: webhookSecret,
		Health:        health,
		Logger:        zap.NewNop(),
	}).Router()
	return ts
}

func (ts *testServer) do(req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	var body map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func cronRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/cron/check-proximity-alerts", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func signedWebhook(t *testing.T, secret string, payload []byte) *http.Request {
	t.Helper()
	ts := time.Now().Unix()

	mac := hmac.New(sha256.New, []byte(secret))
	_, err := mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	return req
}

func eventPayload(id, typ string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"object":"event","api_version":%q,"type":%q,"data":{"object":{"id":"cs_1","object":"checkout.session"}}}`,
		id, stripe.APIVersion, typ,
	))
}

func TestCron_Unauthorized(t *testing.T) {
	for name, token := range map[string]string{"missing": "", "wrong": "guess"} {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(nil)

			rec, body := ts.do(cronRequest(token))

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "unauthorized", body["error"])
			assert.Zero(t, ts.checker.calls)
			assert.Empty(t, ts.counter.counts, "rejected call must not reach the rate counter")
		})
	}
}

func TestCron_UnauthorizedFloodIsNotRateLimited(t *testing.T) {
	ts := newTestServer(nil)

	for i := 0; i <= MaxCronRequestsPerMinute; i++ {
		rec, _ := ts.do(cronRequest("guess"))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	assert.Empty(t, ts.counter.counts)

	rec, _ := ts.do(cronRequest(cronSecret))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), ts.counter.counts["192.0.2.1"])
}

func TestCron_Success(t *testing.T) {
	ts := newTestServer(nil)
	ts.checker.result = scheduler.RunResult{JobsProcessed: 3, NotificationsCreated: 2}

	rec, body := ts.do(cronRequest(cronSecret))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(3), body["jobsProcessed"])
	assert.Equal(t, float64(2), body["notificationsCreated"])
	assert.Equal(t, 1, ts.checker.calls)
}

func TestCron_Failure(t *testing.T) {
	ts := newTestServer(nil)
	ts.checker.err = fmt.Errorf("%w: jobs: timeout", scheduler.ErrTransport)

	rec, body := ts.do(cronRequest(cronSecret))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "timeout")
}

func TestCron_RateLimited(t *testing.T) {
	ts := newTestServer(nil)

	for i := 0; i < MaxCronRequestsPerMinute; i++ {
		rec, _ := ts.do(cronRequest(cronSecret))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, _ := ts.do(cronRequest(cronSecret))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, MaxCronRequestsPerMinute, ts.checker.calls)
}

func TestCron_RateLimiterDownFailsOpen(t *testing.T) {
	ts := newTestServer(nil)
	ts.counter.err = errDown

	rec, _ := ts.do(cronRequest(cronSecret))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhook_BadSignature(t *testing.T) {
	ts := newTestServer(nil)

	req := signedWebhook(t, "whsec_wrong", eventPayload("evt_1", billing.EventCheckoutCompleted))
	rec, body := ts.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid signature", body["error"])
	assert.Empty(t, ts.reconciler.events)

	req = httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader("{}"))
	rec, _ = ts.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_Received(t *testing.T) {
	ts := newTestServer(nil)

	rec, body := ts.do(signedWebhook(t, webhookSecret, eventPayload("evt_1", billing.EventCheckoutCompleted)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["received"])
	require.Len(t, ts.reconciler.events, 1)
	assert.Equal(t, "evt_1", ts.reconciler.events[0].ID)
	assert.Equal(t, billing.EventCheckoutCompleted, ts.reconciler.events[0].Type)
}

func TestWebhook_ReconcilerErrorIs500(t *testing.T) {
	errs := []error{
		billing.ErrMissingMetadata,
		fmt.Errorf("%w: price_x", billing.ErrUnknownPrice),
		billing.ErrNotFound,
		billing.ErrTransport,
	}
	for _, e := range errs {
		ts := newTestServer(nil)
		ts.reconciler.err = e

		rec, body := ts.do(signedWebhook(t, webhookSecret, eventPayload("evt_1", billing.EventSubscriptionDeleted)))

		assert.Equal(t, http.StatusInternalServerError, rec.Code, e.Error())
		assert.Equal(t, e.Error(), body["error"])
	}
}

func TestWebhook_OversizedBody(t *testing.T) {
	ts := newTestServer(nil)
	payload := []byte(`{"id":"evt_1","padding":"` + strings.Repeat("x", MaxWebhookBodyBytes) + `"}`)

	rec, _ := ts.do(signedWebhook(t, webhookSecret, payload))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ts.reconciler.events)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(map[string]Pinger{"postgres": fakePinger{}, "redis": fakePinger{}})
	rec, body := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])

	ts = newTestServer(map[string]Pinger{"postgres": fakePinger{}, "redis": fakePinger{err: errDown}})
	rec, body = ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, map[string]interface{}{"postgres": "ok", "redis": "down"}, body["dependencies"])
}

func TestRecovery(t *testing.T) {
	h := Recovery(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
