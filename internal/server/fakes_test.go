package server

import (
	"context"
	"errors"
	"time"

	stripe "github.com/stripe/stripe-go"

	"krewup/internal/scheduler"
)

type fakeChecker struct {
	result scheduler.RunResult
	err    error
	calls  int
}

func (f *fakeChecker) Run(context.Context, time.Time) (scheduler.RunResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeReconciler struct {
	err    error
	events []stripe.Event
}

func (f *fakeReconciler) HandleEvent(_ context.Context, event stripe.Event) error {
	f.events = append(f.events, event)
	return f.err
}

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f *fakeCounter) IncrementClientRateLimit(_ context.Context, client string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[client]++
	return f.counts[client], nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

var errDown = errors.New("dial tcp: connection refused")
