// Package history combines the call and message list operations into one
// consolidated view for UI consumption.
package history

import (
	"context"
	"sync"

	v1 "github.com/sebas/dialdesk/api/types/v1"
	"github.com/sebas/dialdesk/internal/backend"
	"github.com/sebas/dialdesk/internal/softphone/messaging"
)

// Result is one consolidated history snapshot. Failures are reported per
// source: a caller needing the full picture must check CallsErr and
// MessagesErr, not just the data.
type Result struct {
	Calls    []v1.CallRecord
	CallsErr error

	Messages    []v1.MessageRecord
	MessagesErr error
}

// Complete returns true if both sub-fetches succeeded.
func (r Result) Complete() bool {
	return r.CallsErr == nil && r.MessagesErr == nil
}

// Aggregator loads call and message history for one credential set.
type Aggregator struct {
	gw    *messaging.Gateway
	creds backend.Credentials
	limit int
}

// NewAggregator creates an aggregator using limit entries per list.
func NewAggregator(gw *messaging.Gateway, creds backend.Credentials, limit int) *Aggregator {
	if limit <= 0 {
		limit = backend.DefaultListLimit
	}
	return &Aggregator{gw: gw, creds: creds, limit: limit}
}

// Load fetches both lists concurrently. Each failure is isolated: one
// failing sub-fetch never discards the other's results. The two fetches
// may complete in either order.
func (a *Aggregator) Load(ctx context.Context) Result {
	var res Result
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		res.Calls, res.CallsErr = a.gw.ListCalls(ctx, a.creds, a.limit)
	}()
	go func() {
		defer wg.Done()
		res.Messages, res.MessagesErr = a.gw.ListMessages(ctx, a.creds, a.limit)
	}()

	wg.Wait()
	return res
}
