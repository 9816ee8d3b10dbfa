package history

import (
	"context"
	"errors"
	"testing"
	"time"

	v1 "github.com/sebas/dialdesk/api/types/v1"
	"github.com/sebas/dialdesk/internal/backend"
	"github.com/sebas/dialdesk/internal/softphone/messaging"
)

type fakeAPI struct {
	calls      []v1.CallRecord
	callErr    error
	callDelay  time.Duration
	messages   []v1.MessageRecord
	messageErr error
}

func (f *fakeAPI) CreateMessage(ctx context.Context, creds backend.Credentials, msg backend.OutboundMessage) (*v1.MessageRecord, error) {
	return nil, errors.New("not used")
}

func (f *fakeAPI) ListCalls(ctx context.Context, creds backend.Credentials, limit int) ([]v1.CallRecord, error) {
	if f.callDelay > 0 {
		time.Sleep(f.callDelay)
	}
	return f.calls, f.callErr
}

func (f *fakeAPI) ListMessages(ctx context.Context, creds backend.Credentials, limit int) ([]v1.MessageRecord, error) {
	return f.messages, f.messageErr
}

func testCreds() backend.Credentials {
	return backend.Credentials{
		AccountSID:  "AC0000000000000000000000000000test",
		AuthToken:   "secret",
		PhoneNumber: "+15550000000",
	}
}

func TestLoadBothSucceed(t *testing.T) {
	api := &fakeAPI{
		calls:    []v1.CallRecord{{ID: "CA1", Direction: "outbound"}},
		messages: []v1.MessageRecord{{ID: "SM1", Body: "hi"}, {ID: "SM2", Body: "again"}},
	}
	a := NewAggregator(messaging.NewGateway(api), testCreds(), 20)

	res := a.Load(context.Background())
	if !res.Complete() {
		t.Fatalf("Complete() = false, calls err %v, messages err %v", res.CallsErr, res.MessagesErr)
	}
	if len(res.Calls) != 1 || len(res.Messages) != 2 {
		t.Errorf("got %d calls, %d messages", len(res.Calls), len(res.Messages))
	}
}

func TestLoadCallFailureIsolated(t *testing.T) {
	api := &fakeAPI{
		callErr:  &backend.Error{Op: "list calls", Status: 500, Detail: "upstream down"},
		messages: []v1.MessageRecord{{ID: "SM1"}},
	}
	a := NewAggregator(messaging.NewGateway(api), testCreds(), 20)

	res := a.Load(context.Background())
	if res.Complete() {
		t.Fatal("Complete() = true with a failed sub-fetch")
	}
	var be *backend.Error
	if !errors.As(res.CallsErr, &be) {
		t.Errorf("CallsErr = %v, want the backend error", res.CallsErr)
	}
	if res.MessagesErr != nil {
		t.Errorf("MessagesErr = %v, the healthy source must not be discarded", res.MessagesErr)
	}
	if len(res.Messages) != 1 {
		t.Errorf("got %d messages, want 1", len(res.Messages))
	}
}

func TestLoadMessageFailureIsolated(t *testing.T) {
	api := &fakeAPI{
		calls:      []v1.CallRecord{{ID: "CA1"}},
		messageErr: &backend.NetworkError{Op: "list messages", Err: errors.New("timeout")},
	}
	a := NewAggregator(messaging.NewGateway(api), testCreds(), 20)

	res := a.Load(context.Background())
	if res.Complete() {
		t.Fatal("Complete() = true with a failed sub-fetch")
	}
	if res.CallsErr != nil || len(res.Calls) != 1 {
		t.Errorf("calls = %v err %v, want the healthy source intact", res.Calls, res.CallsErr)
	}
	if res.MessagesErr == nil {
		t.Error("MessagesErr = nil, want the fetch failure reported")
	}
}

func TestLoadOrderIndependent(t *testing.T) {
	// The slower fetch must not clobber the faster one's results.
	api := &fakeAPI{
		calls:     []v1.CallRecord{{ID: "CA1"}},
		callDelay: 30 * time.Millisecond,
		messages:  []v1.MessageRecord{{ID: "SM1"}},
	}
	a := NewAggregator(messaging.NewGateway(api), testCreds(), 20)

	res := a.Load(context.Background())
	if !res.Complete() || len(res.Calls) != 1 || len(res.Messages) != 1 {
		t.Fatalf("result = %+v", res)
	}
}
