package trades_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	catalogmock "github.com/disgoorg/packbot/internal/domain/catalog/mock"
	"github.com/disgoorg/packbot/internal/domain/ledger"
	"github.com/disgoorg/packbot/internal/domain/ledger/mock"
	"github.com/disgoorg/packbot/internal/domain/trades"
)

var (
	cardX = catalogmock.CardID(catalogmock.BaseSet, 1)
	cardY = catalogmock.CardID(catalogmock.BaseSet, 12)
	cardZ = catalogmock.CardID(catalogmock.NoRareSet, 2)
)

func setup(t *testing.T, timeout time.Duration) (*trades.Coordinator, *ledger.Ledger) {
	t.Helper()
	c := catalogmock.Catalog()
	l := ledger.New(ledger.NewMemoryRepository(), c)
	ctx := context.Background()
	if _, err := l.GrantCards(ctx, "A", ledger.Deltas{cardX: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.GrantCards(ctx, "B", ledger.Deltas{cardY: 1}); err != nil {
		t.Fatal(err)
	}
	return trades.NewCoordinator(l, c, timeout), l
}

func collections(t *testing.T, l *ledger.Ledger) (ledger.Collection, ledger.Collection) {
	t.Helper()
	a, err := l.GetCollection(context.Background(), "A")
	if err != nil {
		t.Fatal(err)
	}
	b, err := l.GetCollection(context.Background(), "B")
	if err != nil {
		t.Fatal(err)
	}
	return a, b
}

var offer = trades.Offer{Initiator: "A", InitiatorCard: cardX, Counterpart: "B", CounterpartCard: cardY}

func TestCoordinator_Accept(t *testing.T) {
	co, l := setup(t, time.Minute)
	ctx := context.Background()

	s, err := co.Propose(ctx, offer)
	if err != nil {
		t.Fatalf("Propose() error = %v", err)
	}
	if s.State() != trades.StateAwaitingResponse {
		t.Errorf("State() = %v, want awaiting_response", s.State())
	}

	out, err := co.Respond(ctx, s.Handle, "B", true)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if out.State != trades.StateAccepted || out.Err != nil {
		t.Fatalf("Respond() = %+v, want accepted", out)
	}

	a, b := collections(t, l)
	if !reflect.DeepEqual(a, ledger.Collection{cardY: 1}) || !reflect.DeepEqual(b, ledger.Collection{cardX: 1}) {
		t.Errorf("after accept A=%v B=%v", a, b)
	}

	// a second answer observes the same outcome and swaps nothing
	again, err := co.Respond(ctx, s.Handle, "B", true)
	if err != nil || again.State != trades.StateAccepted {
		t.Errorf("repeated Respond() = %+v, %v", again, err)
	}
	a2, b2 := collections(t, l)
	if !reflect.DeepEqual(a, a2) || !reflect.DeepEqual(b, b2) {
		t.Error("repeated Respond() mutated the ledger")
	}
}

func TestCoordinator_Decline(t *testing.T) {
	co, l := setup(t, time.Minute)
	ctx := context.Background()

	s, err := co.Propose(ctx, offer)
	if err != nil {
		t.Fatal(err)
	}
	out, err := co.Respond(ctx, s.Handle, "B", false)
	if err != nil || out.State != trades.StateDeclined {
		t.Fatalf("Respond(decline) = %+v, %v", out, err)
	}

	a, b := collections(t, l)
	if !reflect.DeepEqual(a, ledger.Collection{cardX: 1}) || !reflect.DeepEqual(b, ledger.Collection{cardY: 1}) {
		t.Errorf("decline mutated ledger: A=%v B=%v", a, b)
	}
	if pending := co.Pending("A"); len(pending) != 0 {
		t.Errorf("Pending(A) = %d sessions after decline", len(pending))
	}
}

func TestCoordinator_Expire(t *testing.T) {
	co, l := setup(t, 50*time.Millisecond)
	ctx := context.Background()

	s, err := co.Propose(ctx, offer)
	if err != nil {
		t.Fatal(err)
	}
	out, err := s.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if out.State != trades.StateExpired || !errors.Is(out.Err, trades.ErrTimeout) {
		t.Fatalf("Wait() = %+v, want expired", out)
	}

	// a late accept does not revive the trade
	late, err := co.Respond(ctx, s.Handle, "B", true)
	if err != nil || late.State != trades.StateExpired {
		t.Errorf("late Respond() = %+v, %v, want expired", late, err)
	}

	a, b := collections(t, l)
	if !reflect.DeepEqual(a, ledger.Collection{cardX: 1}) || !reflect.DeepEqual(b, ledger.Collection{cardY: 1}) {
		t.Errorf("expiry mutated ledger: A=%v B=%v", a, b)
	}

	// the pair is free again
	if _, err := co.Propose(ctx, offer); err != nil {
		t.Errorf("Propose() after expiry error = %v", err)
	}
}

func TestCoordinator_NotCounterpart(t *testing.T) {
	co, l := setup(t, time.Minute)
	ctx := context.Background()

	s, err := co.Propose(ctx, offer)
	if err != nil {
		t.Fatal(err)
	}

	for _, account := range []string{"A", "C"} {
		if _, err := co.Respond(ctx, s.Handle, account, true); !errors.Is(err, trades.ErrNotCounterpart) {
			t.Errorf("Respond(%s) error = %v, want ErrNotCounterpart", account, err)
		}
	}
	if s.State() != trades.StateAwaitingResponse {
		t.Errorf("State() = %v after ignored answers", s.State())
	}

	out, err := co.Respond(ctx, s.Handle, "B", true)
	if err != nil || out.State != trades.StateAccepted {
		t.Fatalf("Respond(B) = %+v, %v", out, err)
	}
	a, _ := collections(t, l)
	if a.Count(cardY) != 1 {
		t.Errorf("A = %v, want swap applied", a)
	}
}

func TestCoordinator_ProposeValidation(t *testing.T) {
	co, l := setup(t, time.Minute)
	ctx := context.Background()
	l.GrantCards(ctx, "C", ledger.Deltas{cardZ: 1})

	tests := []struct {
		name    string
		offer   trades.Offer
		wantErr error
	}{
		{
			name:    "self trade",
			offer:   trades.Offer{Initiator: "A", InitiatorCard: cardX, Counterpart: "A", CounterpartCard: cardX},
			wantErr: trades.ErrSelfTrade,
		},
		{
			name:    "unknown card",
			offer:   trades.Offer{Initiator: "A", InitiatorCard: "nope-1", Counterpart: "B", CounterpartCard: cardY},
			wantErr: ledger.ErrUnknownCard,
		},
		{
			name:    "initiator does not own",
			offer:   trades.Offer{Initiator: "A", InitiatorCard: cardY, Counterpart: "B", CounterpartCard: cardY},
			wantErr: trades.ErrNotOwned,
		},
		{
			name:    "counterpart does not own",
			offer:   trades.Offer{Initiator: "A", InitiatorCard: cardX, Counterpart: "C", CounterpartCard: cardY},
			wantErr: trades.ErrNotOwned,
		},
		{
			name:    "empty account",
			offer:   trades.Offer{Initiator: "A", InitiatorCard: cardX, CounterpartCard: cardY},
			wantErr: ledger.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := co.Propose(ctx, tt.offer); !errors.Is(err, tt.wantErr) {
				t.Errorf("Propose() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	var notOwned *trades.NotOwnedError
	_, err := co.Propose(ctx, trades.Offer{Initiator: "A", InitiatorCard: cardX, Counterpart: "C", CounterpartCard: cardY})
	if !errors.As(err, &notOwned) || notOwned.Account != "C" {
		t.Errorf("NotOwnedError = %+v, want account C", notOwned)
	}
}

func TestCoordinator_OnePendingPerPair(t *testing.T) {
	co, _ := setup(t, time.Minute)
	ctx := context.Background()

	s, err := co.Propose(ctx, offer)
	if err != nil {
		t.Fatal(err)
	}
	reverse := trades.Offer{Initiator: "B", InitiatorCard: cardY, Counterpart: "A", CounterpartCard: cardX}
	if _, err := co.Propose(ctx, reverse); !errors.Is(err, trades.ErrPendingTrade) {
		t.Errorf("second Propose() error = %v, want ErrPendingTrade", err)
	}
	if pending := co.Pending("B"); len(pending) != 1 || pending[0].Handle != s.Handle {
		t.Errorf("Pending(B) = %v", pending)
	}
}

func TestCoordinator_HoldingChangedBeforeAccept(t *testing.T) {
	co, l := setup(t, time.Minute)
	ctx := context.Background()

	s, err := co.Propose(ctx, offer)
	if err != nil {
		t.Fatal(err)
	}
	// A gives cardX away while the offer is pending
	if _, err := l.DeductCards(ctx, "A", ledger.Deltas{cardX: 1}); err != nil {
		t.Fatal(err)
	}

	out, err := co.Respond(ctx, s.Handle, "B", true)
	if err != nil {
		t.Fatal(err)
	}
	if out.State != trades.StateSwapFailed || !errors.Is(out.Err, ledger.ErrInsufficientHolding) {
		t.Fatalf("Respond() = %+v, want swap_failed with insufficient holding", out)
	}
	a, b := collections(t, l)
	if len(a) != 0 || !reflect.DeepEqual(b, ledger.Collection{cardY: 1}) {
		t.Errorf("failed swap mutated ledger: A=%v B=%v", a, b)
	}
}

func TestCoordinator_StorageFailureMidSwap(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock.NewMockRepository(ctrl)
	ctx := context.Background()

	repo.EXPECT().Get(gomock.Any(), "A").Return(ledger.Collection{cardX: 1}, nil)
	repo.EXPECT().Get(gomock.Any(), "B").Return(ledger.Collection{cardY: 1}, nil)
	repo.EXPECT().
		Update(gomock.Any(), []string{"A", "B"}, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ []string, fn func(map[string]ledger.Collection) error) error {
			if err := fn(map[string]ledger.Collection{"A": {cardX: 1}, "B": {cardY: 1}}); err != nil {
				return err
			}
			return errors.New("write tcp: broken pipe")
		})

	co := trades.NewCoordinator(ledger.New(repo, catalogmock.Catalog()), catalogmock.Catalog(), time.Minute)
	s, err := co.Propose(ctx, offer)
	if err != nil {
		t.Fatal(err)
	}
	out, err := co.Respond(ctx, s.Handle, "B", true)
	if err != nil {
		t.Fatal(err)
	}
	if out.State != trades.StateSwapFailed || !errors.Is(out.Err, ledger.ErrStorageUnavailable) {
		t.Errorf("Respond() = %+v, want swap_failed with storage unavailable", out)
	}
}

func TestCoordinator_ConcurrentResponses(t *testing.T) {
	co, l := setup(t, time.Minute)
	ctx := context.Background()

	s, err := co.Propose(ctx, offer)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	outcomes := make([]trades.Outcome, 20)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], _ = co.Respond(ctx, s.Handle, "B", i%2 == 0)
		}(i)
	}
	wg.Wait()

	for _, out := range outcomes[1:] {
		if out.State != outcomes[0].State {
			t.Fatalf("responders saw different outcomes: %v and %v", outcomes[0].State, out.State)
		}
	}

	a, b := collections(t, l)
	switch outcomes[0].State {
	case trades.StateAccepted:
		if a.Count(cardY) != 1 || b.Count(cardX) != 1 {
			t.Errorf("accepted but A=%v B=%v", a, b)
		}
	case trades.StateDeclined:
		if a.Count(cardX) != 1 || b.Count(cardY) != 1 {
			t.Errorf("declined but A=%v B=%v", a, b)
		}
	default:
		t.Errorf("unexpected outcome %v", outcomes[0].State)
	}
}

func TestCoordinator_UnknownHandle(t *testing.T) {
	co, _ := setup(t, time.Minute)
	if _, err := co.Respond(context.Background(), "missing", "B", true); !errors.Is(err, trades.ErrUnknownTrade) {
		t.Errorf("Respond() error = %v, want ErrUnknownTrade", err)
	}
}

type recorderFunc func(ctx context.Context, out trades.Outcome) error

func (f recorderFunc) Record(ctx context.Context, out trades.Outcome) error {
	return f(ctx, out)
}

func TestCoordinator_RecordsOutcome(t *testing.T) {
	tests := []struct {
		name      string
		accept    bool
		recordErr error
		want      trades.State
	}{
		{name: "accepted", accept: true, want: trades.StateAccepted},
		{name: "declined", accept: false, want: trades.StateDeclined},
		{name: "recorder failure keeps outcome", accept: true, recordErr: errors.New("db down"), want: trades.StateAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			co, _ := setup(t, time.Minute)
			recorded := make(chan trades.Outcome, 1)
			co.WithRecorder(recorderFunc(func(_ context.Context, out trades.Outcome) error {
				recorded <- out
				return tt.recordErr
			}))

			ctx := context.Background()
			s, err := co.Propose(ctx, offer)
			if err != nil {
				t.Fatal(err)
			}
			out, err := co.Respond(ctx, s.Handle, "B", tt.accept)
			if err != nil || out.State != tt.want {
				t.Fatalf("Respond() = %+v, %v", out, err)
			}

			select {
			case got := <-recorded:
				if got.Handle != s.Handle || got.State != tt.want || got.Offer != offer {
					t.Errorf("recorded %+v", got)
				}
				if got.ProposedAt.IsZero() || got.ResolvedAt.Before(got.ProposedAt) {
					t.Errorf("recorded times proposed=%v resolved=%v", got.ProposedAt, got.ResolvedAt)
				}
			case <-time.After(time.Second):
				t.Fatal("outcome was not recorded")
			}
		})
	}
}
