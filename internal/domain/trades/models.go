package trades

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

type State int32

const (
	StateProposed State = iota
	StateAwaitingResponse
	StateAccepted
	StateDeclined
	StateExpired
	StateSwapFailed
)

func (s State) String() string {
	switch s {
	case StateProposed:
		return "proposed"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateAccepted:
		return "accepted"
	case StateDeclined:
		return "declined"
	case StateExpired:
		return "expired"
	case StateSwapFailed:
		return "swap_failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

func (s State) Terminal() bool {
	return s >= StateAccepted
}

var (
	ErrSelfTrade      = errors.New("cannot trade with yourself")
	ErrNotOwned       = errors.New("card not owned")
	ErrPendingTrade   = errors.New("a trade between these accounts is already pending")
	ErrUnknownTrade   = errors.New("unknown or resolved trade")
	ErrNotCounterpart = errors.New("only the counterpart can respond")
	ErrTimeout        = errors.New("trade expired")
)

type NotOwnedError struct {
	Account string
	CardID  string
}

func (e *NotOwnedError) Error() string {
	return fmt.Sprintf("account %s does not own %s", e.Account, e.CardID)
}

func (e *NotOwnedError) Is(target error) bool {
	return target == ErrNotOwned
}

// Offer is one card from each side.
type Offer struct {
	Initiator       string
	InitiatorCard   string
	Counterpart     string
	CounterpartCard string
}

// Outcome is the terminal result of a session. Err is set for expired and
// failed swaps.
type Outcome struct {
	Handle     string
	Offer      Offer
	State      State
	Err        error
	ProposedAt time.Time
	ResolvedAt time.Time
}

// Recorder persists resolved outcomes. Failures are logged and never change
// the outcome.
type Recorder interface {
	Record(ctx context.Context, out Outcome) error
}

type response struct {
	ctx    context.Context
	accept bool
}

// Session is a pending two-party trade. It resolves exactly once.
type Session struct {
	Handle    string
	Offer     Offer
	CreatedAt time.Time
	ExpiresAt time.Time

	state     atomic.Int32
	responses chan response
	done      chan struct{}
	outcome   Outcome
}

func newSession(handle string, offer Offer, now time.Time, timeout time.Duration) *Session {
	s := &Session{
		Handle:    handle,
		Offer:     offer,
		CreatedAt: now,
		ExpiresAt: now.Add(timeout),
		responses: make(chan response, 1),
		done:      make(chan struct{}),
	}
	s.state.Store(int32(StateProposed))
	return s
}

func (s *Session) State() State {
	return State(s.state.Load())
}

// Done is closed once the session has resolved.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session resolves or ctx is done.
func (s *Session) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-s.done:
		return s.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (s *Session) involves(account string) bool {
	return s.Offer.Initiator == account || s.Offer.Counterpart == account
}
