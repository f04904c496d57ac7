package vesting

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind is the logical action a transaction performs.
type Kind int

const (
	KindCreateSchedule Kind = iota + 1
	KindClaimBalance
)

func (k Kind) String() string {
	switch k {
	case KindCreateSchedule:
		return "create-schedule"
	case KindClaimBalance:
		return "claim-balance"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind accepts the String form of a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "create-schedule":
		return KindCreateSchedule, nil
	case "claim-balance":
		return KindClaimBalance, nil
	}
	return 0, fmt.Errorf("unknown transaction kind %q", s)
}

// Phase is a lifecycle state. Transitions only move forward:
// Idle -> Submitting -> AwaitingConfirmation -> Confirmed | Failed.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseAwaitingConfirmation
	PhaseConfirmed
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseAwaitingConfirmation:
		return "awaiting-confirmation"
	case PhaseConfirmed:
		return "confirmed"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for candidate := PhaseIdle; candidate <= PhaseFailed; candidate++ {
		if candidate.String() == string(b) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Terminal phases accept a new submission, as does Idle.
func (p Phase) Terminal() bool { return p == PhaseConfirmed || p == PhaseFailed }

// Busy phases have a call in flight.
func (p Phase) Busy() bool { return p == PhaseSubmitting || p == PhaseAwaitingConfirmation }

// Handle is a snapshot of one submission. Err is a *SubmissionError or
// *ConfirmationError when Phase is PhaseFailed.
type Handle struct {
	ID          uuid.UUID
	Kind        Kind
	Phase       Phase
	Hash        common.Hash
	HasHash     bool
	Err         error
	SubmittedAt time.Time
	UpdatedAt   time.Time
}

// SendFunc issues the state-changing call and returns its transaction hash once
// the node accepts it.
type SendFunc func(ctx context.Context) (common.Hash, error)

// Confirmer waits for a sent transaction to be included.
type Confirmer interface {
	WaitConfirmed(ctx context.Context, hash common.Hash) error
}

type ManagerConfig struct {
	Now      func() time.Time
	Logger   *zap.Logger
	Observer Observer
	// OnTransition runs after every transition, in order, outside the manager lock.
	OnTransition func(Handle)
}

// Manager drives the transactions of one kind. At most one is in flight; a new
// Submit replaces the previous handle once it is terminal.
type Manager struct {
	kind         Kind
	confirmer    Confirmer
	now          func() time.Time
	logger       *zap.Logger
	observer     Observer
	onTransition func(Handle)

	mu     sync.Mutex
	handle Handle
	done   chan struct{}
}

func NewManager(kind Kind, confirmer Confirmer, cfg ManagerConfig) *Manager {
	m := &Manager{
		kind:         kind,
		confirmer:    confirmer,
		now:          cfg.Now,
		logger:       cfg.Logger,
		observer:     cfg.Observer,
		onTransition: cfg.OnTransition,
		handle:       Handle{Kind: kind, Phase: PhaseIdle},
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	m.logger = m.logger.With(zap.Stringer("kind", kind))
	if m.observer == nil {
		m.observer = nopObserver{}
	}
	closed := make(chan struct{})
	close(closed)
	m.done = closed
	return m
}

func (m *Manager) Kind() Kind { return m.kind }

// Current returns the live handle.
func (m *Manager) Current() Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

// Done is closed once the current handle is terminal and its transition
// callbacks have returned.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// Wait blocks until the current handle is terminal or ctx is done.
func (m *Manager) Wait(ctx context.Context) (Handle, error) {
	select {
	case <-m.Done():
		return m.Current(), nil
	case <-ctx.Done():
		return m.Current(), ctx.Err()
	}
}

// Submit moves a new handle to Submitting and calls send. A rejected send ends
// in Failed; an accepted one moves to AwaitingConfirmation and the confirmation
// wait continues in the background, detached from ctx cancellation. Submit
// returns ErrInFlight until the previous handle is terminal and its transition
// callbacks have returned.
func (m *Manager) Submit(ctx context.Context, send SendFunc) (Handle, error) {
	now := m.now()
	m.mu.Lock()
	if m.handle.Phase.Busy() || !closed(m.done) {
		h := m.handle
		m.mu.Unlock()
		return h, ErrInFlight
	}
	h := Handle{
		ID:          uuid.New(),
		Kind:        m.kind,
		Phase:       PhaseSubmitting,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	m.handle = h
	done := make(chan struct{})
	m.done = done
	m.mu.Unlock()
	m.emit(h)

	hash, err := send(ctx)
	if err != nil {
		h = m.update(func(h *Handle) {
			h.Phase = PhaseFailed
			h.Err = &SubmissionError{Kind: m.kind, Err: err}
		})
		m.logger.Warn("submission rejected", zap.Stringer("handle", h.ID), zap.Error(err))
		m.emit(h)
		close(done)
		return h, h.Err
	}

	h = m.update(func(h *Handle) {
		h.Phase = PhaseAwaitingConfirmation
		h.Hash = hash
		h.HasHash = true
	})
	m.logger.Info("transaction submitted", zap.Stringer("handle", h.ID), zap.String("tx", hash.Hex()))
	m.emit(h)

	go m.await(context.WithoutCancel(ctx), hash, done)
	return h, nil
}

func (m *Manager) await(ctx context.Context, hash common.Hash, done chan struct{}) {
	defer close(done)

	err := m.confirmer.WaitConfirmed(ctx, hash)
	h := m.update(func(h *Handle) {
		if err != nil {
			h.Phase = PhaseFailed
			h.Err = &ConfirmationError{Kind: m.kind, Hash: hash, Err: err}
			return
		}
		h.Phase = PhaseConfirmed
	})
	if err != nil {
		m.logger.Warn("transaction failed", zap.Stringer("handle", h.ID), zap.String("tx", hash.Hex()), zap.Error(err))
	} else {
		m.logger.Info("transaction confirmed", zap.Stringer("handle", h.ID), zap.String("tx", hash.Hex()))
	}
	m.emit(h)
}

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func (m *Manager) update(fn func(*Handle)) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.handle)
	m.handle.UpdatedAt = m.now()
	return m.handle
}

func (m *Manager) emit(h Handle) {
	m.observer.TransactionTransitioned(h)
	if m.onTransition != nil {
		m.onTransition(h)
	}
}
