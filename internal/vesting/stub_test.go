package vesting

import (
	"context"
	"strings"
	"sync"
	"time"

	"vestingdapp/internal/ledger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

type stubLedger struct {
	mu sync.Mutex

	owner      common.Address
	ownerErr   error
	ownerCalls int

	vested      map[common.Address]*uint256.Int
	vestedErr   error
	vestedCalls []common.Address

	createReqs []ledger.CreateScheduleRequest
	createErr  error
	claims     []common.Address
	claimErr   error

	// confirm, when set, makes WaitConfirmed block for one value per call.
	confirm    chan error
	confirmErr error
}

func newStubLedger(owner common.Address) *stubLedger {
	return &stubLedger{owner: owner, vested: make(map[common.Address]*uint256.Int)}
}

func (s *stubLedger) Owner(context.Context) (common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ownerCalls++
	return s.owner, s.ownerErr
}

func (s *stubLedger) CheckVestedAmount(_ context.Context, subject common.Address) (*uint256.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vestedCalls = append(s.vestedCalls, subject)
	if s.vestedErr != nil {
		return nil, s.vestedErr
	}
	amount, ok := s.vested[subject]
	if !ok {
		return nil, ledger.ErrNoSchedule
	}
	return amount, nil
}

func (s *stubLedger) CreateVestingSchedule(_ context.Context, req ledger.CreateScheduleRequest) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createReqs = append(s.createReqs, req)
	if s.createErr != nil {
		return common.Hash{}, s.createErr
	}
	return crypto.Keccak256Hash([]byte("create"), req.Recipient.Bytes()), nil
}

func (s *stubLedger) ClaimBalance(_ context.Context, subject common.Address) (common.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims = append(s.claims, subject)
	if s.claimErr != nil {
		return common.Hash{}, s.claimErr
	}
	return crypto.Keccak256Hash([]byte("claim"), subject.Bytes()), nil
}

func (s *stubLedger) WaitConfirmed(ctx context.Context, _ common.Hash) error {
	s.mu.Lock()
	ch, err := s.confirm, s.confirmErr
	s.mu.Unlock()
	if ch == nil {
		return err
	}
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *stubLedger) setOwner(owner common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = owner
}

func (s *stubLedger) calls() (owner, vested, create, claim int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownerCalls, len(s.vestedCalls), len(s.createReqs), len(s.claims)
}

type recordingObserver struct {
	mu          sync.Mutex
	transitions []Handle
}

func (o *recordingObserver) TransactionTransitioned(h Handle) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, h)
}

func (o *recordingObserver) OwnerFetched(error)  {}
func (o *recordingObserver) VestedChecked(error) {}

func (o *recordingObserver) phases(kind Kind) []Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []Phase
	for _, h := range o.transitions {
		if h.Kind == kind {
			out = append(out, h.Phase)
		}
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func lowerHex(s string) string { return strings.ToLower(s) }
