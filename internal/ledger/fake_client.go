package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// FakeClient is an in-memory vesting contract for tests and local runs without
// a node. Schedules vest linearly after the cliff and transactions are mined as
// soon as they are sent.
type FakeClient struct {
	mu        sync.Mutex
	owner     common.Address
	from      common.Address
	chainID   uint64
	schedules map[common.Address]*fakeSchedule
	receipts  map[common.Hash]error
	nonce     uint64

	// Now defaults to time.Now.
	Now func() time.Time
}

type fakeSchedule struct {
	total    *uint256.Int
	claimed  *uint256.Int
	start    time.Time
	duration uint64
	cliff    uint64
}

// NewFakeClient returns a fake whose owner is also the sending account.
func NewFakeClient(owner common.Address, chainID uint64) *FakeClient {
	return &FakeClient{
		owner:     owner,
		from:      owner,
		chainID:   chainID,
		schedules: make(map[common.Address]*fakeSchedule),
		receipts:  make(map[common.Hash]error),
	}
}

// SetFrom switches the sending account.
func (f *FakeClient) SetFrom(from common.Address) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.from = from
}

func (f *FakeClient) From() (common.Address, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.from, true
}

func (f *FakeClient) ChainID(context.Context) (uint64, error) {
	return f.chainID, nil
}

func (f *FakeClient) Owner(context.Context) (common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owner, nil
}

func (f *FakeClient) CheckVestedAmount(_ context.Context, subject common.Address) (*uint256.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[subject]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoSchedule, subject.Hex())
	}
	return f.vested(s), nil
}

func (f *FakeClient) CreateVestingSchedule(_ context.Context, req CreateScheduleRequest) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.from != f.owner {
		return common.Hash{}, errors.New("execution reverted: caller is not the owner")
	}
	if req.AmountWei == nil || req.AmountWei.IsZero() {
		return common.Hash{}, errors.New("execution reverted: amount must be positive")
	}
	if req.DurationSeconds == 0 {
		return common.Hash{}, errors.New("execution reverted: duration must be positive")
	}
	if _, exists := f.schedules[req.Recipient]; exists {
		return common.Hash{}, errors.New("execution reverted: schedule already exists")
	}
	f.schedules[req.Recipient] = &fakeSchedule{
		total:    new(uint256.Int).Set(req.AmountWei),
		claimed:  new(uint256.Int),
		start:    f.now(),
		duration: req.DurationSeconds,
		cliff:    req.CliffSeconds,
	}
	return f.mine(nil), nil
}

func (f *FakeClient) ClaimBalance(_ context.Context, subject common.Address) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[subject]
	if !ok {
		return common.Hash{}, errors.New("execution reverted: no vesting schedule found for this user")
	}
	claimable := new(uint256.Int).Sub(f.vested(s), s.claimed)
	if claimable.IsZero() {
		return common.Hash{}, errors.New("execution reverted: nothing to claim")
	}
	s.claimed.Add(s.claimed, claimable)
	return f.mine(nil), nil
}

func (f *FakeClient) WaitConfirmed(ctx context.Context, hash common.Hash) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.receipts[hash]
	if !ok {
		return fmt.Errorf("fetch receipt: unknown transaction %s", hash.Hex())
	}
	return status
}

func (f *FakeClient) Ping(context.Context) error {
	return nil
}

// vested is total * elapsed / duration, zero before the cliff and capped at total.
func (f *FakeClient) vested(s *fakeSchedule) *uint256.Int {
	elapsed := f.now().Sub(s.start)
	if elapsed < 0 {
		return new(uint256.Int)
	}
	secs := uint64(elapsed / time.Second)
	if secs < s.cliff {
		return new(uint256.Int)
	}
	if secs >= s.duration {
		return new(uint256.Int).Set(s.total)
	}
	out := new(uint256.Int).Mul(s.total, uint256.NewInt(secs))
	return out.Div(out, uint256.NewInt(s.duration))
}

func (f *FakeClient) mine(status error) common.Hash {
	f.nonce++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], f.nonce)
	hash := crypto.Keccak256Hash(f.from.Bytes(), buf[:])
	f.receipts[hash] = status
	return hash
}

func (f *FakeClient) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}
