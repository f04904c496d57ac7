package ledger

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// ErrNoSchedule is returned by CheckVestedAmount when the contract reverts the
	// lookup, which it does for subjects without a vesting schedule.
	ErrNoSchedule = errors.New("no vesting schedule")
	// ErrReverted reports a transaction that was mined with a failed status.
	ErrReverted = errors.New("transaction reverted")
	// ErrReadOnly is returned by state-changing calls on a client without a signer.
	ErrReadOnly = errors.New("client is read-only")
)

// Reader covers the read-only functions of the vesting contract.
type Reader interface {
	Owner(ctx context.Context) (common.Address, error)
	CheckVestedAmount(ctx context.Context, subject common.Address) (*uint256.Int, error)
}

// Writer covers the state-changing functions of the vesting contract and the
// wait for their inclusion.
type Writer interface {
	CreateVestingSchedule(ctx context.Context, req CreateScheduleRequest) (common.Hash, error)
	ClaimBalance(ctx context.Context, subject common.Address) (common.Hash, error)
	WaitConfirmed(ctx context.Context, hash common.Hash) error
}

// Client abstracts the on-chain vesting contract.
type Client interface {
	Reader
	Writer
}

// Signer is implemented by clients that transact from a fixed account.
type Signer interface {
	From() (common.Address, bool)
	ChainID(ctx context.Context) (uint64, error)
}

// CreateScheduleRequest carries the arguments of createVestingSchedule. AmountWei
// is sent as the transaction value.
type CreateScheduleRequest struct {
	Recipient       common.Address
	AmountWei       *uint256.Int
	DurationSeconds uint64
	CliffSeconds    uint64
}

// HealthChecker is implemented by clients that can probe their node.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
