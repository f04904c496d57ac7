package vesting

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"vestingdapp/internal/ledger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	ownerA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	ownerB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func TestRefreshOwnerKeepsDisplayWithinFreshWindow(t *testing.T) {
	clock := newFakeClock()
	stub := newStubLedger(ownerA)
	s := NewSynchronizer(stub, SyncConfig{OwnerFresh: 5 * time.Second, OwnerInterval: 10 * time.Second, Now: clock.Now})
	ctx := context.Background()

	rec, err := s.RefreshOwner(ctx)
	require.NoError(t, err)
	require.True(t, rec.Known)
	require.Equal(t, ownerA, rec.Owner)

	stub.setOwner(ownerB)
	clock.Advance(3 * time.Second)
	rec, err = s.RefreshOwner(ctx)
	require.NoError(t, err)
	require.Equal(t, ownerA, rec.Owner, "display is not refreshed inside the window")

	clock.Advance(3 * time.Second)
	rec, err = s.RefreshOwner(ctx)
	require.NoError(t, err)
	require.Equal(t, ownerB, rec.Owner)

	ownerCalls, _, _, _ := stub.calls()
	require.Equal(t, 3, ownerCalls, "every refresh goes to the ledger")
}

func TestRefreshOwnerFailureMakesOwnerUnknown(t *testing.T) {
	stub := newStubLedger(ownerA)
	reporter := NewStatusReporter(nil)
	s := NewSynchronizer(stub, SyncConfig{Reporter: reporter})
	ctx := context.Background()

	_, err := s.RefreshOwner(ctx)
	require.NoError(t, err)

	stub.mu.Lock()
	stub.ownerErr = errors.New("dial tcp: connection refused")
	stub.mu.Unlock()

	rec, err := s.RefreshOwner(ctx)
	var ferr *OwnerFetchError
	require.ErrorAs(t, err, &ferr)
	require.False(t, rec.Known)
	require.False(t, s.Owner().Known)
	require.Equal(t, SeverityError, reporter.Status().Severity)
	require.Contains(t, reporter.Status().Message, "Failed to fetch contract owner")
}

func TestOwnerPollingRunsWhileActive(t *testing.T) {
	stub := newStubLedger(ownerA)
	s := NewSynchronizer(stub, SyncConfig{OwnerInterval: 5 * time.Millisecond})

	s.Activate(context.Background())
	require.True(t, s.Active())
	require.Eventually(t, func() bool {
		n, _, _, _ := stub.calls()
		return n >= 3
	}, 2*time.Second, time.Millisecond)

	s.Deactivate()
	require.False(t, s.Active())
	stopped, _, _, _ := stub.calls()
	time.Sleep(20 * time.Millisecond)
	after, _, _, _ := stub.calls()
	require.Equal(t, stopped, after)
	require.True(t, s.Owner().Known, "owner is kept after deactivation")
}

func TestOwnerPollingSurvivesFailures(t *testing.T) {
	stub := newStubLedger(ownerA)
	stub.ownerErr = errors.New("timeout")
	s := NewSynchronizer(stub, SyncConfig{OwnerInterval: 5 * time.Millisecond})

	s.Activate(context.Background())
	defer s.Deactivate()
	require.Eventually(t, func() bool {
		n, _, _, _ := stub.calls()
		return n >= 3
	}, 2*time.Second, time.Millisecond)
}

func TestCheckVestedStoresAmount(t *testing.T) {
	clock := newFakeClock()
	stub := newStubLedger(ownerA)
	stub.vested[ownerB] = uint256.NewInt(250000000000000000)
	reporter := NewStatusReporter(nil)
	s := NewSynchronizer(stub, SyncConfig{Now: clock.Now, Reporter: reporter})

	_, ok := s.Vested()
	require.False(t, ok)

	q, err := s.CheckVested(context.Background(), ownerB)
	require.NoError(t, err)
	require.Equal(t, "0.25", FormatEther(q.Amount))
	require.Equal(t, clock.Now(), q.CheckedAt)
	require.Equal(t, "Vested amount: 0.25 ETH", reporter.Status().Message)

	cached, ok := s.Vested()
	require.True(t, ok)
	require.Equal(t, ownerB, cached.Subject)
	require.NoError(t, cached.Err)
}

func TestCheckVestedFailureCollapsesToNoSchedule(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		noSchedule bool
	}{
		{"revert", fmt.Errorf("%w: execution reverted", ledger.ErrNoSchedule), true},
		{"transport", errors.New("503 service unavailable"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := newStubLedger(ownerA)
			stub.vested[ownerB] = uint256.NewInt(1)
			reporter := NewStatusReporter(nil)
			s := NewSynchronizer(stub, SyncConfig{Reporter: reporter})
			ctx := context.Background()

			_, err := s.CheckVested(ctx, ownerB)
			require.NoError(t, err)

			stub.mu.Lock()
			stub.vestedErr = tc.err
			stub.mu.Unlock()

			q, err := s.CheckVested(ctx, ownerB)
			var lerr *LookupError
			require.ErrorAs(t, err, &lerr)
			require.Equal(t, tc.noSchedule, lerr.NoSchedule())
			require.Nil(t, q.Amount)
			require.True(t, q.Checked())

			cached, _ := s.Vested()
			require.Nil(t, cached.Amount)
			require.Equal(t, "No vesting schedule found for this address.", reporter.Status().Message)
			require.Equal(t, SeverityError, reporter.Status().Severity)
		})
	}
}

func TestCheckVestedNewTargetReplacesQuery(t *testing.T) {
	stub := newStubLedger(ownerA)
	stub.vested[ownerA] = uint256.NewInt(5)
	s := NewSynchronizer(stub, SyncConfig{})
	ctx := context.Background()

	_, err := s.CheckVested(ctx, ownerA)
	require.NoError(t, err)

	_, err = s.CheckVested(ctx, ownerB)
	require.Error(t, err)

	q, ok := s.Vested()
	require.True(t, ok)
	require.Equal(t, ownerB, q.Subject)
	require.Nil(t, q.Amount)
}
