package vesting

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"vestingdapp/internal/ledger"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

type Config struct {
	RequiredChainID uint64
	OwnerInterval   time.Duration
	OwnerFresh      time.Duration
	Now             func() time.Time
	Logger          *zap.Logger
	Observer        Observer
	// OnScheduleCreated runs when a create-schedule transaction confirms, so the
	// presentation layer can clear its form.
	OnScheduleCreated func()
}

// Session wires the validator, network guard, read-model synchronizer and the
// two lifecycle managers against one ledger, and feeds a status reporter.
type Session struct {
	client   ledger.Client
	guard    NetworkGuard
	sync     *Synchronizer
	create   *Manager
	claim    *Manager
	reporter *StatusReporter
	logger   *zap.Logger

	onScheduleCreated func()

	// base outlives individual calls; owner polling and post-claim lookups run on it.
	base   context.Context
	cancel context.CancelFunc

	// accountMu serializes SetAccount so polling follows the last update applied.
	accountMu sync.Mutex

	mu           sync.Mutex
	account      AccountContext
	network      NetworkStatus
	lookupTarget string
}

func NewSession(client ledger.Client, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	s := &Session{
		client:            client,
		guard:             NewNetworkGuard(cfg.RequiredChainID),
		reporter:          NewStatusReporter(cfg.Now),
		logger:            logger,
		onScheduleCreated: cfg.OnScheduleCreated,
	}
	s.network = s.guard.Evaluate(0)
	s.base, s.cancel = context.WithCancel(context.Background())

	s.sync = NewSynchronizer(client, SyncConfig{
		OwnerInterval: cfg.OwnerInterval,
		OwnerFresh:    cfg.OwnerFresh,
		Now:           cfg.Now,
		Logger:        logger.Named("readmodel"),
		Observer:      observer,
		Reporter:      s.reporter,
	})

	mcfg := ManagerConfig{
		Now:          cfg.Now,
		Logger:       logger.Named("tx"),
		Observer:     observer,
		OnTransition: s.onTransition,
	}
	s.create = NewManager(KindCreateSchedule, client, mcfg)
	s.claim = NewManager(KindClaimBalance, client, mcfg)
	s.reporter.Track(s.create)
	s.reporter.Track(s.claim)
	return s
}

// Close stops owner polling. In-flight confirmation waits are not cancelled.
func (s *Session) Close() {
	s.sync.Deactivate()
	s.cancel()
}

// SetAccount applies a wallet update. The network guard is re-evaluated only
// when the chain id changes; owner polling follows the connection state.
func (s *Session) SetAccount(acct AccountContext) {
	s.accountMu.Lock()
	defer s.accountMu.Unlock()

	s.mu.Lock()
	prev := s.account
	s.account = acct
	chainChanged := acct.ChainID != prev.ChainID
	if chainChanged {
		s.network = s.guard.Evaluate(acct.ChainID)
	}
	network := s.network
	s.mu.Unlock()

	if chainChanged && acct.ChainID != 0 {
		if err := network.Err(); err != nil {
			s.logger.Warn("wallet on wrong network",
				zap.Uint64("chain_id", acct.ChainID),
				zap.Uint64("required", s.guard.Required()))
			s.reporter.Error(err)
		} else if prev.ChainID != 0 {
			s.reporter.Info("")
		}
	}

	switch {
	case acct.Connected() && !prev.Connected():
		s.logger.Info("account connected", zap.String("address", acct.Address.Hex()))
		s.sync.Activate(s.base)
	case !acct.Connected() && prev.Connected():
		s.logger.Info("account disconnected")
		s.sync.Deactivate()
	}
}

func (s *Session) Account() AccountContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account
}

func (s *Session) Network() NetworkStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.network
}

// CreateSchedule checks, in order, connection, network, ownership and the form,
// then submits createVestingSchedule with the amount as value. Ownership is only
// checked when the owner is known.
func (s *Session) CreateSchedule(ctx context.Context, form ScheduleForm) (Handle, error) {
	acct, network := s.snapshot()
	if !acct.Connected() {
		return s.reject(ErrNotConnected)
	}
	if err := network.Err(); err != nil {
		return s.reject(err)
	}
	if owner := s.sync.Owner(); owner.Known && owner.Owner != acct.Address {
		return s.reject(ErrNotOwner)
	}
	req, err := ValidateScheduleForm(form)
	if err != nil {
		return s.reject(err)
	}

	s.reporter.Info("Creating vesting schedule...")
	h, err := s.create.Submit(ctx, func(ctx context.Context) (common.Hash, error) {
		return s.client.CreateVestingSchedule(ctx, ledger.CreateScheduleRequest{
			Recipient:       req.Recipient,
			AmountWei:       req.AmountWei,
			DurationSeconds: req.DurationSeconds,
			CliffSeconds:    req.CliffSeconds,
		})
	})
	if errors.Is(err, ErrInFlight) {
		return s.reject(err)
	}
	return h, err
}

// ClaimBalance submits claimBalance for the connected account.
func (s *Session) ClaimBalance(ctx context.Context) (Handle, error) {
	acct, network := s.snapshot()
	if !acct.Connected() {
		return s.reject(ErrNotConnected)
	}
	if err := network.Err(); err != nil {
		return s.reject(err)
	}

	s.reporter.Info("Attempting to claim balance...")
	h, err := s.claim.Submit(ctx, func(ctx context.Context) (common.Hash, error) {
		return s.client.ClaimBalance(ctx, acct.Address)
	})
	if errors.Is(err, ErrInFlight) {
		return s.reject(err)
	}
	return h, err
}

// CheckVested sets the lookup target and queries it. Invalid addresses and a
// disconnected wallet are rejected without a call.
func (s *Session) CheckVested(ctx context.Context, address string) (VestedQuery, error) {
	address = strings.TrimSpace(address)
	acct, _ := s.snapshot()
	if !acct.Connected() {
		s.reporter.post("Please connect your wallet to check.", SeverityError)
		return VestedQuery{}, ErrNotConnected
	}
	if !ValidateAddress(address) {
		err := &ValidationError{Code: InvalidAddress, Field: "address", Input: address}
		s.reporter.post("Please enter a valid address to check.", SeverityError)
		return VestedQuery{}, err
	}

	s.mu.Lock()
	s.lookupTarget = address
	s.mu.Unlock()

	s.reporter.Info("Checking vested amount...")
	return s.sync.CheckVested(ctx, common.HexToAddress(address))
}

// LookupTarget is the address text of the most recent lookup.
func (s *Session) LookupTarget() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupTarget
}

func (s *Session) RefreshOwner(ctx context.Context) (OwnerRecord, error) {
	return s.sync.RefreshOwner(ctx)
}

func (s *Session) Owner() OwnerRecord { return s.sync.Owner() }

func (s *Session) Vested() (VestedQuery, bool) { return s.sync.Vested() }

func (s *Session) Status() Status { return s.reporter.Status() }

// Transaction returns the live handle for kind.
func (s *Session) Transaction(kind Kind) Handle {
	return s.manager(kind).Current()
}

// Wait blocks until the handle for kind is terminal.
func (s *Session) Wait(ctx context.Context, kind Kind) (Handle, error) {
	return s.manager(kind).Wait(ctx)
}

func (s *Session) manager(kind Kind) *Manager {
	if kind == KindClaimBalance {
		return s.claim
	}
	return s.create
}

func (s *Session) snapshot() (AccountContext, NetworkStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.account, s.network
}

func (s *Session) reject(err error) (Handle, error) {
	s.reporter.Error(err)
	return Handle{}, err
}

func (s *Session) onTransition(h Handle) {
	switch h.Phase {
	case PhaseFailed:
		s.reporter.Error(h.Err)
	case PhaseConfirmed:
		if h.Kind == KindCreateSchedule {
			s.reporter.Info("Vesting schedule created successfully!")
			if s.onScheduleCreated != nil {
				s.onScheduleCreated()
			}
			return
		}
		s.reporter.Info("Balance claimed successfully!")
		acct, _ := s.snapshot()
		if !acct.Connected() {
			return
		}
		s.mu.Lock()
		s.lookupTarget = acct.Address.Hex()
		s.mu.Unlock()
		_, _ = s.sync.CheckVested(s.base, acct.Address)
	}
}
