package vesting

import (
	"context"
	"sync"
	"time"

	"vestingdapp/internal/ledger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

const (
	DefaultOwnerInterval = 10 * time.Second
	DefaultOwnerFresh    = 5 * time.Second
)

// OwnerRecord is the cached contract owner. Known is false until a fetch
// succeeds and again after a fetch fails.
type OwnerRecord struct {
	Owner     common.Address
	Known     bool
	FetchedAt time.Time
	Err       error
}

// VestedQuery is the cached lookup for one subject. Amount is nil when absent
// and CheckedAt is zero until the first lookup completes.
type VestedQuery struct {
	Subject   common.Address
	Amount    *uint256.Int
	CheckedAt time.Time
	Err       error
}

// Checked reports whether a lookup has completed for this subject.
func (q VestedQuery) Checked() bool { return !q.CheckedAt.IsZero() }

type SyncConfig struct {
	OwnerInterval time.Duration
	OwnerFresh    time.Duration
	Now           func() time.Time
	Logger        *zap.Logger
	Observer      Observer
	Reporter      *StatusReporter
}

// Synchronizer keeps the owner and vested-amount read caches. Owner polling runs
// only between Activate and Deactivate; vested lookups run on demand.
type Synchronizer struct {
	reader   ledger.Reader
	interval time.Duration
	fresh    time.Duration
	now      func() time.Time
	logger   *zap.Logger
	observer Observer
	reporter *StatusReporter

	mu        sync.Mutex
	owner     OwnerRecord
	vested    *VestedQuery
	lookupSeq uint64

	stopPoll context.CancelFunc
	pollDone chan struct{}
}

func NewSynchronizer(reader ledger.Reader, cfg SyncConfig) *Synchronizer {
	s := &Synchronizer{
		reader:   reader,
		interval: cfg.OwnerInterval,
		fresh:    cfg.OwnerFresh,
		now:      cfg.Now,
		logger:   cfg.Logger,
		observer: cfg.Observer,
		reporter: cfg.Reporter,
	}
	if s.interval <= 0 {
		s.interval = DefaultOwnerInterval
	}
	if s.fresh < 0 {
		s.fresh = 0
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.reporter == nil {
		s.reporter = NewStatusReporter(s.now)
	}
	return s
}

// Activate starts owner polling: one fetch immediately, then one per interval.
// Calling it while already active is a no-op.
func (s *Synchronizer) Activate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopPoll != nil {
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	s.stopPoll = cancel
	s.pollDone = make(chan struct{})
	go s.pollOwner(pollCtx, s.pollDone)
}

// Deactivate stops owner polling and waits for the poller to exit. The last
// owner value is kept.
func (s *Synchronizer) Deactivate() {
	s.mu.Lock()
	cancel, done := s.stopPoll, s.pollDone
	s.stopPoll, s.pollDone = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Active reports whether owner polling is running.
func (s *Synchronizer) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopPoll != nil
}

func (s *Synchronizer) pollOwner(ctx context.Context, done chan struct{}) {
	defer close(done)

	_, _ = s.RefreshOwner(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.RefreshOwner(ctx)
		}
	}
}

// RefreshOwner always queries the ledger. A successful result replaces the
// cached owner only when the cached one is unknown or older than the freshness
// window; a failure clears it.
func (s *Synchronizer) RefreshOwner(ctx context.Context) (OwnerRecord, error) {
	owner, err := s.reader.Owner(ctx)
	if ctx.Err() != nil {
		// Deactivated mid-fetch; leave the cache alone.
		return s.Owner(), ctx.Err()
	}
	s.observer.OwnerFetched(err)

	now := s.now()
	s.mu.Lock()
	if err != nil {
		ferr := &OwnerFetchError{Err: err}
		s.owner = OwnerRecord{Err: ferr}
		s.mu.Unlock()
		s.logger.Warn("owner fetch failed", zap.Error(err))
		s.reporter.Error(ferr)
		return OwnerRecord{Err: ferr}, ferr
	}
	if !s.owner.Known || now.Sub(s.owner.FetchedAt) >= s.fresh {
		if s.owner.Known && s.owner.Owner != owner {
			s.logger.Info("contract owner changed",
				zap.String("previous", s.owner.Owner.Hex()),
				zap.String("owner", owner.Hex()))
		}
		s.owner = OwnerRecord{Owner: owner, Known: true, FetchedAt: now}
	}
	rec := s.owner
	s.mu.Unlock()
	return rec, nil
}

func (s *Synchronizer) Owner() OwnerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// CheckVested looks up the vested amount for subject. A lookup for a new subject
// replaces the cached query; results of superseded lookups are dropped. There is
// no retry.
func (s *Synchronizer) CheckVested(ctx context.Context, subject common.Address) (VestedQuery, error) {
	s.mu.Lock()
	s.lookupSeq++
	seq := s.lookupSeq
	if s.vested == nil || s.vested.Subject != subject {
		s.vested = &VestedQuery{Subject: subject}
	}
	s.mu.Unlock()

	amount, err := s.reader.CheckVestedAmount(ctx, subject)
	s.observer.VestedChecked(err)

	q := VestedQuery{Subject: subject, CheckedAt: s.now()}
	if err != nil {
		lerr := &LookupError{Subject: subject, Err: err}
		q.Err = lerr
		s.logger.Warn("vested amount lookup failed",
			zap.String("subject", subject.Hex()),
			zap.Bool("no_schedule", lerr.NoSchedule()),
			zap.Error(err))
	} else {
		q.Amount = amount
	}

	s.mu.Lock()
	current := seq == s.lookupSeq
	if current {
		s.vested = &q
	}
	s.mu.Unlock()

	if !current {
		return q, q.Err
	}
	if q.Err != nil {
		s.reporter.Error(q.Err)
		return q, q.Err
	}
	s.reporter.Info("Vested amount: " + FormatEther(q.Amount) + " ETH")
	return q, nil
}

// Vested returns the current query, if any lookup target has been set.
func (s *Synchronizer) Vested() (VestedQuery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vested == nil {
		return VestedQuery{}, false
	}
	return *s.vested, true
}
