package vesting

import (
	"sync"
	"time"
)

// Status is the single human-facing line the presentation layer renders.
type Status struct {
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Busy      bool      `json:"busy"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StatusReporter keeps the most recent message posted by any component. There
// is no priority between sources: the last post wins. Busy is derived from the
// tracked lifecycle managers at read time.
type StatusReporter struct {
	mu       sync.Mutex
	last     Status
	managers []*Manager
	now      func() time.Time
}

func NewStatusReporter(now func() time.Time) *StatusReporter {
	if now == nil {
		now = time.Now
	}
	return &StatusReporter{now: now}
}

// Track adds m to the busy computation.
func (r *StatusReporter) Track(m *Manager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.managers = append(r.managers, m)
}

func (r *StatusReporter) Info(msg string) {
	r.post(msg, SeverityInfo)
}

// Error posts the user-facing rendering of err.
func (r *StatusReporter) Error(err error) {
	if err == nil {
		return
	}
	r.post(UserMessage(err), SeverityError)
}

func (r *StatusReporter) post(msg string, sev Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = Status{Message: msg, Severity: sev, UpdatedAt: r.now()}
}

func (r *StatusReporter) Status() Status {
	r.mu.Lock()
	out := r.last
	managers := append([]*Manager(nil), r.managers...)
	r.mu.Unlock()

	for _, m := range managers {
		if m.Current().Phase.Busy() {
			out.Busy = true
			break
		}
	}
	return out
}
