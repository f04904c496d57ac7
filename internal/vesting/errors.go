package vesting

import (
	"errors"
	"fmt"

	"vestingdapp/internal/ledger"

	"github.com/ethereum/go-ethereum/common"
)

// Severity tags a status for display. It is carried explicitly and never
// derived from message text.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "info"
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "info":
		*s = SeverityInfo
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", b)
	}
	return nil
}

var (
	ErrNotConnected = errors.New("wallet not connected")
	ErrNotOwner     = errors.New("caller is not the contract owner")
	ErrInFlight     = errors.New("transaction already in flight")
)

// ValidationCode enumerates the local checks on vesting input, in the order
// they are applied.
type ValidationCode int

const (
	InvalidAddress ValidationCode = iota + 1
	NonPositiveAmount
	NonPositiveDuration
	NegativeCliff
)

func (c ValidationCode) String() string {
	switch c {
	case InvalidAddress:
		return "InvalidAddress"
	case NonPositiveAmount:
		return "NonPositiveAmount"
	case NonPositiveDuration:
		return "NonPositiveDuration"
	case NegativeCliff:
		return "NegativeCliff"
	}
	return fmt.Sprintf("ValidationCode(%d)", int(c))
}

var validationMessages = map[ValidationCode]string{
	InvalidAddress:      "Invalid recipient address.",
	NonPositiveAmount:   "Amount must be greater than zero.",
	NonPositiveDuration: "Duration must be greater than zero.",
	NegativeCliff:       "Cliff duration cannot be negative.",
}

// ValidationError is a locally detected input problem. It never reaches the ledger.
type ValidationError struct {
	Code  ValidationCode
	Field string
	Input string
	// Reason is a diagnostic detail, e.g. "not a number" or "overflows uint64".
	Reason string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s %q", e.Field, e.Input)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ValidationError) UserMessage() string {
	return validationMessages[e.Code]
}

// NetworkMismatchError blocks writes while the wallet is on the wrong chain.
type NetworkMismatchError struct {
	Expected     uint64
	ExpectedName string
	Actual       uint64
	ActualName   string
}

func (e *NetworkMismatchError) Error() string {
	return fmt.Sprintf("wrong network: want chain %d, have %d", e.Expected, e.Actual)
}

func (e *NetworkMismatchError) UserMessage() string {
	return fmt.Sprintf("Please switch to %s (Chain ID: %d). Current: %s (ID: %d)",
		e.ExpectedName, e.Expected, e.ActualName, e.Actual)
}

// SubmissionError means the wallet or node declined to accept a call.
type SubmissionError struct {
	Kind Kind
	Err  error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %s: %v", e.Kind, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

func (e *SubmissionError) UserMessage() string {
	if e.Kind == KindClaimBalance {
		return "Failed to claim balance: " + e.Err.Error()
	}
	return "Failed to create vesting schedule: " + e.Err.Error()
}

// ConfirmationError means an accepted call failed to finalize, or its outcome
// could not be observed.
type ConfirmationError struct {
	Kind Kind
	Hash common.Hash
	Err  error
}

func (e *ConfirmationError) Error() string {
	return fmt.Sprintf("confirm %s %s: %v", e.Kind, e.Hash.Hex(), e.Err)
}

func (e *ConfirmationError) Unwrap() error { return e.Err }

func (e *ConfirmationError) UserMessage() string {
	if e.Kind == KindClaimBalance {
		return "Failed to confirm claim balance: " + e.Err.Error()
	}
	return "Failed to confirm vesting schedule: " + e.Err.Error()
}

const noScheduleMessage = "No vesting schedule found for this address."

// LookupError reports a failed vested-amount lookup. Users always see the same
// text; Unwrap keeps the cause for diagnostics.
type LookupError struct {
	Subject common.Address
	Err     error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("check vested amount for %s: %v", e.Subject.Hex(), e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

func (e *LookupError) UserMessage() string { return noScheduleMessage }

// NoSchedule is true when the ledger reverted the lookup, as opposed to a
// transport failure.
func (e *LookupError) NoSchedule() bool {
	return errors.Is(e.Err, ledger.ErrNoSchedule)
}

// OwnerFetchError is a failed owner poll. Polling continues regardless.
type OwnerFetchError struct {
	Err error
}

func (e *OwnerFetchError) Error() string { return "fetch owner: " + e.Err.Error() }

func (e *OwnerFetchError) Unwrap() error { return e.Err }

func (e *OwnerFetchError) UserMessage() string {
	return "Failed to fetch contract owner. Ensure contract is deployed and address is correct."
}

// UserMessage renders err as the text shown to the user.
func UserMessage(err error) string {
	var uf interface{ UserMessage() string }
	if errors.As(err, &uf) {
		return uf.UserMessage()
	}
	switch {
	case errors.Is(err, ErrNotConnected):
		return "Please connect your wallet."
	case errors.Is(err, ErrNotOwner):
		return "Only the contract owner can create vesting schedules."
	case errors.Is(err, ErrInFlight):
		return "A previous transaction of this kind is still pending."
	}
	return err.Error()
}
