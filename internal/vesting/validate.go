package vesting

import (
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// EtherDecimals is the number of decimals between ether and wei.
const EtherDecimals = 18

// maxEtherIntegerDigits is the most whole-ether digits that can fit in a
// uint256 once shifted to wei.
const maxEtherIntegerDigits = 78 - EtherDecimals

// etherPattern is a plain decimal: optional sign, digits, optional fraction.
// Exponent notation is not accepted.
var etherPattern = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)$`)

// ValidateAddress reports whether s is a 0x-prefixed 20-byte hex address.
// All-lowercase input is accepted as is; any other casing must be the EIP-55
// checksum form.
func ValidateAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") || !common.IsHexAddress(s) {
		return false
	}
	if strings.ToLower(s) == s {
		return true
	}
	return common.HexToAddress(s).Hex() == s
}

// ParseEther converts a decimal ether amount such as "0.1" to wei. Digits
// beyond 18 decimals are rounded half up.
func ParseEther(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if !etherPattern.MatchString(s) {
		return nil, errNotANumber
	}
	negative := strings.HasPrefix(s, "-")
	whole, _, _ := strings.Cut(strings.TrimPrefix(s, "-"), ".")
	if len(strings.TrimLeft(whole, "0")) > maxEtherIntegerDigits {
		if negative {
			return nil, errNegativeAmount
		}
		return nil, errAmountOverflow
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errNotANumber
	}
	if d.Sign() < 0 {
		return nil, errNegativeAmount
	}
	wei := d.Shift(EtherDecimals).Round(0).BigInt()
	out, overflow := uint256.FromBig(wei)
	if overflow {
		return nil, errAmountOverflow
	}
	return out, nil
}

// FormatEther renders wei as a decimal ether string without trailing zeros.
func FormatEther(wei *uint256.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei.ToBig(), -EtherDecimals).String()
}

type amountError string

func (e amountError) Error() string { return string(e) }

const (
	errNotANumber     = amountError("not a number")
	errNegativeAmount = amountError("negative amount")
	errAmountOverflow = amountError("amount overflows uint256")
)

// ScheduleForm is the raw user input for a new vesting schedule.
type ScheduleForm struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Duration  string `json:"durationSeconds"`
	Cliff     string `json:"cliffSeconds"`
}

// ScheduleRequest is a validated createVestingSchedule call. The relation
// between cliff and duration is left to the contract.
type ScheduleRequest struct {
	Recipient       common.Address
	AmountWei       *uint256.Int
	DurationSeconds uint64
	CliffSeconds    uint64
}

// ValidateVestingRequest checks the form in a fixed order (recipient, amount,
// duration, cliff) and reports the first rule violated.
func ValidateVestingRequest(recipient, amountText, durationText, cliffText string) (ScheduleRequest, error) {
	recipient = strings.TrimSpace(recipient)
	if !ValidateAddress(recipient) {
		return ScheduleRequest{}, &ValidationError{Code: InvalidAddress, Field: "recipient", Input: recipient}
	}

	amount, err := ParseEther(amountText)
	if err != nil {
		return ScheduleRequest{}, &ValidationError{Code: NonPositiveAmount, Field: "amount", Input: amountText, Reason: err.Error()}
	}
	if amount.IsZero() {
		return ScheduleRequest{}, &ValidationError{Code: NonPositiveAmount, Field: "amount", Input: amountText}
	}

	duration, reason := parseSeconds(durationText)
	if reason == "" && duration.Sign() <= 0 {
		reason = "must be positive"
	}
	if reason != "" {
		return ScheduleRequest{}, &ValidationError{Code: NonPositiveDuration, Field: "duration", Input: durationText, Reason: reason}
	}

	cliff, reason := parseSeconds(cliffText)
	if reason == "" && cliff.Sign() < 0 {
		reason = "must not be negative"
	}
	if reason != "" {
		return ScheduleRequest{}, &ValidationError{Code: NegativeCliff, Field: "cliff", Input: cliffText, Reason: reason}
	}

	return ScheduleRequest{
		Recipient:       common.HexToAddress(recipient),
		AmountWei:       amount,
		DurationSeconds: duration.Uint64(),
		CliffSeconds:    cliff.Uint64(),
	}, nil
}

// ValidateScheduleForm is ValidateVestingRequest over a ScheduleForm.
func ValidateScheduleForm(f ScheduleForm) (ScheduleRequest, error) {
	return ValidateVestingRequest(f.Recipient, f.Amount, f.Duration, f.Cliff)
}

// parseSeconds parses a base-10 integer. A non-empty reason means the text is
// unusable; negative values are returned for the caller to classify.
func parseSeconds(s string) (*big.Int, string) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, "not an integer"
	}
	if v.Sign() > 0 && !v.IsUint64() {
		return nil, "overflows uint64"
	}
	return v, ""
}
