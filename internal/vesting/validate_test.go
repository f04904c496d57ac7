package vesting

import (
	"errors"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	anvilDeployer = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	lowerAddress  = "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"
)

func TestValidateAddress(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{lowerAddress, true},
		{anvilDeployer, true},
		{"0x5FbDB2315678afecb367f032d93F642f64180aa3", true},
		{"0xABCDEF0123456789ABCDEF0123456789ABCDEF01", false},
		{"0xf39fd6e51aad88F6F4ce6aB8827279cffFb92266", false},
		{"70997970c51812dc3a010c7d01b50e0d17dc79c8", false},
		{"0X70997970c51812dc3a010c7d01b50e0d17dc79c8", false},
		{"0x70997970c51812dc3a010c7d01b50e0d17dc79c", false},
		{"0x70997970c51812dc3a010c7d01b50e0d17dc79c8a", false},
		{"0x70997970c51812dc3a010c7d01b50e0d17dc79zz", false},
		{" " + lowerAddress, false},
		{"0x", false},
		{"", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ValidateAddress(tc.in), "address %q", tc.in)
	}
}

func TestValidateVestingRequestConvertsEther(t *testing.T) {
	req, err := ValidateVestingRequest(lowerAddress, "0.1", "31536000", "0")
	require.NoError(t, err)
	require.Equal(t, "100000000000000000", req.AmountWei.Dec())
	require.Equal(t, uint64(31536000), req.DurationSeconds)
	require.Equal(t, uint64(0), req.CliffSeconds)
	require.Equal(t, lowerAddress, lowerHex(req.Recipient.Hex()))
}

func TestValidateVestingRequestReportsFirstViolation(t *testing.T) {
	cases := []struct {
		name                      string
		recipient, amount, d, cl string
		want                      ValidationCode
	}{
		{"everything wrong", "0xABCDEF0123456789ABCDEF0123456789ABCDEF01", "0", "0", "-1", InvalidAddress},
		{"zero amount", lowerAddress, "0", "0", "-1", NonPositiveAmount},
		{"negative amount", lowerAddress, "-1", "10", "0", NonPositiveAmount},
		{"unparsable amount", lowerAddress, "ten", "10", "0", NonPositiveAmount},
		{"empty amount", lowerAddress, "", "10", "0", NonPositiveAmount},
		{"dust below one wei", lowerAddress, "0.0000000000000000001", "10", "0", NonPositiveAmount},
		{"zero duration", lowerAddress, "1", "0", "-1", NonPositiveDuration},
		{"negative duration", lowerAddress, "1", "-5", "0", NonPositiveDuration},
		{"fractional duration", lowerAddress, "1", "1.5", "0", NonPositiveDuration},
		{"huge duration", lowerAddress, "1", "18446744073709551616", "0", NonPositiveDuration},
		{"negative cliff", lowerAddress, "1", "10", "-1", NegativeCliff},
		{"unparsable cliff", lowerAddress, "1", "10", "soon", NegativeCliff},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateVestingRequest(tc.recipient, tc.amount, tc.d, tc.cl)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			require.Equal(t, tc.want, verr.Code)
		})
	}
}

func TestValidateVestingRequestAllowsCliffBeyondDuration(t *testing.T) {
	req, err := ValidateVestingRequest(lowerAddress, "1", "10", "20")
	require.NoError(t, err)
	require.Equal(t, uint64(20), req.CliffSeconds)
}

func TestValidationMessages(t *testing.T) {
	_, err := ValidateVestingRequest("0x1", "1", "1", "0")
	require.Equal(t, "Invalid recipient address.", UserMessage(err))

	_, err = ValidateVestingRequest(lowerAddress, "1", "1", "-3")
	require.Equal(t, "Cliff duration cannot be negative.", UserMessage(err))
}

func TestParseEtherRejectsExponentNotation(t *testing.T) {
	for _, in := range []string{"1e-1", "1E18", "1e9999999", "0x10", "1.2.3", ".", "-", "+1"} {
		_, err := ParseEther(in)
		require.ErrorIs(t, err, errNotANumber, in)
	}

	_, err := ValidateVestingRequest(lowerAddress, "1e-1", "10", "0")
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	require.Equal(t, NonPositiveAmount, verr.Code)
	require.Equal(t, "not a number", verr.Reason)
}

func TestParseEtherBoundsWholeDigits(t *testing.T) {
	wei, err := ParseEther(" .5 ")
	require.NoError(t, err)
	require.Equal(t, "500000000000000000", wei.Dec())

	// Largest whole-ether value that still fits once shifted to wei.
	_, err = ParseEther("115792089237316195423570985008687907853269984665640564039457")
	require.NoError(t, err)

	_, err = ParseEther("1" + strings.Repeat("0", 60))
	require.ErrorIs(t, err, errAmountOverflow)

	_, err = ParseEther("1" + strings.Repeat("0", 1_000_000))
	require.ErrorIs(t, err, errAmountOverflow)

	_, err = ParseEther("-1")
	require.ErrorIs(t, err, errNegativeAmount)
}

func TestEtherRoundTrip(t *testing.T) {
	for _, in := range []string{"0.1", "1", "1.5", "0.000000000000000001", "123.456789012345678901", "1000000"} {
		wei, err := ParseEther(in)
		require.NoError(t, err, in)

		back := decimal.RequireFromString(FormatEther(wei))
		orig := decimal.RequireFromString(in)
		require.True(t, back.Sub(orig).Abs().LessThan(decimal.New(1, -EtherDecimals)), "%s -> %s", in, back)
	}
}

func TestFormatEther(t *testing.T) {
	require.Equal(t, "0.1", FormatEther(uint256.NewInt(100000000000000000)))
	require.Equal(t, "0", FormatEther(nil))
	require.Equal(t, "2", FormatEther(uint256.MustFromDecimal("2000000000000000000")))
}
