package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

const recipient = "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("VESTING_CHAIN_FAKE", "true")
	t.Setenv("VESTING_LOG_LEVEL", "error")

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestOwnerCommand(t *testing.T) {
	out, err := runCLI(t, "owner")
	require.NoError(t, err)
	require.Equal(t, devAccount+"\n", out)
}

func TestCreateCommandConfirms(t *testing.T) {
	out, err := runCLI(t, "create", "--recipient", recipient, "--amount", "0.1", "--duration", "100")
	require.NoError(t, err)
	require.Contains(t, out, "create-schedule confirmed tx=0x")
	require.Contains(t, out, "Vesting schedule created successfully!")
}

func TestCreateCommandRejectsBadInput(t *testing.T) {
	_, err := runCLI(t, "create", "--recipient", "0x123", "--amount", "0.1", "--duration", "100")
	require.EqualError(t, err, "Invalid recipient address.")

	_, err = runCLI(t, "create", "--recipient", recipient, "--amount", "0", "--duration", "100")
	require.EqualError(t, err, "Amount must be greater than zero.")
}

func TestVestedCommandWithoutSchedule(t *testing.T) {
	_, err := runCLI(t, "vested", recipient)
	require.EqualError(t, err, "No vesting schedule found for this address.")
}

func TestClaimCommandSurfacesRejection(t *testing.T) {
	_, err := runCLI(t, "claim")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Failed to claim balance:")
}

func TestConfigErrorsSurface(t *testing.T) {
	t.Setenv("VESTING_CONTRACT_ADDRESS", "nope")
	_, err := runCLI(t, "owner")
	require.ErrorContains(t, err, "contract.address")
}
