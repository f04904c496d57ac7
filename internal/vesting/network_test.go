package vesting

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNetworkGuardEvaluate(t *testing.T) {
	g := NewNetworkGuard(31337)

	ok := g.Evaluate(31337)
	require.True(t, ok.OK)
	require.NoError(t, ok.Err())
	require.Empty(t, ok.Message())

	bad := g.Evaluate(11155111)
	require.False(t, bad.OK)
	require.Equal(t, "Sepolia", bad.ActualName)
	require.Equal(t, "Please switch to Anvil (Chain ID: 31337). Current: Sepolia (ID: 11155111)", bad.Message())

	var merr *NetworkMismatchError
	require.ErrorAs(t, bad.Err(), &merr)
	require.Equal(t, uint64(31337), merr.Expected)

	require.False(t, g.Evaluate(0).OK, "an unknown chain never allows writes")
}

func TestChainName(t *testing.T) {
	require.Equal(t, "Ethereum Mainnet", ChainName(1))
	require.Equal(t, "Chain 424242", ChainName(424242))
}
