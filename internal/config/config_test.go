package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	require.Equal(t, uint64(DefaultChainID), cfg.Chain.RequiredChainID)
	require.Equal(t, DefaultContractAddress, cfg.Contract.Address)
	require.Equal(t, 10*time.Second, cfg.Poll.OwnerInterval)
	require.Equal(t, 5*time.Second, cfg.Poll.OwnerFresh)
	require.Equal(t, 3000, cfg.Service.HTTPPort)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vestingd.yaml")
	body := `
chain:
  rpc_url: http://node:8545
  required_chain_id: 11155111
poll:
  owner_interval: 30s
  owner_fresh: 15s
service:
  http_port: 8080
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("VESTING_SERVICE_HTTP_PORT", "9090")
	t.Setenv("VESTING_LOG_LEVEL", "debug")

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)
	require.Equal(t, "http://node:8545", cfg.Chain.RPCURL)
	require.Equal(t, uint64(11155111), cfg.Chain.RequiredChainID)
	require.Equal(t, 30*time.Second, cfg.Poll.OwnerInterval)
	require.Equal(t, 9090, cfg.Service.HTTPPort)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestValidateRejectsBadValues(t *testing.T) {
	v := NewViper()
	v.Set("contract.address", "0xnope")
	v.Set("poll.owner_fresh", "1m")
	_, err := Load(v, "")
	require.ErrorContains(t, err, "contract.address")
	require.ErrorContains(t, err, "poll.owner_fresh")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}
