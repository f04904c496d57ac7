package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// AppConfig is the full client configuration.
type AppConfig struct {
	Chain    ChainConfig    `mapstructure:"chain"`
	Contract ContractConfig `mapstructure:"contract"`
	Poll     PollConfig     `mapstructure:"poll"`
	Service  ServiceConfig  `mapstructure:"service"`
	Log      LogConfig      `mapstructure:"log"`
}

type ChainConfig struct {
	RPCURL          string `mapstructure:"rpc_url"`
	PrivateKey      string `mapstructure:"private_key"`
	RequiredChainID uint64 `mapstructure:"required_chain_id"`
	// Fake swaps the node for an in-memory contract.
	Fake bool `mapstructure:"fake"`
}

type ContractConfig struct {
	Address string `mapstructure:"address"`
}

type PollConfig struct {
	OwnerInterval   time.Duration `mapstructure:"owner_interval"`
	OwnerFresh      time.Duration `mapstructure:"owner_fresh"`
	ReceiptInterval time.Duration `mapstructure:"receipt_interval"`
}

type ServiceConfig struct {
	HTTPPort             int           `mapstructure:"http_port"`
	HMACSecret           string        `mapstructure:"hmac_secret"`
	HMACClockSkew        time.Duration `mapstructure:"hmac_clock_skew"`
	IdempotencyWindow    time.Duration `mapstructure:"idempotency_window"`
	IdempotencyStorePath string        `mapstructure:"idempotency_store_path"`
	PostgresDSN          string        `mapstructure:"postgres_dsn"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	envPrefix = "VESTING"

	// Anvil's default chain id and first deployment address.
	DefaultChainID         = 31337
	DefaultContractAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
)

// NewViper returns a viper instance with defaults and VESTING_* environment
// lookups, e.g. VESTING_CHAIN_RPC_URL for chain.rpc_url.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("chain.rpc_url", "http://127.0.0.1:8545")
	v.SetDefault("chain.private_key", "")
	v.SetDefault("chain.required_chain_id", DefaultChainID)
	v.SetDefault("chain.fake", false)
	v.SetDefault("contract.address", DefaultContractAddress)
	v.SetDefault("poll.owner_interval", "10s")
	v.SetDefault("poll.owner_fresh", "5s")
	v.SetDefault("poll.receipt_interval", "2s")
	v.SetDefault("service.http_port", 3000)
	v.SetDefault("service.hmac_secret", "")
	v.SetDefault("service.hmac_clock_skew", "60s")
	v.SetDefault("service.idempotency_window", "10m")
	v.SetDefault("service.idempotency_store_path", filepath.Join(os.TempDir(), "vestingd-idem.json"))
	v.SetDefault("service.postgres_dsn", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file at path into v and decodes the result.
func Load(v *viper.Viper, path string) (*AppConfig, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Chain.PrivateKey = strings.TrimSpace(cfg.Chain.PrivateKey)
	cfg.Contract.Address = strings.TrimSpace(cfg.Contract.Address)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	var errs []error
	if !c.Chain.Fake && c.Chain.RPCURL == "" {
		errs = append(errs, errors.New("chain.rpc_url is required"))
	}
	if c.Chain.RequiredChainID == 0 {
		errs = append(errs, errors.New("chain.required_chain_id must be set"))
	}
	if !common.IsHexAddress(c.Contract.Address) {
		errs = append(errs, fmt.Errorf("contract.address %q is not an address", c.Contract.Address))
	}
	if c.Poll.OwnerInterval <= 0 {
		errs = append(errs, errors.New("poll.owner_interval must be positive"))
	}
	if c.Poll.OwnerFresh < 0 || c.Poll.OwnerFresh > c.Poll.OwnerInterval {
		errs = append(errs, errors.New("poll.owner_fresh must be between 0 and poll.owner_interval"))
	}
	if c.Poll.ReceiptInterval <= 0 {
		errs = append(errs, errors.New("poll.receipt_interval must be positive"))
	}
	if c.Service.HTTPPort < 0 || c.Service.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("service.http_port %d out of range", c.Service.HTTPPort))
	}
	return errors.Join(errs...)
}
