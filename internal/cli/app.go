package cli

import (
	"context"
	"errors"
	"fmt"

	"vestingdapp/internal/config"
	"vestingdapp/internal/ledger"
	"vestingdapp/internal/logging"
	"vestingdapp/internal/vesting"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// devAccount owns the in-memory contract when no private key is configured.
const devAccount = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

type app struct {
	cfg     *config.AppConfig
	logger  *zap.Logger
	client  ledger.Client
	session *vesting.Session
	closers []func()
}

func (o *rootOptions) newApp(ctx context.Context, observer vesting.Observer) (*app, error) {
	cfg, err := config.Load(o.v, o.configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	client, closeClient, err := openLedger(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = client
	a.closers = append(a.closers, closeClient)

	a.session = vesting.NewSession(client, vesting.Config{
		RequiredChainID: cfg.Chain.RequiredChainID,
		OwnerInterval:   cfg.Poll.OwnerInterval,
		OwnerFresh:      cfg.Poll.OwnerFresh,
		Logger:          logger,
		Observer:        observer,
	})
	a.closers = append(a.closers, a.session.Close)

	if err := a.connect(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func openLedger(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (ledger.Client, func(), error) {
	if cfg.Chain.Fake {
		owner := common.HexToAddress(devAccount)
		if cfg.Chain.PrivateKey != "" {
			var err error
			if owner, err = ledger.AddressFromKey(cfg.Chain.PrivateKey); err != nil {
				return nil, nil, err
			}
		}
		logger.Info("using in-memory vesting contract", zap.String("owner", owner.Hex()))
		return ledger.NewFakeClient(owner, cfg.Chain.RequiredChainID), func() {}, nil
	}

	client, err := ledger.NewEthClient(ctx, ledger.EthClientConfig{
		RPCURL:          cfg.Chain.RPCURL,
		PrivateKeyHex:   cfg.Chain.PrivateKey,
		ContractAddress: cfg.Contract.Address,
		ReceiptInterval: cfg.Poll.ReceiptInterval,
		Logger:          logger.Named("ledger"),
	})
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

// connect presents the signing account to the session as the wallet.
func (a *app) connect(ctx context.Context) error {
	signer, ok := a.client.(ledger.Signer)
	if !ok {
		return nil
	}
	chainID, err := signer.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("fetch chain id: %w", err)
	}
	addr, has := signer.From()
	a.session.SetAccount(vesting.AccountContext{Address: addr, HasAddress: has, ChainID: chainID})
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// userError keeps the full cause in the log and returns the text a user sees.
func (a *app) userError(err error) error {
	a.logger.Debug("command failed", zap.Error(err))
	return errors.New(vesting.UserMessage(err))
}
