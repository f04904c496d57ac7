package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"vestingdapp/internal/contracts"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

const defaultReceiptInterval = 2 * time.Second

// EthClient talks to the vesting contract over JSON-RPC.
type EthClient struct {
	client          *ethclient.Client
	contract        *bind.BoundContract
	address         common.Address
	chainID         *big.Int
	from            common.Address
	transacts       *bind.TransactOpts
	receiptInterval time.Duration
	logger          *zap.Logger
}

type EthClientConfig struct {
	RPCURL          string
	PrivateKeyHex   string
	ContractAddress string
	ReceiptInterval time.Duration
	Logger          *zap.Logger
}

// NewEthClient dials the node and binds the vesting contract. Without a private
// key the client can only read.
func NewEthClient(ctx context.Context, cfg EthClientConfig) (*EthClient, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid vesting contract address %q", cfg.ContractAddress)
	}

	cli, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(contracts.VestingABI))
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	chainID, err := cli.ChainID(ctx)
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}

	address := common.HexToAddress(cfg.ContractAddress)
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.ReceiptInterval
	if interval <= 0 {
		interval = defaultReceiptInterval
	}

	c := &EthClient{
		client:          cli,
		contract:        bind.NewBoundContract(address, parsedABI, cli, cli, cli),
		address:         address,
		chainID:         chainID,
		receiptInterval: interval,
		logger:          logger.With(zap.String("contract", address.Hex())),
	}

	if cfg.PrivateKeyHex == "" {
		return c, nil
	}

	pk, err := parsePrivateKey(cfg.PrivateKeyHex)
	if err != nil {
		cli.Close()
		return nil, err
	}
	txOpts, err := bind.NewKeyedTransactorWithChainID(pk, chainID)
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("transactor: %w", err)
	}
	txOpts.GasLimit = 0 // let node estimate
	c.transacts = txOpts
	c.from = txOpts.From
	return c, nil
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// AddressFromKey derives the account address of a hex private key.
func AddressFromKey(hexKey string) (common.Address, error) {
	key, err := parsePrivateKey(hexKey)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

func (c *EthClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func (c *EthClient) From() (common.Address, bool) {
	return c.from, c.transacts != nil
}

// ChainID asks the node for its chain id on every call so a node switch shows up.
func (c *EthClient) ChainID(ctx context.Context) (uint64, error) {
	id, err := c.client.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch chain id: %w", err)
	}
	if !id.IsUint64() {
		return 0, fmt.Errorf("chain id %s out of range", id)
	}
	return id.Uint64(), nil
}

func (c *EthClient) Owner(ctx context.Context) (common.Address, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, contracts.MethodOwner); err != nil {
		return common.Address{}, fmt.Errorf("call owner: %w", err)
	}
	if len(out) != 1 {
		return common.Address{}, fmt.Errorf("owner: unexpected %d return values", len(out))
	}
	owner := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	return owner, nil
}

func (c *EthClient) CheckVestedAmount(ctx context.Context, subject common.Address) (*uint256.Int, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, contracts.MethodCheckVestedAmount, subject)
	if err != nil {
		if isRevert(err) {
			return nil, fmt.Errorf("%w: %v", ErrNoSchedule, err)
		}
		return nil, fmt.Errorf("call checkVestedAmount: %w", err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("checkVestedAmount: unexpected %d return values", len(out))
	}
	raw := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	amount, overflow := uint256.FromBig(raw)
	if overflow {
		return nil, fmt.Errorf("checkVestedAmount: value %s overflows uint256", raw)
	}
	return amount, nil
}

func (c *EthClient) CreateVestingSchedule(ctx context.Context, req CreateScheduleRequest) (common.Hash, error) {
	if c.transacts == nil {
		return common.Hash{}, ErrReadOnly
	}
	if req.AmountWei == nil || req.AmountWei.IsZero() {
		return common.Hash{}, fmt.Errorf("amount required")
	}

	opts := *c.transacts
	opts.Context = ctx
	opts.Value = req.AmountWei.ToBig()

	tx, err := c.contract.Transact(&opts, contracts.MethodCreateVestingSchedule,
		req.Recipient,
		new(big.Int).SetUint64(req.DurationSeconds),
		new(big.Int).SetUint64(req.CliffSeconds),
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("create vesting schedule tx: %w", err)
	}
	c.logger.Debug("sent createVestingSchedule",
		zap.String("tx", tx.Hash().Hex()),
		zap.String("recipient", req.Recipient.Hex()))
	return tx.Hash(), nil
}

func (c *EthClient) ClaimBalance(ctx context.Context, subject common.Address) (common.Hash, error) {
	if c.transacts == nil {
		return common.Hash{}, ErrReadOnly
	}

	opts := *c.transacts
	opts.Context = ctx

	tx, err := c.contract.Transact(&opts, contracts.MethodClaimBalance, subject)
	if err != nil {
		return common.Hash{}, fmt.Errorf("claim balance tx: %w", err)
	}
	c.logger.Debug("sent claimBalance",
		zap.String("tx", tx.Hash().Hex()),
		zap.String("subject", subject.Hex()))
	return tx.Hash(), nil
}

// WaitConfirmed blocks until the transaction is mined and reports ErrReverted
// when it failed on chain.
func (c *EthClient) WaitConfirmed(ctx context.Context, hash common.Hash) error {
	receipt, err := WaitForReceipt(ctx, c.client, hash, c.receiptInterval)
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("%w: %s in block %s", ErrReverted, hash.Hex(), receipt.BlockNumber)
	}
	return nil
}

func (c *EthClient) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("rpc client not configured")
	}
	_, err := c.client.BlockNumber(ctx)
	return err
}

// ReceiptFetcher is the part of ethclient.Client WaitForReceipt needs.
type ReceiptFetcher interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// WaitForReceipt polls until the transaction is mined or the context is done.
func WaitForReceipt(ctx context.Context, client ReceiptFetcher, hash common.Hash, interval time.Duration) (*types.Receipt, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(ctx, hash)
		if receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("fetch receipt: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}
