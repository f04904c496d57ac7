package vesting

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// AccountContext is what the wallet reports: the connected address, if any,
// and the chain it is on. A zero ChainID means the chain is unknown.
type AccountContext struct {
	Address    common.Address
	HasAddress bool
	ChainID    uint64
}

// Connected reports whether an account is available for writes.
func (a AccountContext) Connected() bool { return a.HasAddress }

var chainNames = map[uint64]string{
	1:        "Ethereum Mainnet",
	10:       "OP Mainnet",
	137:      "Polygon",
	8453:     "Base",
	17000:    "Holesky",
	42161:    "Arbitrum One",
	31337:    "Anvil",
	11155111: "Sepolia",
}

// ChainName returns a display name for well-known chain ids.
func ChainName(id uint64) string {
	if id == 0 {
		return "unknown network"
	}
	if name, ok := chainNames[id]; ok {
		return name
	}
	return fmt.Sprintf("Chain %d", id)
}

// NetworkStatus is the result of comparing the wallet chain with the required one.
type NetworkStatus struct {
	OK           bool   `json:"ok"`
	Expected     uint64 `json:"expectedChainId"`
	ExpectedName string `json:"expectedName"`
	Actual       uint64 `json:"actualChainId"`
	ActualName   string `json:"actualName"`
}

// Err is nil when writes are allowed.
func (s NetworkStatus) Err() error {
	if s.OK {
		return nil
	}
	return &NetworkMismatchError{
		Expected:     s.Expected,
		ExpectedName: s.ExpectedName,
		Actual:       s.Actual,
		ActualName:   s.ActualName,
	}
}

// Message is the advisory shown while on the wrong chain, empty otherwise.
func (s NetworkStatus) Message() string {
	if err := s.Err(); err != nil {
		return UserMessage(err)
	}
	return ""
}

// NetworkGuard gates state-changing calls on the required chain id. It never
// talks to the network.
type NetworkGuard struct {
	required uint64
}

func NewNetworkGuard(requiredChainID uint64) NetworkGuard {
	return NetworkGuard{required: requiredChainID}
}

func (g NetworkGuard) Required() uint64 { return g.required }

func (g NetworkGuard) Evaluate(chainID uint64) NetworkStatus {
	return NetworkStatus{
		OK:           chainID != 0 && chainID == g.required,
		Expected:     g.required,
		ExpectedName: ChainName(g.required),
		Actual:       chainID,
		ActualName:   ChainName(chainID),
	}
}
