// Package chain notarizes registry mutations on an EVM ledger.
//
// A Backend is chosen once at startup: Simulated when no contract address is
// configured, Ethereum otherwise. Callers never branch on which one they have.
package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrReadUnsupported is returned by backends that cannot answer view calls.
	ErrReadUnsupported = errors.New("chain reads are not supported by this backend")
	// ErrReverted means the transaction was mined with a failed status.
	ErrReverted = errors.New("chain transaction reverted")
	// ErrNotConfigured means no RPC endpoint is available.
	ErrNotConfigured = errors.New("chain rpc endpoint not configured")
)

// Tx is a state-changing contract call. Value is sent with payable methods.
type Tx struct {
	Method string
	Args   []any
	Value  *big.Int
}

// Receipt identifies an included transaction. AssignedID is the property or
// transfer id the contract emitted, set for calls that create one.
type Receipt struct {
	TxHash      string       `json:"transaction_hash"`
	BlockNumber uint64       `json:"block_number"`
	Status      uint64       `json:"status"`
	Simulated   bool         `json:"simulated"`
	AssignedID  int64        `json:"assigned_id,omitempty"`
	Logs        []*types.Log `json:"-"`
}

// Backend submits calls to the registry contract.
type Backend interface {
	// Transact submits tx and waits for inclusion. No retries.
	Transact(ctx context.Context, tx Tx) (*Receipt, error)
	// Call executes a view method and returns its decoded outputs.
	Call(ctx context.Context, method string, args ...any) ([]any, error)
	Network() Network
	Kind() string
	// Signer is the account that sends transactions, empty when none does.
	Signer() string
}
