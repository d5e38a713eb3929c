//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// Package ports declares what the registry service needs from the outside
// world. Adapters in ../adapters bind them to the chain and outbox packages.
package ports

import (
	"context"
	"math/big"

	"landledger/internal/registry/models"
)

// Notarization is the ledger's answer to a call that creates a record:
// the transaction hash and the id the contract assigned.
type Notarization struct {
	TxHash  string
	ChainID int64
}

// Ledger notarizes state changes and returns the transaction hash. Property
// and transfer ids are the contract's ids, never the store's.
type Ledger interface {
	RegisterProperty(ctx context.Context, p *models.Property) (Notarization, error)
	BlockProperty(ctx context.Context, chainPropertyID int64, reason string) (string, error)
	UnblockProperty(ctx context.Context, chainPropertyID int64) (string, error)
	InitiateTransfer(ctx context.Context, chainPropertyID int64, buyer string, price *big.Int) (Notarization, error)
	ApproveTransfer(ctx context.Context, chainTransferID int64) (string, error)
	CompleteTransfer(ctx context.Context, chainTransferID int64, payment *big.Int) (string, error)
	CancelTransfer(ctx context.Context, chainTransferID int64) (string, error)
	AddRegistrar(ctx context.Context, address string) (string, error)
	RemoveRegistrar(ctx context.Context, address string) (string, error)
}

// EventPublisher records history events for asynchronous fan-out. It is
// called inside the registry transaction.
type EventPublisher interface {
	Publish(ctx context.Context, event *models.Event) error
}

// PropertyCache is an optional read-through cache in front of the store.
// Set must ignore a property whose Version is not newer than the cached one.
type PropertyCache interface {
	Get(ctx context.Context, id int64) (*models.Property, bool)
	Set(ctx context.Context, p *models.Property)
}
