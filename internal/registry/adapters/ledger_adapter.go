package adapters

import (
	"context"
	"math/big"

	"landledger/internal/chain"
	"landledger/internal/registry/models"
	"landledger/internal/registry/ports"
)

// LedgerAdapter implements ports.Ledger on top of the chain registry
// contract. Only transaction hashes and contract-assigned ids cross back
// into the service.
type LedgerAdapter struct {
	registry *chain.Registry
}

func NewLedgerAdapter(registry *chain.Registry) ports.Ledger {
	return &LedgerAdapter{registry: registry}
}

func txHash(receipt *chain.Receipt, err error) (string, error) {
	if err != nil {
		return "", err
	}
	return receipt.TxHash, nil
}

func notarization(receipt *chain.Receipt, err error) (ports.Notarization, error) {
	if err != nil {
		return ports.Notarization{}, err
	}
	return ports.Notarization{TxHash: receipt.TxHash, ChainID: receipt.AssignedID}, nil
}

func (a *LedgerAdapter) RegisterProperty(ctx context.Context, p *models.Property) (ports.Notarization, error) {
	return notarization(a.registry.RegisterProperty(ctx, p.OwnerAddress, p.IPFSHash, p.Location, p.Area, p.PropertyType))
}

func (a *LedgerAdapter) BlockProperty(ctx context.Context, chainPropertyID int64, reason string) (string, error) {
	return txHash(a.registry.BlockDisputedProperty(ctx, chainPropertyID, reason))
}

func (a *LedgerAdapter) UnblockProperty(ctx context.Context, chainPropertyID int64) (string, error) {
	return txHash(a.registry.UnblockProperty(ctx, chainPropertyID))
}

func (a *LedgerAdapter) InitiateTransfer(ctx context.Context, chainPropertyID int64, buyer string, price *big.Int) (ports.Notarization, error) {
	return notarization(a.registry.InitiateTransfer(ctx, chainPropertyID, buyer, price))
}

func (a *LedgerAdapter) ApproveTransfer(ctx context.Context, chainTransferID int64) (string, error) {
	return txHash(a.registry.ApproveTransfer(ctx, chainTransferID))
}

func (a *LedgerAdapter) CompleteTransfer(ctx context.Context, chainTransferID int64, payment *big.Int) (string, error) {
	return txHash(a.registry.CompleteTransfer(ctx, chainTransferID, payment))
}

func (a *LedgerAdapter) CancelTransfer(ctx context.Context, chainTransferID int64) (string, error) {
	return txHash(a.registry.CancelTransfer(ctx, chainTransferID))
}

func (a *LedgerAdapter) AddRegistrar(ctx context.Context, address string) (string, error) {
	return txHash(a.registry.AddRegistrar(ctx, address))
}

func (a *LedgerAdapter) RemoveRegistrar(ctx context.Context, address string) (string, error) {
	return txHash(a.registry.RemoveRegistrar(ctx, address))
}
