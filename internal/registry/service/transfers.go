package service

import (
	"context"
	"errors"
	"math/big"

	"go.opentelemetry.io/otel/attribute"

	"landledger/internal/registry/models"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/platform/sentinel"
	"landledger/pkg/requestcontext"
)

// InitiateTransfer opens a transfer from the current owner to buyer and moves
// the property to PendingTransfer. Concurrent initiations on one property are
// serialized by the property row lock; the loser sees PendingTransfer.
func (s *Service) InitiateTransfer(ctx context.Context, label, buyer string, price *big.Int) (*models.Transfer, error) {
	seller, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := models.ParseLabel(label)
	if err != nil {
		return nil, err
	}
	buyerAddr, err := models.NormalizeAddress(buyer)
	if err != nil {
		return nil, err
	}
	if price == nil {
		price = new(big.Int)
	}
	if price.Sign() < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "price must not be negative")
	}

	var transfer *models.Transfer
	var pending *models.Property
	err = s.mutate(ctx, "initiate_transfer", func(ctx context.Context) error {
		p, err := s.store.LockProperty(ctx, id)
		if err != nil {
			return notFoundOr(err, "property")
		}
		if !models.SameAddress(p.OwnerAddress, seller) {
			return dErrors.New(dErrors.CodeForbidden, "only the owner can initiate a transfer")
		}
		if err := p.CanInitiateTransfer(); err != nil {
			return err
		}
		if models.SameAddress(buyerAddr, p.OwnerAddress) {
			return dErrors.New(dErrors.CodeValidation, "buyer must differ from the current owner")
		}

		notarized, err := s.ledger.InitiateTransfer(ctx, p.ChainID, buyerAddr, price)
		if err != nil {
			return ledgerError(err)
		}
		txHash := notarized.TxHash

		now := requestcontext.Now(ctx)
		t := &models.Transfer{
			PropertyID:  id,
			Seller:      p.OwnerAddress,
			Buyer:       buyerAddr,
			Price:       new(big.Int).Set(price),
			Status:      models.TransferInitiated,
			ChainID:     notarized.ChainID,
			TxHash:      txHash,
			InitiatedAt: now,
			UpdatedAt:   now,
		}
		if err := s.store.CreateTransfer(ctx, t); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "property already has an open transfer")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save transfer")
		}

		p.Status = models.StatusPendingTransfer
		p.UpdatedAt = now
		if err := s.store.UpdateProperty(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update property")
		}

		event := models.NewEvent(id, models.ActionTransferInitiated, seller, txHash, now)
		event.TransferID = t.ID
		event.Details["buyer"] = buyerAddr
		event.Details["price"] = t.Price.String()
		if err := s.record(ctx, event); err != nil {
			return err
		}
		transfer = t
		pending = p
		return nil
	}, attribute.Int64("property_id", id))
	if err != nil {
		return nil, err
	}

	s.refresh(ctx, pending)
	s.logAudit(ctx, string(models.ActionTransferInitiated),
		"property_id", models.FormatLabel(id),
		"transfer_id", transfer.ID,
		"caller", seller,
		"buyer", buyerAddr)
	return transfer, nil
}

// ApproveTransfer records registrar approval. The property stays PendingTransfer.
func (s *Service) ApproveTransfer(ctx context.Context, transferID int64) (*models.Transfer, error) {
	actor, err := s.requireRegistrar(ctx)
	if err != nil {
		return nil, err
	}

	var approved *models.Transfer
	err = s.mutate(ctx, "approve_transfer", func(ctx context.Context) error {
		t, err := s.store.LockTransfer(ctx, transferID)
		if err != nil {
			return notFoundOr(err, "transfer")
		}
		if err := t.CanApprove(); err != nil {
			return err
		}
		txHash, err := s.ledger.ApproveTransfer(ctx, t.ChainID)
		if err != nil {
			return ledgerError(err)
		}

		now := requestcontext.Now(ctx)
		t.Status = models.TransferApproved
		t.RegistrarApproved = true
		t.ApprovedBy = actor
		t.TxHash = txHash
		t.UpdatedAt = now
		if err := s.store.UpdateTransfer(ctx, t); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update transfer")
		}

		event := models.NewEvent(t.PropertyID, models.ActionTransferApproved, actor, txHash, now)
		event.TransferID = t.ID
		if err := s.record(ctx, event); err != nil {
			return err
		}
		approved = t
		return nil
	}, attribute.Int64("transfer_id", transferID))
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, string(models.ActionTransferApproved),
		"property_id", models.FormatLabel(approved.PropertyID),
		"transfer_id", approved.ID,
		"caller", actor)
	return approved, nil
}

// CompleteTransfer is called by the buyer with the agreed payment. Owner,
// property status and transfer status change in one transaction.
func (s *Service) CompleteTransfer(ctx context.Context, transferID int64, payment *big.Int) (*models.Transfer, error) {
	buyer, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		payment = new(big.Int)
	}

	var completed *models.Transfer
	var transferred *models.Property
	var seller string
	err = s.mutate(ctx, "complete_transfer", func(ctx context.Context) error {
		t, err := s.store.LockTransfer(ctx, transferID)
		if err != nil {
			return notFoundOr(err, "transfer")
		}
		if !models.SameAddress(t.Buyer, buyer) {
			return dErrors.New(dErrors.CodeForbidden, "only the buyer can complete a transfer")
		}
		if err := t.CanComplete(); err != nil {
			return err
		}
		if payment.Cmp(t.Price) != 0 {
			return dErrors.Newf(dErrors.CodeValidation, "payment %s does not match agreed price %s", payment, t.Price)
		}

		p, err := s.store.LockProperty(ctx, t.PropertyID)
		if err != nil {
			return notFoundOr(err, "property")
		}
		if p.Status != models.StatusPendingTransfer {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "property is %s, expected pending_transfer", p.Status)
		}

		txHash, err := s.ledger.CompleteTransfer(ctx, t.ChainID, payment)
		if err != nil {
			return ledgerError(err)
		}

		now := requestcontext.Now(ctx)
		seller = p.OwnerAddress
		p.OwnerAddress = t.Buyer
		p.OwnerName = ""
		p.Status = models.StatusActive
		p.UpdatedAt = now
		if err := s.store.UpdateProperty(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update property")
		}

		t.Status = models.TransferCompleted
		t.TxHash = txHash
		t.UpdatedAt = now
		t.CompletedAt = &now
		if err := s.store.UpdateTransfer(ctx, t); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update transfer")
		}

		event := models.NewEvent(p.ID, models.ActionTransferred, buyer, txHash, now)
		event.TransferID = t.ID
		event.Details["from"] = seller
		event.Details["to"] = t.Buyer
		event.Details["price"] = t.Price.String()
		if err := s.record(ctx, event); err != nil {
			return err
		}
		completed = t
		transferred = p
		return nil
	}, attribute.Int64("transfer_id", transferID))
	if err != nil {
		return nil, err
	}

	s.refresh(ctx, transferred)
	s.logAudit(ctx, string(models.ActionTransferred),
		"property_id", models.FormatLabel(completed.PropertyID),
		"transfer_id", completed.ID,
		"from", seller,
		"to", completed.Buyer,
		"caller", buyer)
	s.metrics.IncrementTransferCompleted()
	return completed, nil
}

// CancelTransfer may be called by the seller or any registrar while the
// transfer is still open. The property returns to Active.
func (s *Service) CancelTransfer(ctx context.Context, transferID int64) (*models.Transfer, error) {
	actor, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	var cancelled *models.Transfer
	var released *models.Property
	err = s.mutate(ctx, "cancel_transfer", func(ctx context.Context) error {
		t, err := s.store.LockTransfer(ctx, transferID)
		if err != nil {
			return notFoundOr(err, "transfer")
		}
		if !models.SameAddress(t.Seller, actor) {
			registrar, err := s.store.IsRegistrar(ctx, actor)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registrar")
			}
			if !registrar {
				return dErrors.New(dErrors.CodeForbidden, "only the seller or a registrar can cancel a transfer")
			}
		}
		if err := t.CanCancel(); err != nil {
			return err
		}

		p, err := s.store.LockProperty(ctx, t.PropertyID)
		if err != nil {
			return notFoundOr(err, "property")
		}
		txHash, err := s.ledger.CancelTransfer(ctx, t.ChainID)
		if err != nil {
			return ledgerError(err)
		}

		now := requestcontext.Now(ctx)
		t.Status = models.TransferCancelled
		t.TxHash = txHash
		t.UpdatedAt = now
		if err := s.store.UpdateTransfer(ctx, t); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update transfer")
		}
		if p.Status == models.StatusPendingTransfer {
			p.Status = models.StatusActive
			p.UpdatedAt = now
			if err := s.store.UpdateProperty(ctx, p); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update property")
			}
		}

		event := models.NewEvent(p.ID, models.ActionTransferCancelled, actor, txHash, now)
		event.TransferID = t.ID
		if err := s.record(ctx, event); err != nil {
			return err
		}
		cancelled = t
		released = p
		return nil
	}, attribute.Int64("transfer_id", transferID))
	if err != nil {
		return nil, err
	}

	s.refresh(ctx, released)
	s.logAudit(ctx, string(models.ActionTransferCancelled),
		"property_id", models.FormatLabel(cancelled.PropertyID),
		"transfer_id", cancelled.ID,
		"caller", actor)
	return cancelled, nil
}

func (s *Service) GetTransfer(ctx context.Context, transferID int64) (*models.Transfer, error) {
	t, err := s.store.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, notFoundOr(err, "transfer")
	}
	return t, nil
}

// ListTransfers returns every transfer of a property, newest first.
func (s *Service) ListTransfers(ctx context.Context, label string) ([]*models.Transfer, error) {
	p, err := s.propertyByLabel(ctx, label)
	if err != nil {
		return nil, err
	}
	transfers, err := s.store.ListTransfers(ctx, p.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list transfers")
	}
	return transfers, nil
}
