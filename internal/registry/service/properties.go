package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"landledger/internal/registry/models"
	"landledger/internal/registry/store"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/requestcontext"
)

// RegisterProperty creates an Active property owned by in.OwnerAddress.
// Identical inputs registered twice produce two properties.
func (s *Service) RegisterProperty(ctx context.Context, in models.RegistrationInput) (*models.Property, error) {
	actor, err := s.requireRegistrar(ctx)
	if err != nil {
		return nil, err
	}
	return s.register(ctx, actor, in)
}

func (s *Service) register(ctx context.Context, actor string, in models.RegistrationInput) (*models.Property, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	p := &models.Property{
		OwnerAddress: in.OwnerAddress,
		OwnerName:    strings.TrimSpace(in.OwnerName),
		IPFSHash:     in.IPFSHash,
		Location:     in.Location,
		Area:         in.Area,
		PropertyType: in.PropertyType,
		SurveyNumber: strings.TrimSpace(in.SurveyNumber),
		Description:  strings.TrimSpace(in.Description),
		Status:       models.StatusActive,
		RegisteredAt: now,
		UpdatedAt:    now,
	}

	err := s.mutate(ctx, "register_property", func(ctx context.Context) error {
		notarized, err := s.ledger.RegisterProperty(ctx, p)
		if err != nil {
			return ledgerError(err)
		}
		p.TxHash = notarized.TxHash
		p.ChainID = notarized.ChainID
		if err := s.store.CreateProperty(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save property")
		}
		event := models.NewEvent(p.ID, models.ActionRegistered, actor, p.TxHash, now)
		event.Details["owner"] = p.OwnerAddress
		event.Details["location"] = p.Location
		event.Details["ipfs_hash"] = p.IPFSHash
		return s.record(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.refresh(ctx, p)
	s.logAudit(ctx, string(models.ActionRegistered),
		"property_id", p.Label(),
		"owner", p.OwnerAddress,
		"caller", actor,
		"tx_hash", p.TxHash)
	s.metrics.IncrementPropertyRegistered()
	return p, nil
}

// GetProperty returns the property for a label such as PROP004.
func (s *Service) GetProperty(ctx context.Context, label string) (*models.Property, error) {
	return s.propertyByLabel(ctx, label)
}

func (s *Service) ListByOwner(ctx context.Context, owner string) ([]*models.Property, error) {
	addr, err := models.NormalizeAddress(owner)
	if err != nil {
		return nil, err
	}
	props, err := s.store.ListPropertiesByOwner(ctx, addr)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list properties")
	}
	return props, nil
}

// ListByStatus lists properties in the given status, newest first. The
// dispute list is ListByStatus("blocked").
func (s *Service) ListByStatus(ctx context.Context, status string) ([]*models.Property, error) {
	st, err := models.ParsePropertyStatus(status)
	if err != nil {
		return nil, err
	}
	props, err := s.store.ListPropertiesByStatus(ctx, []models.PropertyStatus{st})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list properties")
	}
	return props, nil
}

// UpdateStatus is the registrar's administrative override. The ledger is
// only involved when the property moves into or out of Blocked.
func (s *Service) UpdateStatus(ctx context.Context, label, status string) (*models.Property, error) {
	actor, err := s.requireRegistrar(ctx)
	if err != nil {
		return nil, err
	}
	id, err := models.ParseLabel(label)
	if err != nil {
		return nil, err
	}
	to, err := models.ParsePropertyStatus(status)
	if err != nil {
		return nil, err
	}

	var updated *models.Property
	var from models.PropertyStatus
	err = s.mutate(ctx, "update_status", func(ctx context.Context) error {
		p, err := s.store.LockProperty(ctx, id)
		if err != nil {
			return notFoundOr(err, "property")
		}
		from = p.Status
		if from == to {
			updated = p
			return nil
		}
		if from == models.StatusPendingTransfer {
			if err := s.ensureNoOpenTransfer(ctx, id); err != nil {
				return err
			}
		}

		var txHash string
		switch {
		case to == models.StatusBlocked:
			txHash, err = s.ledger.BlockProperty(ctx, p.ChainID, "administrative status update")
		case from == models.StatusBlocked:
			txHash, err = s.ledger.UnblockProperty(ctx, p.ChainID)
		}
		if err != nil {
			return ledgerError(err)
		}

		now := requestcontext.Now(ctx)
		p.Status = to
		p.UpdatedAt = now
		if to == models.StatusBlocked {
			p.BlockReason = "administrative status update"
		} else {
			p.BlockReason = ""
		}
		if err := s.store.UpdateProperty(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update property")
		}

		event := models.NewEvent(id, models.ActionStatusChanged, actor, txHash, now)
		event.Details["from"] = from.String()
		event.Details["to"] = to.String()
		if err := s.record(ctx, event); err != nil {
			return err
		}
		updated = p
		return nil
	}, attribute.Int64("property_id", id))
	if err != nil {
		return nil, err
	}

	if from != to {
		s.refresh(ctx, updated)
		s.logAudit(ctx, string(models.ActionStatusChanged),
			"property_id", updated.Label(),
			"from", from.String(),
			"to", to.String(),
			"caller", actor)
	}
	return updated, nil
}

func (s *Service) ensureNoOpenTransfer(ctx context.Context, propertyID int64) error {
	open, err := s.store.OpenTransfer(ctx, propertyID)
	if err == nil {
		return dErrors.Newf(dErrors.CodeConflict,
			"property has open transfer %d; approve, complete or cancel it first", open.ID)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check open transfers")
}

// BlockProperty flags a property as disputed. Only Active properties can be
// blocked, so a pending transfer must be resolved first.
func (s *Service) BlockProperty(ctx context.Context, label, reason string) (*models.Property, error) {
	actor, err := s.requireRegistrar(ctx)
	if err != nil {
		return nil, err
	}
	id, err := models.ParseLabel(label)
	if err != nil {
		return nil, err
	}
	return s.block(ctx, actor, id, reason)
}

func (s *Service) block(ctx context.Context, actor string, id int64, reason string) (*models.Property, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "reason is required to block a property")
	}

	var blocked *models.Property
	err := s.mutate(ctx, "block_property", func(ctx context.Context) error {
		p, err := s.store.LockProperty(ctx, id)
		if err != nil {
			return notFoundOr(err, "property")
		}
		if err := p.CanBlock(); err != nil {
			return err
		}
		txHash, err := s.ledger.BlockProperty(ctx, p.ChainID, reason)
		if err != nil {
			return ledgerError(err)
		}

		now := requestcontext.Now(ctx)
		p.Status = models.StatusBlocked
		p.BlockReason = reason
		p.UpdatedAt = now
		if err := s.store.UpdateProperty(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update property")
		}
		event := models.NewEvent(id, models.ActionBlocked, actor, txHash, now)
		event.Details["reason"] = reason
		if err := s.record(ctx, event); err != nil {
			return err
		}
		blocked = p
		return nil
	}, attribute.Int64("property_id", id))
	if err != nil {
		return nil, err
	}

	s.refresh(ctx, blocked)
	s.logAudit(ctx, string(models.ActionBlocked),
		"property_id", blocked.Label(),
		"reason", reason,
		"caller", actor)
	return blocked, nil
}

func (s *Service) UnblockProperty(ctx context.Context, label string) (*models.Property, error) {
	actor, err := s.requireRegistrar(ctx)
	if err != nil {
		return nil, err
	}
	id, err := models.ParseLabel(label)
	if err != nil {
		return nil, err
	}

	var unblocked *models.Property
	err = s.mutate(ctx, "unblock_property", func(ctx context.Context) error {
		p, err := s.store.LockProperty(ctx, id)
		if err != nil {
			return notFoundOr(err, "property")
		}
		if err := p.CanUnblock(); err != nil {
			return err
		}
		txHash, err := s.ledger.UnblockProperty(ctx, p.ChainID)
		if err != nil {
			return ledgerError(err)
		}

		now := requestcontext.Now(ctx)
		previousReason := p.BlockReason
		p.Status = models.StatusActive
		p.BlockReason = ""
		p.UpdatedAt = now
		if err := s.store.UpdateProperty(ctx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update property")
		}
		event := models.NewEvent(id, models.ActionUnblocked, actor, txHash, now)
		if previousReason != "" {
			event.Details["previous_reason"] = previousReason
		}
		if err := s.record(ctx, event); err != nil {
			return err
		}
		unblocked = p
		return nil
	}, attribute.Int64("property_id", id))
	if err != nil {
		return nil, err
	}

	s.refresh(ctx, unblocked)
	s.logAudit(ctx, string(models.ActionUnblocked),
		"property_id", unblocked.Label(),
		"caller", actor)
	return unblocked, nil
}

// History returns the property's events, newest first.
func (s *Service) History(ctx context.Context, label string) ([]*models.Event, error) {
	p, err := s.propertyByLabel(ctx, label)
	if err != nil {
		return nil, err
	}
	events, err := s.store.ListEvents(ctx, p.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load history")
	}
	return events, nil
}

// Verification is the outcome of comparing a document fingerprint with the
// one on record.
type Verification struct {
	Match    bool
	Property *models.Property
}

func (s *Service) VerifyDocument(ctx context.Context, label, fingerprint string) (*Verification, error) {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "ipfs_hash is required")
	}
	p, err := s.propertyByLabel(ctx, label)
	if err != nil {
		return nil, err
	}
	return &Verification{Match: p.IPFSHash == fingerprint, Property: p}, nil
}
