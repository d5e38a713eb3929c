package service

import (
	"context"
	"errors"

	"landledger/internal/registry/models"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/platform/sentinel"
	"landledger/pkg/requestcontext"
)

// AddRegistrar grants the registrar capability. Callers are authorized by
// the admin token at the transport layer.
func (s *Service) AddRegistrar(ctx context.Context, address string) (*models.Registrar, error) {
	addr, err := models.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}

	r := &models.Registrar{Address: addr, AddedAt: requestcontext.Now(ctx)}
	var txHash string
	err = s.mutate(ctx, "add_registrar", func(ctx context.Context) error {
		exists, err := s.store.IsRegistrar(ctx, addr)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registrar")
		}
		if exists {
			return dErrors.New(dErrors.CodeConflict, "address is already a registrar")
		}
		txHash, err = s.ledger.AddRegistrar(ctx, addr)
		if err != nil {
			return ledgerError(err)
		}
		if err := s.store.AddRegistrar(ctx, r); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "address is already a registrar")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save registrar")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, "registrar_added", "registrar", addr, "tx_hash", txHash)
	return r, nil
}

func (s *Service) RemoveRegistrar(ctx context.Context, address string) error {
	addr, err := models.NormalizeAddress(address)
	if err != nil {
		return err
	}

	var txHash string
	err = s.mutate(ctx, "remove_registrar", func(ctx context.Context) error {
		exists, err := s.store.IsRegistrar(ctx, addr)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registrar")
		}
		if !exists {
			return dErrors.New(dErrors.CodeNotFound, "registrar not found")
		}
		txHash, err = s.ledger.RemoveRegistrar(ctx, addr)
		if err != nil {
			return ledgerError(err)
		}
		if err := s.store.RemoveRegistrar(ctx, addr); err != nil {
			return notFoundOr(err, "registrar")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logAudit(ctx, "registrar_removed", "registrar", addr, "tx_hash", txHash)
	return nil
}

// EnsureRegistrars adds the configured bootstrap registrars that are missing.
// Bootstrap entries are not notarized; the contract deployer owns them on chain.
func (s *Service) EnsureRegistrars(ctx context.Context, addresses []string) error {
	for _, raw := range addresses {
		addr, err := models.NormalizeAddress(raw)
		if err != nil {
			return err
		}
		err = s.store.AddRegistrar(ctx, &models.Registrar{Address: addr, AddedAt: requestcontext.Now(ctx)})
		if err != nil && !errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to bootstrap registrar")
		}
		if err == nil && s.logger != nil {
			s.logger.InfoContext(ctx, "bootstrap registrar added", "registrar", addr)
		}
	}
	return nil
}

func (s *Service) IsRegistrar(ctx context.Context, address string) (bool, error) {
	addr, err := models.NormalizeAddress(address)
	if err != nil {
		return false, err
	}
	ok, err := s.store.IsRegistrar(ctx, addr)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check registrar")
	}
	return ok, nil
}

func (s *Service) ListRegistrars(ctx context.Context) ([]*models.Registrar, error) {
	list, err := s.store.ListRegistrars(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrars")
	}
	return list, nil
}
