package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "landledger/pkg/domain-errors"
	txcontext "landledger/pkg/platform/tx"
)

const defaultRegistryTxTimeout = 5 * time.Second

// registryPostgresTx runs registry mutations in one database transaction.
// Store and outbox calls made with the ctx handed to fn join it.
type registryPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newRegistryPostgresTx(db *sql.DB, timeout time.Duration) *registryPostgresTx {
	return &registryPostgresTx{db: db, timeout: timeout}
}

func (t *registryPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultRegistryTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return txcontext.Run(ctx, t.db, fn)
}
