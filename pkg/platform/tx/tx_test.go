package tx

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithTxNilLeavesContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithTx(ctx, nil))

	_, ok := From(ctx)
	assert.False(t, ok)
}

func TestExecutorFromFallsBackToDB(t *testing.T) {
	db := &sql.DB{}
	assert.Same(t, db, ExecutorFrom(context.Background(), db))

	tx := &sql.Tx{}
	ctx := WithTx(context.Background(), tx)
	assert.Same(t, tx, ExecutorFrom(ctx, db))
}

func TestRunReusesEnclosingTx(t *testing.T) {
	outer := &sql.Tx{}
	ctx := WithTx(context.Background(), outer)

	var seen *sql.Tx
	err := Run(ctx, nil, func(ctx context.Context) error {
		seen, _ = From(ctx)
		return nil
	})
	assert.NoError(t, err)
	assert.Same(t, outer, seen)
}
