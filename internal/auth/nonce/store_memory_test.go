package nonce

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landledger/pkg/platform/sentinel"
)

const addr = "0xabc0000000000000000000000000000000000001"

func TestInMemoryStoreConsumeOnce(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	require.NoError(t, s.Put(ctx, addr, "n1", time.Minute))
	got, err := s.Consume(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, "n1", got)

	_, err = s.Consume(ctx, addr)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStoreLatestNonceWins(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	require.NoError(t, s.Put(ctx, addr, "n1", time.Minute))
	require.NoError(t, s.Put(ctx, addr, "n2", time.Minute))
	got, err := s.Consume(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, "n2", got)
}

func TestInMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewInMemoryStore()
	s.now = func() time.Time { return now }

	require.NoError(t, s.Put(ctx, addr, "n1", 5*time.Minute))
	now = now.Add(5 * time.Minute)

	_, err := s.Consume(ctx, addr)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPutRejectsNonPositiveTTL(t *testing.T) {
	err := NewInMemoryStore().Put(context.Background(), addr, "n1", 0)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
}
