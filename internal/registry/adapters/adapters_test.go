package adapters

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landledger/internal/chain"
	"landledger/internal/outbox"
	"landledger/internal/registry/models"
)

func newSimulatedLedger() *LedgerAdapter {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	backend := chain.NewSimulated(chain.Network{}, chain.WithClock(func() time.Time { return at }))
	return &LedgerAdapter{registry: chain.NewRegistry(backend)}
}

func TestLedgerAdapterReturnsReceiptHashes(t *testing.T) {
	ctx := context.Background()
	ledger := newSimulatedLedger()

	first, err := ledger.RegisterProperty(ctx, &models.Property{
		OwnerAddress: "0xabc0000000000000000000000000000000000001",
		IPFSHash:     "QmHash",
		Location:     "Mumbai",
		Area:         1500,
		PropertyType: "Residential",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.TxHash, "0x"))
	assert.Len(t, first.TxHash, 66)
	assert.Equal(t, int64(1), first.ChainID)

	second, err := ledger.InitiateTransfer(ctx, first.ChainID, "0xbbb0000000000000000000000000000000000002", big.NewInt(10))
	require.NoError(t, err)
	assert.NotEqual(t, first.TxHash, second.TxHash, "per-call nonce keeps hashes distinct")
	assert.Equal(t, int64(1), second.ChainID)

	for name, call := range map[string]func() (string, error){
		"block":            func() (string, error) { return ledger.BlockProperty(ctx, 1, "dispute") },
		"unblock":          func() (string, error) { return ledger.UnblockProperty(ctx, 1) },
		"approve":          func() (string, error) { return ledger.ApproveTransfer(ctx, 1) },
		"complete":         func() (string, error) { return ledger.CompleteTransfer(ctx, 1, big.NewInt(10)) },
		"cancel":           func() (string, error) { return ledger.CancelTransfer(ctx, 1) },
		"add registrar":    func() (string, error) { return ledger.AddRegistrar(ctx, "0x9999000000000000000000000000000000000009") },
		"remove registrar": func() (string, error) { return ledger.RemoveRegistrar(ctx, "0x9999000000000000000000000000000000000009") },
	} {
		t.Run(name, func(t *testing.T) {
			hash, err := call()
			require.NoError(t, err)
			assert.NotEmpty(t, hash)
		})
	}
}

func TestLedgerAdapterNumbersRecordsLikeTheContract(t *testing.T) {
	ctx := context.Background()
	ledger := newSimulatedLedger()
	p := &models.Property{
		OwnerAddress: "0xabc0000000000000000000000000000000000001",
		IPFSHash:     "QmHash",
		Location:     "Pune",
		PropertyType: "Agricultural",
	}

	for want := int64(1); want <= 3; want++ {
		n, err := ledger.RegisterProperty(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, want, n.ChainID)
	}
	n, err := ledger.InitiateTransfer(ctx, 3, "0xbbb0000000000000000000000000000000000002", big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n.ChainID, "transfers are numbered separately")
}

func TestLedgerAdapterPropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newSimulatedLedger().ApproveTransfer(ctx, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestToOutboxEntry(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	event := models.NewEvent(4, models.ActionTransferInitiated, "0xabc0000000000000000000000000000000000001", "0xfeed", at)
	event.TransferID = 7
	event.Details["price"] = "1000"

	entry, err := ToOutboxEntry(event)
	require.NoError(t, err)

	assert.Equal(t, event.ID, entry.ID)
	assert.Equal(t, "property", entry.AggregateType)
	assert.Equal(t, "PROP004", entry.AggregateID)
	assert.Equal(t, "transfer_initiated", entry.EventType)
	assert.Nil(t, entry.PublishedAt)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(entry.Payload, &payload))
	assert.Equal(t, "PROP004", payload["property_id"])
	assert.Equal(t, "7", payload["transfer_id"])
	assert.Equal(t, "0xfeed", payload["transaction_hash"])
	assert.Equal(t, map[string]any{"price": "1000"}, payload["details"])
}

func TestToOutboxEntryOmitsTransferForPropertyEvents(t *testing.T) {
	event := models.NewEvent(3, models.ActionBlocked, "system", "0x01", time.Now())

	entry, err := ToOutboxEntry(event)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(entry.Payload, &payload))
	_, ok := payload["transfer_id"]
	assert.False(t, ok)
}

func TestOutboxAdapterEnqueues(t *testing.T) {
	store := outbox.NewInMemoryStore()
	publisher := NewOutboxAdapter(store)

	require.NoError(t, publisher.Publish(context.Background(), models.NewEvent(1, models.ActionRegistered, "system", "0x01", time.Now())))
	assert.Equal(t, 1, store.Pending())
}
