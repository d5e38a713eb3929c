package chain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"regexp"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hashPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

func fixedClock() time.Time {
	return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
}

func TestSimulatedTransact(t *testing.T) {
	sim := NewSimulated(NewNetwork(0, "", "", ""), WithClock(fixedClock))
	ctx := context.Background()

	first, err := sim.Transact(ctx, Tx{Method: "blockDisputedProperty", Args: []any{big.NewInt(3), "dispute"}})
	require.NoError(t, err)
	assert.Regexp(t, hashPattern, first.TxHash)
	assert.Equal(t, uint64(SimulatedBlockNumber), first.BlockNumber)
	assert.Equal(t, uint64(1), first.Status)
	assert.True(t, first.Simulated)

	second, err := sim.Transact(ctx, Tx{Method: "blockDisputedProperty", Args: []any{big.NewInt(3), "dispute"}})
	require.NoError(t, err)
	assert.NotEqual(t, first.TxHash, second.TxHash, "identical calls get distinct hashes")
}

func TestSimulatedHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSimulated(Network{}).Transact(ctx, Tx{Method: "unblockProperty"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulatedReadsUnsupported(t *testing.T) {
	_, err := NewSimulated(Network{}).Call(context.Background(), "getTotalProperties")
	assert.ErrorIs(t, err, ErrReadUnsupported)
}

func TestSimulateRegistration(t *testing.T) {
	fields := RegistrationFields{
		PropertyID:   "PROP004",
		IPFSHash:     "QmHash",
		Location:     "Pune",
		OwnerAddress: "0xabc",
	}
	at := fixedClock()

	h1 := SimulateRegistration(fields, at)
	assert.Regexp(t, hashPattern, h1)
	assert.Equal(t, h1, SimulateRegistration(fields, at))
	assert.NotEqual(t, h1, SimulateRegistration(fields, at.Add(time.Millisecond)))

	fields.Location = "Mumbai"
	assert.NotEqual(t, h1, SimulateRegistration(fields, at))
}

func TestKeccak256Hex(t *testing.T) {
	// keccak256("") is a well known constant.
	assert.Equal(t, "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", Keccak256Hex(nil))
}

func TestRegistryABI(t *testing.T) {
	parsed, err := RegistryABI()
	require.NoError(t, err)

	for _, name := range []string{
		"registerProperty", "blockDisputedProperty", "unblockProperty", "approveTransfer",
		"initiateTransfer", "cancelTransfer", "completeTransfer", "addRegistrar", "removeRegistrar",
		"getPropertyDetails", "getTransferDetails", "getPropertiesByOwner", "isRegistrar",
		"getTotalProperties", "getTotalTransfers",
	} {
		_, ok := parsed.Methods[name]
		assert.True(t, ok, name)
	}
	assert.True(t, parsed.Methods["completeTransfer"].IsPayable())
	assert.True(t, parsed.Methods["getPropertyDetails"].IsConstant())
	_, ok := parsed.Events["PropertyBlocked"]
	assert.True(t, ok)
}

func TestNetwork(t *testing.T) {
	n := NewNetwork(0, "", "https://rpc.example", "")
	assert.Equal(t, int64(SepoliaChainID), n.ChainID)
	assert.Equal(t, SepoliaName, n.Name)
	assert.True(t, n.Configured())
	assert.Equal(t, "https://sepolia.etherscan.io/tx/0xabc", n.TxURL("0xabc"))
	assert.Empty(t, n.TxURL(""))
	assert.False(t, NewNetwork(1, "x", "", "y").Configured())
}

type recordingBackend struct {
	txs     []Tx
	err     error
	callOut []any
	logs    []*types.Log
}

func (b *recordingBackend) Transact(_ context.Context, tx Tx) (*Receipt, error) {
	b.txs = append(b.txs, tx)
	if b.err != nil {
		return nil, b.err
	}
	return &Receipt{TxHash: "0x01", BlockNumber: 7, Status: 1, Logs: b.logs}, nil
}

func (b *recordingBackend) Call(context.Context, string, ...any) ([]any, error) {
	return b.callOut, b.err
}

func (b *recordingBackend) Network() Network { return Network{} }
func (b *recordingBackend) Kind() string     { return "recording" }
func (b *recordingBackend) Signer() string   { return "0x00000000000000000000000000000000000000aa" }

func newTestRegistry(b Backend, m *Metrics) *Registry {
	return NewRegistry(b, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), WithMetrics(m))
}

var (
	contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	ownerAddr    = common.HexToAddress("0x742d35cc6634c0532925a3b844bc454e4438f44e")
	buyerAddr    = common.HexToAddress("0x1f9090aaE28b8a3dCeaDf281B0F12828e676c326")
)

func registeredLog(t *testing.T, id int64) *types.Log {
	t.Helper()
	l, err := EventLog(contractAddr, EventPropertyRegistered, big.NewInt(id), ownerAddr, "QmHash", "Pune", big.NewInt(1700000000))
	require.NoError(t, err)
	return l
}

func TestRegistryEncodesArguments(t *testing.T) {
	b := &recordingBackend{}
	b.logs = []*types.Log{registeredLog(t, 1)}
	r := newTestRegistry(b, nil)
	ctx := context.Background()

	_, err := r.RegisterProperty(ctx, "0x742d35cc6634c0532925a3b844bc454e4438f44e", "QmHash", "Pune", 1499.6, "Residential")
	require.NoError(t, err)
	_, err = r.CompleteTransfer(ctx, 9, big.NewInt(500))
	require.NoError(t, err)

	require.Len(t, b.txs, 2)
	reg := b.txs[0]
	assert.Equal(t, "registerProperty", reg.Method)
	assert.Equal(t, common.HexToAddress("0x742d35cc6634c0532925a3b844bc454e4438f44e"), reg.Args[0])
	assert.Equal(t, 0, big.NewInt(1500).Cmp(reg.Args[3].(*big.Int)))

	complete := b.txs[1]
	assert.Equal(t, "completeTransfer", complete.Method)
	assert.Equal(t, 0, big.NewInt(500).Cmp(complete.Value))
}

func TestRegistryRecordsFailures(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	r := newTestRegistry(&recordingBackend{err: errors.New("rpc down")}, m)

	_, err := r.ApproveTransfer(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Transactions.WithLabelValues("approveTransfer", "recording", "error")))
}

func TestRegistryDecodesPropertyDetails(t *testing.T) {
	owner := common.HexToAddress("0x1f9090aaE28b8a3dCeaDf281B0F12828e676c326")
	b := &recordingBackend{callOut: []any{
		big.NewInt(3), owner, "QmDemo", "Nashik", big.NewInt(5000), "Agricultural", big.NewInt(1700000000), uint8(2),
	}}

	d, err := newTestRegistry(b, nil).GetPropertyDetails(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), d.PropertyID)
	assert.Equal(t, owner.Hex(), d.Owner)
	assert.Equal(t, "5000", d.Area)
	assert.Equal(t, uint8(2), d.Status)
	assert.Equal(t, int64(1700000000), d.RegistrationDate.Unix())
}

func TestRegistryRejectsMalformedOutputs(t *testing.T) {
	b := &recordingBackend{callOut: []any{"not", "enough"}}
	_, err := newTestRegistry(b, nil).GetPropertyDetails(context.Background(), 1)
	assert.Error(t, err)

	b.callOut = []any{true}
	_, err = newTestRegistry(b, nil).GetTotalProperties(context.Background())
	assert.Error(t, err)
}

func TestRegistryDecodesTransferDetails(t *testing.T) {
	seller := common.HexToAddress("0x1f9090aaE28b8a3dCeaDf281B0F12828e676c326")
	buyer := common.HexToAddress("0x742d35Cc6634C0532925a3b844Bc454e4438f44e")
	price, _ := new(big.Int).SetString("2500000000000000000", 10)
	b := &recordingBackend{callOut: []any{
		big.NewInt(4), seller, buyer, price, big.NewInt(1700000300), uint8(2), true,
	}}
	r := newTestRegistry(b, nil)

	d, err := r.GetTransferDetails(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, int64(4), d.PropertyID)
	assert.Equal(t, seller.Hex(), d.Seller)
	assert.Equal(t, buyer.Hex(), d.Buyer)
	assert.Equal(t, "2500000000000000000", d.Price)
	assert.Equal(t, int64(1700000300), d.InitiatedAt.Unix())
	assert.True(t, d.RegistrarApproved)

	b.callOut = []any{big.NewInt(12)}
	total, err := r.GetTotalTransfers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
}

func TestRegistryReadsAssignedIDsFromEvents(t *testing.T) {
	ctx := context.Background()

	// The contract's numbering need not match the store's.
	b := &recordingBackend{logs: []*types.Log{registeredLog(t, 41)}}
	r := newTestRegistry(b, nil)
	receipt, err := r.RegisterProperty(ctx, ownerAddr.Hex(), "QmHash", "Pune", 10, "Residential")
	require.NoError(t, err)
	assert.Equal(t, int64(41), receipt.AssignedID)

	initiated, err := EventLog(contractAddr, EventTransferInitiated, big.NewInt(17), big.NewInt(41), ownerAddr, buyerAddr, big.NewInt(5))
	require.NoError(t, err)
	// An unrelated event ahead of the one we want is skipped.
	b.logs = []*types.Log{registeredLog(t, 99), initiated}
	receipt, err = r.InitiateTransfer(ctx, 41, buyerAddr.Hex(), big.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, int64(17), receipt.AssignedID)
	assert.Equal(t, 0, big.NewInt(41).Cmp(b.txs[1].Args[0].(*big.Int)))
}

func TestRegistryFailsWithoutAssignedID(t *testing.T) {
	r := newTestRegistry(&recordingBackend{}, nil)
	_, err := r.RegisterProperty(context.Background(), ownerAddr.Hex(), "QmHash", "Pune", 10, "Residential")
	assert.ErrorIs(t, err, ErrEventMissing)

	_, err = r.InitiateTransfer(context.Background(), 1, buyerAddr.Hex(), big.NewInt(5))
	assert.ErrorIs(t, err, ErrEventMissing)
}

func TestEmittedIDRejectsOutOfRangeIDs(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 70)
	l, err := EventLog(contractAddr, EventPropertyRegistered, huge, ownerAddr, "QmHash", "Pune", big.NewInt(0))
	require.NoError(t, err)

	_, err = EmittedID([]*types.Log{l}, EventPropertyRegistered, "propertyId")
	assert.ErrorContains(t, err, "out of range")
}

func TestSimulatedAssignsSequentialIDs(t *testing.T) {
	sim := NewSimulated(Network{}, WithClock(fixedClock))
	r := newTestRegistry(sim, nil)
	ctx := context.Background()

	for want := int64(1); want <= 2; want++ {
		receipt, err := r.RegisterProperty(ctx, ownerAddr.Hex(), "QmHash", "Pune", 10, "Residential")
		require.NoError(t, err)
		assert.Equal(t, want, receipt.AssignedID)
	}
	receipt, err := r.InitiateTransfer(ctx, 2, buyerAddr.Hex(), big.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, int64(1), receipt.AssignedID)

	receipt, err = sim.Transact(ctx, Tx{Method: "approveTransfer", Args: []any{big.NewInt(1)}})
	require.NoError(t, err)
	assert.Empty(t, receipt.Logs)
	assert.Empty(t, sim.Signer())
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", newTestRegistry(&recordingBackend{}, nil).Signer())
}
