package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landledger/internal/chain"
	"landledger/internal/registry/models"
	dErrors "landledger/pkg/domain-errors"
	"landledger/pkg/testutil"
)

type stubReader struct {
	network    chain.Network
	backend    string
	details    *chain.PropertyDetails
	transfer   *chain.TransferDetails
	registrars map[string]bool
	totals     [2]int64
	err        error

	// contract ids the reader was asked for
	asked []int64
}

func (s *stubReader) Network() chain.Network { return s.network }
func (s *stubReader) Backend() string        { return s.backend }
func (s *stubReader) Signer() string {
	if s.backend == "ethereum" {
		return "0x00000000000000000000000000000000000000aa"
	}
	return ""
}

func (s *stubReader) GetPropertyDetails(_ context.Context, id int64) (*chain.PropertyDetails, error) {
	s.asked = append(s.asked, id)
	return s.details, s.err
}

func (s *stubReader) GetTransferDetails(_ context.Context, id int64) (*chain.TransferDetails, error) {
	s.asked = append(s.asked, id)
	return s.transfer, s.err
}

func (s *stubReader) IsRegistrar(_ context.Context, address string) (bool, error) {
	return s.registrars[address], s.err
}

func (s *stubReader) GetTotalProperties(context.Context) (int64, error) { return s.totals[0], s.err }
func (s *stubReader) GetTotalTransfers(context.Context) (int64, error)  { return s.totals[1], s.err }

type stubLookup struct {
	properties map[int64]*models.Property
	transfers  map[int64]*models.Transfer
}

func (s stubLookup) GetProperty(_ context.Context, label string) (*models.Property, error) {
	id, err := models.ParseLabel(label)
	if err != nil {
		return nil, err
	}
	if p, ok := s.properties[id]; ok {
		return p, nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "property not found")
}

func (s stubLookup) GetTransfer(_ context.Context, id int64) (*models.Transfer, error) {
	if t, ok := s.transfers[id]; ok {
		return t, nil
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "transfer not found")
}

// onChain is a registry property whose contract id differs from its label.
var onChain = stubLookup{
	properties: map[int64]*models.Property{1: {ID: 1, ChainID: 7, OwnerAddress: "0x742d35cc6634c0532925a3b844bc454e4438f44e"}},
	transfers:  map[int64]*models.Transfer{2: {ID: 2, PropertyID: 1, ChainID: 5}},
}

func newChainRouter(reader Reader, lookup PropertyLookup) http.Handler {
	r := chi.NewRouter()
	New(reader, lookup, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func TestNetworkNotConfigured(t *testing.T) {
	router := newChainRouter(&stubReader{network: chain.NewNetwork(0, "", "", "")}, stubLookup{})

	for _, path := range []string{"/chain/network", "/chain/rpc-url"} {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, path))
		testutil.AssertErrorDescription(t, rr, http.StatusServiceUnavailable, "not_configured", "Alchemy API key not configured")
	}
}

func TestNetworkInfo(t *testing.T) {
	network := chain.NewNetwork(0, "", "https://eth-sepolia.g.alchemy.com/v2/key", "")
	router := newChainRouter(&stubReader{network: network}, stubLookup{})

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/chain/network"))
	testutil.AssertStatusOK(t, rr)
	got := testutil.UnmarshalResponse[chain.Network](t, rr)
	assert.Equal(t, int64(chain.SepoliaChainID), got.ChainID)
	assert.Equal(t, "Sepolia Testnet", got.Name)
	assert.Equal(t, "https://sepolia.etherscan.io", got.ExplorerURL)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/chain/rpc-url"))
	testutil.AssertJSONContains(t, rr, "rpcUrl", network.RPCURL)
}

func TestGetPropertyFromChain(t *testing.T) {
	registered := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	reader := &stubReader{details: &chain.PropertyDetails{
		PropertyID:       1,
		Owner:            "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
		IPFSHash:         "QmChain",
		Location:         "Mumbai",
		RegistrationDate: registered,
	}}
	router := newChainRouter(reader, onChain)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/chain/properties/PROP001"))
	testutil.AssertStatusOK(t, rr)
	got := testutil.UnmarshalResponse[OnChainProperty](t, rr)
	assert.True(t, got.Exists)
	assert.Equal(t, "QmChain", got.IPFSHash)
	assert.Equal(t, registered.Unix(), got.Timestamp)
	assert.Equal(t, []int64{7}, reader.asked, "the contract is read by its own id")
}

func TestGetPropertyFallsBackToRegistry(t *testing.T) {
	lookup := stubLookup{properties: map[int64]*models.Property{2: {
		ID:           2,
		ChainID:      2,
		OwnerAddress: "0x8ba1f109551bd432803012645ac136ddd64dba72",
		IPFSHash:     "QmStore",
		Location:     "Pune",
		RegisteredAt: time.Unix(1700000000, 0),
	}}}
	router := newChainRouter(&stubReader{err: chain.ErrReadUnsupported}, lookup)

	t.Run("known", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/chain/properties/prop2"))
		testutil.AssertStatusOK(t, rr)
		got := testutil.UnmarshalResponse[OnChainProperty](t, rr)
		assert.True(t, got.Exists)
		assert.Equal(t, "0x8ba1f109551bD432803012645Ac136ddd64DBA72", got.Owner)
		assert.Equal(t, int64(1700000000), got.Timestamp)
	})

	t.Run("unknown", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/chain/properties/PROP404"))
		testutil.AssertStatusOK(t, rr)
		got := testutil.UnmarshalResponse[OnChainProperty](t, rr)
		assert.False(t, got.Exists)
		assert.Equal(t, "0x0000000000000000000000000000000000000000", got.Owner)
		assert.Empty(t, got.IPFSHash)
	})

	t.Run("malformed id", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/chain/properties/house"))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})
}

func TestGetPropertyChainFailure(t *testing.T) {
	router := newChainRouter(&stubReader{err: errors.New("rpc down")}, onChain)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/chain/properties/PROP001"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadGateway, "upstream_error")
}

func TestSimulateRegister(t *testing.T) {
	router := newChainRouter(&stubReader{}, stubLookup{})
	body := map[string]string{
		"propertyId":   "prop010",
		"ipfsHash":     "QmSim",
		"location":     "Nagpur",
		"ownerAddress": "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
	}

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/chain/simulate-register", body))
	testutil.AssertStatusOK(t, rr)
	got := testutil.UnmarshalResponse[SimulateRegisterResponse](t, rr)
	require.True(t, got.Success)
	assert.True(t, strings.HasPrefix(got.TransactionHash, "0x"))
	assert.Len(t, got.TransactionHash, 66)

	delete(body, "propertyId")
	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/chain/simulate-register", body))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
}

func TestGetTransferFromChain(t *testing.T) {
	reader := &stubReader{transfer: &chain.TransferDetails{PropertyID: 7, Price: "1000", Status: 1}}
	router := newChainRouter(reader, onChain)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/chain/transfers/2"))
	testutil.AssertStatusOK(t, rr)
	got := testutil.UnmarshalResponse[chain.TransferDetails](t, rr)
	assert.Equal(t, int64(7), got.PropertyID)
	assert.Equal(t, "1000", got.Price)
	assert.Equal(t, []int64{5}, reader.asked)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/chain/transfers/9"))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/chain/transfers/-1"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
}

func TestChainReadsOnSimulatedBackend(t *testing.T) {
	router := newChainRouter(&stubReader{backend: "simulated", err: chain.ErrReadUnsupported}, onChain)

	for _, path := range []string{"/chain/transfers/2", "/chain/registrars/0x742d35cc6634c0532925a3b844bc454e4438f44e"} {
		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, path))
		testutil.AssertErrorDescription(t, rr, http.StatusServiceUnavailable, "not_configured", "contract reads need a live chain backend")
	}

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/chain/stats"))
	testutil.AssertStatusOK(t, rr)
	got := testutil.UnmarshalResponse[ChainStats](t, rr)
	assert.Equal(t, "simulated", got.Backend)
	assert.Empty(t, got.Signer)
	assert.Nil(t, got.TotalProperties)
	assert.Nil(t, got.TotalTransfers)
}

func TestIsRegistrarOnChain(t *testing.T) {
	reader := &stubReader{registrars: map[string]bool{"0x742d35cc6634c0532925a3b844bc454e4438f44e": true}}
	router := newChainRouter(reader, onChain)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/chain/registrars/0x742d35Cc6634C0532925a3b844Bc454e4438f44e"))
	testutil.AssertStatusOK(t, rr)
	got := testutil.UnmarshalResponse[OnChainRegistrar](t, rr)
	assert.True(t, got.IsRegistrar)
	assert.Equal(t, "0x742d35cc6634c0532925a3b844bc454e4438f44e", got.Address)

	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/chain/registrars/nobody"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
}

func TestChainStats(t *testing.T) {
	reader := &stubReader{backend: "ethereum", network: chain.NewNetwork(0, "", "https://rpc.example", ""), totals: [2]int64{12, 4}}
	router := newChainRouter(reader, onChain)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/chain/stats"))
	testutil.AssertStatusOK(t, rr)
	got := testutil.UnmarshalResponse[ChainStats](t, rr)
	assert.Equal(t, "ethereum", got.Backend)
	assert.Equal(t, "0x00000000000000000000000000000000000000aa", got.Signer)
	assert.Equal(t, chain.SepoliaName, got.Network)
	require.NotNil(t, got.TotalProperties)
	assert.Equal(t, int64(12), *got.TotalProperties)
	require.NotNil(t, got.TotalTransfers)
	assert.Equal(t, int64(4), *got.TotalTransfers)
}

func TestTxLink(t *testing.T) {
	hash := "0x" + strings.Repeat("AB", 32)
	network := chain.NewNetwork(0, "", "https://rpc.example", "")

	rr := testutil.DoRequest(newChainRouter(&stubReader{backend: "ethereum", network: network}, onChain),
		testutil.NewRequest(t, http.MethodGet, "/chain/tx/"+hash))
	testutil.AssertStatusOK(t, rr)
	got := testutil.UnmarshalResponse[TxLink](t, rr)
	assert.Equal(t, strings.ToLower(hash), got.TransactionHash)
	assert.Equal(t, "https://sepolia.etherscan.io/tx/"+strings.ToLower(hash), got.ExplorerURL)
	assert.False(t, got.Simulated)

	rr = testutil.DoRequest(newChainRouter(&stubReader{backend: "simulated", network: network}, onChain),
		testutil.NewRequest(t, http.MethodGet, "/chain/tx/"+hash))
	got = testutil.UnmarshalResponse[TxLink](t, rr)
	assert.True(t, got.Simulated)
	assert.Empty(t, got.ExplorerURL)

	rr = testutil.DoRequest(newChainRouter(&stubReader{}, onChain), testutil.NewRequest(t, http.MethodGet, "/chain/tx/0x1234"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
}
