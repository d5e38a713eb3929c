package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Registry is a typed facade over the PropertyRegistry contract.
type Registry struct {
	backend Backend
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

type Option func(*Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

func NewRegistry(backend Backend, opts ...Option) *Registry {
	r := &Registry{
		backend: backend,
		logger:  slog.Default(),
		tracer:  otel.Tracer("landledger/chain"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Network() Network {
	return r.backend.Network()
}

func (r *Registry) Backend() string {
	return r.backend.Kind()
}

// Signer is the address every registry transaction is sent from. The
// contract sees it as msg.sender, so it must hold the registrar role.
func (r *Registry) Signer() string {
	return r.backend.Signer()
}

func (r *Registry) transact(ctx context.Context, tx Tx) (*Receipt, error) {
	ctx, span := r.tracer.Start(ctx, "chain."+tx.Method, trace.WithAttributes(
		attribute.String("chain.backend", r.backend.Kind()),
	))
	defer span.End()

	start := time.Now()
	receipt, err := r.backend.Transact(ctx, tx)
	r.metrics.observe(tx.Method, r.backend.Kind(), err, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
		r.logger.ErrorContext(ctx, "chain transaction failed",
			"method", tx.Method,
			"backend", r.backend.Kind(),
			"error", err,
		)
		return nil, err
	}

	span.SetAttributes(attribute.String("chain.tx_hash", receipt.TxHash))
	r.logger.InfoContext(ctx, "chain transaction included",
		"method", tx.Method,
		"backend", r.backend.Kind(),
		"tx_hash", receipt.TxHash,
		"block_number", receipt.BlockNumber,
	)
	return receipt, nil
}

// areaUnits converts the stored area to the contract's uint256 whole units.
func areaUnits(area float64) *big.Int {
	return big.NewInt(int64(math.Round(area)))
}

// assign copies the id carried by event into receipt.AssignedID. The
// transaction is already mined when this fails, so the hash is logged.
func (r *Registry) assign(ctx context.Context, receipt *Receipt, event, field string) (*Receipt, error) {
	id, err := EmittedID(receipt.Logs, event, field)
	if err != nil {
		r.logger.ErrorContext(ctx, "chain receipt carries no assigned id",
			"event", event,
			"tx_hash", receipt.TxHash,
			"error", err,
		)
		return nil, err
	}
	receipt.AssignedID = id
	return receipt, nil
}

// RegisterProperty returns the receipt with the contract's property id.
func (r *Registry) RegisterProperty(ctx context.Context, owner, ipfsHash, location string, area float64, propertyType string) (*Receipt, error) {
	receipt, err := r.transact(ctx, Tx{
		Method: "registerProperty",
		Args:   []any{common.HexToAddress(owner), ipfsHash, location, areaUnits(area), propertyType},
	})
	if err != nil {
		return nil, err
	}
	return r.assign(ctx, receipt, EventPropertyRegistered, "propertyId")
}

func (r *Registry) BlockDisputedProperty(ctx context.Context, propertyID int64, reason string) (*Receipt, error) {
	return r.transact(ctx, Tx{Method: "blockDisputedProperty", Args: []any{toBig(propertyID), reason}})
}

func (r *Registry) UnblockProperty(ctx context.Context, propertyID int64) (*Receipt, error) {
	return r.transact(ctx, Tx{Method: "unblockProperty", Args: []any{toBig(propertyID)}})
}

// InitiateTransfer returns the receipt with the contract's transfer id.
func (r *Registry) InitiateTransfer(ctx context.Context, propertyID int64, buyer string, price *big.Int) (*Receipt, error) {
	receipt, err := r.transact(ctx, Tx{
		Method: "initiateTransfer",
		Args:   []any{toBig(propertyID), common.HexToAddress(buyer), new(big.Int).Set(price)},
	})
	if err != nil {
		return nil, err
	}
	return r.assign(ctx, receipt, EventTransferInitiated, "transferId")
}

func (r *Registry) ApproveTransfer(ctx context.Context, transferID int64) (*Receipt, error) {
	return r.transact(ctx, Tx{Method: "approveTransfer", Args: []any{toBig(transferID)}})
}

// CompleteTransfer is payable: payment travels as the transaction value.
func (r *Registry) CompleteTransfer(ctx context.Context, transferID int64, payment *big.Int) (*Receipt, error) {
	return r.transact(ctx, Tx{Method: "completeTransfer", Args: []any{toBig(transferID)}, Value: payment})
}

func (r *Registry) CancelTransfer(ctx context.Context, transferID int64) (*Receipt, error) {
	return r.transact(ctx, Tx{Method: "cancelTransfer", Args: []any{toBig(transferID)}})
}

func (r *Registry) AddRegistrar(ctx context.Context, address string) (*Receipt, error) {
	return r.transact(ctx, Tx{Method: "addRegistrar", Args: []any{common.HexToAddress(address)}})
}

func (r *Registry) RemoveRegistrar(ctx context.Context, address string) (*Receipt, error) {
	return r.transact(ctx, Tx{Method: "removeRegistrar", Args: []any{common.HexToAddress(address)}})
}

// PropertyDetails mirrors getPropertyDetails.
type PropertyDetails struct {
	PropertyID       int64     `json:"propertyId"`
	Owner            string    `json:"owner"`
	IPFSHash         string    `json:"ipfsHash"`
	Location         string    `json:"location"`
	Area             string    `json:"area"`
	PropertyType     string    `json:"propertyType"`
	RegistrationDate time.Time `json:"registrationDate"`
	Status           uint8     `json:"status"`
}

// TransferDetails mirrors getTransferDetails.
type TransferDetails struct {
	PropertyID        int64     `json:"propertyId"`
	Seller            string    `json:"seller"`
	Buyer             string    `json:"buyer"`
	Price             string    `json:"price"`
	InitiatedAt       time.Time `json:"initiatedAt"`
	Status            uint8     `json:"status"`
	RegistrarApproved bool      `json:"registrarApproved"`
}

func (r *Registry) call(ctx context.Context, method string, want int, args ...any) ([]any, error) {
	ctx, span := r.tracer.Start(ctx, "chain."+method)
	defer span.End()

	out, err := r.backend.Call(ctx, method, args...)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(out) != want {
		return nil, fmt.Errorf("%s returned %d values, want %d", method, len(out), want)
	}
	return out, nil
}

func (r *Registry) GetPropertyDetails(ctx context.Context, propertyID int64) (*PropertyDetails, error) {
	out, err := r.call(ctx, "getPropertyDetails", 8, toBig(propertyID))
	if err != nil {
		return nil, err
	}

	var d PropertyDetails
	var ok [8]bool
	var id, area, registered *big.Int
	var owner common.Address
	id, ok[0] = out[0].(*big.Int)
	owner, ok[1] = out[1].(common.Address)
	d.IPFSHash, ok[2] = out[2].(string)
	d.Location, ok[3] = out[3].(string)
	area, ok[4] = out[4].(*big.Int)
	d.PropertyType, ok[5] = out[5].(string)
	registered, ok[6] = out[6].(*big.Int)
	d.Status, ok[7] = out[7].(uint8)
	for _, good := range ok {
		if !good {
			return nil, fmt.Errorf("getPropertyDetails: unexpected output types")
		}
	}

	d.PropertyID = id.Int64()
	d.Owner = owner.Hex()
	d.Area = area.String()
	d.RegistrationDate = time.Unix(registered.Int64(), 0).UTC()
	return &d, nil
}

func (r *Registry) GetTransferDetails(ctx context.Context, transferID int64) (*TransferDetails, error) {
	out, err := r.call(ctx, "getTransferDetails", 7, toBig(transferID))
	if err != nil {
		return nil, err
	}

	var d TransferDetails
	var ok [7]bool
	var id, price, initiated *big.Int
	var seller, buyer common.Address
	id, ok[0] = out[0].(*big.Int)
	seller, ok[1] = out[1].(common.Address)
	buyer, ok[2] = out[2].(common.Address)
	price, ok[3] = out[3].(*big.Int)
	initiated, ok[4] = out[4].(*big.Int)
	d.Status, ok[5] = out[5].(uint8)
	d.RegistrarApproved, ok[6] = out[6].(bool)
	for _, good := range ok {
		if !good {
			return nil, fmt.Errorf("getTransferDetails: unexpected output types")
		}
	}

	d.PropertyID = id.Int64()
	d.Seller = seller.Hex()
	d.Buyer = buyer.Hex()
	d.Price = price.String()
	d.InitiatedAt = time.Unix(initiated.Int64(), 0).UTC()
	return &d, nil
}

func (r *Registry) IsRegistrar(ctx context.Context, address string) (bool, error) {
	out, err := r.call(ctx, "isRegistrar", 1, common.HexToAddress(address))
	if err != nil {
		return false, err
	}
	v, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("isRegistrar: unexpected output type %T", out[0])
	}
	return v, nil
}

func (r *Registry) totals(ctx context.Context, method string) (int64, error) {
	out, err := r.call(ctx, method, 1)
	if err != nil {
		return 0, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("%s: unexpected output type %T", method, out[0])
	}
	return v.Int64(), nil
}

func (r *Registry) GetTotalProperties(ctx context.Context) (int64, error) {
	return r.totals(ctx, "getTotalProperties")
}

func (r *Registry) GetTotalTransfers(ctx context.Context) (int64, error) {
	return r.totals(ctx, "getTotalTransfers")
}
