package models

import (
	"math/big"
	"strings"
	"time"

	dErrors "landledger/pkg/domain-errors"
)

type TransferStatus int

const (
	TransferNone TransferStatus = iota
	TransferInitiated
	TransferApproved
	TransferCompleted
	TransferCancelled
)

var transferStatusLabels = map[TransferStatus]string{
	TransferNone:      "none",
	TransferInitiated: "initiated",
	TransferApproved:  "approved",
	TransferCompleted: "completed",
	TransferCancelled: "cancelled",
}

func (s TransferStatus) String() string {
	if label, ok := transferStatusLabels[s]; ok {
		return label
	}
	return "unknown"
}

// IsOpen is true while the transfer still holds its property in PendingTransfer.
func (s TransferStatus) IsOpen() bool {
	return s == TransferInitiated || s == TransferApproved
}

// Transfer is a proposed ownership change. The workflow is linear:
// Initiated -> Approved -> Completed, with Cancelled reachable from either open state.
type Transfer struct {
	ID                int64
	ChainID           int64
	PropertyID        int64
	Seller            string
	Buyer             string
	Price             *big.Int
	Status            TransferStatus
	RegistrarApproved bool
	ApprovedBy        string
	TxHash            string
	InitiatedAt       time.Time
	UpdatedAt         time.Time
	CompletedAt       *time.Time
}

func (t *Transfer) CanApprove() error {
	if t.Status != TransferInitiated {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "transfer is %s, only initiated transfers can be approved", t.Status)
	}
	return nil
}

func (t *Transfer) CanComplete() error {
	switch t.Status {
	case TransferApproved:
		return nil
	case TransferInitiated:
		return dErrors.New(dErrors.CodeInvariantViolation, "transfer has not been approved by a registrar")
	default:
		return dErrors.Newf(dErrors.CodeInvariantViolation, "transfer is %s", t.Status)
	}
}

func (t *Transfer) CanCancel() error {
	if !t.Status.IsOpen() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "transfer is %s and can no longer be cancelled", t.Status)
	}
	return nil
}

// ParseWei parses a non-negative decimal wei amount. Empty means zero.
func ParseWei(raw string) (*big.Int, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return new(big.Int), nil
	}
	n, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeValidation, "invalid amount %q", raw)
	}
	if n.Sign() < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "amount must not be negative")
	}
	return n, nil
}
