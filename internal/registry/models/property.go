package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	dErrors "landledger/pkg/domain-errors"
)

// PropertyStatus follows the registry contract ordering.
type PropertyStatus int

const (
	StatusActive PropertyStatus = iota
	StatusPendingTransfer
	StatusBlocked
)

var propertyStatusLabels = map[PropertyStatus]string{
	StatusActive:          "active",
	StatusPendingTransfer: "pending_transfer",
	StatusBlocked:         "blocked",
}

func (s PropertyStatus) String() string {
	if label, ok := propertyStatusLabels[s]; ok {
		return label
	}
	return "unknown"
}

func (s PropertyStatus) IsValid() bool {
	_, ok := propertyStatusLabels[s]
	return ok
}

// ParsePropertyStatus accepts a wire label or the numeric contract code.
func ParsePropertyStatus(raw string) (PropertyStatus, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	for status, label := range propertyStatusLabels {
		if v == label {
			return status, nil
		}
	}
	if n, err := strconv.Atoi(v); err == nil && PropertyStatus(n).IsValid() {
		return PropertyStatus(n), nil
	}
	return 0, dErrors.Newf(dErrors.CodeValidation, "unknown property status %q", raw)
}

const labelPrefix = "PROP"

// FormatLabel renders a property id as PROP004. Ids past 999 simply grow.
func FormatLabel(id int64) string {
	return fmt.Sprintf("%s%03d", labelPrefix, id)
}

// ParseLabel accepts PROP004, prop4 or 4.
func ParseLabel(raw string) (int64, error) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	v = strings.TrimPrefix(v, labelPrefix)
	if v == "" {
		return 0, dErrors.Newf(dErrors.CodeValidation, "invalid property id %q", raw)
	}
	for _, r := range v {
		if r < '0' || r > '9' {
			return 0, dErrors.Newf(dErrors.CodeValidation, "invalid property id %q", raw)
		}
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, dErrors.Newf(dErrors.CodeValidation, "invalid property id %q", raw)
	}
	return id, nil
}

// Property is a registry entry. It is never deleted. ChainID is the id the
// registry contract assigned at registration; it need not equal ID. Version
// increases on every committed update.
type Property struct {
	ID           int64
	ChainID      int64
	OwnerAddress string
	OwnerName    string
	IPFSHash     string
	Location     string
	Area         float64
	PropertyType string
	SurveyNumber string
	Description  string
	Status       PropertyStatus
	BlockReason  string
	TxHash       string
	Version      int64
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

func (p *Property) Label() string {
	return FormatLabel(p.ID)
}

// CanInitiateTransfer reports whether a new transfer may start.
func (p *Property) CanInitiateTransfer() error {
	switch p.Status {
	case StatusActive:
		return nil
	case StatusBlocked:
		return dErrors.New(dErrors.CodeInvariantViolation, "property is blocked for dispute")
	case StatusPendingTransfer:
		return dErrors.New(dErrors.CodeInvariantViolation, "property already has a pending transfer")
	default:
		return dErrors.New(dErrors.CodeInvariantViolation, "property is not active")
	}
}

// CanBlock allows only Active -> Blocked.
func (p *Property) CanBlock() error {
	switch p.Status {
	case StatusActive:
		return nil
	case StatusBlocked:
		return dErrors.New(dErrors.CodeInvariantViolation, "property is already blocked")
	default:
		return dErrors.New(dErrors.CodeInvariantViolation, "property with a pending transfer cannot be blocked")
	}
}

func (p *Property) CanUnblock() error {
	if p.Status != StatusBlocked {
		return dErrors.New(dErrors.CodeInvariantViolation, "property is not blocked")
	}
	return nil
}

// RegistrationInput carries the fields a registrar submits.
type RegistrationInput struct {
	OwnerAddress string
	OwnerName    string
	IPFSHash     string
	Location     string
	Area         float64
	PropertyType string
	SurveyNumber string
	Description  string
}

// Validate normalizes the owner address and checks required fields.
func (in *RegistrationInput) Validate() error {
	owner, err := NormalizeAddress(in.OwnerAddress)
	if err != nil {
		return err
	}
	in.OwnerAddress = owner
	in.IPFSHash = strings.TrimSpace(in.IPFSHash)
	in.Location = strings.TrimSpace(in.Location)
	in.PropertyType = strings.TrimSpace(in.PropertyType)

	switch {
	case in.IPFSHash == "":
		return dErrors.New(dErrors.CodeValidation, "ipfs_hash is required")
	case in.Location == "":
		return dErrors.New(dErrors.CodeValidation, "location is required")
	case in.PropertyType == "":
		return dErrors.New(dErrors.CodeValidation, "property_type is required")
	case in.Area < 0:
		return dErrors.New(dErrors.CodeValidation, "area must not be negative")
	}
	return nil
}

// Stats summarises the registry.
type Stats struct {
	TotalProperties int64
	TotalTransfers  int64
	ByStatus        map[PropertyStatus]int64
}
