package handler

import (
	"math/big"
	"strings"

	"landledger/internal/registry/models"
	dErrors "landledger/pkg/domain-errors"
)

// RegisterPropertyRequest is the body of POST /properties.
type RegisterPropertyRequest struct {
	OwnerAddress string  `json:"owner_address"`
	OwnerName    string  `json:"owner_name"`
	IPFSHash     string  `json:"ipfs_hash"`
	Location     string  `json:"location"`
	Area         float64 `json:"area"`
	PropertyType string  `json:"property_type"`
	SurveyNumber string  `json:"survey_number"`
	Description  string  `json:"description"`
}

func (r *RegisterPropertyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Description) > 4096 {
		return dErrors.New(dErrors.CodeValidation, "description must be at most 4096 characters")
	}
	r.OwnerAddress = strings.TrimSpace(r.OwnerAddress)
	if r.OwnerAddress == "" {
		return dErrors.New(dErrors.CodeValidation, "owner_address is required")
	}
	return nil
}

func (r *RegisterPropertyRequest) Input() models.RegistrationInput {
	return models.RegistrationInput{
		OwnerAddress: r.OwnerAddress,
		OwnerName:    strings.TrimSpace(r.OwnerName),
		IPFSHash:     r.IPFSHash,
		Location:     r.Location,
		Area:         r.Area,
		PropertyType: r.PropertyType,
		SurveyNumber: strings.TrimSpace(r.SurveyNumber),
		Description:  strings.TrimSpace(r.Description),
	}
}

// UpdateStatusRequest is the body of PATCH /properties/{id}.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

func (r *UpdateStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Status = strings.TrimSpace(r.Status)
	if r.Status == "" {
		return dErrors.New(dErrors.CodeValidation, "status is required")
	}
	return nil
}

type BlockRequest struct {
	Reason string `json:"reason"`
}

func (r *BlockRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

type VerifyRequest struct {
	IPFSHash string `json:"ipfs_hash"`
}

func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.IPFSHash = strings.TrimSpace(r.IPFSHash)
	if r.IPFSHash == "" {
		return dErrors.New(dErrors.CodeValidation, "ipfs_hash is required")
	}
	return nil
}

// InitiateTransferRequest carries the price as a decimal wei string so
// amounts beyond 2^53 survive JSON.
type InitiateTransferRequest struct {
	Buyer string `json:"buyer"`
	Price string `json:"price"`

	parsedPrice *big.Int
}

func (r *InitiateTransferRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Buyer = strings.TrimSpace(r.Buyer)
	if r.Buyer == "" {
		return dErrors.New(dErrors.CodeValidation, "buyer is required")
	}
	price, err := models.ParseWei(r.Price)
	if err != nil {
		return err
	}
	r.parsedPrice = price
	return nil
}

func (r *InitiateTransferRequest) ParsedPrice() *big.Int {
	return r.parsedPrice
}

type CompleteTransferRequest struct {
	Payment string `json:"payment"`

	parsedPayment *big.Int
}

func (r *CompleteTransferRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	payment, err := models.ParseWei(r.Payment)
	if err != nil {
		return err
	}
	r.parsedPayment = payment
	return nil
}

func (r *CompleteTransferRequest) ParsedPayment() *big.Int {
	return r.parsedPayment
}

type AddRegistrarRequest struct {
	Address string `json:"address"`
}

func (r *AddRegistrarRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Address = strings.TrimSpace(r.Address)
	if r.Address == "" {
		return dErrors.New(dErrors.CodeValidation, "address is required")
	}
	return nil
}
