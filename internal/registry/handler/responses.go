package handler

import (
	"strconv"
	"time"

	"landledger/internal/registry/models"
	"landledger/internal/registry/service"
)

type PropertyResponse struct {
	PropertyID   string    `json:"property_id"`
	OwnerAddress string    `json:"owner_address"`
	OwnerName    string    `json:"owner_name,omitempty"`
	IPFSHash     string    `json:"ipfs_hash"`
	Location     string    `json:"location"`
	Area         float64   `json:"area"`
	PropertyType string    `json:"property_type"`
	SurveyNumber string    `json:"survey_number,omitempty"`
	Description  string    `json:"description,omitempty"`
	Status       string    `json:"status"`
	BlockReason  string    `json:"block_reason,omitempty"`
	TxHash       string    `json:"transaction_hash,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func FromProperty(p *models.Property) *PropertyResponse {
	if p == nil {
		return nil
	}
	return &PropertyResponse{
		PropertyID:   p.Label(),
		OwnerAddress: p.OwnerAddress,
		OwnerName:    p.OwnerName,
		IPFSHash:     p.IPFSHash,
		Location:     p.Location,
		Area:         p.Area,
		PropertyType: p.PropertyType,
		SurveyNumber: p.SurveyNumber,
		Description:  p.Description,
		Status:       p.Status.String(),
		BlockReason:  p.BlockReason,
		TxHash:       p.TxHash,
		RegisteredAt: p.RegisteredAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func FromProperties(ps []*models.Property) []*PropertyResponse {
	out := make([]*PropertyResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, FromProperty(p))
	}
	return out
}

type TransferResponse struct {
	TransferID        string     `json:"transfer_id"`
	PropertyID        string     `json:"property_id"`
	Seller            string     `json:"seller"`
	Buyer             string     `json:"buyer"`
	Price             string     `json:"price"`
	Status            string     `json:"status"`
	RegistrarApproved bool       `json:"registrar_approved"`
	ApprovedBy        string     `json:"approved_by,omitempty"`
	TxHash            string     `json:"transaction_hash,omitempty"`
	InitiatedAt       time.Time  `json:"initiated_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

func FromTransfer(t *models.Transfer) *TransferResponse {
	price := "0"
	if t.Price != nil {
		price = t.Price.String()
	}
	return &TransferResponse{
		TransferID:        strconv.FormatInt(t.ID, 10),
		PropertyID:        models.FormatLabel(t.PropertyID),
		Seller:            t.Seller,
		Buyer:             t.Buyer,
		Price:             price,
		Status:            t.Status.String(),
		RegistrarApproved: t.RegistrarApproved,
		ApprovedBy:        t.ApprovedBy,
		TxHash:            t.TxHash,
		InitiatedAt:       t.InitiatedAt,
		UpdatedAt:         t.UpdatedAt,
		CompletedAt:       t.CompletedAt,
	}
}

func FromTransfers(ts []*models.Transfer) []*TransferResponse {
	out := make([]*TransferResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, FromTransfer(t))
	}
	return out
}

type EventResponse struct {
	ID         string            `json:"id"`
	PropertyID string            `json:"property_id"`
	TransferID string            `json:"transfer_id,omitempty"`
	Action     string            `json:"action"`
	Actor      string            `json:"actor"`
	Details    map[string]string `json:"details,omitempty"`
	TxHash     string            `json:"transaction_hash,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func FromEvents(es []*models.Event) []*EventResponse {
	out := make([]*EventResponse, 0, len(es))
	for _, e := range es {
		r := &EventResponse{
			ID:         e.ID.String(),
			PropertyID: models.FormatLabel(e.PropertyID),
			Action:     string(e.Action),
			Actor:      e.Actor,
			Details:    e.Details,
			TxHash:     e.TxHash,
			CreatedAt:  e.CreatedAt,
		}
		if e.TransferID != 0 {
			r.TransferID = strconv.FormatInt(e.TransferID, 10)
		}
		out = append(out, r)
	}
	return out
}

// PropertyDetailResponse is returned when a lookup asks for related records.
type PropertyDetailResponse struct {
	Property  *PropertyResponse   `json:"property"`
	Transfers []*TransferResponse `json:"transfers,omitempty"`
	History   []*EventResponse    `json:"history,omitempty"`
}

type VerifyResponse struct {
	Match    bool              `json:"match"`
	Property *PropertyResponse `json:"property"`
}

func FromVerification(v *service.Verification) *VerifyResponse {
	return &VerifyResponse{Match: v.Match, Property: FromProperty(v.Property)}
}

type StatsResponse struct {
	TotalProperties int64            `json:"total_properties"`
	TotalTransfers  int64            `json:"total_transfers"`
	ByStatus        map[string]int64 `json:"by_status"`
}

func FromStats(s *models.Stats) *StatsResponse {
	by := map[string]int64{
		models.StatusActive.String():          0,
		models.StatusPendingTransfer.String(): 0,
		models.StatusBlocked.String():         0,
	}
	for status, n := range s.ByStatus {
		by[status.String()] = n
	}
	return &StatsResponse{TotalProperties: s.TotalProperties, TotalTransfers: s.TotalTransfers, ByStatus: by}
}

type RegistrarResponse struct {
	Address     string     `json:"address"`
	IsRegistrar bool       `json:"is_registrar"`
	AddedAt     *time.Time `json:"added_at,omitempty"`
}

func FromRegistrar(r *models.Registrar) *RegistrarResponse {
	added := r.AddedAt
	return &RegistrarResponse{Address: r.Address, IsRegistrar: true, AddedAt: &added}
}
