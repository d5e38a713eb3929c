package models

import (
	"time"

	"github.com/google/uuid"
)

// EventAction names an entry in a property's history.
type EventAction string

const (
	ActionRegistered        EventAction = "registered"
	ActionStatusChanged     EventAction = "status_changed"
	ActionBlocked           EventAction = "blocked"
	ActionUnblocked         EventAction = "unblocked"
	ActionTransferInitiated EventAction = "transfer_initiated"
	ActionTransferApproved  EventAction = "transfer_approved"
	ActionTransferred       EventAction = "transferred"
	ActionTransferCancelled EventAction = "transfer_cancelled"
)

// Event is an append-only history record. TransferID is zero when the event
// is not about a transfer.
type Event struct {
	ID         uuid.UUID
	PropertyID int64
	TransferID int64
	Action     EventAction
	Actor      string
	Details    map[string]string
	TxHash     string
	CreatedAt  time.Time
}

func NewEvent(propertyID int64, action EventAction, actor, txHash string, at time.Time) *Event {
	return &Event{
		ID:         uuid.New(),
		PropertyID: propertyID,
		Action:     action,
		Actor:      actor,
		Details:    map[string]string{},
		TxHash:     txHash,
		CreatedAt:  at,
	}
}
