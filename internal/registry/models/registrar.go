package models

import "time"

// Registrar holds the capability to register properties and adjudicate disputes.
type Registrar struct {
	Address string
	AddedAt time.Time
}
