package models

import (
	"time"

	"github.com/google/uuid"
)

// Visit is one entry in the append-only stamp ledger.
//
// Invariants:
//   - The (ParticipantID, BoothID) pair is unique across all visits
//   - Rows are never updated or deleted; retiring a booth deactivates it
//     instead of breaking these references
type Visit struct {
	ID            uuid.UUID `json:"id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	BoothID       uuid.UUID `json:"booth_id"`
	StampedAt     time.Time `json:"stamped_at"`

	// Audit only. Never read by decision logic.
	ClientIP  string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Metadata carries the audit attributes captured at scan time.
type Metadata struct {
	ClientIP  string
	UserAgent string
}
