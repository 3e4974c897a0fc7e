package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "stamprally/pkg/domain-errors"
)

// Booth is a visitable station identified by a stable external code.
//
// Invariants:
//   - Code is non-empty, at most 20 characters, and globally unique across
//     all booths regardless of active state (case-sensitive exact match)
//   - Name is non-empty and at most 100 characters
//   - Once visits reference a booth, deactivation is the only allowed way
//     to retire it; the row itself must survive to keep the ledger intact
type Booth struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Active      bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewBooth validates attributes and constructs a booth.
func NewBooth(code, name, description string, active bool, now time.Time) (*Booth, error) {
	if err := Validate(code, name); err != nil {
		return nil, err
	}
	return &Booth{
		ID:          uuid.New(),
		Code:        code,
		Name:        name,
		Description: description,
		Active:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Validate checks the code and name attribute invariants.
func Validate(code, name string) error {
	if code == "" {
		return dErrors.New(dErrors.CodeBadRequest, "booth code is required")
	}
	if len(code) > 20 {
		return dErrors.New(dErrors.CodeBadRequest, "booth code must be 20 characters or less")
	}
	if name == "" {
		return dErrors.New(dErrors.CodeBadRequest, "booth name is required")
	}
	if len(name) > 100 {
		return dErrors.New(dErrors.CodeBadRequest, "booth name must be 100 characters or less")
	}
	return nil
}

// Deactivate retires the booth while preserving its ledger references.
func (b *Booth) Deactivate(now time.Time) {
	b.Active = false
	b.UpdatedAt = now
}
