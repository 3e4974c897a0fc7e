package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// CompletionThreshold is the number of distinct booths a participant must
// visit to complete the mission. Fixed target, not configurable per booth.
const CompletionThreshold = 5

// Participant is an anonymous actor identified only by a generated UUID.
//
// Invariants:
//   - Completed == true ⇔ CompletedAt != nil
//   - Completed never reverts to false once set
//   - CompletedAt, once set, never changes
type Participant struct {
	ID          uuid.UUID  `json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	Completed   bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at"`
}

// NewParticipant constructs a fresh, incomplete participant.
func NewParticipant(now time.Time) *Participant {
	return &Participant{
		ID:        uuid.New(),
		CreatedAt: now,
	}
}

// EvaluateCompletion applies the completion rule for the given visit count.
// Returns true only on the transition; calling it again on a completed
// participant leaves CompletedAt untouched, which makes redundant or
// concurrent re-evaluation safe.
func (p *Participant) EvaluateCompletion(visitCount int, now time.Time) bool {
	if p.Completed || visitCount < CompletionThreshold {
		return false
	}
	p.Completed = true
	p.CompletedAt = &now
	return true
}

// ProgressPercentage reports mission progress to one decimal place, capped at 100.
func ProgressPercentage(visitCount int) float64 {
	pct := float64(visitCount) / float64(CompletionThreshold) * 100
	if pct > 100 {
		pct = 100
	}
	return math.Round(pct*10) / 10
}

// RemainingVisits reports how many distinct booths are still needed.
func RemainingVisits(visitCount int) int {
	if visitCount >= CompletionThreshold {
		return 0
	}
	return CompletionThreshold - visitCount
}
