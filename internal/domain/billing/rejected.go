package billing

import (
	"time"

	"github.com/google/uuid"
)

// RejectedAccount is the audit record of an account excluded from a billing
// run after a per-account failure. Created once, never mutated.
type RejectedAccount struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	RunID     uuid.UUID
	Reason    string
	CreatedAt time.Time
}

// NewRejectedAccount records one account rejection for a run
func NewRejectedAccount(runID, accountID uuid.UUID, reason string) *RejectedAccount {
	return &RejectedAccount{
		ID:        uuid.New(),
		AccountID: accountID,
		RunID:     runID,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
}
