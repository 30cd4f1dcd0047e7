package reconcile

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellsync/backend/internal/domain/order"
)

// DateRange bounds one reconciliation run
type DateRange struct {
	From time.Time
	To   time.Time
}

// ItemOutcome classifies the result for one raw order
type ItemOutcome string

const (
	OutcomeCreated ItemOutcome = "CREATED"
	OutcomeUpdated ItemOutcome = "UPDATED"
	// OutcomeUnchanged means the order existed and the marketplace reported
	// no state we do not already have
	OutcomeUnchanged ItemOutcome = "UNCHANGED"
	OutcomeFailed    ItemOutcome = "FAILED"
)

// ItemResult is the per-order entry of a reconciliation report
type ItemResult struct {
	ExternalOrderID string       `json:"external_order_id"`
	OrderID         *uuid.UUID   `json:"order_id,omitempty"`
	Outcome         ItemOutcome  `json:"outcome"`
	Status          order.Status `json:"status,omitempty"`
	Error           string       `json:"error,omitempty"`
}

// Report is the partial-success result of one reconciliation run.
// A single item's failure never aborts the batch; a page fetch failure stops
// pagination and is surfaced through PageError with the results so far.
type Report struct {
	AccountID uuid.UUID    `json:"account_id"`
	Skipped   bool         `json:"skipped"` // another run for this account was in flight
	Synced    int          `json:"synced"`
	Failed    int          `json:"failed"`
	Pages     int          `json:"pages"`
	PageError string       `json:"page_error,omitempty"`
	Items     []ItemResult `json:"items"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
}

func (r *Report) addItem(item ItemResult) {
	r.Items = append(r.Items, item)
	if item.Outcome == OutcomeFailed {
		r.Failed++
	} else {
		r.Synced++
	}
}
