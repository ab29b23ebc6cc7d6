package billing

import (
	"fmt"
	"time"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/billing/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// RunStatus represents the lifecycle state of a billing run
type RunStatus string

const (
	RunStatusOpen                RunStatus = "OPEN"
	RunStatusInvoiceLinesCreated RunStatus = "INVOICE_LINES_CREATED"
	RunStatusPrevalidated        RunStatus = "PREVALIDATED"
	RunStatusDraftInvoices       RunStatus = "DRAFT_INVOICES"
	RunStatusPostvalidated       RunStatus = "POSTVALIDATED"
	RunStatusPostinvoiced        RunStatus = "POSTINVOICED"
	RunStatusValidated           RunStatus = "VALIDATED"
	RunStatusRejected            RunStatus = "REJECTED"
)

// IsValid checks if the status is a valid RunStatus
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusOpen, RunStatusInvoiceLinesCreated, RunStatusPrevalidated,
		RunStatusDraftInvoices, RunStatusPostvalidated, RunStatusPostinvoiced,
		RunStatusValidated, RunStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of RunStatus
func (s RunStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the run is in a terminal state.
// A REJECTED run requires operator correction and a re-run.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusValidated || s == RunStatusRejected
}

// runTransitions lists the allowed forward transitions for each status.
var runTransitions = map[RunStatus][]RunStatus{
	RunStatusOpen:                {RunStatusInvoiceLinesCreated},
	RunStatusInvoiceLinesCreated: {RunStatusPrevalidated},
	RunStatusPrevalidated:        {RunStatusDraftInvoices},
	RunStatusDraftInvoices:       {RunStatusPostvalidated, RunStatusRejected},
	RunStatusPostvalidated:       {RunStatusPostinvoiced, RunStatusValidated, RunStatusRejected},
	RunStatusPostinvoiced:        {RunStatusValidated, RunStatusRejected},
}

// ProcessType determines how far a run advances without operator intervention
type ProcessType string

const (
	ProcessTypeManual        ProcessType = "MANUAL"
	ProcessTypeAutomatic     ProcessType = "AUTOMATIC"
	ProcessTypeFullAutomatic ProcessType = "FULL_AUTOMATIC"
)

// IsValid checks if the process type is valid
func (p ProcessType) IsValid() bool {
	switch p {
	case ProcessTypeManual, ProcessTypeAutomatic, ProcessTypeFullAutomatic:
		return true
	}
	return false
}

// IsAutomatic returns true for runs that advance past INVOICE_LINES_CREATED
// without an explicit external trigger
func (p ProcessType) IsAutomatic() bool {
	return p == ProcessTypeAutomatic || p == ProcessTypeFullAutomatic
}

// RunStatistics holds the running counters of a billing run.
// They are recomputed from actual invoices at each lifecycle checkpoint.
type RunStatistics struct {
	AccountCount  int
	InvoiceCount  int
	RejectedCount int
	// SkippedAccountCount counts accounts whose aggregation query failed;
	// their items stayed OPEN and carry over to a later run.
	SkippedAccountCount  int
	Amounts              valueobject.Amounts
	TransactionalAmounts valueobject.Amounts
}

// Add accumulates the counters of another statistics snapshot
func (s RunStatistics) Add(other RunStatistics) RunStatistics {
	return RunStatistics{
		AccountCount:         s.AccountCount + other.AccountCount,
		InvoiceCount:         s.InvoiceCount + other.InvoiceCount,
		RejectedCount:        s.RejectedCount + other.RejectedCount,
		SkippedAccountCount:  s.SkippedAccountCount + other.SkippedAccountCount,
		Amounts:              s.Amounts.Add(other.Amounts),
		TransactionalAmounts: s.TransactionalAmounts.Add(other.TransactionalAmounts),
	}
}

// BillingRun is the aggregate root driving one invoicing execution over a
// cohort of accounts. It is mutated only by the run state machine and is
// never deleted mid-lifecycle.
type BillingRun struct {
	shared.BaseAggregateRoot
	Status              RunStatus
	ProcessType         ProcessType
	InvoiceDate         time.Time
	LastTransactionDate time.Time
	CycleID             uuid.UUID
	Exceptional         bool // exceptional runs tolerate an unresolved due-date delay
	AutoAccounting      bool // full-automatic runs generating accounting entries directly
	RejectionReason     string
	Statistics          RunStatistics
}

// NewBillingRun creates a new billing run in the OPEN state
func NewBillingRun(processType ProcessType, cycleID uuid.UUID, invoiceDate, lastTransactionDate time.Time) (*BillingRun, error) {
	if !processType.IsValid() {
		return nil, shared.NewDomainError("INVALID_PROCESS_TYPE", fmt.Sprintf("Process type %q is not valid", processType))
	}
	if cycleID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CYCLE", "Billing cycle ID cannot be empty")
	}
	if invoiceDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_INVOICE_DATE", "Invoice date cannot be empty")
	}
	if lastTransactionDate.IsZero() {
		lastTransactionDate = invoiceDate
	}

	run := &BillingRun{
		BaseAggregateRoot:   shared.NewBaseAggregateRoot(),
		Status:              RunStatusOpen,
		ProcessType:         processType,
		InvoiceDate:         invoiceDate,
		LastTransactionDate: lastTransactionDate,
		CycleID:             cycleID,
	}
	run.AddDomainEvent(NewRunStatusChangedEvent(run, "", RunStatusOpen))
	return run, nil
}

// CanTransitionTo returns true if the run may move to the target status
func (r *BillingRun) CanTransitionTo(target RunStatus) bool {
	for _, next := range runTransitions[r.Status] {
		if next == target {
			return true
		}
	}
	return false
}

// TransitionTo moves the run to the target status, enforcing the lifecycle
func (r *BillingRun) TransitionTo(target RunStatus) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Status %q is not valid", target))
	}
	if !r.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_TRANSITION",
			fmt.Sprintf("Billing run cannot move from %s to %s", r.Status, target))
	}
	previous := r.Status
	r.Status = target
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewRunStatusChangedEvent(r, previous, target))
	return nil
}

// Reject flips the run to REJECTED with the given reason. Allowed from any
// non-terminal state reached after draft invoices exist.
func (r *BillingRun) Reject(reason string) error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot reject billing run in %s status", r.Status))
	}
	previous := r.Status
	r.Status = RunStatusRejected
	r.RejectionReason = reason
	r.Touch()
	r.IncrementVersion()
	r.AddDomainEvent(NewRunStatusChangedEvent(r, previous, RunStatusRejected))
	return nil
}

// ReplaceStatistics overwrites the running statistics with a recomputed snapshot
func (r *BillingRun) ReplaceStatistics(stats RunStatistics) {
	r.Statistics = stats
	r.Touch()
	r.IncrementVersion()
}

// IsTerminal returns true if no further transitions are possible
func (r *BillingRun) IsTerminal() bool {
	return r.Status.IsTerminal()
}
