package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/billing/backend/internal/domain/billing"
	"github.com/billing/backend/internal/domain/shared"
)

// RunAuditHandler writes the audit trail of a billing run: every status
// transition, every final invoice number and every rejected account ends
// up in the structured log.
type RunAuditHandler struct {
	logger *zap.Logger
}

// NewRunAuditHandler creates an audit handler writing to the given logger
func NewRunAuditHandler(logger *zap.Logger) *RunAuditHandler {
	return &RunAuditHandler{logger: logger}
}

// EventTypes returns the billing event types the audit trail covers
func (h *RunAuditHandler) EventTypes() []string {
	return []string{
		billing.EventTypeRunStatusChanged,
		billing.EventTypeInvoiceNumbered,
		billing.EventTypeAccountRejected,
	}
}

// Handle logs one audit line per event
func (h *RunAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *billing.RunStatusChangedEvent:
		h.logger.Info("audit: run status changed",
			zap.String("run_id", e.AggregateID().String()),
			zap.String("previous", e.Previous.String()),
			zap.String("current", e.Current.String()),
		)
	case *billing.InvoiceNumberedEvent:
		h.logger.Info("audit: invoice numbered",
			zap.String("invoice_id", e.AggregateID().String()),
			zap.String("invoice_number", e.InvoiceNumber),
		)
	case *billing.AccountRejectedEvent:
		h.logger.Info("audit: account rejected",
			zap.String("run_id", e.AggregateID().String()),
			zap.String("account_id", e.AccountID.String()),
			zap.String("reason", e.Reason),
		)
	}
	return nil
}

var _ shared.EventHandler = (*RunAuditHandler)(nil)
