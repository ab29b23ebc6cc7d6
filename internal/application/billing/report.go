package billing

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/billing/backend/internal/domain/billing"
)

// RunReport is the operator-facing summary of one billing run: the final
// statistics plus every per-account rejection, sorted for deterministic
// rendering.
type RunReport struct {
	RunID      string
	Status     billing.RunStatus
	Statistics billing.RunStatistics
	Rejections []RejectionLine
}

// RejectionLine is one rejected account in the report
type RejectionLine struct {
	AccountID string
	Reason    string
}

// BuildRunReport assembles the report of a run from its audit rows
func BuildRunReport(ctx context.Context, run *billing.BillingRun, rejected billing.RejectedAccountRepository) (*RunReport, error) {
	rows, err := rejected.ByRun(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rejections of run %s: %w", run.ID, err)
	}

	report := &RunReport{
		RunID:      run.ID.String(),
		Status:     run.Status,
		Statistics: run.Statistics,
	}
	for _, row := range rows {
		report.Rejections = append(report.Rejections, RejectionLine{
			AccountID: row.AccountID.String(),
			Reason:    row.Reason,
		})
	}
	sort.Slice(report.Rejections, func(i, j int) bool {
		return report.Rejections[i].AccountID < report.Rejections[j].AccountID
	})
	return report, nil
}

// Render writes the report as human-readable text
func (r *RunReport) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Billing run %s [%s]\n", r.RunID, r.Status)
	fmt.Fprintf(&b, "  accounts: %d  invoices: %d  rejected: %d\n",
		r.Statistics.AccountCount, r.Statistics.InvoiceCount, r.Statistics.RejectedCount)
	if r.Statistics.SkippedAccountCount > 0 {
		fmt.Fprintf(&b, "  skipped (aggregation failed, items stay open): %d\n",
			r.Statistics.SkippedAccountCount)
	}
	fmt.Fprintf(&b, "  total without tax: %s  tax: %s  with tax: %s\n",
		r.Statistics.Amounts.WithoutTax(), r.Statistics.Amounts.Tax(), r.Statistics.Amounts.WithTax())
	if len(r.Rejections) > 0 {
		fmt.Fprintf(&b, "  rejected accounts:\n")
		for _, line := range r.Rejections {
			fmt.Fprintf(&b, "    %s: %s\n", line.AccountID, line.Reason)
		}
	}
	return b.String()
}
