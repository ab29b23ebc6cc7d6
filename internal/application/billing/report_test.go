package billing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/billing/backend/internal/domain/billing"
)

func TestBuildRunReportSortsRejections(t *testing.T) {
	run := newTestRun(t)
	run.Statistics = billing.RunStatistics{AccountCount: 3, InvoiceCount: 2, RejectedCount: 2}

	rowB := billing.NewRejectedAccount(run.ID, uuid.MustParse("ffffffff-0000-0000-0000-000000000001"), "tax missing")
	rowA := billing.NewRejectedAccount(run.ID, uuid.MustParse("00000000-0000-0000-0000-000000000002"), "delay unresolved")

	rejected := new(mockRejectedAccountRepository)
	rejected.On("ByRun", mock.Anything, run.ID).
		Return([]*billing.RejectedAccount{rowB, rowA}, nil)

	report, err := BuildRunReport(context.Background(), run, rejected)
	require.NoError(t, err)
	require.Len(t, report.Rejections, 2)
	assert.Equal(t, rowA.AccountID.String(), report.Rejections[0].AccountID)
	assert.Equal(t, rowB.AccountID.String(), report.Rejections[1].AccountID)

	rendered := report.Render()
	assert.Contains(t, rendered, run.ID.String())
	assert.Contains(t, rendered, "rejected: 2")
	assert.Contains(t, rendered, "delay unresolved")
	assert.Contains(t, rendered, "tax missing")
	assert.NotContains(t, rendered, "skipped")
}

func TestRunReportRendersSkippedAccounts(t *testing.T) {
	run := newTestRun(t)
	run.Statistics = billing.RunStatistics{AccountCount: 5, InvoiceCount: 5, SkippedAccountCount: 3}

	rejected := new(mockRejectedAccountRepository)
	rejected.On("ByRun", mock.Anything, run.ID).
		Return([]*billing.RejectedAccount(nil), nil)

	report, err := BuildRunReport(context.Background(), run, rejected)
	require.NoError(t, err)

	rendered := report.Render()
	assert.Contains(t, rendered, "skipped (aggregation failed, items stay open): 3")
}
