package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/billing/backend/internal/domain/billing"
)

// Mock implementations of the domain ports

type mockBillingRunRepository struct {
	mock.Mock
}

func (m *mockBillingRunRepository) Save(ctx context.Context, run *billing.BillingRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *mockBillingRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.BillingRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.BillingRun), args.Error(1)
}

type mockRatedItemRepository struct {
	mock.Mock
}

func (m *mockRatedItemRepository) EligibleAccountIDs(ctx context.Context, runID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockRatedItemRepository) OpenItemsForAccounts(ctx context.Context, runID uuid.UUID, accountIDs []uuid.UUID) ([]*billing.RatedItem, error) {
	args := m.Called(ctx, runID, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.RatedItem), args.Error(1)
}

func (m *mockRatedItemRepository) LinkToInvoice(ctx context.Context, invoiceID uuid.UUID, itemIDs []uuid.UUID) error {
	args := m.Called(ctx, invoiceID, itemIDs)
	return args.Error(0)
}

func (m *mockRatedItemRepository) CountOpenForRun(ctx context.Context, runID uuid.UUID) (int64, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).(int64), args.Error(1)
}

type mockAccountRepository struct {
	mock.Mock
}

func (m *mockAccountRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*billing.BillingAccount, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.BillingAccount), args.Error(1)
}

func (m *mockAccountRepository) Save(ctx context.Context, account *billing.BillingAccount) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

type mockInvoiceRepository struct {
	mock.Mock
}

func (m *mockInvoiceRepository) SaveAll(ctx context.Context, invoices []*billing.Invoice) error {
	args := m.Called(ctx, invoices)
	return args.Error(0)
}

func (m *mockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *mockInvoiceRepository) ByRun(ctx context.Context, runID uuid.UUID) ([]*billing.Invoice, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepository) NumberingSummary(ctx context.Context, runID uuid.UUID) ([]billing.NumberingGroup, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.NumberingGroup), args.Error(1)
}

func (m *mockInvoiceRepository) ByNumberingKey(ctx context.Context, runID uuid.UUID, key billing.NumberingKey) ([]*billing.Invoice, error) {
	args := m.Called(ctx, runID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.Invoice), args.Error(1)
}

type mockRejectedAccountRepository struct {
	mock.Mock
}

func (m *mockRejectedAccountRepository) Save(ctx context.Context, rejected *billing.RejectedAccount) error {
	args := m.Called(ctx, rejected)
	return args.Error(0)
}

func (m *mockRejectedAccountRepository) ByRun(ctx context.Context, runID uuid.UUID) ([]*billing.RejectedAccount, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.RejectedAccount), args.Error(1)
}

func (m *mockRejectedAccountRepository) CountByRun(ctx context.Context, runID uuid.UUID) (int64, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).(int64), args.Error(1)
}

type mockReferenceRepository struct {
	mock.Mock
}

func (m *mockReferenceRepository) TaxByID(ctx context.Context, id uuid.UUID) (*billing.Tax, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Tax), args.Error(1)
}

func (m *mockReferenceRepository) DiscountPlanItemsForAccount(ctx context.Context, accountID uuid.UUID) ([]*billing.DiscountPlanItem, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*billing.DiscountPlanItem), args.Error(1)
}

func (m *mockReferenceRepository) LanguageDescription(ctx context.Context, code string) (string, error) {
	args := m.Called(ctx, code)
	return args.String(0), args.Error(1)
}

type mockSequenceReserver struct {
	mock.Mock
}

func (m *mockSequenceReserver) ReserveBlock(ctx context.Context, key billing.NumberingKey, count int64) (int64, error) {
	args := m.Called(ctx, key, count)
	return args.Get(0).(int64), args.Error(1)
}

type mockAccountingEntryGenerator struct {
	mock.Mock
}

func (m *mockAccountingEntryGenerator) GenerateForInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	args := m.Called(ctx, invoiceID)
	return args.Error(0)
}

// Interface guards
var (
	_ billing.BillingRunRepository      = (*mockBillingRunRepository)(nil)
	_ billing.RatedItemRepository       = (*mockRatedItemRepository)(nil)
	_ billing.AccountRepository         = (*mockAccountRepository)(nil)
	_ billing.InvoiceRepository         = (*mockInvoiceRepository)(nil)
	_ billing.RejectedAccountRepository = (*mockRejectedAccountRepository)(nil)
	_ billing.ReferenceRepository       = (*mockReferenceRepository)(nil)
	_ billing.SequenceReserver          = (*mockSequenceReserver)(nil)
	_ billing.AccountingEntryGenerator  = (*mockAccountingEntryGenerator)(nil)
)
