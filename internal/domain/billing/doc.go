// Package billing contains the invoicing domain model: billing runs and
// their lifecycle, rated items, invoicing-item aggregation, draft invoices
// with their aggregate graph, taxes (including composite taxes), discount
// plans, and the repository and collaborator ports the application layer
// depends on.
//
// The aggregation pipeline converts OPEN rated items belonging to a cohort
// of accounts into tax-correct, numbered invoices. All monetary arithmetic
// uses exact decimals; rounding happens only at the configured scale and
// rounding mode.
package billing
