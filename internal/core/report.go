package core

import "time"

// MonthlyBucket is one month of a P&L table. Derived on every compile,
// never persisted or cached.
type MonthlyBucket struct {
	Month         int // 1-12
	RevenueCents  int64
	ExpenseCents  int64
	NetCents      int64
	MarginPercent int64
}

// YearComparison is the reduced recomputation of a second year, for
// display next to the primary year only.
type YearComparison struct {
	Year               int
	TotalRevenueCents  int64
	TotalExpensesCents int64
	NetProfitCents     int64
}

// PnL is a compiled profit-and-loss statement for one calendar year.
// Connected flags report per-source availability; a disconnected source
// contributes zeros rather than failing the compile.
type PnL struct {
	Year                 int
	Months               [12]MonthlyBucket
	TotalRevenueCents    int64
	TotalExpensesCents   int64
	TotalDeductionsCents int64
	NetProfitCents       int64
	PaymentsConnected    bool
	BankConnected        bool
	Comparison           *YearComparison
}

// CategoryDeduction is one merged row of a tax summary: manual and
// bank-feed contributions for the same category combined.
type CategoryDeduction struct {
	Category   string
	Count      int
	TotalCents int64
}

// TaxSummary is the year-end deduction view. EstimatedTaxableIncomeCents
// is advisory, not a tax-law-complete computation.
type TaxSummary struct {
	Year                        int
	GrossIncomeCents            int64
	TotalDeductionsCents        int64
	EstimatedTaxableIncomeCents int64
	PaymentsConnected           bool
	BankConnected               bool
	DeductibleByCategory        []CategoryDeduction
}

// Export row origins.
const (
	SourceManual = "manual"
	SourceBank   = "bank"
)

// ExportRow is one line of the uniform deductible-transaction ledger
// handed to export consumers, regardless of origin.
type ExportRow struct {
	Date        time.Time
	Vendor      string
	Category    string
	AmountCents int64
	Description string
	Source      string
	Deductible  bool
}

// Suggestion is one proposed categorization with its provenance:
// ProvenanceLearned for a learned-mapping hit, ProvenanceRules for a rule
// table hit.
type Suggestion struct {
	ExternalID   string
	Counterparty string
	Description  string
	AmountCents  int64
	PostedAt     time.Time
	CategoryID   int64
	CategoryName string
	Deductible   bool
	Provenance   string
}
