package core

import (
	"errors"
	"strings"
	"time"
)

const (
	EntryExpense EntryType = "expense"
	EntryRevenue EntryType = "revenue"
)

// Bank transaction statuses that disqualify a record from all downstream
// computation. The normalizer is the single place this filter is applied.
const (
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Suggestion provenance values.
const (
	ProvenanceLearned = "db"
	ProvenanceRules   = "rules"
)

type (
	EntryType string

	// Category is one entry of the expense taxonomy. Identity is the unique
	// name; a non-empty IRSReference marks the category as eligible for
	// tax-deduction reporting.
	Category struct {
		ID           int64
		Name         string
		IRSReference string
		SortOrder    int64
		Active       bool
	}

	// LearnedMapping is a counterparty-keyed categorization shortcut derived
	// from past decisions. One active mapping per key; last write wins.
	LearnedMapping struct {
		CounterpartyKey string
		CategoryID      int64
		Deductible      bool
		LastUpdated     time.Time
	}

	// Categorization is the durable decision linking one external transaction
	// to one category.
	Categorization struct {
		ExternalID       string
		CategoryID       int64
		Deductible       bool
		CounterpartyName string
		Notes            string
	}

	// ManualExpense is a locally entered ledger row, fully owned by this
	// system. Amount is always positive; Type says which side it lands on.
	ManualExpense struct {
		ID          int64
		CategoryID  int64
		AmountCents int64
		Vendor      string
		Description string
		Date        time.Time
		Type        EntryType
		Deductible  bool
		ReceiptURL  string
		CreatedBy   string
	}

	// Transaction is the normalized view of a bank-feed record. It is never
	// persisted; it is re-fetched from the adapter on every query. Amount is
	// signed, negative meaning outflow.
	Transaction struct {
		ExternalID   string
		AmountCents  int64
		Counterparty string
		Description  string
		Status       string
		PostedAt     time.Time
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidEntryType = errors.New("invalid entry type")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyVendor      = errors.New("empty vendor")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrEmptyExternalID  = errors.New("empty external transaction id")
)

// Excluded reports whether the transaction must be dropped from every
// revenue, expense, and categorization computation.
func (t Transaction) Excluded() bool {
	return t.Status == StatusFailed || t.Status == StatusCancelled
}

// Outflow reports whether the transaction is money leaving the account.
// Only outflows are eligible for categorization.
func (t Transaction) Outflow() bool {
	return t.AmountCents < 0
}

func (et EntryType) Valid() bool {
	return et == EntryExpense || et == EntryRevenue
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 120 {
		return errors.New("name too long (max 120 characters)")
	}
	return nil
}

func (e ManualExpense) Validate() error {
	if e.CategoryID <= 0 {
		return ErrUnknownCategory
	}
	if e.AmountCents <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Vendor) == "" {
		return ErrEmptyVendor
	}
	if len(e.Description) > 500 {
		return errors.New("description too long (max 500 characters)")
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if !e.Type.Valid() {
		return ErrInvalidEntryType
	}
	return nil
}

func (c Categorization) Validate() error {
	if strings.TrimSpace(c.ExternalID) == "" {
		return ErrEmptyExternalID
	}
	if c.CategoryID <= 0 {
		return ErrUnknownCategory
	}
	return nil
}

// YearRange returns the half-open [start, end) range covering a calendar
// year in UTC. Every date-filtered query in the system uses this shape.
func YearRange(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// MonthRange returns the half-open [start, end) range covering one month.
func MonthRange(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
