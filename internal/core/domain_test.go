package core

import (
	"testing"
	"time"
)

func TestManualExpenseValidate(t *testing.T) {
	good := ManualExpense{
		CategoryID:  1,
		AmountCents: 5000,
		Vendor:      "Delta",
		Date:        time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Type:        EntryExpense,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []ManualExpense{
		{CategoryID: 0, AmountCents: 1, Vendor: "v", Date: good.Date, Type: EntryExpense},
		{CategoryID: 1, AmountCents: 0, Vendor: "v", Date: good.Date, Type: EntryExpense},
		{CategoryID: 1, AmountCents: 1, Vendor: "  ", Date: good.Date, Type: EntryExpense},
		{CategoryID: 1, AmountCents: 1, Vendor: "v", Type: EntryExpense}, // zero date
		{CategoryID: 1, AmountCents: 1, Vendor: "v", Date: good.Date, Type: "transfer"},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestCategorizationValidate(t *testing.T) {
	if err := (Categorization{ExternalID: "tx_1", CategoryID: 2}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Categorization{ExternalID: "", CategoryID: 2}).Validate(); err == nil {
		t.Fatalf("expected error for empty external id")
	}
	if err := (Categorization{ExternalID: "tx_1"}).Validate(); err == nil {
		t.Fatalf("expected error for missing category")
	}
}

func TestTransactionExcluded(t *testing.T) {
	cases := []struct {
		status   string
		excluded bool
	}{
		{"posted", false},
		{"pending", false},
		{StatusFailed, true},
		{StatusCancelled, true},
	}
	for _, tc := range cases {
		tx := Transaction{Status: tc.status}
		if got := tx.Excluded(); got != tc.excluded {
			t.Fatalf("status %q: excluded = %v, want %v", tc.status, got, tc.excluded)
		}
	}
}

func TestYearRangeHalfOpen(t *testing.T) {
	start, end := YearRange(2025)
	if start.Year() != 2025 || start.Month() != time.January || start.Day() != 1 {
		t.Fatalf("unexpected start %v", start)
	}
	if end.Year() != 2026 || end.Month() != time.January || end.Day() != 1 {
		t.Fatalf("unexpected end %v", end)
	}
	lastMoment := time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)
	if !lastMoment.Before(end) || lastMoment.Before(start) {
		t.Fatalf("year boundary excluded a December transaction")
	}
}
