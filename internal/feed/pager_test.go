package feed_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/feed"
	"tally/internal/feed/memory"
)

func yearRange(year int) feed.DateRange {
	start, end := core.YearRange(year)
	return feed.DateRange{Start: start, End: end}
}

func TestCollectChargesWalksEveryPage(t *testing.T) {
	charges := make([]feed.Charge, 0, 25)
	for i := 0; i < 25; i++ {
		charges = append(charges, feed.Charge{
			ID:          string(rune('a'+i/10)) + string(rune('0'+i%10)),
			AmountCents: 100,
			Status:      feed.ChargeSucceeded,
			CreatedAt:   time.Date(2025, 4, 1+i, 0, 0, 0, 0, time.UTC),
		})
	}
	payments := &memory.Payments{Charges: charges, PageSize: 10}

	got, err := feed.CollectCharges(context.Background(), payments, yearRange(2025))
	if err != nil {
		t.Fatalf("CollectCharges: %v", err)
	}
	if len(got) != 25 {
		t.Fatalf("expected 25 charges, got %d", len(got))
	}
	if payments.ListChargesCalls != 3 {
		t.Fatalf("expected 3 pages, got %d calls", payments.ListChargesCalls)
	}
}

func TestCollectChargesRangeFilter(t *testing.T) {
	payments := &memory.Payments{Charges: []feed.Charge{
		{ID: "in", CreatedAt: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "out", CreatedAt: time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)},
	}}
	got, err := feed.CollectCharges(context.Background(), payments, yearRange(2025))
	if err != nil {
		t.Fatalf("CollectCharges: %v", err)
	}
	if len(got) != 1 || got[0].ID != "in" {
		t.Fatalf("got %v", got)
	}
}

func TestCollectChargesDiscardsPartialOnError(t *testing.T) {
	payments := &memory.Payments{Err: errors.New("upstream 500")}
	got, err := feed.CollectCharges(context.Background(), payments, yearRange(2025))
	if err == nil {
		t.Fatalf("expected error")
	}
	if got != nil {
		t.Fatalf("partial pages must be discarded, got %v", got)
	}
}

func TestChargePagerStopsAfterError(t *testing.T) {
	payments := &memory.Payments{Err: errors.New("boom")}
	pager := feed.NewChargePager(payments, yearRange(2025))

	if _, _, err := pager.Next(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	// A failed pager never issues another upstream call.
	_, ok, err := pager.Next(context.Background())
	if ok || err != nil {
		t.Fatalf("expected exhausted pager, got ok=%v err=%v", ok, err)
	}
	if payments.ListChargesCalls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", payments.ListChargesCalls)
	}
}

func TestCollectBankTransactionsNormalizes(t *testing.T) {
	bank := &memory.Bank{
		Accounts: []feed.BankAccount{{ID: "acc_1"}, {ID: "acc_2"}},
		Transactions: map[string][]core.RawBankTransaction{
			"acc_1": {
				{ID: "tx_1", AmountCents: -2000, Status: "posted", PostedAt: time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)},
				{ID: "tx_2", AmountCents: -900, Status: core.StatusFailed, PostedAt: time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC)},
			},
			"acc_2": {
				{ID: "tx_3", AmountCents: 5000, Status: "posted", PostedAt: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)},
			},
		},
	}

	got, err := feed.CollectBankTransactions(context.Background(), bank, "", yearRange(2025))
	if err != nil {
		t.Fatalf("CollectBankTransactions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected failed tx filtered out, got %d transactions", len(got))
	}

	scoped, err := feed.CollectBankTransactions(context.Background(), bank, "acc_2", yearRange(2025))
	if err != nil {
		t.Fatalf("CollectBankTransactions scoped: %v", err)
	}
	if len(scoped) != 1 || scoped[0].ExternalID != "tx_3" {
		t.Fatalf("got %v", scoped)
	}
}

func TestCollectBankTransactionsAccountListError(t *testing.T) {
	bank := &memory.Bank{Err: errors.New("not linked")}
	if _, err := feed.CollectBankTransactions(context.Background(), bank, "", yearRange(2025)); err == nil {
		t.Fatalf("expected error")
	}
}
