package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/feed"
	feedmemory "tally/internal/feed/memory"
	sheetmemory "tally/internal/gsheet/memory"
	"tally/internal/report"
	"tally/internal/storage"
)

type countingCache struct{ invalidations int }

func (c *countingCache) Invalidate() { c.invalidations++ }

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCategorizeTransactionLearnsAndInvalidates(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	cache := &countingCache{}
	svc := NewLedgerService(repo, nil, cache)

	hw, err := repo.GetCategoryByName(ctx, "Equipment & Hardware")
	if err != nil {
		t.Fatalf("GetCategoryByName: %v", err)
	}

	err = svc.CategorizeTransaction(ctx, core.Categorization{
		ExternalID:       "tx_1",
		CategoryID:       hw.ID,
		Deductible:       true,
		CounterpartyName: "Vercel Inc",
	})
	if err != nil {
		t.Fatalf("CategorizeTransaction: %v", err)
	}

	mappings, err := repo.ListLearnedMappings(ctx)
	if err != nil {
		t.Fatalf("ListLearnedMappings: %v", err)
	}
	if len(mappings) != 1 || mappings[0].CounterpartyKey != "vercel inc" {
		t.Fatalf("mapping not learned: %+v", mappings)
	}
	if mappings[0].CategoryID != hw.ID || !mappings[0].Deductible {
		t.Fatalf("mapping wrong: %+v", mappings[0])
	}
	if cache.invalidations != 1 {
		t.Fatalf("cache invalidations = %d, want 1", cache.invalidations)
	}

	decisions, _ := repo.ListCategorizations(ctx)
	if len(decisions) != 1 || decisions[0].CategoryID != hw.ID {
		t.Fatalf("decision not recorded: %+v", decisions)
	}
}

func TestCategorizeTransactionOverridesPriorDecision(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	svc := NewLedgerService(repo, nil, &countingCache{})

	sw, _ := repo.GetCategoryByName(ctx, "Software & Subscriptions")
	hw, _ := repo.GetCategoryByName(ctx, "Equipment & Hardware")

	if _, err := repo.ApplyCategorization(ctx, core.Categorization{ExternalID: "tx_1", CategoryID: sw.ID, Deductible: true}); err != nil {
		t.Fatalf("ApplyCategorization: %v", err)
	}

	err := svc.CategorizeTransaction(ctx, core.Categorization{
		ExternalID: "tx_1", CategoryID: hw.ID, Deductible: false, CounterpartyName: "Vercel Inc",
	})
	if err != nil {
		t.Fatalf("CategorizeTransaction: %v", err)
	}

	decisions, _ := repo.ListCategorizations(ctx)
	if len(decisions) != 1 || decisions[0].CategoryID != hw.ID || decisions[0].Deductible {
		t.Fatalf("manual decision must overwrite prior one: %+v", decisions)
	}
}

func TestCategorizeTransactionBlankCounterpartySkipsLearning(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	cache := &countingCache{}
	svc := NewLedgerService(repo, nil, cache)

	sw, _ := repo.GetCategoryByName(ctx, "Software & Subscriptions")
	err := svc.CategorizeTransaction(ctx, core.Categorization{
		ExternalID: "tx_1", CategoryID: sw.ID, Deductible: true, CounterpartyName: "  ",
	})
	if err != nil {
		t.Fatalf("CategorizeTransaction: %v", err)
	}

	mappings, _ := repo.ListLearnedMappings(ctx)
	if len(mappings) != 0 {
		t.Fatalf("blank counterparty must not create a mapping: %+v", mappings)
	}
	if cache.invalidations != 0 {
		t.Fatalf("cache must not be invalidated without a write")
	}
}

func TestCategorizeTransactionRejectsDisabledCategory(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	svc := NewLedgerService(repo, nil, nil)

	sw, _ := repo.GetCategoryByName(ctx, "Software & Subscriptions")
	if err := repo.DisableCategory(ctx, sw.ID); err != nil {
		t.Fatalf("DisableCategory: %v", err)
	}

	err := svc.CategorizeTransaction(ctx, core.Categorization{
		ExternalID: "tx_1", CategoryID: sw.ID, CounterpartyName: "Vercel Inc",
	})
	if !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("want ErrUnknownCategory, got %v", err)
	}
}

func TestCreateExpenseRejectsUnknownCategory(t *testing.T) {
	repo := newRepo(t)
	svc := NewLedgerService(repo, nil, nil)

	_, err := svc.CreateExpense(context.Background(), core.ManualExpense{
		CategoryID: 99999, AmountCents: 1000, Vendor: "Acme",
		Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Type: core.EntryExpense,
	})
	if err == nil {
		t.Fatal("expected error for unknown category")
	}
}

func TestRequestExportWithoutBroker(t *testing.T) {
	svc := NewLedgerService(newRepo(t), nil, nil)
	if err := svc.RequestExport(context.Background(), 2025, "admin"); err == nil {
		t.Fatal("expected error without a broker")
	}
}

func TestExportProcessorHandle(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	travel, _ := repo.GetCategoryByName(ctx, "Travel")
	if _, err := repo.CreateExpense(ctx, core.ManualExpense{
		CategoryID: travel.ID, AmountCents: 5000, Vendor: "Amtrak",
		Date: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), Type: core.EntryExpense, Deductible: true,
	}); err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	bank := &feedmemory.Bank{
		Accounts: []feed.BankAccount{{ID: "acc_1"}},
		Transactions: map[string][]core.RawBankTransaction{"acc_1": {
			{ID: "tx_1", AmountCents: -3000, CounterpartyName: "Delta", Status: "posted", PostedAt: time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)},
		}},
	}
	if _, err := repo.ApplyCategorization(ctx, core.Categorization{ExternalID: "tx_1", CategoryID: travel.ID, Deductible: true}); err != nil {
		t.Fatalf("ApplyCategorization: %v", err)
	}

	writer := sheetmemory.New()
	processor := NewExportProcessor(report.NewCompiler(repo, nil, bank), writer)

	if err := processor.Handle(ctx, amqp.NewExportRequestMessage(2025, "admin")); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	rows := writer.Rows(2025)
	if len(rows) != 2 {
		t.Fatalf("want 2 exported rows, got %+v", rows)
	}

	writer.Err = errors.New("sheet unavailable")
	if err := processor.Handle(ctx, amqp.NewExportRequestMessage(2025, "admin")); err == nil {
		t.Fatal("writer failure must propagate")
	}
}
