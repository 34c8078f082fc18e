package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tally/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSeedCategories(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cats, err := repo.ListCategories(ctx, false)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(cats) == 0 {
		t.Fatalf("expected seeded categories")
	}

	sw, err := repo.GetCategoryByName(ctx, "Software & Subscriptions")
	if err != nil {
		t.Fatalf("GetCategoryByName: %v", err)
	}
	if sw.IRSReference != "Line 27a" {
		t.Fatalf("got irs reference %q", sw.IRSReference)
	}

	personal, err := repo.GetCategoryByName(ctx, "Personal")
	if err != nil {
		t.Fatalf("GetCategoryByName: %v", err)
	}
	if personal.IRSReference != "" {
		t.Fatalf("Personal must not carry an IRS reference, got %q", personal.IRSReference)
	}
}

func TestCreateAndDisableCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateCategory(ctx, core.Category{Name: "Research", IRSReference: "Line 27a", SortOrder: 500})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if created.ID == 0 || !created.Active {
		t.Fatalf("got %+v", created)
	}

	// Duplicate name violates the unique constraint.
	if _, err := repo.CreateCategory(ctx, core.Category{Name: "Research"}); err == nil {
		t.Fatalf("expected unique violation")
	}

	if err := repo.DisableCategory(ctx, created.ID); err != nil {
		t.Fatalf("DisableCategory: %v", err)
	}
	active, err := repo.ListCategories(ctx, false)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	for _, c := range active {
		if c.ID == created.ID {
			t.Fatalf("disabled category still listed as active")
		}
	}

	if err := repo.DisableCategory(ctx, 99999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExpenseRangeQueryHalfOpen(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat, err := repo.GetCategoryByName(ctx, "Travel")
	if err != nil {
		t.Fatalf("GetCategoryByName: %v", err)
	}

	dates := []time.Time{
		time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range dates {
		_, err := repo.CreateExpense(ctx, core.ManualExpense{
			CategoryID: cat.ID, AmountCents: 1000, Vendor: "v", Date: d, Type: core.EntryExpense,
		})
		if err != nil {
			t.Fatalf("CreateExpense: %v", err)
		}
	}

	start, end := core.YearRange(2025)
	got, err := repo.ListExpensesInRange(ctx, start, end)
	if err != nil {
		t.Fatalf("ListExpensesInRange: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 expenses inside 2025, got %d", len(got))
	}
}

func TestSoftDeleteExcludesFromRange(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat, _ := repo.GetCategoryByName(ctx, "Travel")
	id, err := repo.CreateExpense(ctx, core.ManualExpense{
		CategoryID: cat.ID, AmountCents: 1000, Vendor: "v",
		Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Type: core.EntryExpense,
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if err := repo.SoftDeleteExpense(ctx, id); err != nil {
		t.Fatalf("SoftDeleteExpense: %v", err)
	}

	start, end := core.YearRange(2025)
	got, err := repo.ListExpensesInRange(ctx, start, end)
	if err != nil {
		t.Fatalf("ListExpensesInRange: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("soft-deleted expense still visible")
	}

	if err := repo.SoftDeleteExpense(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestApplyCategorizationIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat, _ := repo.GetCategoryByName(ctx, "Software & Subscriptions")
	dec := core.Categorization{ExternalID: "tx_1", CategoryID: cat.ID, Deductible: true}

	inserted, err := repo.ApplyCategorization(ctx, dec)
	if err != nil {
		t.Fatalf("ApplyCategorization: %v", err)
	}
	if !inserted {
		t.Fatalf("first apply must insert")
	}

	// Second apply with a different category is a no-op, not a conflict.
	other, _ := repo.GetCategoryByName(ctx, "Travel")
	dec2 := core.Categorization{ExternalID: "tx_1", CategoryID: other.ID}
	inserted, err = repo.ApplyCategorization(ctx, dec2)
	if err != nil {
		t.Fatalf("second ApplyCategorization: %v", err)
	}
	if inserted {
		t.Fatalf("second apply must be a no-op")
	}

	decisions, err := repo.ListCategorizations(ctx)
	if err != nil {
		t.Fatalf("ListCategorizations: %v", err)
	}
	if len(decisions) != 1 || decisions[0].CategoryID != cat.ID {
		t.Fatalf("auto-apply overwrote an existing decision: %+v", decisions)
	}
}

func TestOverrideCategorizationAlwaysWins(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	sw, _ := repo.GetCategoryByName(ctx, "Software & Subscriptions")
	hw, _ := repo.GetCategoryByName(ctx, "Equipment & Hardware")

	if _, err := repo.ApplyCategorization(ctx, core.Categorization{ExternalID: "tx_1", CategoryID: sw.ID, Deductible: true}); err != nil {
		t.Fatalf("ApplyCategorization: %v", err)
	}
	if err := repo.OverrideCategorization(ctx, core.Categorization{ExternalID: "tx_1", CategoryID: hw.ID, Deductible: true, CounterpartyName: "Vercel Inc"}); err != nil {
		t.Fatalf("OverrideCategorization: %v", err)
	}

	decisions, _ := repo.ListCategorizations(ctx)
	if len(decisions) != 1 || decisions[0].CategoryID != hw.ID || decisions[0].CounterpartyName != "Vercel Inc" {
		t.Fatalf("override did not overwrite: %+v", decisions)
	}
}

func TestCounterpartyBackfillOnlyFillsBlanks(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	sw, _ := repo.GetCategoryByName(ctx, "Software & Subscriptions")
	repo.ApplyCategorization(ctx, core.Categorization{ExternalID: "blank", CategoryID: sw.ID})
	repo.ApplyCategorization(ctx, core.Categorization{ExternalID: "named", CategoryID: sw.ID, CounterpartyName: "Original"})

	if err := repo.UpdateCategorizationCounterparty(ctx, "blank", "Vercel Inc"); err != nil {
		t.Fatalf("UpdateCategorizationCounterparty: %v", err)
	}
	if err := repo.UpdateCategorizationCounterparty(ctx, "named", "Wrong"); err != nil {
		t.Fatalf("UpdateCategorizationCounterparty: %v", err)
	}

	decisions, _ := repo.ListCategorizations(ctx)
	byID := map[string]core.Categorization{}
	for _, d := range decisions {
		byID[d.ExternalID] = d
	}
	if byID["blank"].CounterpartyName != "Vercel Inc" {
		t.Fatalf("backfill missed: %+v", byID["blank"])
	}
	if byID["named"].CounterpartyName != "Original" {
		t.Fatalf("backfill overwrote an existing name: %+v", byID["named"])
	}
}

func TestLearnedMappingLastWriteWins(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	sw, _ := repo.GetCategoryByName(ctx, "Software & Subscriptions")
	hw, _ := repo.GetCategoryByName(ctx, "Equipment & Hardware")

	if err := repo.UpsertLearnedMapping(ctx, core.LearnedMapping{CounterpartyKey: "vercel inc", CategoryID: sw.ID, Deductible: true}); err != nil {
		t.Fatalf("UpsertLearnedMapping: %v", err)
	}
	if err := repo.UpsertLearnedMapping(ctx, core.LearnedMapping{CounterpartyKey: "vercel inc", CategoryID: hw.ID, Deductible: true}); err != nil {
		t.Fatalf("UpsertLearnedMapping: %v", err)
	}

	mappings, err := repo.ListLearnedMappings(ctx)
	if err != nil {
		t.Fatalf("ListLearnedMappings: %v", err)
	}
	if len(mappings) != 1 {
		t.Fatalf("expected one mapping per key, got %d", len(mappings))
	}
	if mappings[0].CategoryID != hw.ID {
		t.Fatalf("last write must win, got category %d", mappings[0].CategoryID)
	}
	if mappings[0].LastUpdated.IsZero() {
		t.Fatalf("last_updated not recorded")
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateExpense(ctx, core.ManualExpense{CategoryID: 1, AmountCents: -5, Vendor: "v", Date: time.Now(), Type: core.EntryExpense})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
