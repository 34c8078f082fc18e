// Package storage persists the engine's durable state in SQLite: the
// category registry, the manual ledger, categorization decisions, and the
// learned mapping table. External transactions are never stored here; they
// are re-fetched from the feed on every query.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tally/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- category registry ---

func (r *SQLiteRepository) ListCategories(ctx context.Context, includeInactive bool) ([]core.Category, error) {
	cats, err := r.queries.ListCategories(ctx, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := r.queries.GetCategory(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) GetCategoryByName(ctx context.Context, name string) (core.Category, error) {
	c, err := r.queries.GetCategoryByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category by name: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	irs := sql.NullString{String: c.IRSReference, Valid: c.IRSReference != ""}
	created, err := r.queries.CreateCategory(ctx, c.Name, irs, c.SortOrder)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category created",
		"id", created.ID,
		"name", created.Name,
		"irs_reference", created.IRSReference)

	return created, nil
}

// DisableCategory soft-disables a category. Categories are never hard
// deleted while referenced by decisions or expenses.
func (r *SQLiteRepository) DisableCategory(ctx context.Context, id int64) error {
	n, err := r.queries.DisableCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("disable category: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("category %d: %w", id, ErrNotFound)
	}
	return nil
}

// --- manual ledger ---

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.ManualExpense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	id, err := r.queries.CreateExpense(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"vendor", e.Vendor,
		"amount_cents", e.AmountCents,
		"entry_type", string(e.Type))

	return id, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.ManualExpense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	n, err := r.queries.UpdateExpense(ctx, e)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %d: %w", e.ID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) SoftDeleteExpense(ctx context.Context, id int64) error {
	n, err := r.queries.SoftDeleteExpense(ctx, id)
	if err != nil {
		return fmt.Errorf("soft delete expense: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}
	slog.InfoContext(ctx, "Expense soft deleted", "id", id)
	return nil
}

// ListExpensesInRange returns non-deleted manual entries with
// start <= date < end.
func (r *SQLiteRepository) ListExpensesInRange(ctx context.Context, start, end time.Time) ([]core.ManualExpense, error) {
	expenses, err := r.queries.ListExpensesInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list expenses in range: %w", err)
	}
	return expenses, nil
}

// --- categorization decisions ---

// ApplyCategorization is the auto-apply path: insert-or-ignore, reporting
// whether this call created the decision. Two concurrent applies for the
// same external id cannot both report true; the conflict no-op is the only
// concurrency-safety mechanism and the only one needed.
func (r *SQLiteRepository) ApplyCategorization(ctx context.Context, c core.Categorization) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, err
	}
	inserted, err := r.queries.InsertCategorizationIgnore(ctx, c)
	if err != nil {
		return false, fmt.Errorf("apply categorization: %w", err)
	}
	return inserted, nil
}

// OverrideCategorization is the manual path: always overwrites.
func (r *SQLiteRepository) OverrideCategorization(ctx context.Context, c core.Categorization) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := r.queries.UpsertCategorization(ctx, c); err != nil {
		return fmt.Errorf("override categorization: %w", err)
	}

	slog.InfoContext(ctx, "Categorization overridden",
		"external_id", c.ExternalID,
		"category_id", c.CategoryID,
		"deductible", c.Deductible)

	return nil
}

func (r *SQLiteRepository) ListCategorizations(ctx context.Context) ([]core.Categorization, error) {
	cats, err := r.queries.ListCategorizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categorizations: %w", err)
	}
	return cats, nil
}

func (r *SQLiteRepository) UpdateCategorizationCounterparty(ctx context.Context, externalID, name string) error {
	if err := r.queries.UpdateCategorizationCounterparty(ctx, externalID, name); err != nil {
		return fmt.Errorf("backfill counterparty: %w", err)
	}
	return nil
}

// --- learned mappings ---

func (r *SQLiteRepository) UpsertLearnedMapping(ctx context.Context, m core.LearnedMapping) error {
	if m.CounterpartyKey == "" {
		return core.ErrEmptyName
	}
	if err := r.queries.UpsertLearnedMapping(ctx, m); err != nil {
		return fmt.Errorf("upsert learned mapping: %w", err)
	}

	slog.InfoContext(ctx, "Learned mapping recorded",
		"counterparty_key", m.CounterpartyKey,
		"category_id", m.CategoryID)

	return nil
}

func (r *SQLiteRepository) ListLearnedMappings(ctx context.Context) ([]core.LearnedMapping, error) {
	mappings, err := r.queries.ListLearnedMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list learned mappings: %w", err)
	}
	return mappings, nil
}
