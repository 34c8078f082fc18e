package storage

import (
	"context"
	"database/sql"
	"time"

	"tally/internal/core"
)

// DBTX is the subset of *sql.DB / *sql.Tx the query layer needs.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the raw SQL for one connection or transaction.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const dateLayout = "2006-01-02"

// timeLayouts covers our own RFC3339 writes and sqlite's datetime('now')
// column defaults.
var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05"}

func parseStoredTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// --- categories ---

const createCategory = `
INSERT INTO categories (name, irs_reference, sort_order, active)
VALUES (?, ?, ?, 1)
RETURNING id, name, COALESCE(irs_reference, ''), sort_order, active
`

func (q *Queries) CreateCategory(ctx context.Context, name string, irsReference sql.NullString, sortOrder int64) (core.Category, error) {
	row := q.db.QueryRowContext(ctx, createCategory, name, irsReference, sortOrder)
	return scanCategory(row)
}

const listCategories = `
SELECT id, name, COALESCE(irs_reference, ''), sort_order, active
FROM categories
WHERE active = 1 OR ? = 1
ORDER BY sort_order, name
`

func (q *Queries) ListCategories(ctx context.Context, includeInactive bool) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, boolToInt(includeInactive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		c, err := scanCategoryRows(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

const getCategory = `
SELECT id, name, COALESCE(irs_reference, ''), sort_order, active
FROM categories WHERE id = ?
`

func (q *Queries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, getCategory, id))
}

const getCategoryByName = `
SELECT id, name, COALESCE(irs_reference, ''), sort_order, active
FROM categories WHERE name = ?
`

func (q *Queries) GetCategoryByName(ctx context.Context, name string) (core.Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, getCategoryByName, name))
}

const disableCategory = `UPDATE categories SET active = 0 WHERE id = ?`

func (q *Queries) DisableCategory(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, disableCategory, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanCategory(row *sql.Row) (core.Category, error) {
	var c core.Category
	var active int64
	if err := row.Scan(&c.ID, &c.Name, &c.IRSReference, &c.SortOrder, &active); err != nil {
		return core.Category{}, err
	}
	c.Active = active != 0
	return c, nil
}

func scanCategoryRows(rows *sql.Rows) (core.Category, error) {
	var c core.Category
	var active int64
	if err := rows.Scan(&c.ID, &c.Name, &c.IRSReference, &c.SortOrder, &active); err != nil {
		return core.Category{}, err
	}
	c.Active = active != 0
	return c, nil
}

// --- expenses ---

const createExpense = `
INSERT INTO expenses (category_id, amount_cents, vendor, description, entry_date, entry_type, deductible, receipt_url, created_by)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

func (q *Queries) CreateExpense(ctx context.Context, e core.ManualExpense) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createExpense,
		e.CategoryID, e.AmountCents, e.Vendor, e.Description,
		e.Date.UTC().Format(dateLayout), string(e.Type),
		boolToInt(e.Deductible), e.ReceiptURL, e.CreatedBy,
	).Scan(&id)
	return id, err
}

const updateExpense = `
UPDATE expenses
SET category_id = ?, amount_cents = ?, vendor = ?, description = ?,
    entry_date = ?, entry_type = ?, deductible = ?, receipt_url = ?
WHERE id = ? AND deleted_at IS NULL
`

func (q *Queries) UpdateExpense(ctx context.Context, e core.ManualExpense) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateExpense,
		e.CategoryID, e.AmountCents, e.Vendor, e.Description,
		e.Date.UTC().Format(dateLayout), string(e.Type),
		boolToInt(e.Deductible), e.ReceiptURL, e.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const softDeleteExpense = `
UPDATE expenses SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL
`

func (q *Queries) SoftDeleteExpense(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, softDeleteExpense, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listExpensesInRange = `
SELECT id, category_id, amount_cents, vendor, description, entry_date, entry_type, deductible, receipt_url, created_by
FROM expenses
WHERE entry_date >= ? AND entry_date < ? AND deleted_at IS NULL
ORDER BY entry_date, id
`

func (q *Queries) ListExpensesInRange(ctx context.Context, start, end time.Time) ([]core.ManualExpense, error) {
	rows, err := q.db.QueryContext(ctx, listExpensesInRange,
		start.UTC().Format(dateLayout), end.UTC().Format(dateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []core.ManualExpense
	for rows.Next() {
		var e core.ManualExpense
		var entryDate, entryType string
		var deductible int64
		if err := rows.Scan(&e.ID, &e.CategoryID, &e.AmountCents, &e.Vendor, &e.Description,
			&entryDate, &entryType, &deductible, &e.ReceiptURL, &e.CreatedBy); err != nil {
			return nil, err
		}
		e.Date, _ = time.Parse(dateLayout, entryDate)
		e.Type = core.EntryType(entryType)
		e.Deductible = deductible != 0
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// --- categorizations ---

const insertCategorizationIgnore = `
INSERT INTO categorizations (external_id, category_id, deductible, counterparty_name, notes, decided_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(external_id) DO NOTHING
`

// InsertCategorizationIgnore is the auto-apply write path: a no-op when a
// decision already exists for the external id. Returns whether a row was
// actually inserted.
func (q *Queries) InsertCategorizationIgnore(ctx context.Context, c core.Categorization) (bool, error) {
	res, err := q.db.ExecContext(ctx, insertCategorizationIgnore,
		c.ExternalID, c.CategoryID, boolToInt(c.Deductible), c.CounterpartyName, c.Notes,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const upsertCategorization = `
INSERT INTO categorizations (external_id, category_id, deductible, counterparty_name, notes, decided_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(external_id) DO UPDATE SET
    category_id = excluded.category_id,
    deductible = excluded.deductible,
    counterparty_name = excluded.counterparty_name,
    notes = excluded.notes,
    decided_at = excluded.decided_at
`

// UpsertCategorization is the manual write path: a correction always
// overwrites the existing decision.
func (q *Queries) UpsertCategorization(ctx context.Context, c core.Categorization) error {
	_, err := q.db.ExecContext(ctx, upsertCategorization,
		c.ExternalID, c.CategoryID, boolToInt(c.Deductible), c.CounterpartyName, c.Notes,
		time.Now().UTC().Format(time.RFC3339))
	return err
}

const listCategorizations = `
SELECT external_id, category_id, deductible, counterparty_name, notes
FROM categorizations
`

func (q *Queries) ListCategorizations(ctx context.Context) ([]core.Categorization, error) {
	rows, err := q.db.QueryContext(ctx, listCategorizations)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []core.Categorization
	for rows.Next() {
		var c core.Categorization
		var deductible int64
		if err := rows.Scan(&c.ExternalID, &c.CategoryID, &deductible, &c.CounterpartyName, &c.Notes); err != nil {
			return nil, err
		}
		c.Deductible = deductible != 0
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

const updateCategorizationCounterparty = `
UPDATE categorizations SET counterparty_name = ? WHERE external_id = ? AND counterparty_name = ''
`

// UpdateCategorizationCounterparty backfills a counterparty name onto a
// decision recorded before the name was available. Existing names are
// never overwritten.
func (q *Queries) UpdateCategorizationCounterparty(ctx context.Context, externalID, name string) error {
	_, err := q.db.ExecContext(ctx, updateCategorizationCounterparty, name, externalID)
	return err
}

// --- learned mappings ---

const upsertLearnedMapping = `
INSERT INTO learned_mappings (counterparty_key, category_id, deductible, last_updated)
VALUES (?, ?, ?, ?)
ON CONFLICT(counterparty_key) DO UPDATE SET
    category_id = excluded.category_id,
    deductible = excluded.deductible,
    last_updated = excluded.last_updated
`

// UpsertLearnedMapping records a decision for a counterparty key. Last
// write wins; there is never more than one mapping per key.
func (q *Queries) UpsertLearnedMapping(ctx context.Context, m core.LearnedMapping) error {
	_, err := q.db.ExecContext(ctx, upsertLearnedMapping,
		m.CounterpartyKey, m.CategoryID, boolToInt(m.Deductible),
		time.Now().UTC().Format(time.RFC3339))
	return err
}

const listLearnedMappings = `
SELECT counterparty_key, category_id, deductible, last_updated
FROM learned_mappings
`

func (q *Queries) ListLearnedMappings(ctx context.Context) ([]core.LearnedMapping, error) {
	rows, err := q.db.QueryContext(ctx, listLearnedMappings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []core.LearnedMapping
	for rows.Next() {
		var m core.LearnedMapping
		var deductible int64
		var lastUpdated string
		if err := rows.Scan(&m.CounterpartyKey, &m.CategoryID, &deductible, &lastUpdated); err != nil {
			return nil, err
		}
		m.Deductible = deductible != 0
		m.LastUpdated = parseStoredTime(lastUpdated)
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}
