// Package report compiles the read-side views: monthly P&L, the year-end
// tax summary, the deductible-transaction export, and the dashboard
// overview. Nothing here is persisted; every compile re-derives from the
// ledger and the live feeds.
package report

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/core"
	"tally/internal/feed"
)

// Store is the slice of persistence the compilers read.
type Store interface {
	ListCategories(ctx context.Context, includeInactive bool) ([]core.Category, error)
	ListCategorizations(ctx context.Context) ([]core.Categorization, error)
	ListExpensesInRange(ctx context.Context, start, end time.Time) ([]core.ManualExpense, error)
}

// Compiler builds reports from the ledger plus the two external feeds.
// Either feed may be nil (not configured) or failing; both cases degrade
// that source to a zero contribution with its Connected flag cleared.
type Compiler struct {
	store    Store
	payments feed.PaymentProvider
	bank     feed.BankFeed
}

func NewCompiler(store Store, payments feed.PaymentProvider, bank feed.BankFeed) *Compiler {
	return &Compiler{store: store, payments: payments, bank: bank}
}

// sources holds one year of feed data plus per-source availability.
type sources struct {
	charges           []feed.Charge
	bankTxs           []core.Transaction
	paymentsConnected bool
	bankConnected     bool
}

// fetchSources pulls both feeds for the range concurrently. A feed that is
// nil or errors contributes nothing; only ledger reads are fatal here, and
// the ledger is not read by this function.
func (c *Compiler) fetchSources(ctx context.Context, r feed.DateRange) sources {
	var src sources
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if c.payments == nil {
			return nil
		}
		charges, err := feed.CollectCharges(ctx, c.payments, r)
		if err != nil {
			slog.WarnContext(ctx, "Payment processor unavailable, compiling without it", "error", err)
			return nil
		}
		src.charges = charges
		src.paymentsConnected = true
		return nil
	})

	g.Go(func() error {
		if c.bank == nil {
			return nil
		}
		txs, err := feed.CollectBankTransactions(ctx, c.bank, "", r)
		if err != nil {
			slog.WarnContext(ctx, "Bank feed unavailable, compiling without it", "error", err)
			return nil
		}
		src.bankTxs = txs
		src.bankConnected = true
		return nil
	})

	// The goroutines never return errors; Wait only joins them.
	_ = g.Wait()
	return src
}

// decisionSet indexes categorizations by external id with their category
// resolved, for the bank-outflow passes below.
type decisionSet struct {
	byExternalID map[string]core.Categorization
	categories   map[int64]core.Category
}

func (c *Compiler) loadDecisions(ctx context.Context) (decisionSet, error) {
	decisions, err := c.store.ListCategorizations(ctx)
	if err != nil {
		return decisionSet{}, err
	}
	categories, err := c.store.ListCategories(ctx, true)
	if err != nil {
		return decisionSet{}, err
	}

	set := decisionSet{
		byExternalID: make(map[string]core.Categorization, len(decisions)),
		categories:   make(map[int64]core.Category, len(categories)),
	}
	for _, d := range decisions {
		set.byExternalID[d.ExternalID] = d
	}
	for _, cat := range categories {
		set.categories[cat.ID] = cat
	}
	return set, nil
}

// deductibleBankOutflow reports whether a bank outflow counts toward
// deductions: the decision must be flagged deductible and the category must
// carry an IRS reference. A deductible flag on a reference-less category
// (Personal, Uncategorized) is ignored.
func (s decisionSet) deductibleBankOutflow(tx core.Transaction) (core.Category, bool) {
	d, ok := s.byExternalID[tx.ExternalID]
	if !ok || !d.Deductible {
		return core.Category{}, false
	}
	cat, ok := s.categories[d.CategoryID]
	if !ok || strings.TrimSpace(cat.IRSReference) == "" {
		return core.Category{}, false
	}
	return cat, true
}

// categorized reports whether the outflow has a decision, resolving its
// category when the id is still known.
func (s decisionSet) categorized(tx core.Transaction) (core.Categorization, bool) {
	d, ok := s.byExternalID[tx.ExternalID]
	return d, ok
}
