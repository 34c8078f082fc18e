// Package categorize implements the two-tier categorization engine:
// learned mappings first, the rule table second. A learned hit always wins
// because it encodes a human-confirmed decision; the rule table is a
// generic heuristic.
package categorize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tally/internal/core"
	"tally/internal/feed"
	"tally/internal/learned"
	"tally/internal/rules"
)

// Store is the slice of persistence the engine needs.
type Store interface {
	ListCategories(ctx context.Context, includeInactive bool) ([]core.Category, error)
	ListCategorizations(ctx context.Context) ([]core.Categorization, error)
	ApplyCategorization(ctx context.Context, c core.Categorization) (bool, error)
	UpdateCategorizationCounterparty(ctx context.Context, externalID, name string) error
}

// Result is the outcome of one auto-categorize run. Skipped counts
// transactions that already had a decision.
type Result struct {
	Suggestions []core.Suggestion
	Applied     int
	Skipped     int
}

type Engine struct {
	store   Store
	bank    feed.BankFeed
	rules   *rules.Table
	learned learned.IndexSource
}

func NewEngine(store Store, bank feed.BankFeed, table *rules.Table, src learned.IndexSource) *Engine {
	return &Engine{store: store, bank: bank, rules: table, learned: src}
}

// AutoCategorize fetches every outflow in the range, suggests a category
// for each undecided one, and optionally persists the suggestions.
// Running it twice in a row with apply=true is idempotent: the second run
// finds everything decided and applies nothing.
func (e *Engine) AutoCategorize(ctx context.Context, accountID string, r feed.DateRange, apply bool) (Result, error) {
	if e.bank == nil {
		return Result{}, fmt.Errorf("bank feed not configured")
	}

	txs, err := feed.CollectBankTransactions(ctx, e.bank, accountID, r)
	if err != nil {
		return Result{}, fmt.Errorf("fetch transactions: %w", err)
	}
	outflows := core.Outflows(txs)

	decided, err := e.decidedByID(ctx)
	if err != nil {
		return Result{}, err
	}

	index, err := e.learned.Index(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load learned index: %w", err)
	}

	categories, err := e.store.ListCategories(ctx, false)
	if err != nil {
		return Result{}, fmt.Errorf("list categories: %w", err)
	}
	byID := make(map[int64]core.Category, len(categories))
	byName := make(map[string]core.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
		byName[strings.ToLower(c.Name)] = c
	}

	var result Result
	for _, tx := range outflows {
		if prior, ok := decided[tx.ExternalID]; ok {
			result.Skipped++
			// Retroactive learning: a decision recorded before the feed
			// exposed a counterparty name gets the name filled in now.
			if prior.CounterpartyName == "" && tx.Counterparty != "" {
				if err := e.store.UpdateCategorizationCounterparty(ctx, tx.ExternalID, tx.Counterparty); err != nil {
					slog.WarnContext(ctx, "Counterparty backfill failed",
						"external_id", tx.ExternalID, "error", err)
				}
			}
			continue
		}

		sug, ok := e.suggest(tx, index, byID, byName)
		if !ok {
			continue
		}
		result.Suggestions = append(result.Suggestions, sug)

		if apply {
			inserted, err := e.store.ApplyCategorization(ctx, core.Categorization{
				ExternalID:       sug.ExternalID,
				CategoryID:       sug.CategoryID,
				Deductible:       sug.Deductible,
				CounterpartyName: tx.Counterparty,
			})
			if err != nil {
				return Result{}, fmt.Errorf("apply suggestion for %s: %w", sug.ExternalID, err)
			}
			if inserted {
				result.Applied++
			}
		}
	}

	slog.InfoContext(ctx, "Auto-categorize run finished",
		"account_id", accountID,
		"outflows", len(outflows),
		"suggestions", len(result.Suggestions),
		"applied", result.Applied,
		"skipped", result.Skipped,
		"apply", apply)

	return result, nil
}

// suggest resolves one transaction: learned mapping first, then the rule
// table. A mapping or rule pointing at a missing or disabled category
// yields no suggestion rather than an error.
func (e *Engine) suggest(tx core.Transaction, index *learned.Index, byID map[int64]core.Category, byName map[string]core.Category) (core.Suggestion, bool) {
	if m, ok := index.Lookup(tx.Counterparty, tx.Description); ok {
		if cat, known := byID[m.CategoryID]; known {
			return suggestion(tx, cat, m.Deductible, core.ProvenanceLearned), true
		}
	}

	if m, ok := e.rules.Classify(rules.SearchText(tx.Counterparty, tx.Description)); ok {
		if cat, known := byName[strings.ToLower(m.Category)]; known {
			return suggestion(tx, cat, m.Deductible, core.ProvenanceRules), true
		}
	}

	return core.Suggestion{}, false
}

func (e *Engine) decidedByID(ctx context.Context) (map[string]core.Categorization, error) {
	decisions, err := e.store.ListCategorizations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categorizations: %w", err)
	}
	byID := make(map[string]core.Categorization, len(decisions))
	for _, d := range decisions {
		byID[d.ExternalID] = d
	}
	return byID, nil
}

func suggestion(tx core.Transaction, cat core.Category, deductible bool, provenance string) core.Suggestion {
	return core.Suggestion{
		ExternalID:   tx.ExternalID,
		Counterparty: tx.Counterparty,
		Description:  tx.Description,
		AmountCents:  tx.AmountCents,
		PostedAt:     tx.PostedAt,
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		Deductible:   deductible,
		Provenance:   provenance,
	}
}
