package report

import (
	"context"
	"fmt"
	"sort"

	"tally/internal/core"
	"tally/internal/feed"
)

// CompileTaxSummary builds the year-end deduction view. Manual deductible
// entries and IRS-eligible bank outflows are grouped per category and then
// merged by category name, so one category shows a single combined row no
// matter where its expenses came from.
func (c *Compiler) CompileTaxSummary(ctx context.Context, year int) (core.TaxSummary, error) {
	start, end := core.YearRange(year)
	src := c.fetchSources(ctx, feed.DateRange{Start: start, End: end})

	manual, err := c.store.ListExpensesInRange(ctx, start, end)
	if err != nil {
		return core.TaxSummary{}, fmt.Errorf("list manual entries: %w", err)
	}
	set, err := c.loadDecisions(ctx)
	if err != nil {
		return core.TaxSummary{}, fmt.Errorf("load decisions: %w", err)
	}

	summary := core.TaxSummary{
		Year:              year,
		PaymentsConnected: src.paymentsConnected,
		BankConnected:     src.bankConnected,
	}

	for _, ch := range src.charges {
		if ch.Status == feed.ChargeSucceeded {
			summary.GrossIncomeCents += ch.AmountCents
		}
	}

	byCategory := make(map[string]*core.CategoryDeduction)
	add := func(name string, cents int64) {
		row, ok := byCategory[name]
		if !ok {
			row = &core.CategoryDeduction{Category: name}
			byCategory[name] = row
		}
		row.Count++
		row.TotalCents += cents
	}

	for _, e := range manual {
		if e.Type == core.EntryRevenue {
			summary.GrossIncomeCents += e.AmountCents
			continue
		}
		if !e.Deductible {
			continue
		}
		name := "Uncategorized"
		if cat, ok := set.categories[e.CategoryID]; ok {
			name = cat.Name
		}
		add(name, e.AmountCents)
	}

	for _, tx := range src.bankTxs {
		if !tx.Outflow() {
			continue
		}
		if cat, ok := set.deductibleBankOutflow(tx); ok {
			add(cat.Name, -tx.AmountCents)
		}
	}

	summary.DeductibleByCategory = make([]core.CategoryDeduction, 0, len(byCategory))
	for _, row := range byCategory {
		summary.TotalDeductionsCents += row.TotalCents
		summary.DeductibleByCategory = append(summary.DeductibleByCategory, *row)
	}
	sort.Slice(summary.DeductibleByCategory, func(i, j int) bool {
		a, b := summary.DeductibleByCategory[i], summary.DeductibleByCategory[j]
		if a.TotalCents != b.TotalCents {
			return a.TotalCents > b.TotalCents
		}
		return a.Category < b.Category
	})

	summary.EstimatedTaxableIncomeCents = summary.GrossIncomeCents - summary.TotalDeductionsCents
	return summary, nil
}
