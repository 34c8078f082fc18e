package report

import (
	"context"
	"fmt"
	"sort"

	"tally/internal/core"
	"tally/internal/feed"
)

// ExportDeductibleTransactions flattens both origins into one uniform
// ledger for export consumers: manual deductible entries plus IRS-eligible
// bank outflows, stably sorted by date ascending.
func (c *Compiler) ExportDeductibleTransactions(ctx context.Context, year int) ([]core.ExportRow, error) {
	start, end := core.YearRange(year)
	src := c.fetchSources(ctx, feed.DateRange{Start: start, End: end})

	manual, err := c.store.ListExpensesInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list manual entries: %w", err)
	}
	set, err := c.loadDecisions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load decisions: %w", err)
	}

	var rows []core.ExportRow
	for _, e := range manual {
		if e.Type == core.EntryRevenue || !e.Deductible {
			continue
		}
		name := "Uncategorized"
		if cat, ok := set.categories[e.CategoryID]; ok {
			name = cat.Name
		}
		rows = append(rows, core.ExportRow{
			Date:        e.Date,
			Vendor:      e.Vendor,
			Category:    name,
			AmountCents: e.AmountCents,
			Description: e.Description,
			Source:      core.SourceManual,
			Deductible:  true,
		})
	}

	for _, tx := range src.bankTxs {
		if !tx.Outflow() {
			continue
		}
		cat, ok := set.deductibleBankOutflow(tx)
		if !ok {
			continue
		}
		rows = append(rows, core.ExportRow{
			Date:        tx.PostedAt,
			Vendor:      tx.Counterparty,
			Category:    cat.Name,
			AmountCents: -tx.AmountCents,
			Description: tx.Description,
			Source:      core.SourceBank,
			Deductible:  true,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}
