package report

import (
	"context"
	"fmt"
	"math"

	"tally/internal/core"
	"tally/internal/feed"
)

// CompilePnL builds the monthly P&L for one calendar year. comparisonYear
// of zero means no comparison; otherwise a reduced recomputation of that
// year is attached for display next to the primary one.
//
// Revenue comes from succeeded charges plus manual revenue entries.
// Expenses are the union of manual expense entries and categorized bank
// outflows; an uncategorized outflow is invisible here, because
// categorization is the prerequisite for counting as a business expense.
func (c *Compiler) CompilePnL(ctx context.Context, year, comparisonYear int) (core.PnL, error) {
	pnl, err := c.compileYear(ctx, year)
	if err != nil {
		return core.PnL{}, err
	}

	if comparisonYear != 0 && comparisonYear != year {
		prev, err := c.compileYear(ctx, comparisonYear)
		if err != nil {
			return core.PnL{}, fmt.Errorf("compile comparison year %d: %w", comparisonYear, err)
		}
		pnl.Comparison = &core.YearComparison{
			Year:               prev.Year,
			TotalRevenueCents:  prev.TotalRevenueCents,
			TotalExpensesCents: prev.TotalExpensesCents,
			NetProfitCents:     prev.NetProfitCents,
		}
	}

	return pnl, nil
}

func (c *Compiler) compileYear(ctx context.Context, year int) (core.PnL, error) {
	start, end := core.YearRange(year)
	src := c.fetchSources(ctx, feed.DateRange{Start: start, End: end})

	manual, err := c.store.ListExpensesInRange(ctx, start, end)
	if err != nil {
		return core.PnL{}, fmt.Errorf("list manual entries: %w", err)
	}
	set, err := c.loadDecisions(ctx)
	if err != nil {
		return core.PnL{}, fmt.Errorf("load decisions: %w", err)
	}

	pnl := core.PnL{
		Year:              year,
		PaymentsConnected: src.paymentsConnected,
		BankConnected:     src.bankConnected,
	}
	for i := range pnl.Months {
		pnl.Months[i].Month = i + 1
	}

	for _, ch := range src.charges {
		if ch.Status != feed.ChargeSucceeded {
			continue
		}
		pnl.Months[ch.CreatedAt.UTC().Month()-1].RevenueCents += ch.AmountCents
	}

	for _, e := range manual {
		bucket := &pnl.Months[e.Date.UTC().Month()-1]
		if e.Type == core.EntryRevenue {
			bucket.RevenueCents += e.AmountCents
			continue
		}
		bucket.ExpenseCents += e.AmountCents
		if e.Deductible {
			pnl.TotalDeductionsCents += e.AmountCents
		}
	}

	for _, tx := range src.bankTxs {
		if !tx.Outflow() {
			continue
		}
		if _, ok := set.categorized(tx); !ok {
			continue
		}
		bucket := &pnl.Months[tx.PostedAt.UTC().Month()-1]
		bucket.ExpenseCents += -tx.AmountCents
		if _, ok := set.deductibleBankOutflow(tx); ok {
			pnl.TotalDeductionsCents += -tx.AmountCents
		}
	}

	// Derived values only after all buckets are fully accumulated.
	for i := range pnl.Months {
		bucket := &pnl.Months[i]
		bucket.NetCents = bucket.RevenueCents - bucket.ExpenseCents
		if bucket.RevenueCents > 0 {
			bucket.MarginPercent = int64(math.Round(float64(bucket.NetCents) / float64(bucket.RevenueCents) * 100))
		}
		pnl.TotalRevenueCents += bucket.RevenueCents
		pnl.TotalExpensesCents += bucket.ExpenseCents
	}
	pnl.NetProfitCents = pnl.TotalRevenueCents - pnl.TotalExpensesCents

	return pnl, nil
}
