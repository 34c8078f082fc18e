package report

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"tally/internal/core"
	"tally/internal/feed"
)

// Overview is the dashboard snapshot: live balance, active subscriptions,
// current-month revenue, and the linked bank accounts, with per-source
// availability.
type Overview struct {
	BalanceAvailableCents int64
	BalancePendingCents   int64
	Subscriptions         []feed.Subscription
	MonthRevenueCents     int64
	BankAccounts          []feed.BankAccount
	PaymentsConnected     bool
	BankConnected         bool
}

// CompileOverview issues the independent reads concurrently and joins
// them. The three payment-processor reads share no dependency; any of them
// failing marks the processor disconnected and leaves its slice of the
// overview zeroed.
func (c *Compiler) CompileOverview(ctx context.Context, now time.Time) (Overview, error) {
	var (
		ov                           Overview
		balanceOK, subsOK, chargesOK bool
	)

	g, ctx := errgroup.WithContext(ctx)

	if c.payments != nil {
		g.Go(func() error {
			bal, err := c.payments.RetrieveBalance(ctx)
			if err != nil {
				slog.WarnContext(ctx, "Balance read failed", "error", err)
				return nil
			}
			ov.BalanceAvailableCents = bal.AvailableCents
			ov.BalancePendingCents = bal.PendingCents
			balanceOK = true
			return nil
		})

		g.Go(func() error {
			subs, err := c.payments.ListActiveSubscriptions(ctx)
			if err != nil {
				slog.WarnContext(ctx, "Subscription read failed", "error", err)
				return nil
			}
			ov.Subscriptions = subs
			subsOK = true
			return nil
		})

		g.Go(func() error {
			start, end := core.MonthRange(now.UTC().Year(), int(now.UTC().Month()))
			charges, err := feed.CollectCharges(ctx, c.payments, feed.DateRange{Start: start, End: end})
			if err != nil {
				slog.WarnContext(ctx, "Charge read failed", "error", err)
				return nil
			}
			for _, ch := range charges {
				if ch.Status == feed.ChargeSucceeded {
					ov.MonthRevenueCents += ch.AmountCents
				}
			}
			chargesOK = true
			return nil
		})
	}

	if c.bank != nil {
		g.Go(func() error {
			accounts, err := c.bank.ListAccounts(ctx)
			if err != nil {
				slog.WarnContext(ctx, "Bank account read failed", "error", err)
				return nil
			}
			ov.BankAccounts = accounts
			ov.BankConnected = true
			return nil
		})
	}

	_ = g.Wait()
	ov.PaymentsConnected = c.payments != nil && balanceOK && subsOK && chargesOK
	return ov, nil
}
