// Package feed defines the read interfaces over the two external
// transaction sources: the payment processor and the bank-feed provider.
// Either adapter may be unavailable; every consumer treats a failed or nil
// adapter as a disconnected source, never as a fatal error.
package feed

import (
	"context"
	"time"

	"tally/internal/core"
)

// Charge statuses reported by the payment processor. Only succeeded
// charges count as revenue.
const ChargeSucceeded = "succeeded"

type (
	// DateRange is a half-open [Start, End) window.
	DateRange struct {
		Start time.Time
		End   time.Time
	}

	Charge struct {
		ID          string
		AmountCents int64
		Status      string
		CreatedAt   time.Time
	}

	// ChargePage is one page of the cursor-paginated charge feed. LastID is
	// the cursor for the next page when HasMore is set.
	ChargePage struct {
		Charges []Charge
		HasMore bool
		LastID  string
	}

	Subscription struct {
		ID          string
		PlanName    string
		AmountCents int64
		Status      string
	}

	Balance struct {
		AvailableCents int64
		PendingCents   int64
	}

	BankAccount struct {
		ID   string
		Name string
		Mask string
	}
)

// PaymentProvider reads the payment processor. The three operations share
// no dependency and may be issued concurrently.
type PaymentProvider interface {
	ListCharges(ctx context.Context, r DateRange, cursor string) (ChargePage, error)
	ListActiveSubscriptions(ctx context.Context) ([]Subscription, error)
	RetrieveBalance(ctx context.Context) (Balance, error)
}

// BankFeed reads the bank-feed provider. ListTransactions depends on an
// account id from ListAccounts, so those two stay sequential.
type BankFeed interface {
	ListAccounts(ctx context.Context) ([]BankAccount, error)
	ListTransactions(ctx context.Context, accountID string, limit, offset int, r DateRange) ([]core.RawBankTransaction, error)
}

// Contains reports whether t falls inside the half-open range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}
