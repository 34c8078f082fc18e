// Package memory provides in-memory implementations of the feed ports,
// used by tests and local development where no upstream is configured.
package memory

import (
	"context"
	"sort"

	"tally/internal/core"
	"tally/internal/feed"
)

// Payments is an in-memory feed.PaymentProvider. PageSize controls how the
// charge feed paginates; Fail makes every call return Err.
type Payments struct {
	Charges       []feed.Charge
	Subscriptions []feed.Subscription
	Balance       feed.Balance
	PageSize      int
	Err           error

	// ListChargesCalls counts pages served, for pagination assertions.
	ListChargesCalls int
}

var _ feed.PaymentProvider = (*Payments)(nil)

func (p *Payments) ListCharges(ctx context.Context, r feed.DateRange, cursor string) (feed.ChargePage, error) {
	p.ListChargesCalls++
	if p.Err != nil {
		return feed.ChargePage{}, p.Err
	}

	inRange := make([]feed.Charge, 0, len(p.Charges))
	for _, c := range p.Charges {
		if r.Contains(c.CreatedAt) {
			inRange = append(inRange, c)
		}
	}
	sort.Slice(inRange, func(i, j int) bool { return inRange[i].ID < inRange[j].ID })

	start := 0
	if cursor != "" {
		for i, c := range inRange {
			if c.ID == cursor {
				start = i + 1
				break
			}
		}
	}

	size := p.PageSize
	if size <= 0 {
		size = len(inRange) - start
	}
	end := start + size
	if end > len(inRange) {
		end = len(inRange)
	}

	page := feed.ChargePage{Charges: inRange[start:end], HasMore: end < len(inRange)}
	if len(page.Charges) > 0 {
		page.LastID = page.Charges[len(page.Charges)-1].ID
	}
	return page, nil
}

func (p *Payments) ListActiveSubscriptions(ctx context.Context) ([]feed.Subscription, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Subscriptions, nil
}

func (p *Payments) RetrieveBalance(ctx context.Context) (feed.Balance, error) {
	if p.Err != nil {
		return feed.Balance{}, p.Err
	}
	return p.Balance, nil
}

// Bank is an in-memory feed.BankFeed keyed by account id.
type Bank struct {
	Accounts     []feed.BankAccount
	Transactions map[string][]core.RawBankTransaction
	Err          error
}

var _ feed.BankFeed = (*Bank)(nil)

func (b *Bank) ListAccounts(ctx context.Context) ([]feed.BankAccount, error) {
	if b.Err != nil {
		return nil, b.Err
	}
	return b.Accounts, nil
}

func (b *Bank) ListTransactions(ctx context.Context, accountID string, limit, offset int, r feed.DateRange) ([]core.RawBankTransaction, error) {
	if b.Err != nil {
		return nil, b.Err
	}

	inRange := make([]core.RawBankTransaction, 0)
	for _, tx := range b.Transactions[accountID] {
		at := tx.PostedAt
		if at.IsZero() {
			at = tx.CreatedAt
		}
		if r.Contains(at) {
			inRange = append(inRange, tx)
		}
	}

	if offset >= len(inRange) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(inRange) {
		end = len(inRange)
	}
	return inRange[offset:end], nil
}
