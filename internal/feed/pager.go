package feed

import (
	"context"
	"fmt"

	"tally/internal/core"
)

// bankPageSize is the window requested per ListTransactions call.
const bankPageSize = 200

// ChargePager walks the cursor-paginated charge feed one page at a time.
// Each page's cursor depends on the prior page's last record, so the walk
// is inherently sequential.
type ChargePager struct {
	provider PaymentProvider
	rng      DateRange
	cursor   string
	done     bool
}

// NewChargePager starts a fresh walk over the given range.
func NewChargePager(p PaymentProvider, r DateRange) *ChargePager {
	return &ChargePager{provider: p, rng: r}
}

// Next fetches the following page. The walk ends once the provider
// reports no more pages or after the first error.
func (p *ChargePager) Next(ctx context.Context) (ChargePage, bool, error) {
	if p.done {
		return ChargePage{}, false, nil
	}
	page, err := p.provider.ListCharges(ctx, p.rng, p.cursor)
	if err != nil {
		p.done = true
		return ChargePage{}, false, fmt.Errorf("list charges (cursor %q): %w", p.cursor, err)
	}
	if !page.HasMore {
		p.done = true
	} else {
		p.cursor = page.LastID
	}
	return page, true, nil
}

// CollectCharges exhausts the charge feed for a range. A mid-pagination
// failure discards every already-fetched page: partially accumulated
// revenue would silently understate totals, so the caller gets either the
// whole window or an error.
func CollectCharges(ctx context.Context, p PaymentProvider, r DateRange) ([]Charge, error) {
	pager := NewChargePager(p, r)
	var all []Charge
	for {
		page, ok, err := pager.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		all = append(all, page.Charges...)
	}
	return all, nil
}

// CollectBankTransactions fetches and normalizes every bank transaction in
// the range. accountID restricts the fetch to one account; empty means all
// accounts the feed reports. The same discard-on-failure rule applies.
func CollectBankTransactions(ctx context.Context, bf BankFeed, accountID string, r DateRange) ([]core.Transaction, error) {
	var accountIDs []string
	if accountID != "" {
		accountIDs = []string{accountID}
	} else {
		accounts, err := bf.ListAccounts(ctx)
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		for _, a := range accounts {
			accountIDs = append(accountIDs, a.ID)
		}
	}

	var raw []core.RawBankTransaction
	for _, id := range accountIDs {
		for offset := 0; ; offset += bankPageSize {
			batch, err := bf.ListTransactions(ctx, id, bankPageSize, offset, r)
			if err != nil {
				return nil, fmt.Errorf("list transactions (account %s, offset %d): %w", id, offset, err)
			}
			raw = append(raw, batch...)
			if len(batch) < bankPageSize {
				break
			}
		}
	}

	return core.Normalize(raw), nil
}
