package core

import "time"

// RawBankTransaction is the bank-feed provider's native record shape, as
// consumed by the normalizer. Only the fields the engine reads are present.
type RawBankTransaction struct {
	ID               string
	AmountCents      int64
	CounterpartyName string
	BankDescription  string
	Status           string
	PostedAt         time.Time
	CreatedAt        time.Time
}

// Normalize projects raw bank records into the common transaction view,
// dropping every record whose status is failed or cancelled. This is the
// single chokepoint guaranteeing failed transfers never appear as financial
// activity anywhere downstream.
func Normalize(raw []RawBankTransaction) []Transaction {
	out := make([]Transaction, 0, len(raw))
	for _, r := range raw {
		if r.Status == StatusFailed || r.Status == StatusCancelled {
			continue
		}
		posted := r.PostedAt
		if posted.IsZero() {
			posted = r.CreatedAt
		}
		out = append(out, Transaction{
			ExternalID:   r.ID,
			AmountCents:  r.AmountCents,
			Counterparty: r.CounterpartyName,
			Description:  r.BankDescription,
			Status:       r.Status,
			PostedAt:     posted,
		})
	}
	return out
}

// Outflows filters a normalized slice down to categorizable transactions.
func Outflows(txs []Transaction) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Outflow() {
			out = append(out, t)
		}
	}
	return out
}
