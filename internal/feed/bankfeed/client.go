// Package bankfeed is the HTTP adapter for the bank-feed provider.
package bankfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"tally/internal/core"
	"tally/internal/feed"
)

type Client struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

var _ feed.BankFeed = (*Client)(nil)

// NewFromEnv creates a client from BANKFEED_BASE_URL and
// BANKFEED_ACCESS_TOKEN. A missing base URL means no bank connection.
func NewFromEnv() (*Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("BANKFEED_BASE_URL"))
	if baseURL == "" {
		return nil, errors.New("missing BANKFEED_BASE_URL")
	}
	token := strings.TrimSpace(os.Getenv("BANKFEED_ACCESS_TOKEN"))
	if token == "" {
		return nil, errors.New("missing BANKFEED_ACCESS_TOKEN")
	}
	return New(baseURL, token), nil
}

// New creates a client against the given feed endpoint.
func New(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		http:        &http.Client{Timeout: 30 * time.Second},
	}
}

type accountWire struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Mask string `json:"mask"`
}

func (c *Client) ListAccounts(ctx context.Context) ([]feed.BankAccount, error) {
	var wire struct {
		Accounts []accountWire `json:"accounts"`
	}
	if err := c.get(ctx, "/accounts", nil, &wire); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	accounts := make([]feed.BankAccount, 0, len(wire.Accounts))
	for _, a := range wire.Accounts {
		accounts = append(accounts, feed.BankAccount{ID: a.ID, Name: a.Name, Mask: a.Mask})
	}
	return accounts, nil
}

type transactionWire struct {
	ID               string `json:"id"`
	AmountCents      int64  `json:"amount"`
	CounterpartyName string `json:"counterparty_name"`
	Description      string `json:"description"`
	Status           string `json:"status"`
	PostedAt         string `json:"posted_at"`
	CreatedAt        string `json:"created_at"`
}

func (c *Client) ListTransactions(ctx context.Context, accountID string, limit, offset int, r feed.DateRange) ([]core.RawBankTransaction, error) {
	q := url.Values{}
	q.Set("account_id", accountID)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("from", r.Start.Format(time.RFC3339))
	q.Set("to", r.End.Format(time.RFC3339))

	var wire struct {
		Transactions []transactionWire `json:"transactions"`
	}
	if err := c.get(ctx, "/transactions", q, &wire); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	txs := make([]core.RawBankTransaction, 0, len(wire.Transactions))
	for _, t := range wire.Transactions {
		txs = append(txs, core.RawBankTransaction{
			ID:               t.ID,
			AmountCents:      t.AmountCents,
			CounterpartyName: t.CounterpartyName,
			BankDescription:  t.Description,
			Status:           t.Status,
			PostedAt:         parseTime(t.PostedAt),
			CreatedAt:        parseTime(t.CreatedAt),
		})
	}
	return txs, nil
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
