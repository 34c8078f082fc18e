// Package payproc is the HTTP adapter for the payment processor. Only the
// fields the engine reads are decoded; everything else on the wire is
// ignored.
package payproc

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

	"tally/internal/feed"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ feed.PaymentProvider = (*Client)(nil)

// NewFromEnv creates a client from PAYPROC_BASE_URL and PAYPROC_API_KEY.
// A missing base URL means the processor is not connected; callers treat
// that as a degraded source, not a startup failure.
func NewFromEnv() (*Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("PAYPROC_BASE_URL"))
	if baseURL == "" {
		return nil, errors.New("missing PAYPROC_BASE_URL")
	}
	apiKey := strings.TrimSpace(os.Getenv("PAYPROC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("missing PAYPROC_API_KEY")
	}
	return New(baseURL, apiKey), nil
}

// New creates a client against the given processor endpoint.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type chargeWire struct {
	ID          string `json:"id"`
	AmountCents int64  `json:"amount"`
	Status      string `json:"status"`
	Created     int64  `json:"created"`
}

type chargePageWire struct {
	Data    []chargeWire `json:"data"`
	HasMore bool         `json:"has_more"`
}

func (c *Client) ListCharges(ctx context.Context, r feed.DateRange, cursor string) (feed.ChargePage, error) {
	q := url.Values{}
	q.Set("created[gte]", strconv.FormatInt(r.Start.Unix(), 10))
	q.Set("created[lt]", strconv.FormatInt(r.End.Unix(), 10))
	if cursor != "" {
		q.Set("starting_after", cursor)
	}

	var wire chargePageWire
	if err := c.get(ctx, "/v1/charges", q, &wire); err != nil {
		return feed.ChargePage{}, fmt.Errorf("list charges: %w", err)
	}

	page := feed.ChargePage{HasMore: wire.HasMore}
	for _, ch := range wire.Data {
		page.Charges = append(page.Charges, feed.Charge{
			ID:          ch.ID,
			AmountCents: ch.AmountCents,
			Status:      ch.Status,
			CreatedAt:   time.Unix(ch.Created, 0).UTC(),
		})
	}
	if len(wire.Data) > 0 {
		page.LastID = wire.Data[len(wire.Data)-1].ID
	}
	return page, nil
}

type subscriptionWire struct {
	ID          string `json:"id"`
	PlanName    string `json:"plan_name"`
	AmountCents int64  `json:"amount"`
	Status      string `json:"status"`
}

func (c *Client) ListActiveSubscriptions(ctx context.Context) ([]feed.Subscription, error) {
	q := url.Values{}
	q.Set("status", "active")

	var wire struct {
		Data []subscriptionWire `json:"data"`
	}
	if err := c.get(ctx, "/v1/subscriptions", q, &wire); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	subs := make([]feed.Subscription, 0, len(wire.Data))
	for _, s := range wire.Data {
		subs = append(subs, feed.Subscription{
			ID:          s.ID,
			PlanName:    s.PlanName,
			AmountCents: s.AmountCents,
			Status:      s.Status,
		})
	}
	return subs, nil
}

func (c *Client) RetrieveBalance(ctx context.Context) (feed.Balance, error) {
	var wire struct {
		AvailableCents int64 `json:"available"`
		PendingCents   int64 `json:"pending"`
	}
	if err := c.get(ctx, "/v1/balance", nil, &wire); err != nil {
		return feed.Balance{}, fmt.Errorf("retrieve balance: %w", err)
	}
	return feed.Balance{AvailableCents: wire.AvailableCents, PendingCents: wire.PendingCents}, nil
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
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

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
