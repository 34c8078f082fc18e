package learned

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/core"
)

func TestLookupExactBeforeFuzzy(t *testing.T) {
	ix := NewIndex([]core.LearnedMapping{
		{CounterpartyKey: "vercel inc", CategoryID: 1},
		{CounterpartyKey: "vercel", CategoryID: 2},
	})

	// "Vercel Inc" is an exact key after normalization; the fuzzy pass
	// (which would prefer the longer key anyway) must not be needed.
	m, ok := ix.Lookup("Vercel Inc", "")
	if !ok || m.CategoryID != 1 {
		t.Fatalf("got %+v, want exact hit on category 1", m)
	}

	m, ok = ix.Lookup("vercel", "")
	if !ok || m.CategoryID != 2 {
		t.Fatalf("got %+v, want exact hit on category 2", m)
	}
}

func TestLookupSubstringBothDirections(t *testing.T) {
	ix := NewIndex([]core.LearnedMapping{
		{CounterpartyKey: "amazon", CategoryID: 7, Deductible: true},
	})

	// Candidate contains the key.
	m, ok := ix.Lookup("AMAZON.COM*1A2B3", "")
	if !ok || m.CategoryID != 7 || !m.Deductible {
		t.Fatalf("got %+v", m)
	}

	// Key contains the candidate.
	ix2 := NewIndex([]core.LearnedMapping{
		{CounterpartyKey: "vercel inc #2", CategoryID: 9},
	})
	if m, ok := ix2.Lookup("Vercel Inc", ""); !ok || m.CategoryID != 9 {
		t.Fatalf("got %+v ok=%v", m, ok)
	}
}

func TestLookupDescriptionFallback(t *testing.T) {
	ix := NewIndex([]core.LearnedMapping{
		{CounterpartyKey: "stripe", CategoryID: 3},
	})
	// No counterparty name; the bank description carries the evidence.
	m, ok := ix.Lookup("", "STRIPE PAYMENT 4029")
	if !ok || m.CategoryID != 3 {
		t.Fatalf("got %+v ok=%v", m, ok)
	}
}

func TestLookupTieBreakLongestKey(t *testing.T) {
	// Both keys satisfy the substring relation with "amazon prime video";
	// the longer key must win regardless of insertion order.
	forward := NewIndex([]core.LearnedMapping{
		{CounterpartyKey: "amazon", CategoryID: 1},
		{CounterpartyKey: "amazon prime", CategoryID: 2},
	})
	reversed := NewIndex([]core.LearnedMapping{
		{CounterpartyKey: "amazon prime", CategoryID: 2},
		{CounterpartyKey: "amazon", CategoryID: 1},
	})
	for i, ix := range []*Index{forward, reversed} {
		m, ok := ix.Lookup("amazon prime video", "")
		if !ok || m.CategoryID != 2 {
			t.Fatalf("index %d: got %+v, want longest key to win", i, m)
		}
	}
}

func TestLookupMiss(t *testing.T) {
	ix := NewIndex([]core.LearnedMapping{{CounterpartyKey: "vercel", CategoryID: 1}})
	if _, ok := ix.Lookup("Trader Joes", "grocery run"); ok {
		t.Fatalf("expected miss")
	}
	if _, ok := ix.Lookup("", ""); ok {
		t.Fatalf("expected miss for empty candidates")
	}
}

func TestNormalizeKey(t *testing.T) {
	if got := NormalizeKey("  Vercel Inc  "); got != "vercel inc" {
		t.Fatalf("got %q", got)
	}
}

type stubLister struct {
	mappings []core.LearnedMapping
	calls    int
	err      error
}

func (s *stubLister) ListLearnedMappings(ctx context.Context) ([]core.LearnedMapping, error) {
	s.calls++
	return s.mappings, s.err
}

func TestCachedSourceReadThroughAndInvalidate(t *testing.T) {
	lister := &stubLister{mappings: []core.LearnedMapping{{CounterpartyKey: "vercel", CategoryID: 1}}}
	src := NewCachedSource(lister, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := src.Index(ctx); err != nil {
			t.Fatalf("Index: %v", err)
		}
	}
	if lister.calls != 1 {
		t.Fatalf("expected 1 store read, got %d", lister.calls)
	}

	lister.mappings = append(lister.mappings, core.LearnedMapping{CounterpartyKey: "netlify", CategoryID: 2})
	src.Invalidate()

	ix, err := src.Index(ctx)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if lister.calls != 2 {
		t.Fatalf("expected reload after invalidate, got %d calls", lister.calls)
	}
	if ix.Len() != 2 {
		t.Fatalf("expected refreshed index, got %d keys", ix.Len())
	}
}

func TestCachedSourcePropagatesError(t *testing.T) {
	lister := &stubLister{err: errors.New("db down")}
	src := NewCachedSource(lister, time.Minute)
	if _, err := src.Index(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
