// Package learned implements the first tier of categorization: a
// counterparty-keyed index of past decisions with exact and substring
// lookup. A learned hit always outranks the rule table, since it encodes a
// human-confirmed decision rather than a generic heuristic.
package learned

import (
	"sort"
	"strings"

	"tally/internal/core"
)

// Mapping is a lookup result: the decided category and its deductibility.
type Mapping struct {
	CategoryID int64
	Deductible bool
}

// Index holds the learned mappings of one request. Lookup is O(n) over the
// key set in the fuzzy pass; at the expected table sizes (hundreds of
// counterparties) that is fine, and keeping the index request-scoped avoids
// shared mutable state across concurrent requests.
type Index struct {
	byKey map[string]Mapping
	// keys ordered longest first, ties lexicographic, so fuzzy lookup is
	// deterministic and the most specific key wins.
	keys []string
}

// NewIndex builds an index from persisted mappings. Keys are normalized;
// a duplicate key keeps the later entry, matching the store's
// last-write-wins contract.
func NewIndex(ms []core.LearnedMapping) *Index {
	byKey := make(map[string]Mapping, len(ms))
	for _, m := range ms {
		key := NormalizeKey(m.CounterpartyKey)
		if key == "" {
			continue
		}
		byKey[key] = Mapping{CategoryID: m.CategoryID, Deductible: m.Deductible}
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return &Index{byKey: byKey, keys: keys}
}

// Lookup resolves a transaction's counterparty name and bank description
// against the index. Exact key hits are checked for every candidate first;
// only then does the substring pass run, returning the first key that
// contains or is contained by a candidate.
func (ix *Index) Lookup(candidates ...string) (Mapping, bool) {
	normalized := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if n := NormalizeKey(c); n != "" {
			normalized = append(normalized, n)
		}
	}

	for _, c := range normalized {
		if m, ok := ix.byKey[c]; ok {
			return m, true
		}
	}

	for _, c := range normalized {
		for _, key := range ix.keys {
			if strings.Contains(c, key) || strings.Contains(key, c) {
				return ix.byKey[key], true
			}
		}
	}

	return Mapping{}, false
}

// Len returns the number of distinct keys in the index.
func (ix *Index) Len() int {
	return len(ix.keys)
}

// NormalizeKey lowercases and trims a counterparty name into the canonical
// key form used by both the index and the store.
func NormalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
