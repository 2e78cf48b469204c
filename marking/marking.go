// Package marking implements the CPN marking store: a total map from
// place name to token multiset, with deterministic ordered iteration and
// a stable 64-bit hash. It is the sole mutable state of the monitor.
package marking

import (
	"sort"

	"github.com/segmentio/fasthash/fnv1a"

	"github.com/jt05610/cpnmonitor/token"
)

// Store is a marking: every declared place maps to a token multiset.
// Places are never added or removed after NewStore; only their contents
// change.
type Store struct {
	places map[string]*multiset
	order  []string // place names, sorted, fixed at construction
}

// NewStore creates an empty marking over the given declared places.
func NewStore(places []string) *Store {
	order := append([]string(nil), places...)
	sort.Strings(order)
	s := &Store{
		places: make(map[string]*multiset, len(order)),
		order:  order,
	}
	for _, p := range order {
		s.places[p] = newMultiset()
	}
	return s
}

// Places returns the declared place names in sorted order.
func (s *Store) Places() []string {
	return append([]string(nil), s.order...)
}

// HasPlace reports whether place is declared in this marking.
func (s *Store) HasPlace(place string) bool {
	_, ok := s.places[place]
	return ok
}

// Insert adds one occurrence of t to place.
func (s *Store) Insert(place string, t token.Token) {
	s.places[place] = s.places[place].insert(t)
}

// RemoveOne removes a single occurrence of t from place, reporting
// whether removal succeeded.
func (s *Store) RemoveOne(place string, t token.Token) bool {
	ms, ok := s.places[place].removeOne(t)
	if !ok {
		return false
	}
	s.places[place] = ms
	return true
}

// Contains reports whether place currently holds an occurrence of t.
func (s *Store) Contains(place string, t token.Token) bool {
	return s.places[place].contains(t)
}

// Count returns the number of occurrences of t in place.
func (s *Store) Count(place string, t token.Token) int {
	return s.places[place].count(t)
}

// Smallest returns the least token in place by (Kind, Value) order.
func (s *Store) Smallest(place string) (token.Token, bool) {
	return s.places[place].smallest()
}

// Size returns the number of distinct tokens held in place (not the sum
// of their counts).
func (s *Store) Size(place string) int {
	return s.places[place].len()
}

// FirstMatching scans place in (Kind, Value) order and returns the first
// token for which pred holds, given its current count. Used by the
// transition engine's greedy binding search, which must consider tokens
// tentatively (but not yet actually) consumed earlier in the same
// firing attempt.
func (s *Store) FirstMatching(place string, pred func(t token.Token, count int) bool) (token.Token, bool) {
	var found token.Token
	ok := false
	s.places[place].iterate(func(t token.Token, count int) {
		if ok {
			return
		}
		if pred(t, count) {
			found = t
			ok = true
		}
	})
	return found, ok
}

// Triple is one row of a marking's stable iteration.
type Triple struct {
	Place string
	Token token.Token
	Count int
}

// IterStable walks the marking in the order required for hashing and
// logging: by place name, then by (Kind, Value) within each place.
// Places with no tokens contribute nothing.
func (s *Store) IterStable(yield func(Triple)) {
	for _, place := range s.order {
		s.places[place].iterate(func(t token.Token, count int) {
			yield(Triple{Place: place, Token: t, Count: count})
		})
	}
}

// Hash folds IterStable through fnv1a, producing a 64-bit digest stable
// across processes and platforms for identical markings. An
// insert-then-remove-one of the same token restores the prior hash
// because removeOne deletes zero-count entries instead of retaining
// them.
func (s *Store) Hash() uint64 {
	h := fnv1a.Init64
	s.IterStable(func(tr Triple) {
		h = fnv1a.AddString64(h, tr.Place)
		h = fnv1a.AddString64(h, string(tr.Token.Kind))
		h = fnv1a.AddUint64(h, tr.Token.Value)
		h = fnv1a.AddUint64(h, uint64(tr.Count))
	})
	return h
}

// Snapshot returns a shallow, independent copy suitable for embedding in
// a violation diagnostic. Because multisets are persistent values,
// copying is O(places) rather than O(tokens).
func (s *Store) Snapshot() *Store {
	cp := &Store{
		places: make(map[string]*multiset, len(s.places)),
		order:  append([]string(nil), s.order...),
	}
	for k, v := range s.places {
		cp.places[k] = v
	}
	return cp
}

// Reset replaces the marking's contents with a fresh copy of the given
// initial marking, used between model-checker explorations.
func (s *Store) Reset(initial map[string][]token.Token) {
	for _, p := range s.order {
		s.places[p] = newMultiset()
	}
	for place, tokens := range initial {
		if !s.HasPlace(place) {
			continue
		}
		for _, t := range tokens {
			s.Insert(place, t)
		}
	}
}

// Summary renders a compact, human-readable view of non-empty places,
// used in violation diagnostics.
func (s *Store) Summary() map[string][]string {
	out := make(map[string][]string)
	for _, place := range s.order {
		var toks []string
		s.places[place].iterate(func(t token.Token, count int) {
			for i := 0; i < count; i++ {
				toks = append(toks, t.String())
			}
		})
		if len(toks) > 0 {
			out[place] = toks
		}
	}
	return out
}
