package marking

import (
	"github.com/benbjohnson/immutable"

	"github.com/jt05610/cpnmonitor/token"
)

// tokenComparer orders tokens by (Kind, Value), the tie-break policy the
// transition engine and the hash both rely on.
type tokenComparer struct{}

func (tokenComparer) Compare(a, b token.Token) int {
	return token.Compare(a, b)
}

var _ immutable.Comparer[token.Token] = tokenComparer{}

// multiset is the per-place token bag: a sorted map from token to
// occurrence count. Zero-count entries are never retained, so an
// insert-then-remove-one sequence restores the prior structure exactly.
type multiset struct {
	counts *immutable.SortedMap[token.Token, int]
}

func newMultiset() *multiset {
	return &multiset{counts: immutable.NewSortedMap[token.Token, int](tokenComparer{})}
}

func (m *multiset) insert(t token.Token) *multiset {
	n, _ := m.counts.Get(t)
	return &multiset{counts: m.counts.Set(t, n+1)}
}

// removeOne removes a single occurrence of t, returning the updated
// multiset and whether a token was actually present to remove.
func (m *multiset) removeOne(t token.Token) (*multiset, bool) {
	n, ok := m.counts.Get(t)
	if !ok || n <= 0 {
		return m, false
	}
	if n == 1 {
		return &multiset{counts: m.counts.Delete(t)}, true
	}
	return &multiset{counts: m.counts.Set(t, n-1)}, true
}

func (m *multiset) count(t token.Token) int {
	n, ok := m.counts.Get(t)
	if !ok {
		return 0
	}
	return n
}

func (m *multiset) contains(t token.Token) bool {
	return m.count(t) > 0
}

// smallest returns the least token by (Kind, Value) order present with a
// positive count. (The engine's greedy binding search goes through
// Store.FirstMatching instead, which also accounts for tentative
// consumption.)
func (m *multiset) smallest() (token.Token, bool) {
	it := m.counts.Iterator()
	if it.Done() {
		return token.Token{}, false
	}
	t, _, _ := it.Next()
	return t, true
}

// iterate calls yield for every (token, count) pair in (Kind, Value)
// order. count is always > 0.
func (m *multiset) iterate(yield func(t token.Token, count int)) {
	it := m.counts.Iterator()
	for !it.Done() {
		t, n, _ := it.Next()
		yield(t, n)
	}
}

func (m *multiset) len() int {
	return m.counts.Len()
}
