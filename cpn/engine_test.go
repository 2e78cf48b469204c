package cpn_test

import (
	"testing"

	"github.com/jt05610/cpnmonitor/cpn"
	"github.com/jt05610/cpnmonitor/marking"
	"github.com/jt05610/cpnmonitor/token"
)

func mutexTransitions() (acquire, release *cpn.Transition) {
	acquire = cpn.NewTransition("Acquire").
		WithPre(cpn.NewArc("free", cpn.NewVariablePattern("L"))).
		WithPost(cpn.NewArc("held", cpn.NewVariablePattern("L")))
	release = cpn.NewTransition("Release").
		WithPre(cpn.NewArc("held", cpn.NewVariablePattern("L"))).
		WithPost(cpn.NewArc("free", cpn.NewVariablePattern("L")))
	return
}

func TestFireMovesTokenBetweenPlaces(t *testing.T) {
	store := marking.NewStore([]string{"free", "held"})
	lock := token.New("Lock", 100)
	store.Insert("free", lock)

	acquire, _ := mutexTransitions()
	binding := cpn.NewBinding()
	_ = binding.Extend("L", lock)

	res, err := cpn.Fire(acquire, store, binding)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Contains("free", lock) {
		t.Error("expected lock to leave free")
	}
	if !store.Contains("held", lock) {
		t.Error("expected lock to arrive in held")
	}
	if got := res.Binding["L"]; got != lock {
		t.Errorf("binding L = %v, want %v", got, lock)
	}
}

func TestFireNotEnabledLeavesMarkingUnchanged(t *testing.T) {
	store := marking.NewStore([]string{"free", "held"})
	lock := token.New("Lock", 100)
	before := store.Hash()

	release := cpn.NewTransition("Release").
		WithPre(cpn.NewArc("held", cpn.NewVariablePattern("L"))).
		WithPost(cpn.NewArc("free", cpn.NewVariablePattern("L")))

	binding := cpn.NewBinding()
	_ = binding.Extend("L", lock)

	_, err := cpn.Fire(release, store, binding)
	var notEnabled *cpn.NotEnabledError
	if !asNotEnabled(err, &notEnabled) {
		t.Fatalf("expected NotEnabledError, got %v", err)
	}
	if store.Hash() != before {
		t.Error("marking changed despite NotEnabled")
	}
}

func TestFirePicksSmallestForUnboundVariable(t *testing.T) {
	store := marking.NewStore([]string{"free", "held"})
	store.Insert("free", token.New("Lock", 200))
	store.Insert("free", token.New("Lock", 100))

	acquire, _ := mutexTransitions()
	res, err := cpn.Fire(acquire, store, cpn.NewBinding())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := token.New("Lock", 100)
	if res.Binding["L"] != want {
		t.Errorf("bound L = %v, want %v", res.Binding["L"], want)
	}
}

func TestFireUnboundPostVariableIsFatal(t *testing.T) {
	store := marking.NewStore([]string{"p"})
	bad := cpn.NewTransition("Bad").WithPost(cpn.NewArc("p", cpn.NewVariablePattern("Z")))

	_, err := cpn.Fire(bad, store, cpn.NewBinding())
	if _, ok := err.(*cpn.UnboundPostVariableError); !ok {
		t.Fatalf("expected UnboundPostVariableError, got %v", err)
	}
}

func TestConservationColorPreservingTransition(t *testing.T) {
	store := marking.NewStore([]string{"free", "held"})
	lock := token.New("Lock", 1)
	store.Insert("free", lock)

	acquire, _ := mutexTransitions()
	binding := cpn.NewBinding()
	_ = binding.Extend("L", lock)
	res, err := cpn.Fire(acquire, store, binding)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Consumed) != len(res.Produced) {
		t.Fatalf("color-preserving transition should consume and produce the same count")
	}
	for i := range res.Consumed {
		if res.Consumed[i].Token != res.Produced[i].Token {
			t.Errorf("consumed %v produced %v: not color-preserving", res.Consumed[i].Token, res.Produced[i].Token)
		}
	}
}

func asNotEnabled(err error, target **cpn.NotEnabledError) bool {
	ne, ok := err.(*cpn.NotEnabledError)
	if ok {
		*target = ne
	}
	return ok
}
