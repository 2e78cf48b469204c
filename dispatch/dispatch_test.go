package dispatch_test

import (
	"testing"

	"go.uber.org/zap"

	"github.com/jt05610/cpnmonitor/cpn"
	"github.com/jt05610/cpnmonitor/dispatch"
	"github.com/jt05610/cpnmonitor/event"
	"github.com/jt05610/cpnmonitor/marking"
	"github.com/jt05610/cpnmonitor/token"
)

func mutexNet() *cpn.Net {
	net := cpn.New()
	net.AddPlace("free")
	net.AddPlace("held")
	net.AddTransition(cpn.NewTransition("Acquire").
		WithPre(cpn.NewArc("free", cpn.NewVariablePattern("L"))).
		WithPost(cpn.NewArc("held", cpn.NewVariablePattern("L"))))
	net.AddTransition(cpn.NewTransition("Release").
		WithPre(cpn.NewArc("held", cpn.NewVariablePattern("L"))).
		WithPost(cpn.NewArc("free", cpn.NewVariablePattern("L"))))
	return net
}

func TestDispatchIgnoresUnmappedEventKind(t *testing.T) {
	net := mutexNet()
	store := marking.NewStore([]string{"free", "held"})
	mapping := map[event.Kind]string{event.LockAcquire: "Acquire"}
	d := dispatch.New(net, mapping, store, []string{"free"}, zap.NewNop())

	res := d.Dispatch(event.New(event.ThreadSpawn, map[string]uint64{"parent": 1, "child": 2}), store)
	if !res.Ignored {
		t.Fatal("expected ThreadSpawn to be ignored when absent from event_mapping")
	}
}

func TestDispatchMintsFirstSeenLockIntoDeclaredHomePlace(t *testing.T) {
	net := mutexNet()
	store := marking.NewStore([]string{"free", "held"})
	mapping := map[event.Kind]string{event.LockAcquire: "Acquire", event.LockRelease: "Release"}
	d := dispatch.New(net, mapping, store, []string{"free"}, zap.NewNop())

	res := d.Dispatch(event.New(event.LockAcquire, map[string]uint64{"thread": 1, "lock_id": 100}), store)
	if res.Ignored {
		t.Fatal("expected LockAcquire to be dispatched")
	}
	if res.Transition != "Acquire" {
		t.Fatalf("transition = %q, want Acquire", res.Transition)
	}
	want := token.New("Lock", 100)
	if res.Binding["L"] != want {
		t.Errorf("binding L = %v, want %v", res.Binding["L"], want)
	}
	if len(res.Mints) != 1 || res.Mints[0].Place != "free" || res.Mints[0].Token != want {
		t.Fatalf("expected one pending mint of Lock(100) into free, got %+v", res.Mints)
	}
	if store.Contains("free", want) {
		t.Error("Dispatch must not mutate the store directly")
	}

	for _, op := range res.Mints {
		store.Insert(op.Place, op.Token)
	}
	result, err := cpn.Fire(net.Transitions["Acquire"], store, res.Binding)
	if err != nil {
		t.Fatalf("unexpected NotEnabled after applying the pending mint: %v", err)
	}
	if !store.Contains("held", want) {
		t.Errorf("expected lock to move to held after firing, got %+v", result)
	}
}

func TestDispatchDoesNotRemintAnAlreadySeenIdentity(t *testing.T) {
	net := mutexNet()
	store := marking.NewStore([]string{"free", "held"})
	store.Insert("held", token.New("Lock", 100))
	mapping := map[event.Kind]string{event.LockRelease: "Release"}
	d := dispatch.New(net, mapping, store, nil, zap.NewNop())

	res := d.Dispatch(event.New(event.LockRelease, map[string]uint64{"thread": 1, "lock_id": 100}), store)
	if res.Binding["L"] != token.New("Lock", 100) {
		t.Fatalf("expected existing Lock(100) to be reused, got %v", res.Binding["L"])
	}
	if store.Count("free", token.New("Lock", 100)) != 0 {
		t.Error("must not have minted a second Lock(100) into free")
	}
}
