// Package dispatch implements event→transition lookup and the
// event-field-to-variable extraction that builds a transition's initial
// binding, including lazy minting of tokens for first-seen dynamic
// identities.
package dispatch

import (
	"go.uber.org/zap"

	"github.com/jt05610/cpnmonitor/cpn"
	"github.com/jt05610/cpnmonitor/event"
	"github.com/jt05610/cpnmonitor/marking"
	"github.com/jt05610/cpnmonitor/token"
)

// MintOp is a token that must be inserted into place before the
// transition engine is invoked. Dispatch never applies these itself —
// it only reads the marking to decide what minting a firing would
// require — so the caller can commit them atomically with the firing
// itself and discard them entirely on NotEnabled: a mint is accepted
// only if the post-minting marking actually enables the mapped
// transition.
type MintOp struct {
	Place string
	Token token.Token
}

// Result is what dispatching one event produces.
type Result struct {
	// Ignored is true when the event kind is unrecognized (UnknownEventKind,
	// ) or recognized but absent from the model's event_mapping
	// (step 1). Neither case fires a transition or counts as a
	// violation.
	Ignored bool

	Transition string
	Binding    cpn.Binding
	Mints      []MintOp
}

// Dispatcher resolves events against a model's event_mapping and mints
// dynamic-identity tokens lazily into their inferred home place.
type Dispatcher struct {
	mapping map[event.Kind]string
	home    map[token.Kind]string
	logger  *zap.Logger
}

// New builds a Dispatcher for net under mapping. store must already hold
// the initial marking, and declaredPlaces is the set of place names that
// appeared as keys in the configuration's initial_marking (even if their
// token list was empty) — the explicit home-place declaration a model
// can make for a dynamic kind.
//
// Home-place inference, per kind: prefer any place with a concrete
// pre-arc of that kind (cpn.Net.HomePlacesForKind), then any place
// currently holding a token of that kind. If neither yields a candidate
// and exactly one place was declared in initial_marking, that place is
// used — the common case of a single dynamic kind with one explicitly
// declared home place, as in the mutex model. Any other outcome (zero
// candidates, or more than one with no single declared place to fall
// back on) is logged once as unresolved; lazy minting for that kind is
// skipped until the configuration disambiguates it.
func New(net *cpn.Net, mapping map[event.Kind]string, store *marking.Store, declaredPlaces []string, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		mapping: mapping,
		home:    make(map[token.Kind]string),
		logger:  logger,
	}
	for _, kind := range dynamicKinds(net, mapping) {
		d.home[kind] = resolveHomePlace(net, store, kind, declaredPlaces, logger)
	}
	return d
}

// dynamicKinds collects every token kind that appears as a DynamicField
// in the schema of any event kind the model actually maps, restricted to
// fields whose variable an arc of the mapped transition references, so
// home-place inference never runs for kinds the model does not use.
func dynamicKinds(net *cpn.Net, mapping map[event.Kind]string) []token.Kind {
	seen := make(map[token.Kind]bool)
	var kinds []token.Kind
	for evKind, transitionName := range mapping {
		schema, ok := event.SchemaFor(evKind)
		if !ok {
			continue
		}
		t := net.Transitions[transitionName]
		if t == nil {
			continue
		}
		used := make(map[string]bool)
		for _, v := range append(t.PreVariables(), t.PostVariables()...) {
			used[v] = true
		}
		for _, df := range schema.Fields {
			if used[df.Variable] && !seen[df.Kind] {
				seen[df.Kind] = true
				kinds = append(kinds, df.Kind)
			}
		}
	}
	return kinds
}

func resolveHomePlace(net *cpn.Net, store *marking.Store, kind token.Kind, declaredPlaces []string, logger *zap.Logger) string {
	candidates := make(map[string]bool)
	for _, p := range net.HomePlacesForKind(string(kind)) {
		candidates[p] = true
	}
	if len(candidates) == 0 {
		for _, p := range store.Places() {
			if _, ok := store.FirstMatching(p, func(t token.Token, _ int) bool { return t.Kind == kind }); ok {
				candidates[p] = true
			}
		}
	}
	if len(candidates) == 0 && len(declaredPlaces) == 1 {
		candidates[declaredPlaces[0]] = true
	}
	switch len(candidates) {
	case 1:
		for p := range candidates {
			return p
		}
	case 0:
		if logger != nil {
			logger.Warn("no home place inferred for token kind; dynamic ids of this kind cannot be lazily minted", zap.String("kind", string(kind)))
		}
	default:
		if logger != nil {
			names := make([]string, 0, len(candidates))
			for p := range candidates {
				names = append(names, p)
			}
			logger.Warn("ambiguous home place for token kind; declare it explicitly via initial_marking", zap.String("kind", string(kind)), zap.Strings("candidates", names))
		}
	}
	return ""
}

// Dispatch resolves ev against the model's event_mapping and returns the
// transition name, the initial binding the transition engine should fire
// under, and any pending mints of first-seen dynamic identities the
// caller must apply together with the firing.
func (d *Dispatcher) Dispatch(ev event.Event, store *marking.Store) *Result {
	schema, known := event.SchemaFor(ev.Kind)
	if !known {
		return &Result{Ignored: true}
	}
	transitionName, mapped := d.mapping[ev.Kind]
	if !mapped {
		return &Result{Ignored: true}
	}

	binding := cpn.NewBinding()
	var mints []MintOp
	minted := make(map[token.Token]bool)
	for _, df := range schema.Fields {
		value, ok := ev.Field(df.Field)
		if !ok {
			continue
		}
		tok := token.New(df.Kind, value)
		if op, needed := d.mintIfNeeded(tok, store); needed && !minted[tok] {
			mints = append(mints, op)
			minted[tok] = true
		}
		_ = binding.Extend(df.Variable, tok)
	}

	return &Result{Transition: transitionName, Binding: binding, Mints: mints}
}

// mintIfNeeded reports the mint op for tok's first appearance, if its
// kind has a resolved home place and tok is not already present
// anywhere in the marking.
func (d *Dispatcher) mintIfNeeded(tok token.Token, store *marking.Store) (MintOp, bool) {
	for _, p := range store.Places() {
		if store.Contains(p, tok) {
			return MintOp{}, false
		}
	}
	place := d.home[tok.Kind]
	if place == "" || !store.HasPlace(place) {
		return MintOp{}, false
	}
	return MintOp{Place: place, Token: tok}, true
}
