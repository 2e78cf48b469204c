package cpn

import (
	"fmt"

	"github.com/jt05610/cpnmonitor/marking"
	"github.com/jt05610/cpnmonitor/token"
)

// ConsumedToken and ProducedToken record, per firing, which place/token
// pairs were removed and inserted; FireResult carries them back to the
// caller (the conservation test compares them).
type ConsumedToken struct {
	Place string
	Token token.Token
}

type ProducedToken = ConsumedToken

// NotEnabledError reports which pre-arc could not find a compatible
// token under the initial binding. It carries enough detail to build
// the violation diagnostic the reporter attaches to a failed firing.
type NotEnabledError struct {
	Transition string
	ArcIndex   int
	Arc        Arc
}

func (e *NotEnabledError) Error() string {
	return fmt.Sprintf("transition %q not enabled: pre-arc %d (place %q) has no compatible token", e.Transition, e.ArcIndex, e.Arc.Place)
}

// UnboundPostVariableError is a model bug: a post-arc variable was
// neither bound by any pre-arc nor supplied by the triggering event.
// Unlike NotEnabledError, this is always fatal regardless of the
// violation policy.
type UnboundPostVariableError struct {
	Transition string
	Variable   string
}

func (e *UnboundPostVariableError) Error() string {
	return fmt.Sprintf("transition %q: post-arc variable %q is unbound", e.Transition, e.Variable)
}

// FireResult describes a successful firing: the completed binding and
// the exact tokens consumed and produced.
type FireResult struct {
	Binding  Binding
	Consumed []ConsumedToken
	Produced []ProducedToken
}

// shadow tracks tokens tentatively earmarked for consumption during one
// firing attempt, before any mutation of the marking store.
type shadow map[string]map[token.Token]int

func (s shadow) consumed(place string, t token.Token) int {
	if s[place] == nil {
		return 0
	}
	return s[place][t]
}

func (s shadow) consume(place string, t token.Token) {
	if s[place] == nil {
		s[place] = make(map[token.Token]int)
	}
	s[place][t]++
}

// Fire attempts to fire transition t in store under the initial binding
// supplied by the dispatcher (event-derived variable assignments). It
// implements exactly: pre-arcs are searched in declaration
// order with no backtracking; an unbound variable picks the smallest
// available token by (Kind, Value); the chosen tokens are held as a
// tentative consumption list and the marking is mutated only once every
// pre-arc and post-arc has resolved (atomic commit).
//
// On success it returns a non-nil *FireResult and a nil error. A
// *NotEnabledError means no mutation occurred — the caller should report
// a protocol violation. A *UnboundPostVariableError is a model defect
// and must be treated as fatal by the caller regardless of violation
// policy.
func Fire(t *Transition, store *marking.Store, initial Binding) (*FireResult, error) {
	binding := initial.Clone()
	sh := shadow{}
	var consumed []ConsumedToken

	for i, arc := range t.Pre {
		var tok token.Token
		var resolved bool

		switch {
		case !arc.Pattern.IsVariable():
			tok = arc.Pattern.Concrete
			resolved = true
		default:
			if bound, ok := binding.Lookup(arc.Pattern.Variable); ok {
				tok = bound
				resolved = true
			}
		}

		if resolved {
			available := store.Count(arc.Place, tok) - sh.consumed(arc.Place, tok)
			if available <= 0 {
				return nil, &NotEnabledError{Transition: t.Name, ArcIndex: i, Arc: arc}
			}
			sh.consume(arc.Place, tok)
			consumed = append(consumed, ConsumedToken{Place: arc.Place, Token: tok})
			continue
		}

		picked, ok := store.FirstMatching(arc.Place, func(candidate token.Token, count int) bool {
			return count-sh.consumed(arc.Place, candidate) > 0
		})
		if !ok {
			return nil, &NotEnabledError{Transition: t.Name, ArcIndex: i, Arc: arc}
		}
		// Binding was confirmed unbound above, so Extend cannot conflict.
		_ = binding.Extend(arc.Pattern.Variable, picked)
		sh.consume(arc.Place, picked)
		consumed = append(consumed, ConsumedToken{Place: arc.Place, Token: picked})
	}

	var produced []ProducedToken
	for _, arc := range t.Post {
		tok, err := Apply(arc.Pattern, binding)
		if err != nil {
			return nil, &UnboundPostVariableError{Transition: t.Name, Variable: arc.Pattern.Variable}
		}
		produced = append(produced, ProducedToken{Place: arc.Place, Token: tok})
	}

	for _, c := range consumed {
		store.RemoveOne(c.Place, c.Token)
	}
	for _, p := range produced {
		store.Insert(p.Place, p.Token)
	}

	return &FireResult{Binding: binding, Consumed: consumed, Produced: produced}, nil
}

// Enabled reports whether t would fire under initial without mutating
// store. It runs the same search as Fire against a snapshot and
// discards the result; a *UnboundPostVariableError still counts as "not
// enabled" here since no firing can ever succeed under it.
func Enabled(t *Transition, store *marking.Store, initial Binding) bool {
	_, err := Fire(t, store.Snapshot(), initial)
	return err == nil
}
