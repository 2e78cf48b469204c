// Package cpn holds the static description of a Colored Petri Net: its
// places, transitions and arcs, independent of any marking.
package cpn

import "github.com/jt05610/cpnmonitor/token"

// Pattern is what an arc carries: either a variable whose color is bound
// at firing time, or a fixed concrete token. Exactly one of Variable or
// Concrete is set — NewVariablePattern and NewConcretePattern are the
// only constructors.
type Pattern struct {
	Variable string
	Concrete token.Token
	isConcrete bool
}

func NewVariablePattern(variable string) Pattern {
	return Pattern{Variable: variable}
}

func NewConcretePattern(t token.Token) Pattern {
	return Pattern{Concrete: t, isConcrete: true}
}

// IsVariable reports whether the pattern references a variable rather
// than carrying a fixed token.
func (p Pattern) IsVariable() bool {
	return !p.isConcrete
}

// Arc connects a transition to a place (pre-arc: place -> transition, or
// post-arc: transition -> place — the direction is implied by which list
// of Transition it appears in).
type Arc struct {
	Place   string
	Pattern Pattern
}

func NewArc(place string, pattern Pattern) Arc {
	return Arc{Place: place, Pattern: pattern}
}
