package cpn

import (
	"fmt"

	"github.com/jt05610/cpnmonitor/token"
)

// Binding assigns a token to each variable bound so far during the
// search for an enabling set of pre-arc tokens.
type Binding map[string]token.Token

// NewBinding returns an empty binding.
func NewBinding() Binding {
	return Binding{}
}

// Clone returns an independent copy so a tentative extension can be
// abandoned without corrupting the caller's binding.
func (b Binding) Clone() Binding {
	cp := make(Binding, len(b))
	for k, v := range b {
		cp[k] = v
	}
	return cp
}

// ConflictError reports that a variable was already bound to a
// different token than the one being assigned.
type ConflictError struct {
	Variable string
	Existing token.Token
	New      token.Token
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("variable %q already bound to %s, cannot rebind to %s", e.Variable, e.Existing, e.New)
}

// Extend adds var -> tok to the binding. If var is already bound to a
// different token, extension fails with a ConflictError (unification
// conflict); binding to the same token again is a no-op success.
func (b Binding) Extend(variable string, tok token.Token) error {
	if existing, ok := b[variable]; ok {
		if existing != tok {
			return &ConflictError{Variable: variable, Existing: existing, New: tok}
		}
		return nil
	}
	b[variable] = tok
	return nil
}

// Lookup returns the token bound to a variable, if any.
func (b Binding) Lookup(variable string) (token.Token, bool) {
	t, ok := b[variable]
	return t, ok
}

// ErrUnboundVariable is returned by Apply when a pattern references a
// variable with no binding.
type ErrUnboundVariable struct {
	Variable string
}

func (e *ErrUnboundVariable) Error() string {
	return fmt.Sprintf("variable %q is unbound", e.Variable)
}

// Apply resolves the concrete token an arc references under binding b:
// a variable pattern looks up its variable, a concrete pattern returns
// its fixed token unconditionally.
func Apply(p Pattern, b Binding) (token.Token, error) {
	if !p.IsVariable() {
		return p.Concrete, nil
	}
	t, ok := b.Lookup(p.Variable)
	if !ok {
		return token.Token{}, &ErrUnboundVariable{Variable: p.Variable}
	}
	return t, nil
}
