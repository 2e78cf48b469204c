package cpn

// Transition is named and has an ordered list of pre-arcs and post-arcs.
// The variables appearing in Pre form its formal parameter set; every
// variable in Post must be a subset of those bound by Pre and/or
// supplied by the triggering event.
type Transition struct {
	Name string
	Pre  []Arc
	Post []Arc
}

func NewTransition(name string) *Transition {
	return &Transition{Name: name}
}

func (t *Transition) WithPre(arcs ...Arc) *Transition {
	t.Pre = append(t.Pre, arcs...)
	return t
}

func (t *Transition) WithPost(arcs ...Arc) *Transition {
	t.Post = append(t.Post, arcs...)
	return t
}

// PreVariables returns the set of variables referenced by pre-arc
// patterns, in first-appearance order.
func (t *Transition) PreVariables() []string {
	return variablesOf(t.Pre)
}

// PostVariables returns the set of variables referenced by post-arc
// patterns, in first-appearance order.
func (t *Transition) PostVariables() []string {
	return variablesOf(t.Post)
}

func variablesOf(arcs []Arc) []string {
	seen := make(map[string]bool)
	var vars []string
	for _, a := range arcs {
		if !a.Pattern.IsVariable() {
			continue
		}
		v := a.Pattern.Variable
		if seen[v] {
			continue
		}
		seen[v] = true
		vars = append(vars, v)
	}
	return vars
}
