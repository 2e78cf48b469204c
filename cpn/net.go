package cpn

import "sort"

// Net is the static structure a Monitor drives: its declared places,
// token kinds and transitions. It carries no marking — marking.Store
// holds that.
type Net struct {
	Places      []string
	Kinds       []string
	Transitions map[string]*Transition
}

func New() *Net {
	return &Net{Transitions: make(map[string]*Transition)}
}

func (n *Net) AddPlace(name string) *Net {
	for _, p := range n.Places {
		if p == name {
			return n
		}
	}
	n.Places = append(n.Places, name)
	return n
}

func (n *Net) AddKind(kind string) *Net {
	for _, k := range n.Kinds {
		if k == kind {
			return n
		}
	}
	n.Kinds = append(n.Kinds, kind)
	return n
}

func (n *Net) AddTransition(t *Transition) *Net {
	n.Transitions[t.Name] = t
	return n
}

// SortedPlaces returns the declared places in a stable, sorted order —
// used by the graphviz exporter and to build the monitor's marking
// store, independent of declaration order in the source file.
func (n *Net) SortedPlaces() []string {
	out := append([]string(nil), n.Places...)
	sort.Strings(out)
	return out
}

// SortedTransitionNames returns transition names sorted for stable
// iteration in tooling that does not care about declaration order.
func (n *Net) SortedTransitionNames() []string {
	out := make([]string, 0, len(n.Transitions))
	for name := range n.Transitions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// HomePlacesForKind returns every place with at least one pre-arc
// concrete pattern of the given kind — candidate "home places" for lazy
// token minting.
func (n *Net) HomePlacesForKind(kind string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range n.Transitions {
		for _, a := range t.Pre {
			if a.Pattern.IsVariable() {
				continue
			}
			if string(a.Pattern.Concrete.Kind) != kind {
				continue
			}
			if seen[a.Place] {
				continue
			}
			seen[a.Place] = true
			out = append(out, a.Place)
		}
	}
	sort.Strings(out)
	return out
}
