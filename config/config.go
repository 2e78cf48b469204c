// Package config loads and validates the CPN description:
// places, transitions, event_mapping and initial_marking. Loading uses
// github.com/spf13/viper so the same code path accepts the documented
// JSON shape as well as YAML or TOML; validation failures are
// aggregated with go.uber.org/multierr into a single ConfigInvalid.
package config

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/jt05610/cpnmonitor/cpn"
	"github.com/jt05610/cpnmonitor/event"
	"github.com/jt05610/cpnmonitor/token"
)

// TokenLiteral is the 2-tuple [Kind, Value] the configuration uses for
// concrete tokens and initial_marking entries.
type TokenLiteral struct {
	Kind  string
	Value uint64
}

// ArcSpec mirrors the configuration's arc object: exactly one of
// Variable or (Kind, Value) must be set.
type ArcSpec struct {
	Place    string
	Variable *string
	Kind     *string
	Value    *float64
}

// TransitionSpec is the pre/post arc lists for one transition.
type TransitionSpec struct {
	Pre  []ArcSpec
	Post []ArcSpec
}

// File is the decoded shape of the configuration document, before
// validation turns it into a *cpn.Net plus initial marking and event
// mapping.
type File struct {
	Places         []string
	Kinds          []string
	Transitions    map[string]TransitionSpec
	EventMapping   map[string]string
	InitialMarking map[string][]TokenLiteral
}

// ConfigInvalidError wraps every structural or referential defect found
// while validating a File. It is always fatal.
type ConfigInvalidError struct {
	Errors []error
}

func (e *ConfigInvalidError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", multierr.Combine(e.Errors...))
}

func (e *ConfigInvalidError) Unwrap() []error {
	return e.Errors
}

// tokenLiteralHook decodes the configuration's [kind, value] JSON/YAML
// tuples into TokenLiteral, validating that the value is a non-negative
// integer along the way.
func tokenLiteralHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(TokenLiteral{}) {
			return data, nil
		}
		arr, ok := data.([]interface{})
		if !ok || len(arr) != 2 {
			return nil, fmt.Errorf("token literal must be a [kind, value] pair, got %v", data)
		}
		kind, ok := arr[0].(string)
		if !ok {
			return nil, fmt.Errorf("token kind must be a string, got %v", arr[0])
		}
		value, err := asNonNegativeInteger(arr[1])
		if err != nil {
			return nil, fmt.Errorf("token value for kind %q: %w", kind, err)
		}
		return TokenLiteral{Kind: kind, Value: value}, nil
	}
}

func asNonNegativeInteger(v interface{}) (uint64, error) {
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("non-integer value: %v", v)
	}
	if f != math.Trunc(f) || f < 0 {
		return 0, fmt.Errorf("non-integer value: %v", v)
	}
	return uint64(f), nil
}

// Load reads the configuration document at path (format resolved by
// viper from the file extension — json, yaml, yml or toml) and returns
// the decoded, unvalidated File.
func Load(path string) (*File, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading configuration %s: %w", path, err)
	}

	var f File
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: tokenLiteralHook(),
		Result:     &f,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decoding configuration %s: %w", path, err)
	}
	return &f, nil
}

// Validate turns a decoded File into a *cpn.Net plus its initial
// marking and event mapping, or a *ConfigInvalidError aggregating every
// structural defect (undefined transitions, malformed arcs, unrecognized
// event kinds) and referential one (post-arc variables no arc or event
// binds). Duplicate arc patterns and initial_marking kinds that no arc
// pattern uses (neither named by a concrete pattern nor bound to an arc
// variable by a mapped event's field) are model-consistency concerns, not structural
// defects — they are logged as warnings through logger (which may be
// nil) rather than rejected. logger follows the same nil-safe
// convention dispatch.New uses for its own warnings.
func (f *File) Validate(logger *zap.Logger) (*cpn.Net, map[string][]token.Token, map[event.Kind]string, error) {
	var errs []error
	arcKinds := make(map[string]bool)

	net := cpn.New()
	for _, p := range f.Places {
		net.AddPlace(p)
	}
	for _, k := range f.Kinds {
		net.AddKind(k)
	}

	eventVarsByTransition := make(map[string]map[string]token.Kind)
	eventMapping := make(map[event.Kind]string, len(f.EventMapping))
	for kindName, transitionName := range f.EventMapping {
		kind := event.Kind(kindName)
		if _, ok := f.Transitions[transitionName]; !ok {
			errs = append(errs, fmt.Errorf("event_mapping: event kind %q maps to undefined transition %q", kindName, transitionName))
			continue
		}
		eventMapping[kind] = transitionName
		schema, ok := event.SchemaFor(kind)
		if !ok {
			errs = append(errs, fmt.Errorf("event_mapping: %q is not a recognized event kind", kindName))
			continue
		}
		if eventVarsByTransition[transitionName] == nil {
			eventVarsByTransition[transitionName] = make(map[string]token.Kind)
		}
		for _, df := range schema.Fields {
			eventVarsByTransition[transitionName][df.Variable] = df.Kind
		}
	}

	for _, name := range sortedKeys(f.Transitions) {
		spec := f.Transitions[name]
		t := cpn.NewTransition(name)

		preVars := make(map[string]bool)
		seenPre := make(map[string]bool)
		for i, a := range spec.Pre {
			pattern, err := a.toPattern(net)
			if err != nil {
				errs = append(errs, fmt.Errorf("transition %q pre-arc %d: %w", name, i, err))
				continue
			}
			if pattern.IsVariable() {
				preVars[pattern.Variable] = true
				if k, ok := eventVarsByTransition[name][pattern.Variable]; ok {
					arcKinds[string(k)] = true
				}
			} else {
				arcKinds[string(pattern.Concrete.Kind)] = true
			}
			arc := cpn.NewArc(a.Place, pattern)
			key := fmt.Sprintf("%s:%v", arc.Place, arc.Pattern)
			if seenPre[key] {
				warn(logger, "duplicate pre-arc pattern, allowed but almost always a model bug", name, a.Place)
			}
			seenPre[key] = true
			t.WithPre(arc)
			net.AddPlace(a.Place)
		}

		allowed := make(map[string]bool, len(preVars)+len(eventVarsByTransition[name]))
		for v := range preVars {
			allowed[v] = true
		}
		for v := range eventVarsByTransition[name] {
			allowed[v] = true
		}

		seenPost := make(map[string]bool)
		for i, a := range spec.Post {
			pattern, err := a.toPattern(net)
			if err != nil {
				errs = append(errs, fmt.Errorf("transition %q post-arc %d: %w", name, i, err))
				continue
			}
			if pattern.IsVariable() && !allowed[pattern.Variable] {
				errs = append(errs, fmt.Errorf("transition %q: post-arc variable %q is neither bound by a pre-arc nor supplied by a mapped event", name, pattern.Variable))
			}
			if pattern.IsVariable() {
				if k, ok := eventVarsByTransition[name][pattern.Variable]; ok {
					arcKinds[string(k)] = true
				}
			} else {
				arcKinds[string(pattern.Concrete.Kind)] = true
			}
			arc := cpn.NewArc(a.Place, pattern)
			key := fmt.Sprintf("%s:%v", arc.Place, arc.Pattern)
			if seenPost[key] {
				warn(logger, "duplicate post-arc pattern, allowed but almost always a model bug", name, a.Place)
			}
			seenPost[key] = true
			t.WithPost(arc)
			net.AddPlace(a.Place)
		}

		net.AddTransition(t)
	}

	initial := make(map[string][]token.Token, len(f.InitialMarking))
	for _, place := range sortedMarkingKeys(f.InitialMarking) {
		literals := f.InitialMarking[place]
		net.AddPlace(place)
		toks := make([]token.Token, 0, len(literals))
		for _, lit := range literals {
			if !arcKinds[lit.Kind] && logger != nil {
				logger.Warn("initial_marking token kind appears in no arc pattern; it can never be consumed or produced",
					zap.String("place", place), zap.String("kind", lit.Kind))
			}
			toks = append(toks, token.New(token.Kind(lit.Kind), lit.Value))
		}
		initial[place] = toks
	}

	if len(errs) > 0 {
		return nil, nil, nil, &ConfigInvalidError{Errors: errs}
	}
	return net, initial, eventMapping, nil
}

func (a ArcSpec) toPattern(net *cpn.Net) (cpn.Pattern, error) {
	hasVariable := a.Variable != nil && *a.Variable != ""
	hasConcrete := a.Kind != nil && a.Value != nil
	switch {
	case hasVariable && hasConcrete:
		return cpn.Pattern{}, fmt.Errorf("arc at place %q has both a variable and a concrete pattern", a.Place)
	case !hasVariable && !hasConcrete:
		return cpn.Pattern{}, fmt.Errorf("arc at place %q has neither a variable nor a concrete pattern", a.Place)
	case hasVariable:
		return cpn.NewVariablePattern(*a.Variable), nil
	default:
		value, err := asNonNegativeInteger(*a.Value)
		if err != nil {
			return cpn.Pattern{}, fmt.Errorf("arc at place %q: %w", a.Place, err)
		}
		net.AddKind(*a.Kind)
		return cpn.NewConcretePattern(token.New(token.Kind(*a.Kind), value)), nil
	}
}

func sortedKeys(m map[string]TransitionSpec) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedMarkingKeys(m map[string][]TokenLiteral) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func warn(logger *zap.Logger, msg, transition, place string) {
	if logger == nil {
		return
	}
	logger.Warn(msg, zap.String("transition", transition), zap.String("place", place))
}
