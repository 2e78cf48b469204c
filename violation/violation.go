// Package violation implements the fail-fast/continue policy and the
// structured protocol-violation diagnostic.
package violation

import (
	"fmt"

	"github.com/jt05610/cpnmonitor/cpn"
	"github.com/jt05610/cpnmonitor/event"
	"github.com/jt05610/cpnmonitor/marking"
)

// Policy selects what happens to the interpreter on a protocol
// violation.
type Policy int

const (
	// FailFast aborts on the first violation. It is the default.
	FailFast Policy = iota
	// Continue records the violation and leaves the marking unchanged;
	// monitoring proceeds.
	Continue
)

func (p Policy) String() string {
	if p == Continue {
		return "continue"
	}
	return "fail-fast"
}

// Diagnostic is the structured record attached to a protocol violation:
// the event and its fields, the transition it was mapped to, which
// pre-arc failed, a compact snapshot of the marking at the time of
// failure, and the source location the event carried, if any. It
// implements error so that under FailFast it can be returned directly as
// the aborting signal.
type Diagnostic struct {
	EventKind   event.Kind
	EventFields map[string]uint64
	Location    *event.Location
	Transition  string
	FailedPlace string
	FailedArc   cpn.Arc
	Marking     map[string][]string
	Reason      string
}

func (d *Diagnostic) Error() string {
	if d.Location != nil {
		return fmt.Sprintf("protocol violation at %s: event %s -> transition %q: %s", d.Location, d.EventKind, d.Transition, d.Reason)
	}
	return fmt.Sprintf("protocol violation: event %s -> transition %q: %s", d.EventKind, d.Transition, d.Reason)
}

// Reporter turns a *cpn.NotEnabledError into a Diagnostic and applies
// the configured Policy.
type Reporter struct {
	policy Policy
}

func NewReporter(policy Policy) *Reporter {
	return &Reporter{policy: policy}
}

func (r *Reporter) Policy() Policy {
	return r.policy
}

// Report builds the diagnostic for a failed firing. The returned
// *Diagnostic is always non-nil so the caller can log it regardless of
// policy; the returned error is non-nil only under FailFast, in which
// case it is the diagnostic itself and the caller must abort.
func (r *Reporter) Report(ev event.Event, transition string, ne *cpn.NotEnabledError, store *marking.Store) (*Diagnostic, error) {
	diag := &Diagnostic{
		EventKind:   ev.Kind,
		EventFields: ev.Fields,
		Location:    ev.Location,
		Transition:  transition,
		FailedPlace: ne.Arc.Place,
		FailedArc:   ne.Arc,
		Marking:     store.Summary(),
		Reason:      ne.Error(),
	}
	if r.policy == FailFast {
		return diag, diag
	}
	return diag, nil
}
