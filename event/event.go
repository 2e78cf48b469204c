// Package event defines the protocol-layer event schema the interpreter
// emits and the per-kind field-to-variable mapping the
// dispatcher uses to build an initial binding.
package event

import (
	"fmt"

	"github.com/jt05610/cpnmonitor/token"
)

// Kind names one of the fixed event kinds the interpreter can emit.
// Kinds outside this set are never produced; kinds inside it may still
// be absent from a particular model's event_mapping, in which case they
// are ignored (step 1).
type Kind string

const (
	ThreadSpawn Kind = "ThreadSpawn"
	ThreadJoin  Kind = "ThreadJoin"
	Yield       Kind = "Yield"
	Block       Kind = "Block"
	Wake        Kind = "Wake"
	LockAcquire Kind = "LockAcquire"
	LockRelease Kind = "LockRelease"
	AtomicLoad  Kind = "AtomicLoad"
	AtomicStore Kind = "AtomicStore"
	// UnsafeRead and UnsafeWrite mark a raw memory access to a region
	// identity rather than a single atomic location — the events an
	// interpreter emits around unsafe-code memory accesses it cannot
	// otherwise attribute to a lock or atomic variable. A model that
	// wants to catch overlapping unsafe accesses maps these to
	// transitions the way LockAcquire/LockRelease map to a mutex model;
	// a model that doesn't care simply leaves them out of
	// event_mapping, where they are ignored like any other kind.
	UnsafeRead  Kind = "UnsafeRead"
	UnsafeWrite Kind = "UnsafeWrite"
)

// Location is the interpreter-supplied source position an event
// occurred at, when available. It carries no CPN semantics — it never
// participates in binding or firing — but rides along on an Event so a
// violation diagnostic can point at the offending line.
type Location struct {
	File   string
	Line   uint32
	Column uint32
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Event is a tagged record carrying the fixed field set for its Kind.
// Field values are unsigned 64-bit interpreter identities (addresses or
// stable ids) — never assumed reproducible in absolute terms, only in
// relative order of first appearance. Location is optional: an
// interpreter that cannot cheaply attribute a source position to an
// event leaves it nil.
type Event struct {
	Kind     Kind
	Fields   map[string]uint64
	Location *Location
}

func New(kind Kind, fields map[string]uint64) Event {
	return Event{Kind: kind, Fields: fields}
}

// WithLocation attaches a source location to ev, returning the updated
// value for chaining at the call site that constructs the event.
func (e Event) WithLocation(loc Location) Event {
	e.Location = &loc
	return e
}

// Field looks up a field by name, reporting whether it was present.
func (e Event) Field(name string) (uint64, bool) {
	v, ok := e.Fields[name]
	return v, ok
}

// DynamicField describes one field of an event kind that carries a
// dynamic identity: which variable it binds to, and which token kind
// that identity belongs to for lazy-minting purposes.
type DynamicField struct {
	Field    string
	Variable string
	Kind     token.Kind
}

// Schema is the field schema for one event kind: the field/variable
// pairs it supplies to the initial binding, in declaration order.
type Schema struct {
	Kind   Kind
	Fields []DynamicField
}

// schemas is the fixed event field table: thread/lock identifiers and
// memory locations, each bound to the variable its transitions expect.
var schemas = map[Kind]Schema{
	ThreadSpawn: {Kind: ThreadSpawn, Fields: []DynamicField{
		{Field: "child", Variable: "T", Kind: "Thread"},
		{Field: "parent", Variable: "P", Kind: "Thread"},
	}},
	ThreadJoin: {Kind: ThreadJoin, Fields: []DynamicField{
		{Field: "joined", Variable: "T", Kind: "Thread"},
	}},
	Yield: {Kind: Yield, Fields: []DynamicField{
		{Field: "thread", Variable: "T", Kind: "Thread"},
	}},
	Block: {Kind: Block, Fields: []DynamicField{
		{Field: "thread", Variable: "T", Kind: "Thread"},
		{Field: "on", Variable: "L", Kind: "Lock"},
	}},
	Wake: {Kind: Wake, Fields: []DynamicField{
		{Field: "thread", Variable: "T", Kind: "Thread"},
	}},
	LockAcquire: {Kind: LockAcquire, Fields: []DynamicField{
		{Field: "thread", Variable: "T", Kind: "Thread"},
		{Field: "lock_id", Variable: "L", Kind: "Lock"},
	}},
	LockRelease: {Kind: LockRelease, Fields: []DynamicField{
		{Field: "thread", Variable: "T", Kind: "Thread"},
		{Field: "lock_id", Variable: "L", Kind: "Lock"},
	}},
	AtomicLoad: {Kind: AtomicLoad, Fields: []DynamicField{
		{Field: "thread", Variable: "T", Kind: "Thread"},
		{Field: "loc", Variable: "X", Kind: "Loc"},
	}},
	AtomicStore: {Kind: AtomicStore, Fields: []DynamicField{
		{Field: "thread", Variable: "T", Kind: "Thread"},
		{Field: "loc", Variable: "X", Kind: "Loc"},
	}},
	UnsafeRead: {Kind: UnsafeRead, Fields: []DynamicField{
		{Field: "thread", Variable: "T", Kind: "Thread"},
		{Field: "region_id", Variable: "R", Kind: "Region"},
	}},
	UnsafeWrite: {Kind: UnsafeWrite, Fields: []DynamicField{
		{Field: "thread", Variable: "T", Kind: "Thread"},
		{Field: "region_id", Variable: "R", Kind: "Region"},
	}},
}

// SchemaFor returns the field schema for kind, and whether kind is a
// recognized event kind at all. An unrecognized kind is ignored
// silently by the dispatcher, which uses this to distinguish "unknown
// kind" from "known kind, not in this model's event_mapping".
func SchemaFor(kind Kind) (Schema, bool) {
	s, ok := schemas[kind]
	return s, ok
}
