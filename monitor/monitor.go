// Package monitor wires the configuration loader, marking store, event
// dispatcher, transition engine, violation policy and log sink into the
// single entry point the interpreter drives: observe(event) and
// marking_hash().
package monitor

import (
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jt05610/cpnmonitor/config"
	"github.com/jt05610/cpnmonitor/cpn"
	"github.com/jt05610/cpnmonitor/dispatch"
	"github.com/jt05610/cpnmonitor/event"
	"github.com/jt05610/cpnmonitor/logsink"
	"github.com/jt05610/cpnmonitor/marking"
	"github.com/jt05610/cpnmonitor/token"
	"github.com/jt05610/cpnmonitor/violation"
)

// Config is the monitor's construction-time configuration, sourced from
// the CLI flags and environment defaults of the control surface.
type Config struct {
	Policy                  violation.Policy
	LogPath                 string
	PrintMarkingOnEachEvent bool
	Logger                  *zap.Logger
}

// Monitor is the single instance per execution: it owns the marking
// exclusively and is reset, not recreated, between model-checker
// explorations.
type Monitor struct {
	net        *cpn.Net
	store      *marking.Store
	initial    map[string][]token.Token
	dispatcher *dispatch.Dispatcher
	reporter   *violation.Reporter
	log        logsink.Sink
	printEach  bool
	logger     *zap.Logger
	runID      string
}

// New loads and validates the configuration at configPath and builds a
// Monitor ready to observe events. A *config.ConfigInvalidError here is
// fatal, per propagation policy.
func New(configPath string, cfg Config) (*Monitor, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	file, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	net, initial, mapping, err := file.Validate(logger)
	if err != nil {
		return nil, err
	}

	store := marking.NewStore(net.SortedPlaces())
	store.Reset(initial)

	disp := dispatch.New(net, mapping, store, declaredPlaces(initial), logger)

	var sink logsink.Sink
	if cfg.LogPath != "" {
		sink, err = logsink.Open(cfg.LogPath, logger)
		if err != nil {
			return nil, fmt.Errorf("opening log %s: %w", cfg.LogPath, err)
		}
	} else {
		sink = logsink.Nop()
	}

	return &Monitor{
		net:        net,
		store:      store,
		initial:    initial,
		dispatcher: disp,
		reporter:   violation.NewReporter(cfg.Policy),
		log:        sink,
		printEach:  cfg.PrintMarkingOnEachEvent,
		logger:     logger,
		runID:      uuid.New().String(),
	}, nil
}

func declaredPlaces(initial map[string][]token.Token) []string {
	out := make([]string, 0, len(initial))
	for p := range initial {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Observe drives one event through the dispatcher and transition
// engine, logging exactly one record for it — the NotEnabled diagnostic,
// if any, and the marking-hash record for the same event are in fact the
// same record here. A non-nil error means the interpreter must abort:
// either a *violation.Diagnostic under fail-fast, or a
// *cpn.UnboundPostVariableError, which is always fatal regardless of
// policy and is returned without logging a record.
func (m *Monitor) Observe(ev event.Event) error {
	res := m.dispatcher.Dispatch(ev, m.store)
	if res.Ignored {
		m.record(ev, nil, false, "")
		m.maybePrintMarking()
		return nil
	}

	transitionName := res.Transition
	t := m.net.Transitions[transitionName]

	// Lazily minted tokens are applied to a trial copy of the marking
	// first, never to the live store directly: a mint only "counts" if it
	// results in the transition actually firing (lazy-minting
	// property), so NotEnabled must leave the real marking exactly as it
	// was before this event, mints included.
	trial := m.store.Snapshot()
	for _, op := range res.Mints {
		trial.Insert(op.Place, op.Token)
	}

	_, err := cpn.Fire(t, trial, res.Binding)
	if err == nil {
		m.store = trial
		m.record(ev, &transitionName, true, "")
		m.maybePrintMarking()
		return nil
	}

	notEnabled, ok := err.(*cpn.NotEnabledError)
	if !ok {
		// *cpn.UnboundPostVariableError or anything else: a model bug,
		// fatal regardless of policy.
		return err
	}

	diag, abortErr := m.reporter.Report(ev, transitionName, notEnabled, m.store)
	m.record(ev, &transitionName, false, diag.Reason)
	m.maybePrintMarking()
	return abortErr
}

func (m *Monitor) record(ev event.Event, transition *string, fired bool, violationReason string) {
	var loc string
	if ev.Location != nil {
		loc = ev.Location.String()
	}
	m.log.RecordEvent(logsink.EventRecord{
		RunID:       m.runID,
		Event:       string(ev.Kind),
		Fields:      ev.Fields,
		Transition:  transition,
		Fired:       fired,
		MarkingHash: m.store.Hash(),
		Violation:   violationReason,
		Location:    loc,
	})
}

func (m *Monitor) maybePrintMarking() {
	if !m.printEach {
		return
	}
	fmt.Fprintf(os.Stderr, "marking_hash=%d\n", m.store.Hash())
}

// MarkingHash returns the current marking's hash.
func (m *Monitor) MarkingHash() uint64 {
	return m.store.Hash()
}

// OnExecutionEnd emits the exec_end log record and resets the marking
// to initial_marking for the next model-checker exploration. A fresh
// run ID is minted for that next exploration so its records cannot be
// mistaken for this one's once the marking has looped back to the same
// initial state and hash values start repeating.
func (m *Monitor) OnExecutionEnd() {
	m.log.RecordExecEnd(m.runID, m.store.Hash())
	m.store.Reset(m.initial)
	m.runID = uuid.New().String()
}

// Close releases the log sink. No other teardown is required — the
// marking is owned entirely by this instance.
func (m *Monitor) Close() error {
	return m.log.Close()
}
