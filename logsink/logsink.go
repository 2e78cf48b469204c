// Package logsink implements the monitor's append-only, one-line-per-
// record log: one JSON object per observed event plus
// one at execution end, flushed after every write and opened once for
// the lifetime of the monitor.
package logsink

import (
	"encoding/json"
	"os"
	"sync"

	"go.uber.org/zap"
)

// EventRecord is logged once per observe() call. Transition
// is nil and Fired is false for ignored events; Violation is set (and
// Fired left false) when the mapped transition was not enabled.
type EventRecord struct {
	RunID       string            `json:"run_id"`
	Event       string            `json:"event"`
	Fields      map[string]uint64 `json:"fields"`
	Transition  *string           `json:"transition"`
	Fired       bool              `json:"fired"`
	MarkingHash uint64            `json:"marking_hash"`
	Violation   string            `json:"violation,omitempty"`
	Location    string            `json:"location,omitempty"`
}

// ExecEndRecord is logged once per on_execution_end() call.
type ExecEndRecord struct {
	RunID       string `json:"run_id"`
	ExecEnd     bool   `json:"exec_end"`
	MarkingHash uint64 `json:"marking_hash"`
}

// Sink is the append-only log the monitor writes to. Write failures are
// a LogIOFailure: downgraded to a warning, never fatal. runID correlates
// every record from one model-checker exploration, so records from
// distinct explorations of the same run can be told apart once the
// marking is reset and reused.
type Sink interface {
	RecordEvent(r EventRecord)
	RecordExecEnd(runID string, hash uint64)
	Close() error
}

type fileSink struct {
	mu     sync.Mutex
	file   *os.File
	enc    *json.Encoder
	logger *zap.Logger
}

// Open appends to (creating if necessary) the log file at path. The
// file is opened once and kept open for the sink's lifetime.
func Open(path string, logger *zap.Logger) (Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &fileSink{file: f, enc: json.NewEncoder(f), logger: logger}, nil
}

func (s *fileSink) RecordEvent(r EventRecord) {
	s.write(r)
}

func (s *fileSink) RecordExecEnd(runID string, hash uint64) {
	s.write(ExecEndRecord{RunID: runID, ExecEnd: true, MarkingHash: hash})
}

func (s *fileSink) write(v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(v); err != nil {
		s.warn(err)
		return
	}
	if err := s.file.Sync(); err != nil {
		s.warn(err)
	}
}

func (s *fileSink) warn(err error) {
	if s.logger != nil {
		s.logger.Warn("log write failed", zap.Error(err))
		return
	}
	os.Stderr.WriteString("cpnmonitor: log write failed: " + err.Error() + "\n")
}

func (s *fileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// Nop is the sink used when no log path is configured — log=<path> is
// optional.
type nopSink struct{}

func Nop() Sink { return nopSink{} }

func (nopSink) RecordEvent(EventRecord)      {}
func (nopSink) RecordExecEnd(string, uint64) {}
func (nopSink) Close() error                 { return nil }
