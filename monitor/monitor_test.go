package monitor_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jt05610/cpnmonitor/event"
	"github.com/jt05610/cpnmonitor/logsink"
	"github.com/jt05610/cpnmonitor/marking"
	"github.com/jt05610/cpnmonitor/monitor"
	"github.com/jt05610/cpnmonitor/token"
	"github.com/jt05610/cpnmonitor/violation"
)

const mutexModelJSON = `{
  "places": ["free", "held"],
  "transitions": {
    "Acquire": {
      "pre": [{"place": "free", "variable": "L"}],
      "post": [{"place": "held", "variable": "L"}]
    },
    "Release": {
      "pre": [{"place": "held", "variable": "L"}],
      "post": [{"place": "free", "variable": "L"}]
    }
  },
  "event_mapping": {
    "LockAcquire": "Acquire",
    "LockRelease": "Release"
  },
  "initial_marking": {
    "free": []
  }
}`

func writeMutexModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mutex.json")
	if err := os.WriteFile(path, []byte(mutexModelJSON), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func lockAcquire(thread, lock uint64) event.Event {
	return event.New(event.LockAcquire, map[string]uint64{"thread": thread, "lock_id": lock})
}

func lockRelease(thread, lock uint64) event.Event {
	return event.New(event.LockRelease, map[string]uint64{"thread": thread, "lock_id": lock})
}

func TestMutexHappyPath(t *testing.T) {
	m, err := monitor.New(writeMutexModel(t), monitor.Config{Policy: violation.FailFast})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.Observe(lockAcquire(1, 100)); err != nil {
		t.Fatalf("LockAcquire: unexpected error: %v", err)
	}
	if err := m.Observe(lockRelease(1, 100)); err != nil {
		t.Fatalf("LockRelease: unexpected error: %v", err)
	}

	want := marking.NewStore([]string{"free", "held"})
	want.Insert("free", token.New("Lock", 100))
	if got := m.MarkingHash(); got != want.Hash() {
		t.Errorf("marking hash = %d, want %d", got, want.Hash())
	}
}

func TestDoubleReleaseViolatesUnderFailFast(t *testing.T) {
	m, err := monitor.New(writeMutexModel(t), monitor.Config{Policy: violation.FailFast})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = m.Observe(lockRelease(1, 100))
	if err == nil {
		t.Fatal("expected a protocol violation to abort under fail-fast")
	}
	if _, ok := err.(*violation.Diagnostic); !ok {
		t.Fatalf("expected *violation.Diagnostic, got %T", err)
	}
}

func TestDoubleReleaseContinuesAndLeavesMarkingUnchanged(t *testing.T) {
	m, err := monitor.New(writeMutexModel(t), monitor.Config{Policy: violation.Continue})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := m.MarkingHash()

	if err := m.Observe(lockRelease(1, 100)); err != nil {
		t.Fatalf("continue policy should not abort: %v", err)
	}
	if m.MarkingHash() != before {
		t.Error("marking changed despite the violating event not firing")
	}
}

func TestDoubleAcquireViolatesOnSecondEvent(t *testing.T) {
	m, err := monitor.New(writeMutexModel(t), monitor.Config{Policy: violation.Continue})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.Observe(lockAcquire(1, 100)); err != nil {
		t.Fatalf("first acquire should fire: %v", err)
	}
	before := m.MarkingHash()
	if err := m.Observe(lockAcquire(2, 100)); err != nil {
		t.Fatalf("continue policy should not abort: %v", err)
	}
	if m.MarkingHash() != before {
		t.Error("second acquire of a held lock changed the marking; it should have violated without firing")
	}
}

func TestIndependentLocksOrderIndependentHash(t *testing.T) {
	run := func(events []event.Event) uint64 {
		m, err := monitor.New(writeMutexModel(t), monitor.Config{Policy: violation.FailFast})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, ev := range events {
			if err := m.Observe(ev); err != nil {
				t.Fatalf("unexpected error on %v: %v", ev, err)
			}
		}
		return m.MarkingHash()
	}

	orderA := []event.Event{
		lockAcquire(1, 100), lockAcquire(2, 200),
		lockRelease(1, 100), lockRelease(2, 200),
	}
	orderB := []event.Event{
		lockAcquire(2, 200), lockAcquire(1, 100),
		lockRelease(2, 200), lockRelease(1, 100),
	}

	if run(orderA) != run(orderB) {
		t.Error("final marking hash should not depend on interleaving of independent locks")
	}
}

func TestIgnoredEventDoesNotMutateMarkingOrAbort(t *testing.T) {
	m, err := monitor.New(writeMutexModel(t), monitor.Config{Policy: violation.FailFast})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := m.MarkingHash()

	spawn := event.New(event.ThreadSpawn, map[string]uint64{"parent": 1, "child": 2})
	if err := m.Observe(spawn); err != nil {
		t.Fatalf("unmapped event kind should be ignored, not erred: %v", err)
	}
	if m.MarkingHash() != before {
		t.Error("marking changed on an ignored event")
	}
}

const regionModelJSON = `{
  "places": ["region_free", "region_borrowed"],
  "transitions": {
    "BorrowExclusive": {
      "pre": [{"place": "region_free", "variable": "R"}],
      "post": [{"place": "region_borrowed", "variable": "R"}]
    },
    "ReleaseExclusive": {
      "pre": [{"place": "region_borrowed", "variable": "R"}],
      "post": [{"place": "region_free", "variable": "R"}]
    }
  },
  "event_mapping": {
    "UnsafeWrite": "BorrowExclusive"
  },
  "initial_marking": {
    "region_free": []
  }
}`

func writeRegionModel(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "region.json")
	if err := os.WriteFile(path, []byte(regionModelJSON), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func unsafeWrite(thread, region uint64) event.Event {
	return event.New(event.UnsafeWrite, map[string]uint64{"thread": thread, "region_id": region})
}

func TestUnsafeWriteMintsRegionTokenIntoDeclaredHomePlace(t *testing.T) {
	m, err := monitor.New(writeRegionModel(t), monitor.Config{Policy: violation.FailFast})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.Observe(unsafeWrite(1, 9)); err != nil {
		t.Fatalf("first UnsafeWrite should lazily mint Region(9) and fire: %v", err)
	}

	want := marking.NewStore([]string{"region_free", "region_borrowed"})
	want.Insert("region_borrowed", token.New("Region", 9))
	if got := m.MarkingHash(); got != want.Hash() {
		t.Errorf("marking hash = %d, want %d", got, want.Hash())
	}
}

func TestOverlappingUnsafeWriteViolatesAndCarriesEventLocation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "monitor.jsonl")
	m, err := monitor.New(writeRegionModel(t), monitor.Config{Policy: violation.Continue, LogPath: logPath})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.Observe(unsafeWrite(1, 9)); err != nil {
		t.Fatalf("first UnsafeWrite should fire: %v", err)
	}

	second := unsafeWrite(2, 9).WithLocation(event.Location{File: "unsafe.rs", Line: 7, Column: 2})
	err = m.Observe(second)
	if err != nil {
		t.Fatalf("continue policy should not abort: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var rec logsink.EventRecord
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &rec); err != nil {
		t.Fatalf("decoding last log record: %v", err)
	}
	if rec.Fired || rec.Violation == "" {
		t.Errorf("expected the overlapping write to be logged as a violation, got %+v", rec)
	}
	if rec.Location != "unsafe.rs:7:2" {
		t.Errorf("logged location = %q, want unsafe.rs:7:2", rec.Location)
	}
}

func TestNewRejectsConfigurationWithUnboundPostVariable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	bad := `{
		"places": ["p"],
		"transitions": {
			"Bad": {"post": [{"place": "p", "variable": "Z"}]}
		}
	}`
	if err := os.WriteFile(path, []byte(bad), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if _, err := monitor.New(path, monitor.Config{}); err == nil {
		t.Fatal("expected ConfigInvalid for an unbound post-arc variable")
	}
}
