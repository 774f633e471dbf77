package control

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/relabs-tech/thruster_manager/internal/health"
	"github.com/relabs-tech/thruster_manager/internal/mixer"
	"github.com/relabs-tech/thruster_manager/internal/thruster"
)

type recordingSink struct {
	mu       sync.Mutex
	statuses []health.Status
	err      error
}

func (s *recordingSink) PublishDiagnostics(st health.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, st)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.statuses)
}

func newTestNode(t *testing.T, sink DiagnosticsSink) (*Node, *thruster.SimDriver, *thruster.SimDriver) {
	t.Helper()
	left, right := thruster.NewSimDriver(16), thruster.NewSimDriver(16)
	bank, err := thruster.NewBank(
		thruster.Entry{ID: thruster.Right, Name: "Thruster R", Driver: right},
		thruster.Entry{ID: thruster.Left, Name: "Thruster L", Driver: left},
	)
	if err != nil {
		t.Fatalf("bank: %v", err)
	}
	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	n := New(bank, Options{
		Sink:            sink,
		MonitorInterval: 5 * time.Millisecond,
		Now:             func() time.Time { return stamp },
	})
	return n, left, right
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSubmitKeepsLatestCommand(t *testing.T) {
	n, _, _ := newTestNode(t, nil)
	n.Submit(mixer.Twist{Linear: mixer.Vector3{X: 0.1}})
	n.Submit(mixer.Twist{Linear: mixer.Vector3{X: 0.2}})
	n.Submit(mixer.Twist{Linear: mixer.Vector3{X: 0.3}})

	select {
	case got := <-n.pending:
		if got.Linear.X != 0.3 {
			t.Fatalf("pending command = %+v, want latest", got)
		}
	default:
		t.Fatalf("no pending command")
	}
	select {
	case extra := <-n.pending:
		t.Fatalf("unexpected queued command %+v", extra)
	default:
	}
}

func TestApplyCommandWritesBothThrusters(t *testing.T) {
	n, left, right := newTestNode(t, nil)
	if err := n.ApplyCommand(mixer.Twist{Linear: mixer.Vector3{X: 1}, Angular: mixer.Vector3{Z: 1}}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if c := right.LastCommand(); c.Direction != thruster.Forward || c.Ratio < 0.999 {
		t.Fatalf("right = %+v", c)
	}
	if c := left.LastCommand(); c != thruster.Stop {
		t.Fatalf("left = %+v", c)
	}
}

func TestApplyCommandContinuesAfterWriteError(t *testing.T) {
	n, left, right := newTestNode(t, nil)
	right.SetFault(thruster.Fault{Offline: true})

	err := n.ApplyCommand(mixer.Twist{Linear: mixer.Vector3{X: 0.5}})
	if !errors.Is(err, thruster.ErrSimOffline) {
		t.Fatalf("expected offline error, got %v", err)
	}
	if c := left.LastCommand(); c.Ratio != 0.5 {
		t.Fatalf("left not commanded after right failed: %+v", c)
	}
}

func TestMonitorOncePublishes(t *testing.T) {
	sink := &recordingSink{}
	n, left, _ := newTestNode(t, sink)

	st := n.MonitorOnce()
	if st.Level != health.OK {
		t.Fatalf("expected OK, got %s: %s", st.Level, st.Message)
	}
	if len(st.Values) != 8 || st.Values[0].Key != "Thruster R Alive" || st.Values[4].Key != "Thruster L Alive" {
		t.Fatalf("unexpected values %+v", st.Values)
	}
	if st.Stamp.IsZero() {
		t.Fatalf("status not stamped")
	}

	left.SetFault(thruster.Fault{Offline: true})
	st = n.MonitorOnce()
	if st.Level != health.Error {
		t.Fatalf("expected ERROR with left offline, got %s", st.Level)
	}
	if v, _ := st.Value("Thruster L Alive"); v != "false" {
		t.Fatalf("left alive = %q", v)
	}
	if sink.count() != 2 {
		t.Fatalf("sink got %d statuses, want 2", sink.count())
	}
}

func TestMonitorOnceSurvivesSinkError(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker down")}
	n, _, _ := newTestNode(t, sink)
	if st := n.MonitorOnce(); st.Level != health.OK {
		t.Fatalf("sink error changed level: %s", st.Level)
	}
}

func TestRunAppliesCommandsMonitorsAndStops(t *testing.T) {
	sink := &recordingSink{}
	n, left, right := newTestNode(t, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	n.Submit(mixer.Twist{Linear: mixer.Vector3{X: 0.6}})
	waitFor(t, "command applied", func() bool { return left.LastCommand().Ratio == 0.6 })
	waitFor(t, "diagnostics published", func() bool { return sink.count() >= 2 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}

	if left.LastCommand() != thruster.Stop || right.LastCommand() != thruster.Stop {
		t.Fatalf("thrusters not stopped on shutdown: %+v %+v", left.LastCommand(), right.LastCommand())
	}
}
