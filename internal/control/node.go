// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package control runs the two thruster tasks: applying velocity commands as
// they arrive and evaluating thruster health on a fixed period. The tasks
// share nothing but the thruster drivers.
package control

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/thruster_manager/internal/health"
	"github.com/relabs-tech/thruster_manager/internal/mixer"
	"github.com/relabs-tech/thruster_manager/internal/thruster"
)

// DefaultMonitorInterval gives the 50 Hz health cadence.
const DefaultMonitorInterval = 20 * time.Millisecond

// DiagnosticsSink receives one status per monitoring tick.
type DiagnosticsSink interface {
	PublishDiagnostics(health.Status) error
}

// Observer is notified of everything the node reads and writes.
// *metrics.Metrics satisfies it.
type Observer interface {
	ObserveTelemetry(thruster.ID, thruster.Telemetry)
	ObserveReadError(thruster.ID)
	ObserveCommand(thruster.ID, thruster.Command)
	ObserveWriteError(thruster.ID)
	ObserveMix()
	ObserveStatus(health.Status)
}

// Options configures a Node. Zero values select defaults.
type Options struct {
	Thresholds      health.Thresholds
	MonitorInterval time.Duration
	Sink            DiagnosticsSink
	Observer        Observer
	Now             func() time.Time
}

// Node owns the thruster bank and runs the command and monitor tasks.
type Node struct {
	bank     *thruster.Bank
	order    []thruster.ID
	names    map[thruster.ID]string
	th       health.Thresholds
	interval time.Duration
	sink     DiagnosticsSink
	obs      Observer
	now      func() time.Time

	pending chan mixer.Twist
}

// New builds a Node over bank.
func New(bank *thruster.Bank, opts Options) *Node {
	n := &Node{
		bank:     bank,
		order:    bank.Order(),
		names:    bank.Names(),
		th:       opts.Thresholds,
		interval: opts.MonitorInterval,
		sink:     opts.Sink,
		obs:      opts.Observer,
		now:      opts.Now,
		pending:  make(chan mixer.Twist, 1),
	}
	if n.th == (health.Thresholds{}) {
		n.th = health.DefaultThresholds()
	}
	if n.interval <= 0 {
		n.interval = DefaultMonitorInterval
	}
	if n.now == nil {
		n.now = time.Now
	}
	return n
}

// Submit queues cmd for the command task. It never blocks; a command that
// has not been applied yet is replaced.
func (n *Node) Submit(cmd mixer.Twist) {
	for {
		select {
		case n.pending <- cmd:
			return
		default:
		}
		select {
		case <-n.pending:
		default:
		}
	}
}

// ApplyCommand mixes cmd and writes the result to every thruster. A failed
// write does not stop the remaining thrusters from being commanded.
func (n *Node) ApplyCommand(cmd mixer.Twist) error {
	set := mixer.Mix(cmd)
	if n.obs != nil {
		n.obs.ObserveMix()
	}
	return n.write(set)
}

// Stop commands zero thrust on every thruster.
func (n *Node) Stop() error {
	var set thruster.CommandSet
	for _, id := range n.order {
		set[id] = thruster.Stop
	}
	return n.write(set)
}

func (n *Node) write(set thruster.CommandSet) error {
	var errs []error
	for _, e := range n.bank.Entries() {
		c := set.For(e.ID)
		if err := e.Driver.WriteCommand(c); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name, err))
			if n.obs != nil {
				n.obs.ObserveWriteError(e.ID)
			}
			continue
		}
		if n.obs != nil {
			n.obs.ObserveCommand(e.ID, c)
		}
	}
	return errors.Join(errs...)
}

// Sample reads every thruster once. Thrusters whose read fails are left out.
func (n *Node) Sample() map[thruster.ID]thruster.Telemetry {
	out := make(map[thruster.ID]thruster.Telemetry, len(n.order))
	for _, e := range n.bank.Entries() {
		t, err := e.Driver.ReadTelemetry()
		if err != nil {
			log.Printf("monitor: %s telemetry read failed: %v", e.Name, err)
			if n.obs != nil {
				n.obs.ObserveReadError(e.ID)
			}
			continue
		}
		if n.obs != nil {
			n.obs.ObserveTelemetry(e.ID, t)
		}
		out[e.ID] = t
	}
	return out
}

// MonitorOnce samples, evaluates and publishes one health status.
func (n *Node) MonitorOnce() health.Status {
	st := health.Evaluate(n.order, n.Sample(), n.th, n.names)
	st.Stamp = n.now()
	if n.obs != nil {
		n.obs.ObserveStatus(st)
	}
	if n.sink != nil {
		if err := n.sink.PublishDiagnostics(st); err != nil {
			log.Printf("monitor: publish diagnostics: %v", err)
		}
	}
	return st
}

// Run starts both tasks and blocks until ctx is cancelled. All thrusters
// are stopped before Run returns.
func (n *Node) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.runCommands(gctx) })
	g.Go(func() error { return n.runMonitor(gctx) })
	err := g.Wait()

	if stopErr := n.Stop(); stopErr != nil {
		log.Printf("control: stop thrusters on shutdown: %v", stopErr)
	} else {
		log.Println("control: thrusters stopped")
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (n *Node) runCommands(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-n.pending:
			if err := n.ApplyCommand(cmd); err != nil {
				log.Printf("command: %v", err)
			}
		}
	}
}

func (n *Node) runMonitor(ctx context.Context) error {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	last := health.OK
	first := true
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			st := n.MonitorOnce()
			if first || st.Level != last {
				log.Printf("monitor: thruster health %s: %s", st.Level, st.Message)
			}
			last, first = st.Level, false
		}
	}
}
