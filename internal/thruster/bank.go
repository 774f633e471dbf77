// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package thruster

import "fmt"

// Entry binds a thruster ID to its display name and driver.
type Entry struct {
	ID     ID
	Name   string
	Driver Driver
}

// Bank is the fixed set of thrusters wired at startup. Entry order is the
// order used for diagnostics output. A Bank is immutable after NewBank.
type Bank struct {
	entries []Entry
	byID    [NumThrusters]*Entry
}

// NewBank validates entries and builds a Bank. Every fitted thruster must be
// present exactly once with a non-nil driver.
func NewBank(entries ...Entry) (*Bank, error) {
	b := &Bank{entries: make([]Entry, len(entries))}
	copy(b.entries, entries)

	for i := range b.entries {
		e := &b.entries[i]
		if !e.ID.Valid() {
			return nil, fmt.Errorf("bank: invalid thruster id %d", int(e.ID))
		}
		if e.Driver == nil {
			return nil, fmt.Errorf("bank: %s thruster has no driver", e.ID)
		}
		if b.byID[e.ID] != nil {
			return nil, fmt.Errorf("bank: %s thruster listed twice", e.ID)
		}
		if e.Name == "" {
			e.Name = e.ID.String()
		}
		b.byID[e.ID] = e
	}
	for _, id := range IDs() {
		if b.byID[id] == nil {
			return nil, fmt.Errorf("bank: %s thruster missing", id)
		}
	}
	return b, nil
}

// Entries returns a copy of the bank entries in diagnostics order.
func (b *Bank) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Order returns the thruster IDs in diagnostics order.
func (b *Bank) Order() []ID {
	out := make([]ID, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.ID
	}
	return out
}

// Names maps each thruster to its display name.
func (b *Bank) Names() map[ID]string {
	out := make(map[ID]string, len(b.entries))
	for _, e := range b.entries {
		out[e.ID] = e.Name
	}
	return out
}

// Driver returns the driver bound to id, or nil if id is not fitted.
func (b *Bank) Driver(id ID) Driver {
	if !id.Valid() || b.byID[id] == nil {
		return nil
	}
	return b.byID[id].Driver
}
