// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"strings"

	"github.com/relabs-tech/thruster_manager/internal/thruster"
)

// Order parses THRUSTER_ORDER. Every fitted thruster must appear exactly once.
func (c *Config) Order() ([]thruster.ID, error) {
	parts := strings.Split(c.ThrusterOrder, ",")
	order := make([]thruster.ID, 0, len(parts))
	seen := make(map[thruster.ID]bool, len(parts))
	for _, p := range parts {
		id, err := thruster.ParseID(p)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, fmt.Errorf("%s thruster listed twice", id)
		}
		seen[id] = true
		order = append(order, id)
	}
	if len(order) != thruster.NumThrusters {
		return nil, fmt.Errorf("expected %d thrusters, got %d", thruster.NumThrusters, len(order))
	}
	return order, nil
}

// Name returns the configured display name of a thruster.
func (c *Config) Name(id thruster.ID) string {
	switch id {
	case thruster.Left:
		return c.ThrusterLeftName
	case thruster.Right:
		return c.ThrusterRightName
	default:
		return id.String()
	}
}

// Addr returns the configured I2C address of a thruster.
func (c *Config) Addr(id thruster.ID) uint16 {
	if id == thruster.Right {
		return c.ThrusterRightAddr
	}
	return c.ThrusterLeftAddr
}
