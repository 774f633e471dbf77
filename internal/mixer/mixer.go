// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package mixer maps a 6-DOF velocity demand onto per-thruster drive ratios.
//
// The vehicle geometry couples three linear/angular axis pairs that share a
// thruster pair:
//
//	(linear.z, angular.y)  vertical thrusters, heave and pitch
//	(linear.x, angular.z)  forward thrusters, surge and yaw
//	(linear.y, angular.x)  strafe thrusters, sway and roll
//
// A pair whose combined magnitude exceeds 1 is scaled back onto the unit
// circle so the requested translation/rotation ratio is kept. Only the
// forward pair is fitted on the two-thruster vehicle; the other pairs are
// still normalized so the mixing contract does not change when thrusters
// are added.
package mixer

import (
	"math"

	"github.com/relabs-tech/thruster_manager/internal/thruster"
)

// Vector3 is a 3-axis vector in the vehicle body frame.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Twist is a velocity demand. Components are nominally in [-1, 1] but
// senders are not trusted to respect that.
type Twist struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// Demand holds the signed, clamped drive demand for every thruster position
// of the full vehicle geometry. Values are in [-1, 1].
type Demand struct {
	FrontUp      float64
	RearUp       float64
	LeftForward  float64
	RightForward float64
	TopStrafe    float64
	BottomStrafe float64
}

// Normalize replaces non-finite components with 0 and scales every coupled
// axis pair with a magnitude above 1 back to unit magnitude.
func Normalize(t Twist) Twist {
	t.Linear = Vector3{finite(t.Linear.X), finite(t.Linear.Y), finite(t.Linear.Z)}
	t.Angular = Vector3{finite(t.Angular.X), finite(t.Angular.Y), finite(t.Angular.Z)}

	t.Linear.Z, t.Angular.Y = normalizePair(t.Linear.Z, t.Angular.Y)
	t.Linear.X, t.Angular.Z = normalizePair(t.Linear.X, t.Angular.Z)
	t.Linear.Y, t.Angular.X = normalizePair(t.Linear.Y, t.Angular.X)
	return t
}

// Demands normalizes t and mixes it into per-position demands.
func Demands(t Twist) Demand {
	n := Normalize(t)
	return Demand{
		FrontUp:      clamp(n.Linear.Z+n.Angular.Y, -1, 1),
		RearUp:       clamp(n.Linear.Z-n.Angular.Y, -1, 1),
		LeftForward:  clamp(n.Linear.X-n.Angular.Z, -1, 1),
		RightForward: clamp(n.Linear.X+n.Angular.Z, -1, 1),
		TopStrafe:    clamp(n.Linear.Y-n.Angular.X, -1, 1),
		BottomStrafe: clamp(n.Linear.Y+n.Angular.X, -1, 1),
	}
}

// Mix converts a velocity demand into one command per fitted thruster.
func Mix(t Twist) thruster.CommandSet {
	d := Demands(t)
	var out thruster.CommandSet
	out[thruster.Left] = command(d.LeftForward)
	out[thruster.Right] = command(d.RightForward)
	return out
}

// command splits a signed demand into ratio and direction. Zero maps to
// Reverse with ratio 0.
func command(signed float64) thruster.Command {
	dir := thruster.Reverse
	if signed > 0 {
		dir = thruster.Forward
	}
	return thruster.Command{Ratio: math.Abs(signed), Direction: dir}
}

// normalizePair computes the pair magnitude once and uses it for both
// components.
func normalizePair(a, b float64) (float64, float64) {
	m := math.Hypot(a, b)
	if m > 1.0 {
		return a / m, b / m
	}
	return a, b
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// clamp keeps value inside [lo, hi].
func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
