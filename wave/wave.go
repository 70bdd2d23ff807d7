// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package wave records and renders the level of a bus over time.
//
// A Signal is produced by the simulated wire in owslavetest. It can be
// plotted on the console with Console or rendered to a PNG with RenderPNG.
package wave

import (
	"sort"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Transition is a change of level at a point in time.
type Transition struct {
	At    time.Duration
	Level gpio.Level
}

// Signal is a list of transitions sorted by time. The level before the first
// transition is High, the idle level of an open drain bus.
type Signal []Transition

// LevelAt returns the level at time t.
func (s Signal) LevelAt(t time.Duration) gpio.Level {
	i := sort.Search(len(s), func(i int) bool { return s[i].At > t })
	if i == 0 {
		return gpio.High
	}
	return s[i-1].Level
}

// End returns the time of the last transition.
func (s Signal) End() time.Duration {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].At
}

// Span tells which levels are seen in [from, to).
func (s Signal) Span(from, to time.Duration) (low, high bool) {
	if s.LevelAt(from) == gpio.Low {
		low = true
	} else {
		high = true
	}
	i := sort.Search(len(s), func(i int) bool { return s[i].At > from })
	for ; i < len(s) && s[i].At < to; i++ {
		if s[i].Level == gpio.Low {
			low = true
		} else {
			high = true
		}
	}
	return low, high
}

// Pulse is a low pulse.
type Pulse struct {
	Start, Width time.Duration
}

// LowPulses returns the completed low pulses of the signal.
func (s Signal) LowPulses() []Pulse {
	var out []Pulse
	start := time.Duration(-1)
	for _, t := range s {
		switch {
		case t.Level == gpio.Low && start < 0:
			start = t.At
		case t.Level == gpio.High && start >= 0:
			out = append(out, Pulse{Start: start, Width: t.At - start})
			start = -1
		}
	}
	return out
}
