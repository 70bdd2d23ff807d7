// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package owslavetest is meant to be used to test 1-wire slave devices
// without hardware.
//
// Wire simulates an open drain line with a virtual clock. Slaves attach
// through Pin, which implements owslave.Hardware; Master drives the line with
// standard speed time slots and implements onewire.BusSearcher.
//
// Interrupt handlers run synchronously on the goroutine advancing the clock
// and the main loops of the engines started with Start run until they park
// in Wait before the clock moves on, so a simulation is deterministic.
package owslavetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GermanBionicSystems/owslave/owslave"
	"github.com/GermanBionicSystems/owslave/wave"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Wire is a simulated 1-wire bus.
type Wire struct {
	mu      sync.Mutex
	cond    *sync.Cond
	now     time.Duration
	master  bool // master drives low
	level   gpio.Level
	pins    []*Pin
	pending []edge
	sig     wave.Signal
	wg      sync.WaitGroup
	closed  bool
}

type edge struct {
	p      *Pin
	rising bool
}

// NewWire returns an idle wire at time 0.
func NewWire() *Wire {
	w := &Wire{level: gpio.High}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// NewPin attaches a slave whose timer runs at rate.
//
// It panics if rate has no period a time.Duration can represent.
func (w *Wire) NewPin(name string, rate physic.Frequency) *Pin {
	period := time.Duration(0)
	if rate > 0 {
		period = rate.Period()
	}
	if period <= 0 {
		panic(fmt.Sprintf("owslavetest: invalid rate %s for %s", rate, name))
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	p := &Pin{w: w, name: name, period: period}
	w.pins = append(w.pins, p)
	return p
}

// Runner is the main loop of a slave, normally an *owslave.Engine.
type Runner interface {
	Run(ctx context.Context) error
}

// Start runs r's main loop on its own goroutine until ctx is done or the
// wire is closed, and waits for it to park.
func (w *Wire) Start(ctx context.Context, p *Pin, r Runner) {
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	p.running = true
	p.cancel = cancel
	w.wg.Add(1)
	w.mu.Unlock()
	go func() {
		defer w.wg.Done()
		err := r.Run(ctx)
		w.mu.Lock()
		p.err = err
		p.running = false
		w.cond.Broadcast()
		w.mu.Unlock()
	}()
	w.mu.Lock()
	w.settleLocked()
	w.mu.Unlock()
}

// Close stops every main loop started with Start.
func (w *Wire) Close() error {
	w.mu.Lock()
	w.closed = true
	for _, p := range w.pins {
		if p.cancel != nil {
			p.cancel()
		}
	}
	w.cond.Broadcast()
	w.mu.Unlock()
	w.wg.Wait()
	return nil
}

// Now returns the virtual time.
func (w *Wire) Now() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.now
}

// Level returns the current level of the line.
func (w *Wire) Level() gpio.Level {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.level
}

// Transitions returns every level change since the creation of the wire.
func (w *Wire) Transitions() wave.Signal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append(wave.Signal(nil), w.sig...)
}

func (w *Wire) String() string {
	return fmt.Sprintf("owslavetest.Wire{%d slaves}", len(w.pins))
}

// drive sets the master output and services the resulting interrupts.
func (w *Wire) drive(low bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dispatchLocked()
	w.master = low
	w.update()
	w.dispatchLocked()
}

// Sleep advances the virtual clock by d, firing the timers that expire on
// the way.
func (w *Wire) Sleep(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dispatchLocked()
	end := w.now + d
	for {
		p := w.nextTimerLocked(end)
		if p == nil {
			break
		}
		w.now = p.deadline
		p.armed = false
		p.calls.Timers++
		p.isr.HandleTimer()
		w.afterInterruptLocked()
		w.dispatchLocked()
	}
	w.now = end
}

func (w *Wire) nextTimerLocked(end time.Duration) *Pin {
	var next *Pin
	for _, p := range w.pins {
		if !p.armed || !p.timerOn || p.isr == nil || p.deadline > end {
			continue
		}
		if next == nil || p.deadline < next.deadline {
			next = p
		}
	}
	return next
}

// update recomputes the level and queues the edge interrupts it triggers.
func (w *Wire) update() {
	l := gpio.High
	if w.master {
		l = gpio.Low
	}
	for _, p := range w.pins {
		if p.driving {
			l = gpio.Low
		}
	}
	if l == w.level {
		return
	}
	w.level = l
	w.sig = append(w.sig, wave.Transition{At: w.now, Level: l})
	rising := l == gpio.High
	for _, p := range w.pins {
		if p.edgeOn && p.rising == rising {
			w.pending = append(w.pending, edge{p: p, rising: rising})
		}
	}
}

// dispatchLocked delivers the queued edges. An edge whose interrupt was
// disabled or re-armed for the other polarity in the meantime is dropped.
func (w *Wire) dispatchLocked() {
	for len(w.pending) != 0 {
		ev := w.pending[0]
		w.pending = w.pending[1:]
		p := ev.p
		if p.isr == nil || !p.edgeOn || p.rising != ev.rising {
			continue
		}
		p.calls.Edges++
		p.isr.HandleEdge()
		w.afterInterruptLocked()
	}
}

// afterInterruptLocked lets every main loop observe the new state.
func (w *Wire) afterInterruptLocked() {
	for _, p := range w.pins {
		if p.running {
			p.woken = true
		}
	}
	w.cond.Broadcast()
	w.settleLocked()
}

// settleLocked waits until every running main loop is parked in Wait.
func (w *Wire) settleLocked() {
	for !w.closed {
		busy := false
		for _, p := range w.pins {
			if p.running && (!p.parked || p.woken) {
				busy = true
				break
			}
		}
		if !busy {
			return
		}
		w.cond.Wait()
	}
}

var _ owslave.Hardware = &Pin{}
