// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpiohal runs an owslave.Engine on a periph GPIO pin.
//
// The pin must be wired to the bus as open drain: the bus is pulled low with
// Out(gpio.Low) and released by turning the pin back into an input with a
// pull-up. Edges come from WaitForEdge and the countdown timer from the Go
// runtime, so the achievable timing depends on the host. On most Linux hosts
// this is only good enough with relaxed timings or for protocol debugging.
package gpiohal

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GermanBionicSystems/owslave/owslave"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Opts contains the options of the adapter.
type Opts struct {
	// Rate is the tick rate reported to the engine. It must match
	// owslave.Timing.Rate.
	Rate physic.Frequency
	// Poll is the longest time the edge goroutine and Wait block without
	// news.
	Poll time.Duration
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Rate: physic.MegaHertz,
	Poll: time.Millisecond,
}

// HAL implements owslave.Hardware on a gpio.PinIO.
type HAL struct {
	p      gpio.PinIO
	period time.Duration
	poll   time.Duration
	start  time.Time
	wake   chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	// mu is the critical section: held while an interrupt handler runs.
	mu      sync.Mutex
	isr     owslave.Interrupts
	driving bool
	rising  bool
	edgeOn  bool
	timerOn bool
	ticks   uint32
	gen     uint64
	timer   *time.Timer
	err     error
	halted  bool
}

// New configures p as a released bus input and starts watching its edges.
func New(p gpio.PinIO, opts *Opts) (*HAL, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.Rate <= 0 {
		return nil, errors.New("gpiohal: invalid rate")
	}
	if opts.Poll <= 0 {
		return nil, errors.New("gpiohal: invalid poll interval")
	}
	h := &HAL{
		p:      p,
		period: opts.Rate.Period(),
		poll:   opts.Poll,
		start:  time.Now(),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	if h.period <= 0 {
		return nil, fmt.Errorf("gpiohal: rate %s too high", opts.Rate)
	}
	if err := p.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("gpiohal: %s: %w", p, err)
	}
	h.wg.Add(1)
	go h.edges()
	return h, nil
}

func (h *HAL) String() string {
	return fmt.Sprintf("gpiohal{%s}", h.p)
}

// Halt implements conn.Resource.
//
// It stops the edge goroutine and the timer and releases the bus.
func (h *HAL) Halt() error {
	h.mu.Lock()
	if h.halted {
		h.mu.Unlock()
		return nil
	}
	h.halted = true
	h.stopTimer()
	close(h.done)
	h.mu.Unlock()
	h.wg.Wait()
	return h.p.In(gpio.PullUp, gpio.NoEdge)
}

// Err returns the first error returned by the pin.
func (h *HAL) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Attach implements owslave.Hardware.
func (h *HAL) Attach(isr owslave.Interrupts) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isr = isr
}

// DriveLow implements owslave.Hardware.
func (h *HAL) DriveLow() {
	h.driving = true
	h.check(h.p.Out(gpio.Low))
}

// Release implements owslave.Hardware.
func (h *HAL) Release() {
	h.driving = false
	h.check(h.p.In(gpio.PullUp, gpio.BothEdges))
}

// Level implements owslave.Hardware.
func (h *HAL) Level() gpio.Level {
	return h.p.Read()
}

// ArmFallingEdge implements owslave.Hardware.
func (h *HAL) ArmFallingEdge() {
	h.rising = false
}

// ArmRisingEdge implements owslave.Hardware.
func (h *HAL) ArmRisingEdge() {
	h.rising = true
}

// EnableEdgeInterrupt implements owslave.Hardware.
func (h *HAL) EnableEdgeInterrupt() {
	h.edgeOn = true
}

// DisableEdgeInterrupt implements owslave.Hardware.
func (h *HAL) DisableEdgeInterrupt() {
	h.edgeOn = false
}

// ArmTimer implements owslave.Hardware.
func (h *HAL) ArmTimer(ticks uint32) {
	h.ticks = ticks
}

// EnableTimerInterrupt implements owslave.Hardware.
func (h *HAL) EnableTimerInterrupt() {
	h.stopTimer()
	h.timerOn = true
	gen := h.gen
	h.timer = time.AfterFunc(time.Duration(h.ticks)*h.period, func() {
		h.fire(gen)
	})
}

// DisableTimerInterrupt implements owslave.Hardware.
func (h *HAL) DisableTimerInterrupt() {
	h.stopTimer()
}

// Ticks implements owslave.Hardware.
func (h *HAL) Ticks() uint32 {
	return uint32(time.Since(h.start) / h.period)
}

// DisableInterrupts implements owslave.Hardware.
func (h *HAL) DisableInterrupts() owslave.InterruptState {
	h.mu.Lock()
	return 0
}

// RestoreInterrupts implements owslave.Hardware.
func (h *HAL) RestoreInterrupts(owslave.InterruptState) {
	h.mu.Unlock()
}

// Wait implements owslave.Hardware.
func (h *HAL) Wait() {
	t := time.NewTimer(h.poll)
	defer t.Stop()
	select {
	case <-h.wake:
	case <-h.done:
	case <-t.C:
	}
}

// stopTimer invalidates the pending timer callback. h.mu must be held.
func (h *HAL) stopTimer() {
	h.timerOn = false
	h.gen++
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}

func (h *HAL) fire(gen uint64) {
	h.mu.Lock()
	if h.timerOn && h.gen == gen && h.isr != nil {
		h.isr.HandleTimer()
	}
	h.mu.Unlock()
	h.notify()
}

func (h *HAL) edges() {
	defer h.wg.Done()
	for {
		select {
		case <-h.done:
			return
		default:
		}
		if !h.p.WaitForEdge(h.poll) {
			continue
		}
		l := h.p.Read()
		h.mu.Lock()
		if h.isr != nil && h.edgeOn && !h.driving && (l == gpio.High) == h.rising {
			h.isr.HandleEdge()
		}
		h.mu.Unlock()
		h.notify()
	}
}

func (h *HAL) notify() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// check records the first pin error. h.mu must be held.
func (h *HAL) check(err error) {
	if err != nil && h.err == nil {
		h.err = fmt.Errorf("gpiohal: %s: %w", h.p, err)
	}
}

var _ owslave.Hardware = &HAL{}
var _ conn.Resource = &HAL{}
