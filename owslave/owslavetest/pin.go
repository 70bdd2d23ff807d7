// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owslavetest

import (
	"context"
	"time"

	"github.com/GermanBionicSystems/owslave/owslave"
	"periph.io/x/conn/v3/gpio"
)

// Calls counts the hardware calls made by an engine.
type Calls struct {
	DriveLow, Release                int
	ArmFalling, ArmRising            int
	EnableEdge, DisableEdge          int
	ArmTimer, EnableTimer, StopTimer int
	Edges, Timers                    int // interrupts delivered
}

// Pin is the attachment point of one slave on a Wire.
//
// Its methods other than Attach, DisableInterrupts and Wait expect the wire
// lock to be held, which is the case from within the interrupt handlers and
// critical sections.
type Pin struct {
	w      *Wire
	name   string
	period time.Duration
	isr    owslave.Interrupts

	driving  bool
	rising   bool
	edgeOn   bool
	timerOn  bool
	armed    bool
	deadline time.Duration
	calls    Calls

	running bool
	parked  bool
	woken   bool
	cancel  context.CancelFunc
	err     error
}

func (p *Pin) String() string {
	return p.name
}

// Calls returns the hardware calls made so far.
func (p *Pin) Calls() Calls {
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	return p.calls
}

// Err returns the error returned by the main loop once it stopped.
func (p *Pin) Err() error {
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	return p.err
}

// Driving reports whether the slave pulls the line low.
func (p *Pin) Driving() bool {
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	return p.driving
}

// Attach implements owslave.Hardware.
func (p *Pin) Attach(isr owslave.Interrupts) {
	p.w.mu.Lock()
	defer p.w.mu.Unlock()
	p.isr = isr
}

// DriveLow implements owslave.Hardware.
func (p *Pin) DriveLow() {
	p.calls.DriveLow++
	p.driving = true
	p.w.update()
}

// Release implements owslave.Hardware.
func (p *Pin) Release() {
	p.calls.Release++
	p.driving = false
	p.w.update()
}

// Level implements owslave.Hardware.
func (p *Pin) Level() gpio.Level {
	return p.w.level
}

// ArmFallingEdge implements owslave.Hardware.
func (p *Pin) ArmFallingEdge() {
	p.calls.ArmFalling++
	p.rising = false
}

// ArmRisingEdge implements owslave.Hardware.
func (p *Pin) ArmRisingEdge() {
	p.calls.ArmRising++
	p.rising = true
}

// EnableEdgeInterrupt implements owslave.Hardware.
func (p *Pin) EnableEdgeInterrupt() {
	p.calls.EnableEdge++
	p.edgeOn = true
}

// DisableEdgeInterrupt implements owslave.Hardware.
func (p *Pin) DisableEdgeInterrupt() {
	p.calls.DisableEdge++
	p.edgeOn = false
}

// ArmTimer implements owslave.Hardware.
func (p *Pin) ArmTimer(ticks uint32) {
	p.calls.ArmTimer++
	p.armed = true
	p.deadline = p.w.now + time.Duration(ticks)*p.period
}

// EnableTimerInterrupt implements owslave.Hardware.
func (p *Pin) EnableTimerInterrupt() {
	p.calls.EnableTimer++
	p.timerOn = true
}

// DisableTimerInterrupt implements owslave.Hardware.
func (p *Pin) DisableTimerInterrupt() {
	p.calls.StopTimer++
	p.timerOn = false
}

// Ticks implements owslave.Hardware.
func (p *Pin) Ticks() uint32 {
	return uint32(p.w.now / p.period)
}

// DisableInterrupts implements owslave.Hardware.
func (p *Pin) DisableInterrupts() owslave.InterruptState {
	p.w.mu.Lock()
	return 1
}

// RestoreInterrupts implements owslave.Hardware.
func (p *Pin) RestoreInterrupts(owslave.InterruptState) {
	p.w.mu.Unlock()
}

// Wait implements owslave.Hardware.
//
// It parks the main loop until the next interrupt is delivered.
func (p *Pin) Wait() {
	w := p.w
	w.mu.Lock()
	defer w.mu.Unlock()
	p.parked = true
	w.cond.Broadcast()
	for !p.woken && !w.closed {
		w.cond.Wait()
	}
	p.woken = false
	p.parked = false
}
