// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owslave

import "periph.io/x/conn/v3/gpio"

// InterruptState is returned by DisableInterrupts and handed back to
// RestoreInterrupts.
type InterruptState uintptr

// Interrupts are the two interrupt entry points of the engine.
//
// A Hardware implementation calls them with interrupts disabled, never
// concurrently with each other nor with a critical section of the main loop.
type Interrupts interface {
	HandleEdge()
	HandleTimer()
}

// Hardware is the pin, edge detector and countdown timer the engine runs on.
//
// Except for Attach and Wait, methods are only called with interrupts
// disabled: from within an Interrupts method or between DisableInterrupts
// and RestoreInterrupts.
type Hardware interface {
	// Attach registers the interrupt entry points.
	Attach(isr Interrupts)

	// DriveLow pulls the bus low.
	DriveLow()
	// Release stops driving the bus, leaving it to the pull-up.
	Release()
	// Level returns the current bus level.
	Level() gpio.Level

	// ArmFallingEdge selects falling edges for the edge interrupt.
	ArmFallingEdge()
	// ArmRisingEdge selects rising edges for the edge interrupt.
	ArmRisingEdge()
	EnableEdgeInterrupt()
	DisableEdgeInterrupt()

	// ArmTimer sets the countdown for the next timer interrupt.
	ArmTimer(ticks uint32)
	EnableTimerInterrupt()
	DisableTimerInterrupt()
	// Ticks returns a free running tick counter at the timer rate.
	Ticks() uint32

	// DisableInterrupts starts a critical section.
	DisableInterrupts() InterruptState
	// RestoreInterrupts ends a critical section.
	RestoreInterrupts(InterruptState)

	// Wait parks the main loop until an interrupt may have changed the
	// engine state. It may return early.
	Wait()
}
