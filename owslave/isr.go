// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owslave

import "periph.io/x/conn/v3/gpio"

// HandleEdge implements Interrupts.
func (e *Engine) HandleEdge() {
	if e.rising {
		e.risingEdge()
		return
	}
	e.fallingEdge()
}

// HandleTimer implements Interrupts.
func (e *Engine) HandleTimer() {
	if !e.timerOn {
		return
	}
	e.stopTimer()
	if e.slot {
		e.finishSlot()
		return
	}
	switch e.state {
	case InReset:
		if e.hw.Level() == gpio.Low {
			e.resetSeen()
			e.armRising()
			return
		}
		// The rising edge was missed; the measured width decides.
		e.released(e.hw.Ticks() - e.lowStart)
	case AfterReset:
		e.disableEdge()
		e.hw.DriveLow()
		e.state = Presence
		e.record(EventPresence, 0)
		e.startTimer(e.t.presenceWidth)
	case Presence:
		e.hw.Release()
		e.stats.presences.Add(1)
		e.beginTransaction()
	}
}

func (e *Engine) fallingEdge() {
	e.lowStart = e.hw.Ticks()
	switch e.state {
	case Reading, SearchRead:
		e.beginSlot(e.t.sample)
	case Writing, SearchZero, SearchOne:
		if e.intent == WriteZero {
			e.hw.DriveLow()
		}
		e.beginSlot(e.t.hold)
	case Idle:
		// Nothing armed for this time slot.
		e.stray = true
		e.startResetWindow(Idle)
	default:
		e.startResetWindow(Sleeping)
	}
}

func (e *Engine) risingEdge() {
	switch e.state {
	case InReset:
		e.released(e.hw.Ticks() - e.lowStart)
	case AfterReset:
		e.startPresenceDelay()
	}
}

// beginSlot hands the time slot to the timer.
func (e *Engine) beginSlot(n uint32) {
	e.slot = true
	e.disableEdge()
	e.startTimer(n)
}

// startResetWindow measures a low pulse that is not part of an armed time
// slot.
func (e *Engine) startResetWindow(resume BusState) {
	e.state = InReset
	e.resume = resume
	e.armRising()
	e.startTimer(e.t.reset)
}

func (e *Engine) finishSlot() {
	e.slot = false
	switch e.state {
	case Reading:
		if e.hw.Level() == gpio.High {
			e.shift |= e.mask
		}
		e.advance()
	case Writing:
		e.hw.Release()
		e.advance()
	case SearchZero:
		e.hw.Release()
		e.state = SearchOne
		e.intent = intentFor(!e.searchBit())
	case SearchOne:
		e.hw.Release()
		e.state = SearchRead
		e.intent = NoWrite
	case SearchRead:
		e.searchChoice(e.hw.Level() == gpio.High)
	}
	e.awaitRelease(e.state)
}

// awaitRelease waits for the end of the time slot before going to resume. A
// master holding the bus low long enough is a reset.
func (e *Engine) awaitRelease(resume BusState) {
	e.state = InReset
	e.resume = resume
	elapsed := e.hw.Ticks() - e.lowStart
	if e.hw.Level() == gpio.High {
		e.released(elapsed)
		return
	}
	if elapsed >= e.t.reset {
		e.resetSeen()
		e.armRising()
		return
	}
	e.armRising()
	e.startTimer(e.t.reset - elapsed)
}

// released ends a low pulse of the given width.
//
// The width alone tells a reset from a time slot, whichever interrupt
// observed the end of the pulse.
func (e *Engine) released(width uint32) {
	e.stopTimer()
	stray := e.stray
	e.stray = false
	if width >= e.t.reset {
		e.resetSeen()
		e.startPresenceDelay()
		return
	}
	if stray {
		e.cancel(ReasonOverrun)
		return
	}
	e.state = e.resume
	e.armFalling()
}

func (e *Engine) resetSeen() {
	e.stray = false
	if e.mode != TxIdle {
		e.cancel(ReasonReset)
	}
	e.stats.resets.Add(1)
	e.state = AfterReset
	e.record(EventReset, 0)
}

func (e *Engine) startPresenceDelay() {
	e.disableEdge()
	e.state = AfterReset
	e.startTimer(e.t.presenceDelay)
}

func (e *Engine) beginTransaction() {
	e.txn++
	e.reason = ReasonDone
	e.mode = AwaitingSelector
	e.rom = romSelect
	e.startRead(1)
	e.armFalling()
}

func (e *Engine) startRead(mask byte) {
	e.state = Reading
	e.shift = 0
	e.mask = mask
	e.intent = NoWrite
}

func (e *Engine) startWrite(b, mask byte) {
	e.state = Writing
	e.shift = b
	e.mask = mask
	e.intent = intentFor(b&mask != 0)
}

// advance moves to the next bit, least significant first.
func (e *Engine) advance() {
	e.mask <<= 1
	if e.mask != 0 {
		if e.state == Writing {
			e.intent = intentFor(e.shift&e.mask != 0)
		}
		return
	}
	e.byteDone()
}

func (e *Engine) byteDone() {
	switch e.mode {
	case AwaitingSelector:
		e.romByte(e.shift)
	case AwaitingCommand:
		e.cmd = e.shift
		e.cmdReady = true
		e.mode = Running
		e.state = Idle
		e.intent = NoWrite
		e.record(EventCommand, e.cmd)
	case Running:
		e.state = Idle
		e.intent = NoWrite
	default:
		e.cancel(ReasonProtocol)
	}
}
