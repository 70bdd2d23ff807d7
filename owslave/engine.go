// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owslave

import (
	"context"
	"encoding/binary"
	"errors"
	"sync/atomic"

	"periph.io/x/conn/v3/onewire"
)

// ROM commands.
const (
	CmdSearchROM   = 0xf0
	CmdAlarmSearch = 0xec
	CmdMatchROM    = 0x55
	CmdSkipROM     = 0xcc
	CmdReadROM     = 0x33
)

// CommandHandler implements the device personality.
//
// Command is called from the main loop once the command byte following the
// ROM phase is received. It exchanges data with the transfer methods of e.
// Returning nil completes the transaction; an *AbortError from e must be
// returned as is.
type CommandHandler interface {
	Command(e *Engine, cmd byte) error
}

// CommandFunc adapts a function to CommandHandler.
type CommandFunc func(e *Engine, cmd byte) error

// Command implements CommandHandler.
func (f CommandFunc) Command(e *Engine, cmd byte) error {
	return f(e, cmd)
}

// Opts contains options to pass to the constructor.
type Opts struct {
	// Identity is the 64 bit ROM code, family code in the low byte and CRC-8
	// in the high byte. 0 means no identity: the device never gets selected.
	Identity onewire.Address
	Timing   Timing
	// SingleDevice enables Skip ROM and Read ROM.
	SingleDevice bool
	// AlertPending gates the conditional search. It is called at interrupt
	// level. nil never takes part.
	AlertPending func() bool
	Handler      CommandHandler
	Logger       Logger
	// TraceDepth is the number of debug events buffered between two
	// suspend points.
	TraceDepth int
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Timing:     DefaultTiming,
	TraceDepth: 32,
}

// Stats are counters since the engine was created.
type Stats struct {
	Resets    uint64 // reset pulses seen
	Presences uint64 // presence pulses sent
	Selected  uint64 // ROM phases that selected this device
	Commands  uint64 // command bytes handed to the handler
	Completed uint64 // transactions the handler completed
	Aborts    [numAbortReasons]uint64
}

type counters struct {
	resets, presences, selected, commands, completed atomic.Uint64
	aborts                                           [numAbortReasons]atomic.Uint64
}

// Engine is the protocol engine of one slave device.
type Engine struct {
	hw      Hardware
	t       ticks
	id      [8]byte
	hasID   bool
	single  bool
	alert   func() bool
	handler CommandHandler
	log     Logger
	ctx     context.Context

	// Shared with the interrupt handlers; only accessed with interrupts
	// disabled.
	state    BusState
	resume   BusState // state a short low pulse returns to
	mode     TransactionMode
	intent   WriteIntent
	rom      romOp
	op       transferOp
	slot     bool // timer runs the second half of a time slot
	stray    bool // low pulse started with nothing armed
	rising   bool
	edgeOn   bool
	timerOn  bool
	mask     byte
	shift    byte
	cursor   SearchCursor
	lowStart uint32
	cmd      byte
	cmdReady bool
	txn      uint32
	reason   AbortReason
	trace    ring

	// Main loop only.
	cur    uint32
	events []Event
	stats  counters
}

// New returns an engine bound to hw, idle and waiting for a reset pulse.
func New(hw Hardware, opts *Opts) (*Engine, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	k, err := opts.Timing.ticks()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		hw:      hw,
		t:       k,
		single:  opts.SingleDevice,
		alert:   opts.AlertPending,
		handler: opts.Handler,
		log:     opts.Logger,
		ctx:     context.Background(),
	}
	if opts.Identity != 0 {
		binary.LittleEndian.PutUint64(e.id[:], uint64(opts.Identity))
		if !onewire.CheckCRC(e.id[:]) {
			return nil, ErrBadIdentity
		}
		e.hasID = true
	} else {
		e.logf("owslave: no identity configured, device will never be selected")
	}
	if e.handler == nil {
		e.handler = CommandFunc(func(e *Engine, cmd byte) error {
			return e.Abort(ReasonProtocol)
		})
	}
	depth := opts.TraceDepth
	if depth < 0 {
		return nil, errors.New("owslave: negative TraceDepth")
	}
	e.trace.buf = make([]Event, depth)
	e.events = make([]Event, 0, depth)

	hw.Attach(e)
	s := hw.DisableInterrupts()
	e.enterIdle()
	hw.RestoreInterrupts(s)
	return e, nil
}

// Identity returns the ROM code of the device.
func (e *Engine) Identity() onewire.Address {
	return onewire.Address(binary.LittleEndian.Uint64(e.id[:]))
}

// State returns the current bus state and transaction mode.
func (e *Engine) State() (BusState, TransactionMode) {
	s := e.hw.DisableInterrupts()
	defer e.hw.RestoreInterrupts(s)
	return e.state, e.mode
}

// Stats returns a snapshot of the counters.
func (e *Engine) Stats() Stats {
	st := Stats{
		Resets:    e.stats.resets.Load(),
		Presences: e.stats.presences.Load(),
		Selected:  e.stats.selected.Load(),
		Commands:  e.stats.commands.Load(),
		Completed: e.stats.completed.Load(),
	}
	for i := range st.Aborts {
		st.Aborts[i] = e.stats.aborts[i].Load()
	}
	return st
}

// Idle is the abort-to-idle primitive: it stops the timer, releases the bus
// and waits for the next reset pulse.
//
// It can be called in any state and any number of times; on an engine that
// is already idle it does not touch the hardware.
func (e *Engine) Idle() {
	s := e.hw.DisableInterrupts()
	e.enterIdle()
	e.hw.RestoreInterrupts(s)
}

// Abort ends the current transaction and returns the *AbortError the caller
// must return to unwind to the main loop.
//
// When the interrupt handlers already replaced the transaction (the master
// sent a new reset), the engine is left alone.
func (e *Engine) Abort(r AbortReason) error {
	s := e.hw.DisableInterrupts()
	if e.txn == e.cur && e.mode != TxIdle {
		e.cancel(r)
	}
	e.hw.RestoreInterrupts(s)
	return &AbortError{Reason: r}
}

// cancel drops the transaction from either context.
func (e *Engine) cancel(r AbortReason) {
	if r != ReasonDone {
		e.stats.aborts[r].Add(1)
	}
	e.reason = r
	e.record(EventAbort, byte(r))
	e.enterIdle()
}

// enterIdle is the idle-entry routine. Interrupts must be disabled.
func (e *Engine) enterIdle() {
	if e.state == Sleeping && e.mode == TxIdle && e.edgeOn && !e.rising && !e.timerOn && !e.slot {
		return
	}
	e.stopTimer()
	e.hw.Release()
	e.state = Sleeping
	e.resume = Sleeping
	e.mode = TxIdle
	e.rom = romNone
	e.op = opNone
	e.intent = NoWrite
	e.slot = false
	e.stray = false
	e.mask = 0
	e.shift = 0
	e.cursor = SearchCursor{}
	e.cmdReady = false
	e.armFalling()
}

func (e *Engine) armFalling() {
	e.hw.ArmFallingEdge()
	e.rising = false
	e.hw.EnableEdgeInterrupt()
	e.edgeOn = true
}

func (e *Engine) armRising() {
	e.hw.ArmRisingEdge()
	e.rising = true
	e.hw.EnableEdgeInterrupt()
	e.edgeOn = true
}

func (e *Engine) disableEdge() {
	e.hw.DisableEdgeInterrupt()
	e.edgeOn = false
}

func (e *Engine) startTimer(n uint32) {
	e.hw.ArmTimer(n)
	e.hw.EnableTimerInterrupt()
	e.timerOn = true
}

func (e *Engine) stopTimer() {
	e.hw.DisableTimerInterrupt()
	e.timerOn = false
}

// record appends to the trace. Interrupts must be disabled.
func (e *Engine) record(k EventKind, data byte) {
	e.trace.push(Event{Tick: e.hw.Ticks(), Kind: k, State: e.state, Data: data})
}

// flush hands the buffered trace to the logger.
func (e *Engine) flush() {
	if e.log == nil {
		s := e.hw.DisableInterrupts()
		e.trace.drain(nil)
		e.hw.RestoreInterrupts(s)
		return
	}
	s := e.hw.DisableInterrupts()
	evs, dropped := e.trace.drain(e.events[:0])
	e.hw.RestoreInterrupts(s)
	for _, ev := range evs {
		e.log.Printf("owslave: %s", ev)
	}
	if dropped != 0 {
		e.log.Printf("owslave: %d trace events dropped", dropped)
	}
	e.events = evs[:0]
}

func (e *Engine) logf(format string, v ...any) {
	if e.log != nil {
		e.log.Printf(format, v...)
	}
}

var _ Interrupts = &Engine{}
