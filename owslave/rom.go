// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owslave

import "math/bits"

// The ROM phase runs entirely at interrupt level: the master does not leave
// time between the selector and the identity bits for the main loop to react.

// romByte handles a byte received while AwaitingSelector.
func (e *Engine) romByte(b byte) {
	switch e.rom {
	case romSelect:
		e.record(EventSelector, b)
		e.selectROM(b)
	case romMatch:
		if b != e.id[e.cursor.Index] {
			e.notSelected()
			return
		}
		if e.cursor.Index++; e.cursor.Index == len(e.id) {
			e.selected()
			return
		}
		e.startRead(1)
	case romRead:
		if e.cursor.Index++; e.cursor.Index == len(e.id) {
			e.selected()
			return
		}
		e.startWrite(e.id[e.cursor.Index], 1)
	default:
		e.cancel(ReasonProtocol)
	}
}

func (e *Engine) selectROM(b byte) {
	switch b {
	case CmdSearchROM:
		e.startSearch()
	case CmdAlarmSearch:
		if e.alert == nil || !e.alert() {
			e.notSelected()
			return
		}
		e.startSearch()
	case CmdMatchROM:
		if !e.hasID {
			e.notSelected()
			return
		}
		e.rom = romMatch
		e.cursor = SearchCursor{}
		e.startRead(1)
	case CmdSkipROM:
		if !e.single {
			e.notSelected()
			return
		}
		e.selected()
	case CmdReadROM:
		if !e.single || !e.hasID {
			e.notSelected()
			return
		}
		e.rom = romRead
		e.cursor = SearchCursor{}
		e.startWrite(e.id[0], 1)
	default:
		e.notSelected()
	}
}

func (e *Engine) startSearch() {
	if !e.hasID {
		e.notSelected()
		return
	}
	e.rom = romSearch
	e.cursor = SearchCursor{Mask: 1}
	e.state = SearchZero
	e.intent = intentFor(e.searchBit())
}

// searchBit is the identity bit at the cursor.
func (e *Engine) searchBit() bool {
	return e.id[e.cursor.Index]&e.cursor.Mask != 0
}

// searchChoice compares the bit chosen by the master with ours.
func (e *Engine) searchChoice(v bool) {
	if v != e.searchBit() {
		e.record(EventSearchLost, byte(8*e.cursor.Index+bits.TrailingZeros8(e.cursor.Mask)))
		e.notSelected()
		return
	}
	if e.cursor.Mask <<= 1; e.cursor.Mask == 0 {
		e.cursor.Index++
		e.cursor.Mask = 1
		if e.cursor.Index == len(e.id) {
			e.selected()
			return
		}
	}
	e.state = SearchZero
	e.intent = intentFor(e.searchBit())
}

// notSelected drops out of the transaction: the master addresses another
// device.
func (e *Engine) notSelected() {
	e.cancel(ReasonNotSelected)
}

func (e *Engine) selected() {
	e.stats.selected.Add(1)
	e.record(EventSelected, 0)
	e.rom = romNone
	e.cursor = SearchCursor{}
	e.mode = AwaitingCommand
	e.startRead(1)
}
