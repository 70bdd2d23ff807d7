// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owslave

// BusState is the bus level state of the engine. It only changes in the
// interrupt handlers or when entering idle.
type BusState uint8

const (
	// Sleeping waits for a falling edge; the only state driven by the edge
	// interrupt alone.
	Sleeping BusState = iota
	// InReset measures a low pulse: either a time slot or a reset.
	InReset
	// AfterReset waits for the end of the reset pulse and then for the
	// presence delay.
	AfterReset
	// Presence drives the presence pulse.
	Presence
	// SearchZero sends the identity bit during a ROM search.
	SearchZero
	// SearchOne sends the complement of the identity bit.
	SearchOne
	// SearchRead reads the bit chosen by the master.
	SearchRead
	// Idle is inside a transaction with no bit operation armed.
	Idle
	// Reading assembles bits written by the master.
	Reading
	// Writing sends bits in read time slots.
	Writing
)

func (s BusState) String() string {
	switch s {
	case Sleeping:
		return "Sleeping"
	case InReset:
		return "InReset"
	case AfterReset:
		return "AfterReset"
	case Presence:
		return "Presence"
	case SearchZero:
		return "SearchZero"
	case SearchOne:
		return "SearchOne"
	case SearchRead:
		return "SearchRead"
	case Idle:
		return "Idle"
	case Reading:
		return "Reading"
	case Writing:
		return "Writing"
	default:
		return "unknown"
	}
}

// TransactionMode tells what the next fully received byte means.
type TransactionMode uint8

const (
	// TxIdle means no transaction.
	TxIdle TransactionMode = iota
	// AwaitingSelector is the ROM phase: selector byte and ROM data.
	AwaitingSelector
	// AwaitingCommand reads the command byte of a selected device.
	AwaitingCommand
	// Running hands the bus to the command handler.
	Running
)

func (m TransactionMode) String() string {
	switch m {
	case TxIdle:
		return "Idle"
	case AwaitingSelector:
		return "AwaitingSelector"
	case AwaitingCommand:
		return "AwaitingCommand"
	case Running:
		return "Running"
	default:
		return "unknown"
	}
}

// WriteIntent is the level to produce at the next falling edge.
type WriteIntent uint8

const (
	NoWrite WriteIntent = iota
	WriteZero
	WriteOne
)

func (w WriteIntent) String() string {
	switch w {
	case WriteZero:
		return "WriteZero"
	case WriteOne:
		return "WriteOne"
	default:
		return "NoWrite"
	}
}

func intentFor(bit bool) WriteIntent {
	if bit {
		return WriteOne
	}
	return WriteZero
}

// SearchCursor is the position within the identity during a ROM search or
// match.
type SearchCursor struct {
	Index int  // byte 0..7
	Mask  byte // bit within the byte, 0 when unused
}

// romOp is the ROM command in progress while AwaitingSelector.
type romOp uint8

const (
	romNone romOp = iota
	romSelect
	romMatch
	romRead
	romSearch
)

// transferOp is the operation armed by the main loop.
type transferOp uint8

const (
	opNone transferOp = iota
	opRead
	opReadBit
	opWrite
)
