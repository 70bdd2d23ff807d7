// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owslave

import "fmt"

// Logger receives the debug trace. *log.Logger implements it.
type Logger interface {
	Printf(format string, v ...any)
}

// EventKind identifies a trace event.
type EventKind uint8

const (
	EventReset EventKind = iota
	EventPresence
	EventSelector
	EventSelected
	EventSearchLost
	EventCommand
	EventAbort
)

func (k EventKind) String() string {
	switch k {
	case EventReset:
		return "reset"
	case EventPresence:
		return "presence"
	case EventSelector:
		return "selector"
	case EventSelected:
		return "selected"
	case EventSearchLost:
		return "search-lost"
	case EventCommand:
		return "command"
	case EventAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Event is one entry of the debug trace, recorded at interrupt level.
type Event struct {
	Tick  uint32
	Kind  EventKind
	State BusState
	Data  byte
}

func (e Event) String() string {
	switch e.Kind {
	case EventSelector, EventCommand:
		return fmt.Sprintf("%10d %-11s %-10s %#02x", e.Tick, e.Kind, e.State, e.Data)
	case EventSearchLost:
		return fmt.Sprintf("%10d %-11s %-10s bit %d", e.Tick, e.Kind, e.State, e.Data)
	case EventAbort:
		return fmt.Sprintf("%10d %-11s %-10s %s", e.Tick, e.Kind, e.State, AbortReason(e.Data))
	default:
		return fmt.Sprintf("%10d %-11s %s", e.Tick, e.Kind, e.State)
	}
}

// ring is a fixed size event buffer; pushing never allocates.
type ring struct {
	buf     []Event
	head, n int
	dropped uint32
}

func (r *ring) push(ev Event) {
	if len(r.buf) == 0 {
		return
	}
	if r.n == len(r.buf) {
		r.dropped++
		return
	}
	r.buf[(r.head+r.n)%len(r.buf)] = ev
	r.n++
}

// drain appends the buffered events to dst and empties the ring.
func (r *ring) drain(dst []Event) ([]Event, uint32) {
	for ; r.n > 0; r.n-- {
		dst = append(dst, r.buf[r.head])
		r.head = (r.head + 1) % len(r.buf)
	}
	d := r.dropped
	r.dropped = 0
	return dst, d
}
