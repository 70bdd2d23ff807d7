// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owslave

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/physic"
)

func TestRing(t *testing.T) {
	r := ring{buf: make([]Event, 3)}
	for i := 0; i < 5; i++ {
		r.push(Event{Tick: uint32(i)})
	}
	got, dropped := r.drain(nil)
	want := []Event{{Tick: 0}, {Tick: 1}, {Tick: 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}
	if dropped != 2 {
		t.Fatal(dropped)
	}
	// Wraps around.
	r.push(Event{Tick: 5})
	r.push(Event{Tick: 6})
	got, dropped = r.drain(got[:0])
	if diff := cmp.Diff([]Event{{Tick: 5}, {Tick: 6}}, got); diff != "" || dropped != 0 {
		t.Fatalf("(-want +got)\n%s", diff)
	}

	var empty ring
	empty.push(Event{})
	if got, dropped := empty.drain(nil); len(got) != 0 || dropped != 0 {
		t.Fatal(got, dropped)
	}
}

func TestEventString(t *testing.T) {
	data := []struct {
		ev   Event
		want string
	}{
		{Event{Tick: 1, Kind: EventReset, State: InReset}, "         1 reset       InReset"},
		{Event{Tick: 2, Kind: EventSelector, State: Reading, Data: 0x55}, "         2 selector    Reading    0x55"},
		{Event{Tick: 3, Kind: EventSearchLost, State: SearchRead, Data: 12}, "         3 search-lost SearchRead bit 12"},
		{Event{Tick: 4, Kind: EventAbort, State: Idle, Data: byte(ReasonCRC)}, "         4 abort       Idle       crc"},
	}
	for _, line := range data {
		if got := line.ev.String(); got != line.want {
			t.Errorf("%q != %q", got, line.want)
		}
	}
}

func TestStrings(t *testing.T) {
	for s := Sleeping; s <= Writing; s++ {
		if s.String() == "unknown" {
			t.Fatal(s)
		}
	}
	if BusState(100).String() != "unknown" || TransactionMode(9).String() != "unknown" {
		t.Fatal("expected unknown")
	}
	for r := ReasonDone; r < numAbortReasons; r++ {
		if r.String() == "unknown" {
			t.Fatal(r)
		}
	}
	if WriteZero.String() != "WriteZero" || NoWrite.String() != "NoWrite" {
		t.Fatal("WriteIntent")
	}
}

func TestAbortError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &AbortError{Reason: ReasonCRC})
	if !errors.Is(err, ErrAborted) {
		t.Fatal("not ErrAborted")
	}
	if r, ok := IsAbort(err); !ok || r != ReasonCRC {
		t.Fatal(r, ok)
	}
	if _, ok := IsAbort(errors.New("other")); ok {
		t.Fatal("not an abort")
	}
	if s := (&AbortError{Reason: ReasonReset}).Error(); s != "owslave: transaction aborted: reset" {
		t.Fatal(s)
	}
}

func TestTiming(t *testing.T) {
	if err := DefaultTiming.Validate(); err != nil {
		t.Fatal(err)
	}
	if p := DefaultTiming.Period(); p != time.Microsecond {
		t.Fatal(p)
	}
	for _, r := range []physic.Frequency{0, -physic.MegaHertz} {
		z := DefaultTiming
		z.Rate = r
		if p := z.Period(); p != 0 {
			t.Fatal(r, p)
		}
	}
	k, err := DefaultTiming.ticks()
	if err != nil {
		t.Fatal(err)
	}
	want := ticks{reset: 400, presenceDelay: 30, presenceWidth: 120, sample: 30, hold: 30}
	if k != want {
		t.Fatalf("%+v", k)
	}

	// Rounded up at 4MHz.
	fast := DefaultTiming
	fast.Rate = 4 * physic.MegaHertz
	fast.Sample = 20100 * time.Nanosecond
	if k, err = fast.ticks(); err != nil || k.sample != 81 || k.reset != 1600 {
		t.Fatal(k, err)
	}

	mod := func(f func(t *Timing)) Timing {
		t := DefaultTiming
		f(&t)
		return t
	}
	bad := []Timing{
		{},
		mod(func(t *Timing) { t.ResetMin = 200 * time.Microsecond }),
		mod(func(t *Timing) { t.ResetMin = 600 * time.Microsecond }),
		mod(func(t *Timing) { t.PresenceDelay = 5 * time.Microsecond }),
		mod(func(t *Timing) { t.PresenceWidth = 300 * time.Microsecond }),
		mod(func(t *Timing) { t.Sample = 70 * time.Microsecond }),
		mod(func(t *Timing) { t.Hold = 10 * time.Microsecond }),
		// 6400 ticks do not fit an 8 bit timer.
		mod(func(t *Timing) { t.Rate = 16 * physic.MegaHertz; t.MaxTicks = 0xff }),
		// Coarser than the windows.
		mod(func(t *Timing) { t.Rate = physic.KiloHertz }),
	}
	for i, b := range bad {
		if err := b.Validate(); err == nil {
			t.Errorf("#%d: expected error for %+v", i, b)
		}
	}
}
