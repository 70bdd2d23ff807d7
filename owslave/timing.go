// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owslave

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Timing contains the bus timing of the slave, standard speed.
//
// The values are converted once to timer ticks of the hardware, see Validate.
type Timing struct {
	Rate          physic.Frequency // timer tick rate
	MaxTicks      uint32           // longest countdown the timer supports
	ResetMin      time.Duration    // shortest low pulse taken as reset, range 300μs..480μs
	PresenceDelay time.Duration    // end of reset to presence pulse, range 15μs..60μs
	PresenceWidth time.Duration    // presence pulse, range 60μs..240μs
	Sample        time.Duration    // falling edge to sampling a master bit, range 15μs..60μs
	Hold          time.Duration    // falling edge to releasing a zero bit, range 15μs..60μs
}

// DefaultTiming is a 1MHz timer with values centered in the protocol windows.
var DefaultTiming = Timing{
	Rate:          physic.MegaHertz,
	MaxTicks:      0xffff,
	ResetMin:      400 * time.Microsecond,
	PresenceDelay: 30 * time.Microsecond,
	PresenceWidth: 120 * time.Microsecond,
	Sample:        30 * time.Microsecond,
	Hold:          30 * time.Microsecond,
}

// ticks are the timing values in timer ticks.
type ticks struct {
	reset         uint32
	presenceDelay uint32
	presenceWidth uint32
	sample        uint32
	hold          uint32
}

// Period returns the duration of one timer tick.
func (t *Timing) Period() time.Duration {
	if t.Rate <= 0 {
		return 0
	}
	return t.Rate.Period()
}

// Validate checks every value against its protocol window and against the
// timer resolution.
func (t *Timing) Validate() error {
	_, err := t.ticks()
	return err
}

func (t *Timing) ticks() (ticks, error) {
	p := t.Period()
	if p <= 0 {
		return ticks{}, errors.New("owslave: invalid timer rate")
	}
	if t.Sample >= t.ResetMin || t.Hold >= t.ResetMin {
		return ticks{}, errors.New("owslave: time slot longer than reset")
	}
	conv := func(name string, d, min, max time.Duration) (uint32, error) {
		if d < min || d > max {
			return 0, fmt.Errorf("owslave: %s %s out of range [%s, %s]", name, d, min, max)
		}
		// Round up so a window never closes early.
		n := (d + p - 1) / p
		if n*p > max {
			return 0, fmt.Errorf("owslave: %s %s rounds to %s with ticks of %s", name, d, n*p, p)
		}
		if n < 1 || (t.MaxTicks != 0 && n > time.Duration(t.MaxTicks)) {
			return 0, fmt.Errorf("owslave: %s %s is %d ticks of %s, timer supports 1..%d", name, d, n, p, t.MaxTicks)
		}
		return uint32(n), nil
	}
	var k ticks
	var err error
	if k.reset, err = conv("ResetMin", t.ResetMin, 300*time.Microsecond, 480*time.Microsecond); err != nil {
		return ticks{}, err
	}
	if k.presenceDelay, err = conv("PresenceDelay", t.PresenceDelay, 15*time.Microsecond, 60*time.Microsecond); err != nil {
		return ticks{}, err
	}
	if k.presenceWidth, err = conv("PresenceWidth", t.PresenceWidth, 60*time.Microsecond, 240*time.Microsecond); err != nil {
		return ticks{}, err
	}
	if k.sample, err = conv("Sample", t.Sample, 15*time.Microsecond, 60*time.Microsecond); err != nil {
		return ticks{}, err
	}
	if k.hold, err = conv("Hold", t.Hold, 15*time.Microsecond, 60*time.Microsecond); err != nil {
		return ticks{}, err
	}
	return k, nil
}
