// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owslavetest

import (
	"encoding/binary"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/onewire"
)

// MasterTiming is the timing of the simulated master.
type MasterTiming struct {
	ResetLow       time.Duration // reset pulse
	PresenceSample time.Duration // end of reset to sampling presence
	ResetHigh      time.Duration // end of reset to first time slot
	Slot           time.Duration // time slot including recovery
	WriteOneLow    time.Duration
	WriteZeroLow   time.Duration
	ReadLow        time.Duration
	ReadSample     time.Duration // start of read slot to sampling
}

// StandardTiming is the recommended standard speed timing.
var StandardTiming = MasterTiming{
	ResetLow:       480 * time.Microsecond,
	PresenceSample: 70 * time.Microsecond,
	ResetHigh:      410 * time.Microsecond,
	Slot:           70 * time.Microsecond,
	WriteOneLow:    6 * time.Microsecond,
	WriteZeroLow:   60 * time.Microsecond,
	ReadLow:        6 * time.Microsecond,
	ReadSample:     15 * time.Microsecond,
}

// Master is a bus master bit banging a Wire.
type Master struct {
	W      *Wire
	Timing MasterTiming
}

// NewMaster returns a master with StandardTiming.
func NewMaster(w *Wire) *Master {
	return &Master{W: w, Timing: StandardTiming}
}

func (m *Master) String() string {
	return "owslavetest.Master"
}

// Halt implements conn.Resource.
func (m *Master) Halt() error {
	m.W.drive(false)
	return nil
}

// Reset sends a reset pulse and reports whether a slave answered with a
// presence pulse.
func (m *Master) Reset() bool {
	m.W.drive(true)
	m.W.Sleep(m.Timing.ResetLow)
	m.W.drive(false)
	m.W.Sleep(m.Timing.PresenceSample)
	present := m.W.Level() == gpio.Low
	m.W.Sleep(m.Timing.ResetHigh - m.Timing.PresenceSample)
	return present
}

// Drive pulls the line low or releases it, for timings the other methods do
// not cover.
func (m *Master) Drive(low bool) {
	m.W.drive(low)
}

// PulseLow holds the line low for d, then releases it.
func (m *Master) PulseLow(d time.Duration) {
	m.W.drive(true)
	m.W.Sleep(d)
	m.W.drive(false)
}

// WriteBit sends one bit in a write time slot.
func (m *Master) WriteBit(v bool) {
	low := m.Timing.WriteZeroLow
	if v {
		low = m.Timing.WriteOneLow
	}
	m.PulseLow(low)
	m.W.Sleep(m.Timing.Slot - low)
}

// ReadBit runs a read time slot.
func (m *Master) ReadBit() bool {
	m.PulseLow(m.Timing.ReadLow)
	m.W.Sleep(m.Timing.ReadSample - m.Timing.ReadLow)
	v := m.W.Level() == gpio.High
	m.W.Sleep(m.Timing.Slot - m.Timing.ReadSample)
	return v
}

// WriteByte sends b, least significant bit first.
func (m *Master) WriteByte(b byte) {
	for i := 0; i < 8; i++ {
		m.WriteBit(b&(1<<uint(i)) != 0)
	}
}

// ReadByte reads a byte, least significant bit first.
func (m *Master) ReadByte() byte {
	var b byte
	for i := 0; i < 8; i++ {
		if m.ReadBit() {
			b |= 1 << uint(i)
		}
	}
	return b
}

// Write sends the bytes of w.
func (m *Master) Write(w []byte) {
	for _, b := range w {
		m.WriteByte(b)
	}
}

// Read fills r.
func (m *Master) Read(r []byte) {
	for i := range r {
		r[i] = m.ReadByte()
	}
}

// Tx implements onewire.Bus.
//
// power is ignored, the simulated slaves are not parasite powered.
func (m *Master) Tx(w, r []byte, power onewire.Pullup) error {
	if !m.Reset() {
		return busError("owslavetest: no device present")
	}
	m.Write(w)
	m.Read(r)
	return nil
}

// Search implements onewire.Bus.
func (m *Master) Search(alarmOnly bool) ([]onewire.Address, error) {
	return onewire.Search(m, alarmOnly)
}

// SearchTriplet implements onewire.BusSearcher.
func (m *Master) SearchTriplet(direction byte) (onewire.TripletResult, error) {
	b := m.ReadBit()
	c := m.ReadBit()
	tr := onewire.TripletResult{GotZero: !b, GotOne: !c}
	switch {
	case b != c:
		tr.Taken = 0
		if b {
			tr.Taken = 1
		}
	case !b:
		// Both values present, follow direction.
		tr.Taken = direction & 1
	default:
		// Nobody answered.
		tr.Taken = 1
	}
	m.WriteBit(tr.Taken != 0)
	return tr, nil
}

// MakeAddress returns the address of a device with the given family code
// and 48 bit serial number, with its CRC-8.
func MakeAddress(family byte, serial uint64) onewire.Address {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], serial<<8)
	b[0] = family
	b[7] = onewire.CalcCRC(b[:7])
	return onewire.Address(binary.LittleEndian.Uint64(b[:]))
}

// busError implements onewire.BusError.
type busError string

func (e busError) Error() string  { return string(e) }
func (e busError) BusError() bool { return true }

var _ onewire.BusSearcher = &Master{}
