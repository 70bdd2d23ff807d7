// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ds18b20

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/GermanBionicSystems/owslave/owslave"
	"github.com/GermanBionicSystems/owslave/owslave/owslavetest"
	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

func TestNew_fail_resolution(t *testing.T) {
	if d, err := New(nil, &Opts{ResolutionBits: 13}); d != nil || err == nil {
		t.Fatal("invalid resolution")
	}
}

func TestPowerUp(t *testing.T) {
	d, err := New(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	spad := d.Scratchpad()
	if !onewire.CheckCRC(spad[:]) {
		t.Fatalf("bad crc % x", spad)
	}
	if diff := cmp.Diff([]byte{0x50, 0x05, 75, 70, 0x7f, 0xff, 0x0c, 0x10}, spad[:8]); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}
	if c := d.Temperature().Celsius(); c != 85 {
		t.Fatal(c)
	}
	if s := d.String(); s != "DS18B20" {
		t.Fatal(s)
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
}

// TestEncode checks the temperature register against the datasheet table.
func TestEncode(t *testing.T) {
	var testData = []struct {
		celsius float64
		bits    int
		lsb     byte
		msb     byte
	}{
		{125, 12, 0xD0, 0x07},
		{85, 12, 0x50, 0x05},
		{25.0625, 12, 0x91, 0x01},
		{10.125, 12, 0xA2, 0x00},
		{0.5, 12, 0x08, 0x00},
		{0, 12, 0x00, 0x00},
		{-0.5, 12, 0xF8, 0xFF},
		{-10.125, 12, 0x5E, 0xFF},
		{-25.0625, 12, 0x6F, 0xFE},
		{-55, 12, 0x90, 0xFC},
		// Clamped.
		{200, 12, 0xD0, 0x07},
		{-80, 12, 0x90, 0xFC},
		// Lower resolutions round toward negative infinity.
		{25.0625, 9, 0x90, 0x01},
		{-10.125, 10, 0x5C, 0xFF},
		{-0.01, 12, 0xFF, 0xFF},
	}
	for _, entry := range testData {
		t.Run(fmt.Sprintf("%f@%d", entry.celsius, entry.bits), func(st *testing.T) {
			temp := physic.Temperature(entry.celsius*float64(physic.Kelvin)) + physic.ZeroCelsius
			lsb, msb := encode(temp, entry.bits)
			if lsb != entry.lsb || msb != entry.msb {
				st.Fatalf("expected %02x %02x, got %02x %02x", entry.lsb, entry.msb, lsb, msb)
			}
			exact := entry.celsius*16 == float64(int(entry.celsius*16))
			if entry.bits == 12 && exact && entry.celsius >= -55 && entry.celsius <= 125 {
				if got := decode(lsb, msb); got != temp {
					st.Fatalf("decode: expected %s, got %s", temp, got)
				}
			}
		})
	}
}

// thermometer is a settable Sensor.
type thermometer struct {
	mu  sync.Mutex
	t   physic.Temperature
	err error
}

func (s *thermometer) set(celsius float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t = physic.Temperature(celsius*float64(physic.Kelvin)) + physic.ZeroCelsius
}

func (s *thermometer) Sense(e *physic.Env) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Temperature = s.t
	return s.err
}

func newSensor(t *testing.T) (*owslavetest.Master, onewire.Dev, *Dev, *thermometer) {
	w := owslavetest.NewWire()
	p := w.NewPin("ds18b20", physic.MegaHertz)
	s := &thermometer{}
	s.set(21.5)
	d, err := New(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	id := owslavetest.MakeAddress(Family, 0x070e41ac)
	opts := owslave.DefaultOpts
	opts.Identity = id
	opts.Handler = d
	opts.AlertPending = d.Alert
	e, err := owslave.New(p, &opts)
	if err != nil {
		t.Fatal(err)
	}
	w.Start(context.Background(), p, e)
	t.Cleanup(func() {
		_ = w.Close()
	})
	m := owslavetest.NewMaster(w)
	return m, onewire.Dev{Bus: m, Addr: id}, d, s
}

func readScratchpad(t *testing.T, o onewire.Dev) [9]byte {
	var spad [9]byte
	if err := o.Tx([]byte{CmdReadScratchpad}, spad[:]); err != nil {
		t.Fatal(err)
	}
	if !onewire.CheckCRC(spad[:]) {
		t.Fatalf("incorrect scratchpad CRC % x", spad)
	}
	return spad
}

// TestSense runs the sequence of a master driver over the simulated bus.
func TestSense(t *testing.T) {
	_, o, d, s := newSensor(t)
	if spad := readScratchpad(t, o); spad[0] != 0x50 || spad[1] != 0x05 {
		t.Fatalf("expected power-up value: % x", spad)
	}
	if err := o.TxPower([]byte{CmdConvert}, nil); err != nil {
		t.Fatal(err)
	}
	if spad := readScratchpad(t, o); spad[0] != 0x58 || spad[1] != 0x01 {
		t.Fatalf("expected 21.5°C: % x", spad)
	}

	// Set 9 bits resolution.
	if err := o.Tx([]byte{CmdWriteScratchpad, 30, 10, 0x1f}, nil); err != nil {
		t.Fatal(err)
	}
	if n := d.ResolutionBits(); n != 9 {
		t.Fatal(n)
	}
	s.set(21.5625)
	if err := o.TxPower([]byte{CmdConvert}, nil); err != nil {
		t.Fatal(err)
	}
	spad := readScratchpad(t, o)
	if diff := cmp.Diff([]byte{0x58, 0x01, 30, 10, 0x1f}, spad[:5]); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}
	if c := d.Temperature().Celsius(); c != 21.5 {
		t.Fatal(c)
	}
}

func TestEEPROM(t *testing.T) {
	_, o, d, _ := newSensor(t)
	if err := o.Tx([]byte{CmdWriteScratchpad, 40, 0xf6, 0x3f}, nil); err != nil {
		t.Fatal(err)
	}
	if err := o.TxPower([]byte{CmdCopyScratchpad}, nil); err != nil {
		t.Fatal(err)
	}
	if err := o.Tx([]byte{CmdWriteScratchpad, 1, 2, 0x7f}, nil); err != nil {
		t.Fatal(err)
	}
	if spad := readScratchpad(t, o); spad[2] != 1 || spad[3] != 2 {
		t.Fatalf("% x", spad)
	}
	if err := o.Tx([]byte{CmdRecall}, nil); err != nil {
		t.Fatal(err)
	}
	if spad := readScratchpad(t, o); spad[2] != 40 || spad[3] != 0xf6 || spad[4] != 0x3f {
		t.Fatalf("% x", spad)
	}
	if n := d.ResolutionBits(); n != 10 {
		t.Fatal(n)
	}
}

// TestPartialWrite checks that a reset in the middle of Write Scratchpad
// keeps the bytes already received.
func TestPartialWrite(t *testing.T) {
	_, o, _, _ := newSensor(t)
	if err := o.Tx([]byte{CmdWriteScratchpad, 12}, nil); err != nil {
		t.Fatal(err)
	}
	if spad := readScratchpad(t, o); spad[2] != 12 || spad[3] != 70 {
		t.Fatalf("% x", spad)
	}
}

func TestAlarm(t *testing.T) {
	m, o, d, s := newSensor(t)
	if err := o.Tx([]byte{CmdWriteScratchpad, 30, 10, 0x7f}, nil); err != nil {
		t.Fatal(err)
	}
	if err := o.TxPower([]byte{CmdConvert}, nil); err != nil {
		t.Fatal(err)
	}
	if d.Alert() {
		t.Fatal("21.5°C is within 10..30")
	}
	if !m.Reset() {
		t.Fatal("no presence")
	}
	m.WriteByte(owslave.CmdAlarmSearch)
	if !m.ReadBit() || !m.ReadBit() {
		t.Fatal("device without alarm took part")
	}

	s.set(30.25)
	if err := o.TxPower([]byte{CmdConvert}, nil); err != nil {
		t.Fatal(err)
	}
	if !d.Alert() {
		t.Fatal("30°C reaches TH")
	}
	addrs, err := m.Search(true)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]onewire.Address{o.Addr}, addrs); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}
}

func TestSensorFailure(t *testing.T) {
	_, o, d, s := newSensor(t)
	s.mu.Lock()
	s.err = errors.New("sensor unplugged")
	s.mu.Unlock()
	if err := o.TxPower([]byte{CmdConvert}, nil); err != nil {
		t.Fatal(err)
	}
	if err := d.Err(); err == nil {
		t.Fatal("expected sensor error")
	}
	if c := d.Temperature().Celsius(); c != 85 {
		t.Fatal(c)
	}
}

func TestReadPower(t *testing.T) {
	m, o, _, _ := newSensor(t)
	if err := o.Tx([]byte{CmdReadPower}, nil); err != nil {
		t.Fatal(err)
	}
	if !m.ReadBit() {
		t.Fatal("expected external power")
	}
}

func TestSensorFunc(t *testing.T) {
	want := physic.ZeroCelsius + 3*physic.Celsius
	var e physic.Env
	if err := SensorFunc(func() (physic.Temperature, error) { return want, nil }).Sense(&e); err != nil {
		t.Fatal(err)
	}
	if e.Temperature != want {
		t.Fatal(e.Temperature)
	}
}
