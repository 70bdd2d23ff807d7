// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ds18b20 emulates a Maxim DS18B20 temperature sensor on top of the
// owslave engine.
//
// Conversions are instantaneous: the master reads ones when it polls for the
// end of a conversion. The device is never parasite powered.
package ds18b20

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/GermanBionicSystems/owslave/owslave"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

// Family is the family code of the DS18B20.
const Family = 0x28

// Function commands, datasheet p.11.
const (
	CmdConvert         = 0x44
	CmdWriteScratchpad = 0x4e
	CmdReadScratchpad  = 0xbe
	CmdCopyScratchpad  = 0x48
	CmdRecall          = 0xb8
	CmdReadPower       = 0xb4
)

// Sensor provides the temperature reported by the emulated device.
//
// Any physic.SenseEnv implements it.
type Sensor interface {
	Sense(e *physic.Env) error
}

// SensorFunc adapts a function to Sensor.
type SensorFunc func() (physic.Temperature, error)

// Sense implements Sensor.
func (f SensorFunc) Sense(e *physic.Env) error {
	t, err := f()
	e.Temperature = t
	return err
}

// Opts contains the power-up content of the EEPROM.
type Opts struct {
	// High and Low are the alarm thresholds in °C.
	High, Low int8
	// ResolutionBits must be in the range 9..12.
	ResolutionBits int
}

// DefaultOpts is the factory content of the EEPROM.
var DefaultOpts = Opts{
	High:           75,
	Low:            70,
	ResolutionBits: 12,
}

// New returns an emulated DS18B20 reading its temperature from s.
//
// The returned device is the owslave.CommandHandler of the engine;
// Alert is meant for owslave.Opts.AlertPending.
func New(s Sensor, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if opts.ResolutionBits < 9 || opts.ResolutionBits > 12 {
		return nil, errors.New("ds18b20: invalid resolutionBits")
	}
	d := &Dev{s: s}
	d.eeprom = [3]byte{byte(opts.High), byte(opts.Low), config(opts.ResolutionBits)}
	// The temperature register powers up at 85°C, datasheet p.6.
	d.spad = [8]byte{0x50, 0x05, d.eeprom[0], d.eeprom[1], d.eeprom[2], 0xff, 0x0c, 0x10}
	return d, nil
}

// Dev is an emulated DS18B20.
type Dev struct {
	s     Sensor
	alarm atomic.Bool

	mu     sync.Mutex
	spad   [8]byte // scratchpad without the CRC
	eeprom [3]byte // TH, TL, configuration
	err    error   // last sensor error
}

func (d *Dev) String() string {
	return "DS18B20"
}

// Halt implements conn.Resource.
func (d *Dev) Halt() error {
	return nil
}

// Alert returns true when the last conversion was out of the alarm
// thresholds. It is safe to call at interrupt level.
func (d *Dev) Alert() bool {
	return d.alarm.Load()
}

// Scratchpad returns the 9 bytes the master reads, CRC included.
func (d *Dev) Scratchpad() [9]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scratchpad()
}

// Temperature returns the content of the temperature register.
func (d *Dev) Temperature() physic.Temperature {
	d.mu.Lock()
	defer d.mu.Unlock()
	return decode(d.spad[0], d.spad[1])
}

// ResolutionBits returns the resolution set in the configuration register.
func (d *Dev) ResolutionBits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int(d.spad[4]>>5) + 9
}

// Err returns the error of the last failed conversion, if any.
func (d *Dev) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Command implements owslave.CommandHandler.
func (d *Dev) Command(e *owslave.Engine, cmd byte) error {
	switch cmd {
	case CmdConvert:
		return d.convert()
	case CmdReadScratchpad:
		// The master may stop reading at any point with a reset.
		spad := d.Scratchpad()
		return e.Transmit(spad[:])
	case CmdWriteScratchpad:
		return d.writeScratchpad(e)
	case CmdCopyScratchpad:
		d.mu.Lock()
		copy(d.eeprom[:], d.spad[2:5])
		d.mu.Unlock()
		return nil
	case CmdRecall:
		d.mu.Lock()
		copy(d.spad[2:5], d.eeprom[:])
		d.mu.Unlock()
		return nil
	case CmdReadPower:
		// Externally powered devices answer with ones.
		return e.TransmitBit(true)
	default:
		return e.Abort(owslave.ReasonProtocol)
	}
}

// convert samples the sensor into the temperature register.
//
// A failing sensor leaves the register untouched.
func (d *Dev) convert() error {
	var env physic.Env
	err := d.s.Sense(&env)
	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.err = err
		return fmt.Errorf("ds18b20: conversion failed: %w", err)
	}
	d.err = nil
	bits := int(d.spad[4]>>5) + 9
	d.spad[0], d.spad[1] = encode(env.Temperature, bits)
	whole := int8((int16(d.spad[1])<<8 | int16(d.spad[0])) >> 4)
	d.alarm.Store(whole >= int8(d.spad[2]) || whole <= int8(d.spad[3]))
	return nil
}

// writeScratchpad receives TH, TL and the configuration register. Bytes
// received before a reset are kept, like on the real device.
func (d *Dev) writeScratchpad(e *owslave.Engine) error {
	for i := 2; i < 5; i++ {
		if err := e.ReceiveByte(); err != nil {
			return err
		}
		v, err := e.ReceiveByteValue()
		if err != nil {
			return err
		}
		if i == 4 {
			v = v&0x60 | 0x1f
		}
		d.mu.Lock()
		d.spad[i] = v
		d.mu.Unlock()
	}
	return nil
}

func (d *Dev) scratchpad() [9]byte {
	var out [9]byte
	copy(out[:], d.spad[:])
	out[8] = onewire.CalcCRC(out[:8])
	return out
}

// config returns the configuration register for a resolution.
func config(bits int) byte {
	return byte((bits-9)<<5) | 0x1f
}

// encode returns the temperature register for t, LSB first. The value is
// clamped to the -55°C..125°C range of the device and the bits below the
// resolution are cleared.
func encode(t physic.Temperature, bits int) (byte, byte) {
	c := t - physic.ZeroCelsius
	switch {
	case c < -55*physic.Celsius:
		c = -55 * physic.Celsius
	case c > 125*physic.Celsius:
		c = 125 * physic.Celsius
	}
	// 4 fractional bits, rounded toward negative infinity.
	n := int64(c) * 16
	raw := n / int64(physic.Kelvin)
	if n%int64(physic.Kelvin) < 0 {
		raw--
	}
	raw &^= (1 << uint(12-bits)) - 1
	return byte(raw), byte(raw >> 8)
}

// decode is the inverse of encode.
func decode(lsb, msb byte) physic.Temperature {
	raw := int16(msb)<<8 | int16(lsb)
	return physic.Temperature(raw)*physic.Kelvin/16 + physic.ZeroCelsius
}

var _ conn.Resource = &Dev{}
var _ owslave.CommandHandler = &Dev{}
var _ Sensor = SensorFunc(nil)
