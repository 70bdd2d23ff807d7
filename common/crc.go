// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, the CRC-16 used to close 1-wire data exchanges.
package common

// CRC16Residue is the value of the accumulator after a data block followed by
// its inverted CRC-16 (low byte first) has been folded in.
const CRC16Residue uint16 = 0xb001

// oddParity[n] is 1 when the nibble n has an odd number of bits set.
var oddParity = [16]uint16{0, 1, 1, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0, 1, 1, 0}

// CRC16 folds one byte into the running 1-wire CRC-16 (polynomial 0x8005,
// processed LSB first, i.e. 0xa001 reflected) and returns the new value.
//
// The initial value is 0. It uses a nibble parity table instead of eight
// shift steps; the result is identical to the bitwise definition.
func CRC16(crc uint16, b byte) uint16 {
	d := (uint16(b) ^ crc) & 0xff
	crc >>= 8
	if oddParity[d&0xf]^oddParity[d>>4] != 0 {
		crc ^= 0xc001
	}
	d <<= 6
	crc ^= d
	d <<= 1
	crc ^= d
	return crc
}

// CRC16Bytes folds all of buf into crc.
func CRC16Bytes(crc uint16, buf []byte) uint16 {
	for _, b := range buf {
		crc = CRC16(crc, b)
	}
	return crc
}
