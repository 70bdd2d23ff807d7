// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owslave

import (
	"encoding/binary"

	"github.com/GermanBionicSystems/owslave/common"
)

// ReceiveCRC receives a byte and folds it into crc.
func (e *Engine) ReceiveCRC(crc uint16) (byte, uint16, error) {
	if err := e.ReceiveByte(); err != nil {
		return 0, crc, err
	}
	b, err := e.ReceiveByteValue()
	if err != nil {
		return 0, crc, err
	}
	return b, common.CRC16(crc, b), nil
}

// TransmitCRC transmits b and folds it into crc.
func (e *Engine) TransmitCRC(b byte, crc uint16) (uint16, error) {
	if err := e.TransmitByte(b); err != nil {
		return crc, err
	}
	return common.CRC16(crc, b), nil
}

// EndTransmission closes a CRC protected exchange.
//
// It sends the complement of crc, low byte first, then reads back two bytes
// from the master. They must be the same complement, or the transaction is
// aborted with ReasonCRC. Effects of the exchange must only be committed
// after it returns nil.
func (e *Engine) EndTransmission(crc uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], ^crc)
	if err := e.Transmit(buf[:]); err != nil {
		return err
	}
	var got [2]byte
	if err := e.Receive(got[:]); err != nil {
		return err
	}
	if got != buf {
		return e.Abort(ReasonCRC)
	}
	return nil
}
