// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owslave

// The transfer methods are only valid from within CommandHandler.Command.
// Each of them may return an *AbortError, which the handler must return.

// suspend waits until the bit operation in progress is complete and the bus
// released. On success it returns with interrupts disabled.
func (e *Engine) suspend() (InterruptState, error) {
	for {
		e.flush()
		s := e.hw.DisableInterrupts()
		if e.txn != e.cur {
			e.hw.RestoreInterrupts(s)
			return 0, &AbortError{Reason: ReasonReset}
		}
		if e.mode != Running {
			r := e.reason
			e.hw.RestoreInterrupts(s)
			return 0, &AbortError{Reason: r}
		}
		if e.state == Idle {
			return s, nil
		}
		e.hw.RestoreInterrupts(s)
		if err := e.ctx.Err(); err != nil {
			return 0, err
		}
		e.hw.Wait()
	}
}

// arm starts a bit operation once the previous one completed.
func (e *Engine) arm(op transferOp, b, mask byte) error {
	s, err := e.suspend()
	if err != nil {
		return err
	}
	e.op = op
	if op == opWrite {
		e.startWrite(b, mask)
	} else {
		e.startRead(mask)
	}
	e.hw.RestoreInterrupts(s)
	return nil
}

// collect waits for the operation armed as op and returns the shift
// register.
func (e *Engine) collect(op transferOp) (byte, error) {
	s, err := e.suspend()
	if err != nil {
		return 0, err
	}
	if e.op != op {
		e.cancel(ReasonProtocol)
		e.hw.RestoreInterrupts(s)
		return 0, &AbortError{Reason: ReasonProtocol}
	}
	v := e.shift
	e.op = opNone
	e.hw.RestoreInterrupts(s)
	return v, nil
}

// ReceiveByte arms the reception of the next byte. Use ReceiveByteValue to
// retrieve it.
func (e *Engine) ReceiveByte() error {
	return e.arm(opRead, 0, 1)
}

// ReceiveByteValue waits for the byte armed with ReceiveByte.
//
// Without a prior ReceiveByte the transaction is aborted.
func (e *Engine) ReceiveByteValue() (byte, error) {
	return e.collect(opRead)
}

// TransmitByte waits for the pending operation to complete and arms the
// transmission of b. It does not wait for b to be sent.
func (e *Engine) TransmitByte(b byte) error {
	return e.arm(opWrite, b, 1)
}

// ReceiveBit arms the reception of a single bit.
func (e *Engine) ReceiveBit() error {
	return e.arm(opReadBit, 0, 0x80)
}

// ReceiveBitValue waits for the bit armed with ReceiveBit.
func (e *Engine) ReceiveBitValue() (bool, error) {
	v, err := e.collect(opReadBit)
	return v&0x80 != 0, err
}

// TransmitBit arms the transmission of a single bit.
func (e *Engine) TransmitBit(v bool) error {
	var b byte
	if v {
		b = 0x80
	}
	return e.arm(opWrite, b, 0x80)
}

// Receive reads len(buf) bytes.
func (e *Engine) Receive(buf []byte) error {
	for i := range buf {
		if err := e.ReceiveByte(); err != nil {
			return err
		}
		v, err := e.ReceiveByteValue()
		if err != nil {
			return err
		}
		buf[i] = v
	}
	return nil
}

// Transmit arms the bytes of buf one after the other. The last one is still
// pending on return.
func (e *Engine) Transmit(buf []byte) error {
	for _, b := range buf {
		if err := e.TransmitByte(b); err != nil {
			return err
		}
	}
	return nil
}

// Flush waits until the pending operation completed.
func (e *Engine) Flush() error {
	s, err := e.suspend()
	if err != nil {
		return err
	}
	if e.op == opWrite {
		e.op = opNone
	}
	e.hw.RestoreInterrupts(s)
	return nil
}
