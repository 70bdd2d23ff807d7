// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package owslave implements the slave side of a 1-wire bus: reset
// detection, presence pulse, bit and byte transfer, ROM search and match and
// the CRC-16 closing of data exchanges.
//
// The engine is driven by two interrupt entry points, HandleEdge and
// HandleTimer, which a Hardware implementation calls when the bus changes
// level or the countdown timer expires. Everything that has to happen within
// a time slot (sampling, driving a zero, presence, ROM search) runs there.
// Device specific code runs in the main loop (Run or Poll) through a
// CommandHandler, and talks to the master with the blocking-style transfer
// methods (ReceiveByte, ReceiveByteValue, TransmitByte, ...).
//
// Every transfer method returns an *AbortError when the transaction is gone,
// for example because the master issued a new reset pulse. Handlers must
// return that error unchanged; Run is the single place that absorbs it.
//
// # Protocol
//
// https://www.analog.com/en/resources/technical-articles/1wire-communication-through-software.html
//
// https://www.analog.com/en/resources/technical-articles/understanding-and-using-cyclic-redundancy-checks-with-maxim-1wire-and-ibutton-products.html
package owslave
