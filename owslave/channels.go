// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package owslave

import (
	"fmt"

	"github.com/GermanBionicSystems/owslave/common"
)

// Commands of the channel protocol.
const (
	// CmdReadChannel is followed by the channel byte. The device answers with
	// a length byte and the data.
	CmdReadChannel = 0xf2
	// CmdWriteChannel is followed by the channel byte, a length byte and the
	// data.
	CmdWriteChannel = 0xf4
)

// ChannelReader produces the data of a readable channel.
type ChannelReader interface {
	ReadChannel() ([]byte, error)
}

// ChannelReaderFunc adapts a function to ChannelReader.
type ChannelReaderFunc func() ([]byte, error)

// ReadChannel implements ChannelReader.
func (f ChannelReaderFunc) ReadChannel() ([]byte, error) {
	return f()
}

// ChannelWriter consumes the data written to a channel.
//
// WriteChannel is only called once the CRC of the exchange was confirmed by
// the master.
type ChannelWriter interface {
	WriteChannel(data []byte) error
}

// ChannelWriterFunc adapts a function to ChannelWriter.
type ChannelWriterFunc func(data []byte) error

// WriteChannel implements ChannelWriter.
func (f ChannelWriterFunc) WriteChannel(data []byte) error {
	return f(data)
}

// Channels is a CommandHandler implementing the generic channel protocol.
//
// Every exchange is framed as: command, channel, [length, data], then the
// complement of the CRC-16 of all of these, returned by the master. Other
// commands can be added with Handle.
type Channels struct {
	readers  map[byte]ChannelReader
	writers  map[byte]ChannelWriter
	commands map[byte]CommandHandler
}

// NewChannels returns a Channels with no channel.
func NewChannels() *Channels {
	return &Channels{
		readers:  map[byte]ChannelReader{},
		writers:  map[byte]ChannelWriter{},
		commands: map[byte]CommandHandler{},
	}
}

// Reader registers a readable channel.
func (c *Channels) Reader(ch byte, r ChannelReader) *Channels {
	c.readers[ch] = r
	return c
}

// Writer registers a writable channel.
func (c *Channels) Writer(ch byte, w ChannelWriter) *Channels {
	c.writers[ch] = w
	return c
}

// Handle registers a handler for another command byte.
func (c *Channels) Handle(cmd byte, h CommandHandler) *Channels {
	c.commands[cmd] = h
	return c
}

// Command implements CommandHandler.
func (c *Channels) Command(e *Engine, cmd byte) error {
	switch cmd {
	case CmdReadChannel:
		return c.read(e, cmd)
	case CmdWriteChannel:
		return c.write(e, cmd)
	}
	if h, ok := c.commands[cmd]; ok {
		return h.Command(e, cmd)
	}
	return e.Abort(ReasonProtocol)
}

func (c *Channels) read(e *Engine, cmd byte) error {
	ch, crc, err := e.ReceiveCRC(common.CRC16(0, cmd))
	if err != nil {
		return err
	}
	r, ok := c.readers[ch]
	if !ok {
		return e.Abort(ReasonProtocol)
	}
	data, err := r.ReadChannel()
	if err != nil {
		return fmt.Errorf("channel %d: %w", ch, err)
	}
	if len(data) > 0xff {
		return fmt.Errorf("channel %d: %d bytes do not fit a frame", ch, len(data))
	}
	if crc, err = e.TransmitCRC(byte(len(data)), crc); err != nil {
		return err
	}
	for _, b := range data {
		if crc, err = e.TransmitCRC(b, crc); err != nil {
			return err
		}
	}
	return e.EndTransmission(crc)
}

func (c *Channels) write(e *Engine, cmd byte) error {
	ch, crc, err := e.ReceiveCRC(common.CRC16(0, cmd))
	if err != nil {
		return err
	}
	w, ok := c.writers[ch]
	if !ok {
		return e.Abort(ReasonProtocol)
	}
	n, crc, err := e.ReceiveCRC(crc)
	if err != nil {
		return err
	}
	data := make([]byte, n)
	for i := range data {
		if data[i], crc, err = e.ReceiveCRC(crc); err != nil {
			return err
		}
	}
	if err := e.EndTransmission(crc); err != nil {
		return err
	}
	if err := w.WriteChannel(data); err != nil {
		return fmt.Errorf("channel %d: %w", ch, err)
	}
	// Nothing left to send.
	return e.Abort(ReasonDone)
}
