// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package script

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/GermanBionicSystems/owslave/common"
	"periph.io/x/conn/v3/onewire"
)

// Master is the bus master a script runs on. *owslavetest.Master
// implements it.
type Master interface {
	Reset() bool
	WriteByte(b byte)
	ReadByte() byte
	Search(alarmOnly bool) ([]onewire.Address, error)
}

// Run executes the program, printing what it does to out.
//
// It stops at the first failed reset, crc or expect statement.
func Run(p *Program, m Master, out io.Writer) error {
	var crc uint16
	var last []byte
	write := func(b []byte) {
		for _, v := range b {
			m.WriteByte(v)
			crc = common.CRC16(crc, v)
		}
	}
	for _, s := range p.Statements {
		switch {
		case s.Reset:
			if !m.Reset() {
				return fmt.Errorf("script: %s: no presence pulse", s.Pos)
			}
			crc = 0
			fmt.Fprintln(out, "reset: presence")
		case s.Search != nil:
			addrs, err := m.Search(s.Search.Alarm)
			if err != nil {
				return fmt.Errorf("script: %s: %w", s.Pos, err)
			}
			fmt.Fprintf(out, "search: %d devices\n", len(addrs))
			for _, a := range addrs {
				fmt.Fprintf(out, "  %#016x\n", uint64(a))
			}
		case s.Match != "":
			a, _ := address(s.Match)
			var rom [9]byte
			rom[0] = 0x55
			binary.LittleEndian.PutUint64(rom[1:], a)
			for _, v := range rom {
				m.WriteByte(v)
			}
			crc = 0
			fmt.Fprintf(out, "match: %#016x\n", a)
		case s.Skip:
			m.WriteByte(0xcc)
			crc = 0
			fmt.Fprintln(out, "skip")
		case s.Write != nil:
			b, _ := hexBytes(s.Write)
			write(b)
			fmt.Fprintf(out, "write: % x\n", b)
		case s.Read != "":
			n, _ := count(s.Read)
			last = make([]byte, n)
			for i := range last {
				last[i] = m.ReadByte()
				crc = common.CRC16(crc, last[i])
			}
			fmt.Fprintf(out, "read: % x\n", last)
		case s.CRC:
			var got [2]byte
			got[0] = m.ReadByte()
			got[1] = m.ReadByte()
			want := ^crc
			if v := binary.LittleEndian.Uint16(got[:]); v != want {
				return fmt.Errorf("script: %s: crc %#04x, want %#04x", s.Pos, v, want)
			}
			write(got[:])
			crc = 0
			fmt.Fprintf(out, "crc: %#04x ok\n", want)
		case s.Expect != nil:
			want, _ := hexBytes(s.Expect)
			if !bytes.Equal(want, last) {
				return fmt.Errorf("script: %s: read % x, want % x", s.Pos, last, want)
			}
			fmt.Fprintln(out, "expect: ok")
		}
	}
	return nil
}
