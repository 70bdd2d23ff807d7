// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package script

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/GermanBionicSystems/owslave/owslave"
	"github.com/GermanBionicSystems/owslave/owslave/owslavetest"
	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

func TestParse(t *testing.T) {
	p, err := ParseString(`
# comment
reset; search alarm
match 0x2800000000cafe42
write f2 00
read 4
expect 0102 0304
crc
skip
`)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, s := range p.Statements {
		switch {
		case s.Reset:
			got = append(got, "reset")
		case s.Search != nil:
			got = append(got, fmt.Sprintf("search %t", s.Search.Alarm))
		case s.Match != "":
			got = append(got, "match "+s.Match)
		case s.Skip:
			got = append(got, "skip")
		case s.Write != nil:
			got = append(got, "write "+strings.Join(s.Write, " "))
		case s.Read != "":
			got = append(got, "read "+s.Read)
		case s.CRC:
			got = append(got, "crc")
		case s.Expect != nil:
			got = append(got, "expect "+strings.Join(s.Expect, " "))
		}
	}
	want := []string{
		"reset",
		"search true",
		"match 0x2800000000cafe42",
		"write f2 00",
		"read 4",
		"expect 0102 0304",
		"crc",
		"skip",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}
	if p.Statements[2].Pos.Line != 4 {
		t.Fatal(p.Statements[2].Pos)
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"write",
		"write 123",
		"read 0",
		"read",
		"match 0x1234",
		"jump",
		"expect zz",
	} {
		if _, err := ParseString(src); err == nil {
			t.Errorf("%q: expected error", src)
		}
	}
}

func newSim(t *testing.T, data []byte) (*owslavetest.Master, onewire.Address, *[][]byte) {
	w := owslavetest.NewWire()
	p := w.NewPin("slave", physic.MegaHertz)
	id := owslavetest.MakeAddress(0x42, 0xcafe)
	var written [][]byte
	opts := owslave.DefaultOpts
	opts.Identity = id
	opts.Handler = owslave.NewChannels().
		Reader(0, owslave.ChannelReaderFunc(func() ([]byte, error) { return data, nil })).
		Writer(1, owslave.ChannelWriterFunc(func(b []byte) error {
			written = append(written, b)
			return nil
		}))
	e, err := owslave.New(p, &opts)
	if err != nil {
		t.Fatal(err)
	}
	w.Start(context.Background(), p, e)
	t.Cleanup(func() {
		_ = w.Close()
	})
	return owslavetest.NewMaster(w), id, &written
}

func TestRun(t *testing.T) {
	m, id, written := newSim(t, []byte{1, 2, 3, 4})
	src := fmt.Sprintf(`
search
reset
match %#016x
write f2 00
read 1
expect 04
read 4
expect 01020304
crc
reset
match %#016x
write f4 01 02 aa bb
crc
`, uint64(id), uint64(id))
	p, err := ParseString(src)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := Run(p, m, &out); err != nil {
		t.Fatalf("%v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), fmt.Sprintf("  %#016x\n", uint64(id))) {
		t.Fatal(out.String())
	}
	if diff := cmp.Diff([][]byte{{0xaa, 0xbb}}, *written); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}
}

func TestRunFailures(t *testing.T) {
	m, id, _ := newSim(t, []byte{7})
	data := []struct {
		src  string
		want string
	}{
		{fmt.Sprintf("reset match %#016x write f2 00 read 2 expect 0108", uint64(id)), "want 01 08"},
		// Nothing armed: the master reads ones.
		{fmt.Sprintf("reset match %#016x read 1", uint64(id)), ""},
		{"reset skip", ""},
	}
	for _, line := range data {
		p, err := ParseString(line.src)
		if err != nil {
			t.Fatal(err)
		}
		err = Run(p, m, &bytes.Buffer{})
		if line.want == "" {
			if err != nil {
				t.Fatalf("%q: %v", line.src, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), line.want) {
			t.Fatalf("%q: %v", line.src, err)
		}
	}

	p, err := ParseString("reset")
	if err != nil {
		t.Fatal(err)
	}
	if err := Run(p, owslavetest.NewMaster(owslavetest.NewWire()), &bytes.Buffer{}); err == nil {
		t.Fatal("expected no presence")
	}
}
