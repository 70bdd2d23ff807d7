// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"sync/atomic"

	"github.com/GermanBionicSystems/owslave/ds18b20"
	"github.com/GermanBionicSystems/owslave/owslave"
	"github.com/GermanBionicSystems/owslave/owslave/owslavetest"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

// familyCode is the family code of the simulated devices.
const familyCode = 0x42

// sim is a simulated bus with its slaves.
type sim struct {
	w       *owslavetest.Wire
	m       *owslavetest.Master
	ids     []onewire.Address
	engines []*owslave.Engine
}

// newSim attaches n channel slaves and thermo emulated DS18B20 with
// identities derived from seed.
//
// Each channel slave has a readable channel 0 returning its read count and
// serial number, and a writable channel 1 printing what it receives. The
// thermometers start at 20°C and warm up by 1/16°C per conversion. A lone
// slave accepts Skip ROM and Read ROM.
func newSim(ctx context.Context, n, thermo int, seed int64, out io.Writer) (*sim, error) {
	s := &sim{w: owslavetest.NewWire()}
	r := rand.New(rand.NewSource(seed))
	for i := 0; i < n+thermo; i++ {
		name := fmt.Sprintf("slave%d", i)
		p := s.w.NewPin(name, physic.MegaHertz)
		opts := owslave.DefaultOpts
		opts.SingleDevice = n+thermo == 1
		if i < n {
			opts.Identity = owslavetest.MakeAddress(familyCode, r.Uint64()&(1<<48-1))
			opts.Handler = newChannels(opts.Identity, name, out)
		} else {
			opts.Identity = owslavetest.MakeAddress(ds18b20.Family, r.Uint64()&(1<<48-1))
			d, err := ds18b20.New(newRamp(), nil)
			if err != nil {
				s.Close()
				return nil, err
			}
			opts.Handler = d
			opts.AlertPending = d.Alert
		}
		id := opts.Identity
		if verbose {
			opts.Logger = log.New(os.Stderr, "["+name+"] ", 0)
		}
		e, err := owslave.New(p, &opts)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.ids = append(s.ids, id)
		s.engines = append(s.engines, e)
		s.w.Start(ctx, p, e)
	}
	s.m = owslavetest.NewMaster(s.w)
	return s, nil
}

func newChannels(id onewire.Address, name string, out io.Writer) *owslave.Channels {
	var reads atomic.Uint32
	return owslave.NewChannels().
		Reader(0, owslave.ChannelReaderFunc(func() ([]byte, error) {
			n := reads.Add(1)
			a := uint64(id)
			return []byte{byte(n), byte(a >> 8), byte(a >> 16), byte(a >> 24), byte(a >> 32), byte(a >> 40), byte(a >> 48)}, nil
		})).
		Writer(1, owslave.ChannelWriterFunc(func(b []byte) error {
			fmt.Fprintf(out, "%s: channel 1 <- % x\n", name, b)
			return nil
		}))
}

// newRamp returns a temperature rising with every conversion.
func newRamp() ds18b20.SensorFunc {
	var n atomic.Int64
	return func() (physic.Temperature, error) {
		t := physic.ZeroCelsius + 20*physic.Celsius + physic.Temperature(n.Add(1)-1)*physic.Kelvin/16
		return t, nil
	}
}

func (s *sim) Close() error {
	return s.w.Close()
}

func (s *sim) printStats(out io.Writer) {
	for i, e := range s.engines {
		st := e.Stats()
		fmt.Fprintf(out, "slave%d %#016x: resets=%d presences=%d selected=%d commands=%d completed=%d",
			i, uint64(s.ids[i]), st.Resets, st.Presences, st.Selected, st.Commands, st.Completed)
		for r, n := range st.Aborts {
			if n != 0 && owslave.AbortReason(r) != owslave.ReasonDone {
				fmt.Fprintf(out, " %s=%d", owslave.AbortReason(r), n)
			}
		}
		fmt.Fprintln(out)
	}
}
