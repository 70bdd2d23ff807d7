// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/GermanBionicSystems/owslave/gpiohal"
	"github.com/GermanBionicSystems/owslave/owslave"
	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/host/v3"
)

var (
	pinName string
	pinID   string
)

var gpioCmd = &cobra.Command{
	Use:   "gpio",
	Short: "Run a slave on a GPIO pin",
	Long: `Run a 1-wire slave on a GPIO pin of the host until interrupted.

The pin must be wired to the bus data line; the bus pull-up keeps it high.
The slave serves channel 0 (read) and channel 1 (write) like the simulated
slaves. Timing depends on the host's GPIO edge latency.

The identity must carry a valid CRC-8 in its high byte; "owsim search"
prints valid ones.

Examples:
  owsim gpio --pin GPIO4 --id 0x<16 hex digits>
  owsim gpio --pin GPIO17 --id <16 hex digits> -v`,
	Args: cobra.NoArgs,
	RunE: runGPIO,
}

func init() {
	rootCmd.AddCommand(gpioCmd)

	gpioCmd.Flags().StringVar(&pinName, "pin", "", "GPIO pin connected to the bus")
	gpioCmd.Flags().StringVar(&pinID, "id", "", "64 bit ROM code, family code in the low byte")
	_ = gpioCmd.MarkFlagRequired("pin")
	_ = gpioCmd.MarkFlagRequired("id")
}

func runGPIO(cmd *cobra.Command, args []string) error {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(pinID), "0x"), 16, 64)
	if err != nil {
		return fmt.Errorf("invalid --id %q: %w", pinID, err)
	}
	id := onewire.Address(v)

	if _, err := host.Init(); err != nil {
		return err
	}
	p := gpioreg.ByName(pinName)
	if p == nil {
		return fmt.Errorf("no pin named %q", pinName)
	}
	h, err := gpiohal.New(p, nil)
	if err != nil {
		return err
	}
	defer h.Halt()

	out := cmd.OutOrStdout()
	opts := owslave.DefaultOpts
	opts.Identity = id
	opts.Handler = newChannels(id, pinName, out)
	if verbose {
		opts.Logger = log.New(os.Stderr, "", log.Lmicroseconds)
	}
	e, err := owslave.New(h, &opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	fmt.Fprintf(out, "%#016x on %s\n", uint64(id), h)
	err = e.Run(ctx)
	st := e.Stats()
	fmt.Fprintf(out, "resets=%d presences=%d selected=%d commands=%d completed=%d\n",
		st.Resets, st.Presences, st.Selected, st.Commands, st.Completed)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		return err
	}
	return h.Err()
}
