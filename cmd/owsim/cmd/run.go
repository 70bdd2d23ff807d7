// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/GermanBionicSystems/owslave/script"
	"github.com/GermanBionicSystems/owslave/wave"
	"github.com/spf13/cobra"
)

var (
	runDevices int
	showWave   bool
	pngFile    string
	pngWidth   int
)

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Run a master script against simulated slaves",
	Long: `Run a master script against simulated slaves. The identities of the
slaves are printed first so the script can address them with match.

Script statements:
  reset, search [alarm], match <0x address>, skip,
  write <hex bytes>, read <n>, expect <hex bytes>, crc

Examples:
  owsim run read.ow
  owsim run read.ow --wave
  owsim run read.ow --png bus.png --width 2000`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVarP(&runDevices, "devices", "n", 1, "number of simulated slaves")
	runCmd.Flags().IntVar(&thermometers, "ds18b20", 0, "number of emulated DS18B20")
	runCmd.Flags().Int64Var(&seed, "seed", 1, "seed of the slave identities")
	runCmd.Flags().BoolVarP(&showWave, "wave", "w", false, "plot the bus on the terminal")
	runCmd.Flags().StringVar(&pngFile, "png", "", "render the bus to a PNG file")
	runCmd.Flags().IntVar(&pngWidth, "width", 1600, "width of the PNG")
}

func runScript(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	prog, err := script.Parse(f)
	f.Close()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	s, err := newSim(cmd.Context(), runDevices, thermometers, seed, out)
	if err != nil {
		return err
	}
	defer s.Close()
	for i, id := range s.ids {
		fmt.Fprintf(out, "slave%d: %#016x\n", i, uint64(id))
	}

	runErr := script.Run(prog, s.m, out)
	end := s.w.Now()
	sig := s.w.Transitions()
	if verbose {
		s.printStats(out)
	}
	if showWave && end > 0 {
		c := wave.NewConsole(&wave.ConsoleOpts{X: 120})
		if err := c.Plot(sig, 0, end); err != nil {
			return err
		}
		if err := c.Halt(); err != nil {
			return err
		}
	}
	if pngFile != "" && end > 0 {
		if err := writePNG(pngFile, sig, end+end/50); err != nil {
			return err
		}
	}
	return runErr
}

func writePNG(name string, sig wave.Signal, end time.Duration) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := wave.RenderPNG(f, sig, 0, end, pngWidth, 200); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
