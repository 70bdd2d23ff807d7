// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSearch(t *testing.T) {
	out, err := execute(t, "search", "--devices", "2", "--ds18b20", "1", "--seed", "3")
	if err != nil {
		t.Fatalf("%v\n%s", err, out)
	}
	if !strings.HasPrefix(out, "3 devices found") {
		t.Fatal(out)
	}
	// Exactly one DS18B20 family code.
	if n := strings.Count(out, "28\n"); n != 1 {
		t.Fatalf("%d\n%s", n, out)
	}
}

func TestRun(t *testing.T) {
	name := filepath.Join(t.TempDir(), "skip.ow")
	src := "reset\nskip\nwrite f4 01 01 5a\ncrc\n"
	if err := os.WriteFile(name, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	png := filepath.Join(t.TempDir(), "bus.png")
	out, err := execute(t, "run", name, "--devices", "1", "--ds18b20", "0", "--png", png, "--width", "400")
	if err != nil {
		t.Fatalf("%v\n%s", err, out)
	}
	if !strings.Contains(out, "channel 1 <- 5a") {
		t.Fatal(out)
	}
	b, err := os.ReadFile(png)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Fatal("not a png")
	}
}

// TestGPIO stops before touching the host.
func TestGPIO(t *testing.T) {
	if _, err := execute(t, "gpio", "--pin", "GPIO4"); err == nil || !strings.Contains(err.Error(), `"id"`) {
		t.Fatal(err)
	}
	if _, err := execute(t, "gpio", "--pin", "GPIO4", "--id", "0xnothex"); err == nil || !strings.Contains(err.Error(), "invalid --id") {
		t.Fatal(err)
	}
}
