// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package wave

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/maruel/ansi256"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
)

const us = time.Microsecond

var reset = Signal{
	{At: 10 * us, Level: gpio.Low},
	{At: 490 * us, Level: gpio.High},
	{At: 520 * us, Level: gpio.Low},
	{At: 640 * us, Level: gpio.High},
}

func TestLevelAt(t *testing.T) {
	data := []struct {
		at   time.Duration
		want gpio.Level
	}{
		{0, gpio.High},
		{10 * us, gpio.Low},
		{489 * us, gpio.Low},
		{490 * us, gpio.High},
		{600 * us, gpio.Low},
		{time.Second, gpio.High},
	}
	for _, line := range data {
		if got := reset.LevelAt(line.at); got != line.want {
			t.Errorf("LevelAt(%s) = %s, want %s", line.at, got, line.want)
		}
	}
	if got := reset.End(); got != 640*us {
		t.Fatal(got)
	}
}

func TestSpan(t *testing.T) {
	if low, high := reset.Span(0, 5*us); low || !high {
		t.Fatal(low, high)
	}
	if low, high := reset.Span(20*us, 400*us); !low || high {
		t.Fatal(low, high)
	}
	if low, high := reset.Span(480*us, 500*us); !low || !high {
		t.Fatal(low, high)
	}
}

func TestLowPulses(t *testing.T) {
	want := []Pulse{{10 * us, 480 * us}, {520 * us, 120 * us}}
	if diff := cmp.Diff(want, reset.LowPulses()); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}
}

func TestConsolePlot(t *testing.T) {
	var b bytes.Buffer
	// 12.8µs per block, the falling edge at 10µs is within the first one.
	c := NewConsole(&ConsoleOpts{X: 50, W: &b})
	if err := c.Plot(reset, 0, 640*us); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	if !strings.HasPrefix(out, "\r\033[0m"+c.palette.Block(MixedColor)+c.palette.Block(LowColor)) || !strings.HasSuffix(out, "\033[0m ") {
		t.Fatalf("%q", out)
	}
	for _, col := range []string{c.palette.Block(HighColor), c.palette.Block(LowColor), c.palette.Block(MixedColor)} {
		if !strings.Contains(out, col) {
			t.Fatalf("missing %q in %q", col, out)
		}
	}
	if err := c.Plot(reset, 10, 10); err == nil {
		t.Fatal("expected error")
	}
	if err := c.Halt(); err != nil {
		t.Fatal(err)
	}
	if s := c.String(); s != "wave.Console" {
		t.Fatal(s)
	}
}

func TestConsoleDraw(t *testing.T) {
	var b bytes.Buffer
	var d display.Drawer = NewConsole(&ConsoleOpts{X: 3, W: &b})
	if got := d.Bounds(); got != image.Rect(0, 0, 3, 1) {
		t.Fatal(got)
	}
	if d.ColorModel() != color.NRGBAModel {
		t.Fatal("unexpected color model")
	}
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, HighColor)
	img.SetNRGBA(1, 0, LowColor)
	img.SetNRGBA(2, 0, MixedColor)
	p := ansi256.Default
	line := func(cols ...color.NRGBA) string {
		s := "\r\033[0m"
		for _, c := range cols {
			s += p.Block(c)
		}
		return s + "\033[0m "
	}
	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(line(HighColor, LowColor, MixedColor), b.String()); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}

	// Partial update, clipped to the console.
	b.Reset()
	if err := d.Draw(image.Rect(1, 0, 5, 4), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(line(HighColor, HighColor, LowColor), b.String()); diff != "" {
		t.Fatalf("(-want +got)\n%s", diff)
	}
}

func TestConsoleWrite(t *testing.T) {
	var b bytes.Buffer
	c := NewConsole(&ConsoleOpts{X: 2, W: &b})
	if _, err := c.Write([]byte{1, 2}); err == nil {
		t.Fatal("expected error")
	}
	if n, err := c.Write([]byte{1, 2, 3, 4, 5, 6}); n != 6 || err != nil {
		t.Fatal(n, err)
	}
}

func TestRenderPNG(t *testing.T) {
	var b bytes.Buffer
	if err := RenderPNG(&b, reset, 0, 700*us, 400, 100); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&b)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.Bounds().Size(); got.X != 400 || got.Y != 100 {
		t.Fatal(got)
	}
	// Background.
	if r, g, bl, _ := img.At(1, 1).RGBA(); r != 0xffff || g != 0xffff || bl != 0xffff {
		t.Fatal(r, g, bl)
	}
	if _, err := Image(reset, 0, 700*us, 10, 10); err == nil {
		t.Fatal("expected error")
	}
	if _, err := Image(reset, 5, 5, 400, 100); err == nil {
		t.Fatal("expected error")
	}
}
