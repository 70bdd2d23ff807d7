// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package wave

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"time"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
)

// Colors used by Plot.
var (
	HighColor  = color.NRGBA{0x00, 0xc0, 0x00, 0xff}
	LowColor   = color.NRGBA{0xd0, 0x00, 0x00, 0xff}
	MixedColor = color.NRGBA{0xe0, 0xc0, 0x00, 0xff}
)

// ConsoleOpts represents the options of the console plotter.
type ConsoleOpts struct {
	X       int
	Palette *ansi256.Palette
	// W defaults to stdout.
	W io.Writer

	_ struct{}
}

// Console draws a signal as one line of colored blocks on a terminal using
// ANSI color codes, one block per time bucket.
type Console struct {
	w       io.Writer
	l       int
	palette ansi256.Palette

	pixels []byte
	buf    bytes.Buffer
}

// NewConsole returns a Console that displays at the terminal.
func NewConsole(opts *ConsoleOpts) *Console {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Console{
		w:       w,
		l:       opts.X,
		palette: *p,
		pixels:  make([]byte, 3*opts.X),
	}
}

func (c *Console) String() string {
	return "wave.Console"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors.
func (c *Console) Halt() error {
	_, err := c.w.Write([]byte("\n\033[0m"))
	return err
}

// Plot draws the signal between from and to.
//
// Each block is green when the bus stayed high, red when it stayed low and
// yellow when it changed within the block.
func (c *Console) Plot(s Signal, from, to time.Duration) error {
	if to <= from {
		return errors.New("wave: empty time range")
	}
	if c.l == 0 {
		return nil
	}
	step := (to - from) / time.Duration(c.l)
	if step <= 0 {
		step = 1
	}
	for i := 0; i < c.l; i++ {
		t := from + time.Duration(i)*step
		low, high := s.Span(t, t+step)
		col := HighColor
		switch {
		case low && high:
			col = MixedColor
		case low:
			col = LowColor
		}
		c.setPixel(i, col)
	}
	_, err := c.refresh()
	return err
}

// Write accepts a stream of raw RGB pixels and writes it to the console.
func (c *Console) Write(pixels []byte) (int, error) {
	if len(pixels)%3 != 0 {
		return 0, errors.New("wave: invalid RGB stream length")
	}
	copy(c.pixels, pixels)
	return c.refresh()
}

// ColorModel implements display.Drawer.
func (c *Console) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (c *Console) Bounds() image.Rectangle {
	return image.Rectangle{Max: image.Point{X: c.l, Y: 1}}
}

// Draw implements display.Drawer.
//
// Only the first row of r is displayed; sp is the point of src drawn at
// r.Min.
func (c *Console) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(c.Bounds())
	for x := r.Min.X; x < r.Max.X; x++ {
		col := color.NRGBAModel.Convert(src.At(sp.X+x-r.Min.X, sp.Y)).(color.NRGBA)
		c.setPixel(x, col)
	}
	_, err := c.refresh()
	return err
}

func (c *Console) setPixel(x int, col color.NRGBA) {
	c.pixels[3*x] = col.R
	c.pixels[3*x+1] = col.G
	c.pixels[3*x+2] = col.B
}

func (c *Console) refresh() (int, error) {
	// Minimizes the memory allocated per call.
	c.buf.Reset()
	_, _ = c.buf.WriteString("\r\033[0m")
	for i := 0; i < len(c.pixels)/3; i++ {
		col := color.NRGBA{c.pixels[3*i], c.pixels[3*i+1], c.pixels[3*i+2], 255}
		_, _ = io.WriteString(&c.buf, c.palette.Block(col))
	}
	_, _ = c.buf.WriteString("\033[0m ")
	_, err := c.buf.WriteTo(c.w)
	return len(c.pixels), err
}

var _ display.Drawer = &Console{}
var _ fmt.Stringer = &Console{}
