// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package wave

import (
	"errors"
	"image"
	"io"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
	"periph.io/x/conn/v3/gpio"
)

// Image renders the signal between from and to as a timing diagram.
func Image(s Signal, from, to time.Duration, width, height int) (image.Image, error) {
	dc, err := render(s, from, to, width, height)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// RenderPNG writes the timing diagram of the signal as a PNG.
func RenderPNG(w io.Writer, s Signal, from, to time.Duration, width, height int) error {
	dc, err := render(s, from, to, width, height)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

const margin = 16

func render(s Signal, from, to time.Duration, width, height int) (*gg.Context, error) {
	if to <= from {
		return nil, errors.New("wave: empty time range")
	}
	if width < 2*margin || height < 3*margin {
		return nil, errors.New("wave: image too small")
	}
	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	w := float64(width - 2*margin)
	x := func(t time.Duration) float64 {
		return margin + w*float64(t-from)/float64(to-from)
	}
	yHigh := float64(margin)
	yLow := float64(height - 2*margin)
	y := func(l gpio.Level) float64 {
		if l == gpio.Low {
			return yLow
		}
		return yHigh
	}

	// Levels.
	dc.SetRGB(0.8, 0.8, 0.8)
	dc.SetDash(4, 4)
	dc.DrawLine(margin, yHigh, float64(width-margin), yHigh)
	dc.DrawLine(margin, yLow, float64(width-margin), yLow)
	dc.Stroke()
	dc.SetDash()

	dc.SetRGB(0, 0, 0.6)
	dc.SetLineWidth(1.5)
	l := s.LevelAt(from)
	dc.MoveTo(x(from), y(l))
	for _, t := range s {
		if t.At <= from {
			continue
		}
		if t.At >= to {
			break
		}
		dc.LineTo(x(t.At), y(l))
		l = t.Level
		dc.LineTo(x(t.At), y(l))
	}
	dc.LineTo(x(to), y(l))
	dc.Stroke()

	dc.SetRGB(0, 0, 0)
	dc.SetFontFace(basicfont.Face7x13)
	ty := float64(height - margin/2)
	dc.DrawStringAnchored(from.String(), margin, ty, 0, 0)
	dc.DrawStringAnchored(to.String(), float64(width-margin), ty, 1, 0)
	return dc, nil
}
