// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package source

import (
	"fmt"
	"image"
	"image/color"
	"os"

	// Registered image decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Still is a source serving one fixed image. It is ready immediately.
type Still struct {
	img   image.Image
	ready chan struct{}
}

// NewStill creates a source that always returns img.
func NewStill(img image.Image) *Still {
	ready := make(chan struct{})
	close(ready)
	return &Still{img: img, ready: ready}
}

// LoadStill decodes an image file into a Still.
func LoadStill(path string) (*Still, error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	return NewStill(img), nil
}

// Size returns the image dimensions.
func (s *Still) Size() (width, height int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

// Ready returns a closed channel.
func (s *Still) Ready() <-chan struct{} {
	return s.ready
}

// Frame returns the image.
func (s *Still) Frame() image.Image {
	return s.img
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("source: decode %s: %w", path, err)
	}
	return img, nil
}

// TestPattern returns an image of eight vertical color bars over a
// left-to-right gray ramp in the bottom quarter.
func TestPattern(width, height int) *image.RGBA {
	bars := [...]color.RGBA{
		{255, 255, 255, 255}, {255, 255, 0, 255}, {0, 255, 255, 255}, {0, 255, 0, 255},
		{255, 0, 255, 255}, {255, 0, 0, 255}, {0, 0, 255, 255}, {0, 0, 0, 255},
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rampTop := height * 3 / 4
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if y >= rampTop {
				v := uint8(x * 255 / max(1, width-1))
				img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
				continue
			}
			img.SetRGBA(x, y, bars[x*len(bars)/width])
		}
	}
	return img
}
