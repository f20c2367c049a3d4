package main

import (
	"context"
	"image"
)

// minSkinShare is the fraction of pixels that must match before a box is reported.
const minSkinShare = 0.005

// skinDetector reports the bounding box of skin-toned pixels. It stands in
// for a real face tracker when running from the command line.
func skinDetector(ctx context.Context, pix []uint8, width, height int) ([]image.Rectangle, error) {
	box := image.Rectangle{Min: image.Pt(width, height)}
	count := 0
	for y := 0; y < height; y++ {
		if y%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row := pix[y*width*4 : (y+1)*width*4]
		for x := 0; x < width; x++ {
			r, g, b := int(row[x*4]), int(row[x*4+1]), int(row[x*4+2])
			if !isSkin(r, g, b) {
				continue
			}
			count++
			box.Min.X = min(box.Min.X, x)
			box.Min.Y = min(box.Min.Y, y)
			box.Max.X = max(box.Max.X, x+1)
			box.Max.Y = max(box.Max.Y, y+1)
		}
	}
	if float64(count) < minSkinShare*float64(width*height) {
		return nil, nil
	}
	return []image.Rectangle{box}, nil
}

// isSkin is the classic RGB skin rule for daylight illumination.
func isSkin(r, g, b int) bool {
	hi := max(r, g, b)
	lo := min(r, g, b)
	return r > 95 && g > 40 && b > 20 &&
		hi-lo > 15 && r > g && r > b && abs(r-g) > 15
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
