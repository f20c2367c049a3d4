// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import "github.com/gogpu/gg"

// Camera is an orthographic view onto the scene. The default camera maps
// the square [-1, 1] x [-1, 1] onto the render target, +Y up.
type Camera struct {
	Left, Right float64
	Top, Bottom float64
}

// NewCamera returns the default camera.
func NewCamera() *Camera {
	return &Camera{Left: -1, Right: 1, Top: 1, Bottom: -1}
}

// unproject maps the center of target pixel (px, py) to world coordinates.
func (c *Camera) unproject(px, py, width, height int) (x, y float64) {
	x = c.Left + (float64(px)+0.5)/float64(width)*(c.Right-c.Left)
	y = c.Top + (float64(py)+0.5)/float64(height)*(c.Bottom-c.Top)
	return x, y
}

// Material describes how a sprite is shaded.
type Material struct {
	// Map is the sampled texture.
	Map *Texture

	// Color tints the shaded result. The zero value is treated as white.
	Color gg.RGBA

	// Program shades each fragment. Nil samples Map directly.
	Program *Program
}

// Sprite is an axis-aligned textured quad facing the camera.
// A sprite with scale 2x2 at the origin covers the default camera view.
type Sprite struct {
	Material *Material
	X, Y     float64
	ScaleX   float64
	ScaleY   float64
}

// NewSprite creates a unit sprite at the origin.
func NewSprite(m *Material) *Sprite {
	return &Sprite{Material: m, ScaleX: 1, ScaleY: 1}
}

// uv maps a world position onto the sprite's texture coordinates.
// ok is false when the position lies outside the sprite.
func (s *Sprite) uv(x, y float64) (u, v float64, ok bool) {
	if s.ScaleX == 0 || s.ScaleY == 0 {
		return 0, 0, false
	}
	lx := (x-s.X)/s.ScaleX + 0.5
	ly := (y-s.Y)/s.ScaleY + 0.5
	if lx < 0 || lx > 1 || ly < 0 || ly > 1 {
		return 0, 0, false
	}
	return lx, 1 - ly, true
}

// Scene holds the sprites drawn by a backend, back to front.
type Scene struct {
	Background gg.RGBA
	sprites    []*Sprite
}

// NewScene creates an empty scene with a transparent background.
func NewScene() *Scene {
	return &Scene{}
}

// Add appends sprites to the scene.
func (s *Scene) Add(sprites ...*Sprite) {
	s.sprites = append(s.sprites, sprites...)
}

// Clear removes every sprite.
func (s *Scene) Clear() {
	s.sprites = s.sprites[:0]
}

// Sprites returns the sprites in draw order.
func (s *Scene) Sprites() []*Sprite {
	return s.sprites
}
