package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/nf/intcode/intcode"
)

// The memory map shows one square per memory cell below a line of status
// text. Cells beyond the last row are not shown.
const (
	cellSize = 4
	rowCells = 96
	mapRows  = 64
	maxCells = rowCells * mapRows
	headerPx = 16
)

var mapSize = image.Point{rowCells * cellSize, headerPx + mapRows*cellSize}

var (
	mapBackground = color.RGBA{0x10, 0x10, 0x18, 0xff}
	mapText       = color.RGBA{0xdd, 0xdd, 0xdd, 0xff}
	mapIP         = color.RGBA{0xff, 0xff, 0xff, 0xff}
	mapBase       = color.RGBA{0xff, 0x20, 0x20, 0xff}
	mapZero       = color.RGBA{0x28, 0x28, 0x30, 0xff}
)

// memoryView is a copy of the parts of a machine shown by the memory map.
type memoryView struct {
	cells  []int64
	size   int
	ip     int64
	base   int64
	steps  int64
	status intcode.Status
	valid  bool
	src    *intcode.Machine
}

// capture copies the state of m into v and reports whether it changed.
func (v *memoryView) capture(m *intcode.Machine) bool {
	if v.valid && v.src == m && v.steps == m.Steps() && v.status == m.Status() &&
		v.ip == m.IP && v.size == m.Mem.Len() {
		return false
	}
	n := m.Mem.Len()
	if n > maxCells {
		n = maxCells
	}
	v.cells = append(v.cells[:0], m.Mem[:n]...)
	v.size = m.Mem.Len()
	v.ip, v.base = m.IP, m.Base
	v.steps, v.status = m.Steps(), m.Status()
	v.valid, v.src = true, m
	return true
}

// draw renders v into dst, which should be mapSize.
func (v *memoryView) draw(dst *image.RGBA) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(mapBackground), image.Point{}, draw.Src)

	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(mapText),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(2, 12),
	}
	d.DrawString(fmt.Sprintf("%s ip=%d rb=%d steps=%d mem=%d",
		v.status, v.ip, v.base, v.steps, v.size))

	for i, c := range v.cells {
		var (
			addr = int64(i)
			x    = (i % rowCells) * cellSize
			y    = headerPx + (i/rowCells)*cellSize
			col  = cellColor(c)
		)
		switch addr {
		case v.ip:
			col = mapIP
		case v.base:
			col = mapBase
		}
		r := image.Rect(x, y, x+cellSize-1, y+cellSize-1)
		draw.Draw(dst, r, image.NewUniform(col), image.Point{}, draw.Src)
	}
}

// cellColor maps a value to a color; equal values share a color.
func cellColor(v int64) color.RGBA {
	if v == 0 {
		return mapZero
	}
	h := uint64(v) * 0x9e3779b97f4a7c15
	return color.RGBA{
		R: byte(h>>56) | 0x40,
		G: byte(h>>48) | 0x40,
		B: byte(h>>40) | 0x40,
		A: 0xff,
	}
}
