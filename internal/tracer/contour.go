package tracer

import (
	"image"
	"image/color"
)

// bitmap is a binarized raster. true means ink.
type bitmap struct {
	w, h int
	pix  []bool
}

func (b *bitmap) at(x, y int) bool {
	if x < 0 || y < 0 || x >= b.w || y >= b.h {
		return false
	}
	return b.pix[y*b.w+x]
}

// rasterize thresholds the image at mid gray. Transparent pixels are
// background regardless of color.
func rasterize(img image.Image) *bitmap {
	bounds := img.Bounds()
	b := &bitmap{w: bounds.Dx(), h: bounds.Dy()}
	b.pix = make([]bool, b.w*b.h)
	for y := 0; y < b.h; y++ {
		for x := 0; x < b.w; x++ {
			c := img.At(bounds.Min.X+x, bounds.Min.Y+y)
			_, _, _, a := c.RGBA()
			if a < 0x8000 {
				continue
			}
			gray := color.GrayModel.Convert(c).(color.Gray)
			b.pix[y*b.w+x] = gray.Y < 128
		}
	}
	return b
}

type point struct {
	x, y float64
}

type lattice struct {
	x, y int
}

type direction int

const (
	dirUp direction = iota
	dirDown
	dirLeft
	dirRight
)

func (d direction) step(p lattice) lattice {
	switch d {
	case dirUp:
		return lattice{p.x, p.y - 1}
	case dirDown:
		return lattice{p.x, p.y + 1}
	case dirLeft:
		return lattice{p.x - 1, p.y}
	default:
		return lattice{p.x + 1, p.y}
	}
}

type edge struct {
	p lattice
	d direction
}

// findContours walks region boundaries on the pixel lattice, ink kept
// on the right of the walking direction. Outer boundaries are picked
// up from top edges of ink pixels, holes from bottom edges; a visited
// set of directed edges keeps each loop traced once. Scan order makes
// the result deterministic.
func findContours(b *bitmap) [][]point {
	visited := make(map[edge]bool)
	var contours [][]point

	for y := 0; y < b.h; y++ {
		for x := 0; x < b.w; x++ {
			if !b.at(x, y) {
				continue
			}
			// Top edge exposed: outer boundary, walked rightward.
			if !b.at(x, y-1) {
				start := edge{lattice{x, y}, dirRight}
				if !visited[start] {
					contours = append(contours, walk(b, start, visited))
				}
			}
			// Bottom edge exposed: hole boundary, walked leftward.
			if !b.at(x, y+1) {
				start := edge{lattice{x + 1, y + 1}, dirLeft}
				if !visited[start] {
					contours = append(contours, walk(b, start, visited))
				}
			}
		}
	}
	return contours
}

// walk follows one closed boundary loop starting with the given
// directed edge, returning the lattice points it passes through.
func walk(b *bitmap, start edge, visited map[edge]bool) []point {
	var pts []point
	p := start.p
	d := start.d
	for {
		visited[edge{p, d}] = true
		pts = append(pts, point{float64(p.x), float64(p.y)})
		p = d.step(p)
		if p == start.p {
			break
		}
		d = nextDirection(b, p, d)
	}
	return pts
}

// nextDirection inspects the 2x2 pixel block around a lattice point
// and picks the exit that keeps ink on the right. The two saddle
// states disambiguate by the incoming direction.
func nextDirection(b *bitmap, p lattice, prev direction) direction {
	state := 0
	if b.at(p.x-1, p.y-1) {
		state |= 1 // top-left
	}
	if b.at(p.x, p.y-1) {
		state |= 2 // top-right
	}
	if b.at(p.x-1, p.y) {
		state |= 4 // bottom-left
	}
	if b.at(p.x, p.y) {
		state |= 8 // bottom-right
	}

	switch state {
	case 1, 3, 11:
		return dirLeft
	case 2, 10, 14:
		return dirUp
	case 4, 5, 7:
		return dirDown
	case 8, 12, 13:
		return dirRight
	case 6:
		if prev == dirRight {
			return dirDown
		}
		return dirUp
	case 9:
		if prev == dirUp {
			return dirRight
		}
		return dirLeft
	default:
		// 0 and 15 cannot occur on a boundary being walked.
		return prev
	}
}
