package dseed

import "fmt"

// Size2i is a two-dimensional integer size.
type Size2i struct {
	Width, Height int
}

// Size3i is a three-dimensional integer size. Depth counts slices for volume
// textures and faces for cube maps.
type Size3i struct {
	Width, Height, Depth int
}

// Size3 returns a Size3i with the given dimensions.
func Size3(w, h, d int) Size3i { return Size3i{Width: w, Height: h, Depth: d} }

// Size2 returns the width and height of s.
func (s Size3i) Size2() Size2i { return Size2i{Width: s.Width, Height: s.Height} }

// Valid reports whether every axis is positive.
func (s Size3i) Valid() bool { return s.Width > 0 && s.Height > 0 && s.Depth > 0 }

func (s Size3i) String() string { return fmt.Sprintf("%dx%dx%d", s.Width, s.Height, s.Depth) }

// Point2i is an integer point, used for cursor hotspots.
type Point2i struct {
	X, Y int
}

// Fraction is a rational number such as a frame rate or a pixel aspect ratio.
type Fraction struct {
	Num, Den int32
}

// Float64 returns the value of f; a zero denominator yields 0.
func (f Fraction) Float64() float64 {
	if f.Den == 0 {
		return 0
	}
	return float64(f.Num) / float64(f.Den)
}

func (f Fraction) String() string { return fmt.Sprintf("%d/%d", f.Num, f.Den) }
