package pixelformat

import (
	"math/bits"

	"github.com/daramkun/dseed"
)

func ceilDiv(a, b int) int { return (a + b - 1) / b }

// Stride returns the number of bytes in one scanline of width pixels.
//
// Packed formats use width*BytesPerPixel, with 3-byte layouts rounded up to
// a multiple of 4. Packed 4:2:2 rows hold ceil(width/2) 4-byte macropixels.
// Planar 4:2:0 reports the luma stride. Block formats report one row of
// blocks.
func Stride(f Format, width int) int {
	if !f.IsValid() || width < 0 {
		return NotComputable
	}
	info := infoTable[f]
	switch info.Layout {
	case LayoutPacked:
		n := width * info.BytesPerPixel
		if info.BytesPerPixel == 3 {
			n = (n + 3) &^ 3
		}
		return n
	case LayoutPacked422:
		return ceilDiv(width, 2) * 4
	case LayoutPlanar420:
		return width
	case LayoutBlock:
		return ceilDiv(width, info.BlockWidth) * info.BytesPerBlock
	}
	return NotComputable
}

// PlaneSize returns the number of bytes in one width x height slice.
func PlaneSize(f Format, width, height int) int {
	if !f.IsValid() || width < 0 || height < 0 {
		return NotComputable
	}
	info := infoTable[f]
	switch info.Layout {
	case LayoutPacked:
		return Stride(f, width) * height
	case LayoutPacked422:
		return ceilDiv(width, 2) * height * 4
	case LayoutPlanar420:
		return width*height + 2*ceilDiv(width, 2)*ceilDiv(height, 2)
	case LayoutBlock:
		return ceilDiv(width, info.BlockWidth) * ceilDiv(height, info.BlockHeight) * info.BytesPerBlock
	}
	return NotComputable
}

// TotalSize returns PlaneSize times the slice count of size.
func TotalSize(f Format, size dseed.Size3i) int {
	plane := PlaneSize(f, size.Width, size.Height)
	if plane == NotComputable || size.Depth < 0 {
		return NotComputable
	}
	return plane * size.Depth
}

// MipSize returns the dimensions of mip level. Each axis is
// max(1, ceil(axis / 2^level)); a cube map keeps its face count.
func MipSize(level int, size dseed.Size3i, cubemap bool) dseed.Size3i {
	if level <= 0 {
		return size
	}
	shrink := func(axis int) int {
		if level >= bits.UintSize-2 {
			return 1
		}
		d := 1 << level
		return max(1, ceilDiv(axis, d))
	}
	out := dseed.Size3i{Width: shrink(size.Width), Height: shrink(size.Height), Depth: size.Depth}
	if !cubemap {
		out.Depth = shrink(size.Depth)
	}
	return out
}

// MaxMipLevels returns floor(log2(largest axis)) + 1. Cube maps ignore the
// face count.
func MaxMipLevels(size dseed.Size3i, cubemap bool) int {
	m := max(size.Width, size.Height)
	if !cubemap {
		m = max(m, size.Depth)
	}
	if m <= 0 {
		return 0
	}
	return bits.Len(uint(m))
}

// MipChainSize returns the total byte size of levels mip levels starting at 0.
func MipChainSize(f Format, size dseed.Size3i, cubemap bool, levels int) int {
	total := 0
	for l := range levels {
		n := TotalSize(f, MipSize(l, size, cubemap))
		if n == NotComputable {
			return NotComputable
		}
		total += n
	}
	return total
}
