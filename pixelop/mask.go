package pixelop

import (
	"fmt"
	"math"
	"sync"

	"github.com/daramkun/dseed"
)

// Mask is a square convolution mask with an odd side length.
// Weights are stored row-major; Weights[dy*Size+dx] applies to the texel at
// offset (dx-Size/2, dy-Size/2).
type Mask struct {
	Size    int
	Weights []float32
}

// NewMask validates and copies weights into a Mask.
func NewMask(size int, weights []float32) (*Mask, error) {
	if size <= 0 || size%2 == 0 {
		return nil, fmt.Errorf("pixelop: mask size %d must be odd: %w", size, dseed.ErrInvalidArgs)
	}
	if len(weights) != size*size {
		return nil, fmt.Errorf("pixelop: mask needs %d weights, got %d: %w", size*size, len(weights), dseed.ErrInvalidArgs)
	}
	return &Mask{Size: size, Weights: append([]float32(nil), weights...)}, nil
}

// IdentityMask leaves pixels unchanged.
func IdentityMask() *Mask { return &Mask{Size: 1, Weights: []float32{1}} }

// BoxMask averages a (2*radius+1) square.
func BoxMask(radius int) *Mask {
	if radius <= 0 {
		return IdentityMask()
	}
	size := radius*2 + 1
	w := make([]float32, size*size)
	v := 1 / float32(size*size)
	for i := range w {
		w[i] = v
	}
	return &Mask{Size: size, Weights: w}
}

// SharpenMask is the 3x3 unsharp kernel with a centre weight of 5.
func SharpenMask() *Mask {
	return &Mask{Size: 3, Weights: []float32{
		0, -1, 0,
		-1, 5, -1,
		0, -1, 0,
	}}
}

// EdgeDetectMask is the 3x3 Laplacian.
func EdgeDetectMask() *Mask {
	return &Mask{Size: 3, Weights: []float32{
		-1, -1, -1,
		-1, 8, -1,
		-1, -1, -1,
	}}
}

// EmbossMask lights from the top left.
func EmbossMask() *Mask {
	return &Mask{Size: 3, Weights: []float32{
		-2, -1, 0,
		-1, 1, 1,
		0, 1, 2,
	}}
}

// gaussian1D returns a normalized kernel of 2*ceil(3*sigma)+1 taps.
func gaussian1D(sigma float64) []float64 {
	half := int(math.Ceil(sigma * 3))
	k := make([]float64, half*2+1)
	twoSigmaSq := 2 * sigma * sigma
	sum := 0.0
	for i := range k {
		x := float64(i - half)
		k[i] = math.Exp(-(x * x) / twoSigmaSq)
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

func newGaussianMask(radius float64) *Mask {
	if radius <= 0 {
		return IdentityMask()
	}
	k := gaussian1D(radius)
	size := len(k)
	w := make([]float32, size*size)
	for y := range size {
		for x := range size {
			w[y*size+x] = float32(k[y] * k[x])
		}
	}
	return &Mask{Size: size, Weights: w}
}

// maskCache memoizes Gaussian masks keyed by radius at 0.01 precision.
type maskCache struct {
	mu     sync.RWMutex
	cache  map[int]*Mask
	maxLen int
}

var defaultMaskCache = &maskCache{cache: make(map[int]*Mask), maxLen: 32}

func (c *maskCache) get(radius float64) *Mask {
	key := int(radius * 100)

	c.mu.RLock()
	m, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return m
	}

	m = newGaussianMask(radius)

	c.mu.Lock()
	if len(c.cache) >= c.maxLen {
		n := 0
		for k := range c.cache {
			delete(c.cache, k)
			n++
			if n >= c.maxLen/2 {
				break
			}
		}
	}
	c.cache[key] = m
	c.mu.Unlock()
	return m
}

// GaussianMask returns a normalized Gaussian blur mask with sigma = radius.
// Masks are cached and shared; callers must not modify the result.
func GaussianMask(radius float64) *Mask {
	return defaultMaskCache.get(radius)
}
