package bitmap

import (
	"sync"

	"github.com/daramkun/dseed"
	"github.com/daramkun/dseed/pixelformat"
)

// Pool recycles pixel buffers of released bitmaps.
//
// Buffers are grouped by byte length, so bitmaps of different formats but
// equal footprint share a bucket.
//
// Thread safety: All methods are safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	buckets map[int][][]byte
	maxSize int // max buffers per bucket
}

// NewPool creates a pool that keeps at most maxPerBucket buffers per length.
// A maxPerBucket of 0 means unlimited.
func NewPool(maxPerBucket int) *Pool {
	return &Pool{
		buckets: make(map[int][][]byte),
		maxSize: maxPerBucket,
	}
}

// Get returns a zeroed buffer of length n.
func (p *Pool) Get(n int) []byte {
	p.mu.Lock()
	bucket := p.buckets[n]
	if len(bucket) > 0 {
		buf := bucket[len(bucket)-1]
		p.buckets[n] = bucket[:len(bucket)-1]
		p.mu.Unlock()
		clear(buf)
		return buf
	}
	p.mu.Unlock()
	return make([]byte, n)
}

// Put hands buf back for reuse. Nil and empty buffers are ignored.
func (p *Pool) Put(buf []byte) {
	if len(buf) == 0 {
		return
	}
	n := len(buf)

	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.buckets[n]
	if p.maxSize > 0 && len(bucket) >= p.maxSize {
		return
	}
	p.buckets[n] = append(bucket, buf)
}

// Len returns the number of pooled buffers across all buckets.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, b := range p.buckets {
		total += len(b)
	}
	return total
}

// NewBitmap allocates a bitmap whose buffer comes from, and returns to, p.
func (p *Pool) NewBitmap(kind Kind, size dseed.Size3i, format pixelformat.Format, palette *Palette) (*Bitmap, error) {
	n, err := validate(kind, size, format)
	if err != nil {
		return nil, err
	}
	return newBitmap(kind, size, format, p.Get(n), palette, p), nil
}

var defaultPool = NewPool(8)

// DefaultPool returns the pool used by New.
func DefaultPool() *Pool { return defaultPool }
