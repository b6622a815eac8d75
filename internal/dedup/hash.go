// Package dedup groups visually near-identical images by average hash.
package dedup

import (
	"fmt"
	"image"
	"image/color"
	"math/bits"
	"strings"

	"golang.org/x/image/draw"
)

// DefaultHashSize is the side of the sampling grid; hashes have
// DefaultHashSize² bits.
const DefaultHashSize = 18

// Hash is a fixed-length bit string.
type Hash struct {
	words []uint64
	n     int
}

// NewHash returns an all-zero hash of n bits.
func NewHash(n int) Hash {
	return Hash{words: make([]uint64, (n+63)/64), n: n}
}

// ParseHash reads a string of '0' and '1'.
func ParseHash(s string) (Hash, error) {
	h := NewHash(len(s))
	for i, c := range s {
		switch c {
		case '1':
			h.set(i)
		case '0':
		default:
			return Hash{}, fmt.Errorf("dedup: invalid hash character %q at %d", c, i)
		}
	}
	return h, nil
}

// Len returns the number of bits.
func (h Hash) Len() int { return h.n }

// Bit reports bit i.
func (h Hash) Bit(i int) bool {
	return h.words[i/64]&(1<<(uint(i)%64)) != 0
}

func (h Hash) set(i int) {
	h.words[i/64] |= 1 << (uint(i) % 64)
}

// Distance is the Hamming distance. ok is false when lengths differ.
func (h Hash) Distance(o Hash) (d int, ok bool) {
	if h.n != o.n {
		return 0, false
	}
	for i := range h.words {
		d += bits.OnesCount64(h.words[i] ^ o.words[i])
	}
	return d, true
}

// Similarity is 1 - distance/length, or 0 for incomparable hashes.
func (h Hash) Similarity(o Hash) float64 {
	d, ok := h.Distance(o)
	if !ok || h.n == 0 {
		return 0
	}
	return 1 - float64(d)/float64(h.n)
}

func (h Hash) String() string {
	var b strings.Builder
	b.Grow(h.n)
	for i := 0; i < h.n; i++ {
		if h.Bit(i) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// AverageHash scales img to a size×size grid, converts it to grayscale
// and sets one bit per cell whose value is at least the grid mean.
// Cells are read row by row.
func AverageHash(img image.Image, size int) Hash {
	if size <= 0 {
		size = DefaultHashSize
	}
	grid := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(grid, grid.Bounds(), img, img.Bounds(), draw.Src, nil)

	values := make([]uint8, size*size)
	var sum int
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := color.GrayModel.Convert(grid.At(x, y)).(color.Gray).Y
			values[y*size+x] = v
			sum += int(v)
		}
	}

	mean := float64(sum) / float64(len(values))
	h := NewHash(len(values))
	for i, v := range values {
		if float64(v) >= mean {
			h.set(i)
		}
	}
	return h
}
