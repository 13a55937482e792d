// Package bitmap implements the fixed-range, 64-bit-word bit vector used to
// track free inodes and free data blocks in a mounted v6 filesystem.
package bitmap

import (
	"fmt"
	"strings"

	gobitmap "github.com/boljen/go-bitmap"
	"github.com/gofsd/v6fs/errors"
)

// BitsPerVector is the width, in bits, of each word in the underlying
// array. The cursor in FindNext advances one word at a time.
const BitsPerVector = 64

// Bitmap tracks which IDs in the inclusive range [Min, Max] are in use.
// It is not safe for concurrent use; callers mount a v6 filesystem on a
// single goroutine, per spec.
type Bitmap struct {
	words  []uint64
	Min    int
	Max    int
	cursor int
}

// New allocates a zeroed Bitmap covering every integer in [min, max].
func New(min, max int) (*Bitmap, error) {
	if max < min {
		return nil, errors.ErrBadParameter.WithMessage(
			fmt.Sprintf("max (%d) is less than min (%d)", max, min))
	}
	length := (max - min + 1 + BitsPerVector - 1) / BitsPerVector
	return &Bitmap{
		words: make([]uint64, length),
		Min:   min,
		Max:   max,
	}, nil
}

func (b *Bitmap) inRange(x int) bool {
	return x >= b.Min && x <= b.Max
}

func (b *Bitmap) locate(x int) (word int, bit uint) {
	offset := x - b.Min
	return offset / BitsPerVector, uint(offset % BitsPerVector)
}

// Get returns 1 if x is marked in-use, 0 if free. It fails with
// ErrBadParameter if x is outside [Min, Max].
func (b *Bitmap) Get(x int) (int, error) {
	if !b.inRange(x) {
		return 0, errors.ErrBadParameter.WithMessage(
			fmt.Sprintf("%d not in range [%d, %d]", x, b.Min, b.Max))
	}
	word, bit := b.locate(x)
	if b.words[word]&(uint64(1)<<bit) != 0 {
		return 1, nil
	}
	return 0, nil
}

// Set marks x as in-use. Out-of-range IDs are silently ignored.
func (b *Bitmap) Set(x int) {
	if !b.inRange(x) {
		return
	}
	word, bit := b.locate(x)
	b.words[word] |= uint64(1) << bit
}

// Clear marks x as free. Out-of-range IDs are silently ignored. Clearing a
// bit before the cursor rewinds the cursor to that word so a later
// FindNext can see it again.
func (b *Bitmap) Clear(x int) {
	if !b.inRange(x) {
		return
	}
	word, bit := b.locate(x)
	b.words[word] &^= uint64(1) << bit
	if word < b.cursor {
		b.cursor = word
	}
}

// FindNext scans forward from the cursor for the first free ID and returns
// it without marking it in-use; the caller must Set it after deciding to
// take it. It fails with ErrBitmapFull if every ID is in use.
func (b *Bitmap) FindNext() (int, error) {
	for b.cursor < len(b.words) {
		word := b.words[b.cursor]
		if word == ^uint64(0) {
			b.cursor++
			continue
		}
		for i := 0; i < BitsPerVector; i++ {
			if word&(uint64(1)<<uint(i)) == 0 {
				id := b.Min + b.cursor*BitsPerVector + i
				if id > b.Max {
					// The last word is partially outside [Min, Max]; treat
					// those high bits as permanently occupied.
					b.cursor++
					break
				}
				return id, nil
			}
		}
	}
	return 0, errors.ErrBitmapFull
}

// DebugString renders the current allocation state of the bitmap, one word
// per line, using a byte-oriented github.com/boljen/go-bitmap view of the
// same bits so the output lines up with the library's own Get/Set-based
// bit ordering.
func (b *Bitmap) DebugString() string {
	var out strings.Builder
	fmt.Fprintf(&out, "bitmap [%d, %d] cursor=%d\n", b.Min, b.Max, b.cursor)

	view := gobitmap.New(len(b.words) * BitsPerVector)
	for wordIdx, word := range b.words {
		for bit := 0; bit < BitsPerVector; bit++ {
			if word&(uint64(1)<<uint(bit)) != 0 {
				view.Set(wordIdx*BitsPerVector+bit, true)
			}
		}
	}

	for wordIdx := range b.words {
		fmt.Fprintf(&out, "%d: ", wordIdx)
		for bit := 0; bit < BitsPerVector; bit++ {
			if view.Get(wordIdx*BitsPerVector + bit) {
				out.WriteByte('1')
			} else {
				out.WriteByte('0')
			}
		}
		out.WriteByte('\n')
	}
	return out.String()
}
