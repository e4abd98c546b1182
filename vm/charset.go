package vm

import (
	"bytes"
	"fmt"
)

// Charset is a set of byte values backed by a 256-bit bitmap.
// Membership testing is a single shift and mask.
type Charset struct {
	bits [4]uint64
}

// NewCharset returns a set containing every byte of members.
func NewCharset(members string) *Charset {
	var s Charset
	for i := 0; i < len(members); i++ {
		s.Add(members[i])
	}
	return &s
}

// Add inserts a single byte into the set.
func (s *Charset) Add(b byte) {
	s.bits[b>>6] |= 1 << (b & 63)
}

// AddRange inserts every byte in [lo, hi] into the set.
// Ranges with hi < lo are empty and insert nothing.
func (s *Charset) AddRange(lo, hi byte) {
	for b := int(lo); b <= int(hi); b++ {
		s.Add(byte(b))
	}
}

// Contains reports whether b is in the set.
func (s *Charset) Contains(b byte) bool {
	return s.bits[b>>6]&(1<<(b&63)) != 0
}

// Len returns the number of bytes in the set.
func (s *Charset) Len() int {
	n := 0
	for _, w := range s.bits {
		for ; w != 0; w &= w - 1 {
			n++
		}
	}
	return n
}

// String renders the set in character-class notation, collapsing runs of
// consecutive bytes into ranges.
func (s *Charset) String() string {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for b := 0; b < 256; {
		if !s.Contains(byte(b)) {
			b++
			continue
		}
		lo := b
		for b < 256 && s.Contains(byte(b)) {
			b++
		}
		hi := b - 1
		writeSetByte(&buf, byte(lo))
		if hi > lo {
			if hi > lo+1 {
				buf.WriteByte('-')
			}
			writeSetByte(&buf, byte(hi))
		}
	}
	buf.WriteByte(']')
	return buf.String()
}

func writeSetByte(buf *bytes.Buffer, b byte) {
	if b >= 0x21 && b <= 0x7e && b != '-' && b != ']' && b != '\\' {
		buf.WriteByte(b)
		return
	}
	fmt.Fprintf(buf, `\x%02x`, b)
}
