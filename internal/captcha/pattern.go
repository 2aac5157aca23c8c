package captcha

import (
	"fmt"
	"math/bits"
	"strings"
)

// Sample window geometry. Bits are laid out column-major: bit i is column
// i/SampleRows, row i%SampleRows of the window.
const (
	SampleColumns = 8
	SampleRows    = 15
	PatternBits   = SampleColumns * SampleRows
)

// BitPattern is the ink fingerprint of one keypad image: one bit per sampled
// pixel, set when the pixel is ink.
type BitPattern [2]uint64

// ParsePattern parses the textual form produced by BitPattern.String.
func ParsePattern(s string) (BitPattern, error) {
	var p BitPattern
	if len(s) != PatternBits {
		return p, fmt.Errorf("pattern has %d characters, want %d", len(s), PatternBits)
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '1':
			p.Set(i)
		case '0':
		default:
			return p, fmt.Errorf("pattern character %d is %q, want '0' or '1'", i, s[i])
		}
	}
	return p, nil
}

// MustParsePattern is ParsePattern for package-level tables; it panics on error.
func MustParsePattern(s string) BitPattern {
	p, err := ParsePattern(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Set marks bit i as ink.
func (p *BitPattern) Set(i int) {
	p[i>>6] |= 1 << uint(i&63)
}

// Bit reports whether bit i is ink.
func (p BitPattern) Bit(i int) bool {
	return p[i>>6]&(1<<uint(i&63)) != 0
}

// Flip returns a copy of p with bit i inverted.
func (p BitPattern) Flip(i int) BitPattern {
	p[i>>6] ^= 1 << uint(i&63)
	return p
}

// Distance is the Hamming distance between two patterns.
func (p BitPattern) Distance(q BitPattern) int {
	return bits.OnesCount64(p[0]^q[0]) + bits.OnesCount64(p[1]^q[1])
}

// Ink counts the set bits.
func (p BitPattern) Ink() int {
	return bits.OnesCount64(p[0]) + bits.OnesCount64(p[1])
}

// String renders the pattern as PatternBits characters of '0' and '1'.
func (p BitPattern) String() string {
	var sb strings.Builder
	sb.Grow(PatternBits)
	for i := 0; i < PatternBits; i++ {
		if p.Bit(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Grid renders the pattern as SampleRows lines of SampleColumns characters,
// '#' for ink and '.' for background, the way the digit appears on screen.
func (p BitPattern) Grid() string {
	var sb strings.Builder
	for row := 0; row < SampleRows; row++ {
		for col := 0; col < SampleColumns; col++ {
			if p.Bit(col*SampleRows + row) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
