package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ARGB is a packed ARGB8888 color: alpha in the most significant byte,
// then red, green, blue.
type ARGB uint32

// Colors produced by the binary shading policy.
const (
	Black ARGB = 0xff000000
	White ARGB = 0xffffffff
)

var _ color.Color = ARGB(0)

// Pack assembles a color from its four channels.
func Pack(a, r, g, b uint8) ARGB {
	return ARGB(uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// Opaque returns the fully opaque color (r, g, b).
func Opaque(r, g, b uint8) ARGB {
	return Pack(0xff, r, g, b)
}

func (c ARGB) A() uint8 { return uint8(c >> 24) }
func (c ARGB) R() uint8 { return uint8(c >> 16) }
func (c ARGB) G() uint8 { return uint8(c >> 8) }
func (c ARGB) B() uint8 { return uint8(c) }

// RGBA implements color.Color (alpha-premultiplied, 16 bits per channel).
func (c ARGB) RGBA() (r, g, b, a uint32) {
	a = uint32(c.A()) * 0x101
	r = uint32(c.R()) * 0x101 * a / 0xffff
	g = uint32(c.G()) * 0x101 * a / 0xffff
	b = uint32(c.B()) * 0x101 * a / 0xffff
	return r, g, b, a
}

// Scale multiplies the color channels by f, clamped to [0, 1]. Alpha is kept.
func (c ARGB) Scale(f float64) ARGB {
	if f < 0 {
		f = 0
	} else if f > 1 {
		f = 1
	}
	mul := func(v uint8) uint8 { return uint8(float64(v)*f + 0.5) }
	return Pack(c.A(), mul(c.R()), mul(c.G()), mul(c.B()))
}

// ParseHex parses "#RRGGBB" (opaque) or "#AARRGGBB".
func ParseHex(s string) (ARGB, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 && len(h) != 8 {
		return 0, fmt.Errorf("render: color %q: expected #RRGGBB or #AARRGGBB", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("render: color %q: %w", s, err)
	}
	if len(h) == 6 {
		v |= 0xff000000
	}
	return ARGB(v), nil
}

// MustParseHex is ParseHex for package-level tables; it panics on error.
func MustParseHex(s string) ARGB {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c ARGB) String() string {
	return fmt.Sprintf("#%08X", uint32(c))
}
