package render

import "fmt"

// Frame is a row-major raster of Width*Height packed colors, regenerated
// once per frame and handed to the presenter.
type Frame struct {
	Width  int
	Height int
	Pix    []ARGB
}

// NewFrame allocates a zeroed (fully transparent) frame.
func NewFrame(width, height int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("render: invalid frame size %dx%d", width, height)
	}
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]ARGB, width*height),
	}, nil
}

// At returns the pixel at (x, y).
func (f *Frame) At(x, y int) ARGB {
	return f.Pix[y*f.Width+x]
}

// Set stores c at (x, y).
func (f *Frame) Set(x, y int, c ARGB) {
	f.Pix[y*f.Width+x] = c
}

// RGBA writes the frame as R, G, B, A bytes per pixel into dst, growing it
// when it is too small, and returns the filled slice. This is the layout
// image.RGBA and GPU texture uploads expect.
func (f *Frame) RGBA(dst []byte) []byte {
	n := len(f.Pix) * 4
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for i, c := range f.Pix {
		j := i * 4
		dst[j+0] = c.R()
		dst[j+1] = c.G()
		dst[j+2] = c.B()
		dst[j+3] = c.A()
	}
	return dst
}
