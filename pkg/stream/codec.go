package stream

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// Codec names the compression applied to frame payloads.
type Codec byte

const (
	Raw Codec = iota
	Snappy
	Zstd
)

func (c Codec) String() string {
	switch c {
	case Raw:
		return "raw"
	case Snappy:
		return "snappy"
	case Zstd:
		return "zstd"
	}
	return fmt.Sprintf("Codec(%d)", byte(c))
}

// ParseCodec maps a command-line codec name to a Codec.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "", "raw":
		return Raw, nil
	case "snappy":
		return Snappy, nil
	case "zstd":
		return Zstd, nil
	}
	return 0, fmt.Errorf("stream: unknown codec %q", name)
}

// headerSize is the fixed prefix of every frame message:
// seq uint64 | width uint32 | height uint32 | codec byte, big-endian.
const headerSize = 17

// MaxFramePixels bounds the width*height a message may declare.
const MaxFramePixels = 1 << 26

// Header describes one frame message.
type Header struct {
	Seq           uint64
	Width, Height int
	Codec         Codec
}

// ErrShortMessage is returned for messages smaller than a header.
var ErrShortMessage = errors.New("stream: message shorter than header")

// encoder compresses RGBA payloads with a fixed codec. It is safe for
// concurrent use.
type encoder struct {
	codec Codec
	zenc  *zstd.Encoder
}

func newEncoder(c Codec) (*encoder, error) {
	e := &encoder{codec: c}
	switch c {
	case Raw, Snappy:
	case Zstd:
		zenc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, fmt.Errorf("stream: zstd encoder: %w", err)
		}
		e.zenc = zenc
	default:
		return nil, fmt.Errorf("stream: unknown codec %v", c)
	}
	return e, nil
}

// message builds a complete frame message for rgba.
func (e *encoder) message(h Header, rgba []byte) []byte {
	buf := make([]byte, headerSize, headerSize+len(rgba))
	binary.BigEndian.PutUint64(buf[0:8], h.Seq)
	binary.BigEndian.PutUint32(buf[8:12], uint32(h.Width))
	binary.BigEndian.PutUint32(buf[12:16], uint32(h.Height))
	buf[16] = byte(e.codec)

	switch e.codec {
	case Snappy:
		return append(buf, snappy.Encode(nil, rgba)...)
	case Zstd:
		return e.zenc.EncodeAll(rgba, buf)
	}
	return append(buf, rgba...)
}

func (e *encoder) close() error {
	if e.zenc != nil {
		return e.zenc.Close()
	}
	return nil
}

// DecodeMessage splits a frame message into its header and RGBA pixels.
func DecodeMessage(msg []byte) (Header, []byte, error) {
	if len(msg) < headerSize {
		return Header{}, nil, ErrShortMessage
	}
	w := binary.BigEndian.Uint32(msg[8:12])
	ht := binary.BigEndian.Uint32(msg[12:16])
	if n := uint64(w) * uint64(ht); n > MaxFramePixels {
		return Header{}, nil, fmt.Errorf("stream: frame %dx%d exceeds %d pixels", w, ht, MaxFramePixels)
	}
	h := Header{
		Seq:    binary.BigEndian.Uint64(msg[0:8]),
		Width:  int(w),
		Height: int(ht),
		Codec:  Codec(msg[16]),
	}
	payload := msg[headerSize:]

	var rgba []byte
	var err error
	switch h.Codec {
	case Raw:
		rgba = payload
	case Snappy:
		rgba, err = snappy.Decode(nil, payload)
	case Zstd:
		var dec *zstd.Decoder
		dec, err = zstd.NewReader(nil)
		if err == nil {
			rgba, err = dec.DecodeAll(payload, nil)
			dec.Close()
		}
	default:
		return h, nil, fmt.Errorf("stream: unknown codec %v", h.Codec)
	}
	if err != nil {
		return h, nil, fmt.Errorf("stream: decode %v payload: %w", h.Codec, err)
	}
	if want := h.Width * h.Height * 4; len(rgba) != want {
		return h, nil, fmt.Errorf("stream: payload is %d bytes, want %d for %dx%d", len(rgba), want, h.Width, h.Height)
	}
	return h, rgba, nil
}
