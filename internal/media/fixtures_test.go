package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	return img
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, gradient(w, h), &jpeg.Options{Quality: 80}))
	return buf.Bytes()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 10, B: 10, A: uint8((x * 255) / w)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// heicHeader is an ISO-BMFF ftyp box with the given major brand, padded past 32 bytes.
func heicHeader(brand string) []byte {
	b := []byte("\x00\x00\x00\x18ftyp" + brand + "\x00\x00\x00\x00mif1heic")
	return append(b, bytes.Repeat([]byte{0x00}, 64)...)
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
	return cfg.Width, cfg.Height
}

// fakeDecoder stands in for the platform HEIC primitive.
type fakeDecoder struct {
	out   []byte
	err   error
	calls int
}

func (d *fakeDecoder) DecodeToJPEG(_ context.Context, _ []byte, _ float64) ([]byte, error) {
	d.calls++
	return d.out, d.err
}

func failingOpen(name string) SourceFile {
	return NewLazySourceFile(name, "", 1<<20, fixedNow, func() (io.ReadCloser, error) {
		return nil, errors.New("backing data not available")
	})
}

// pngHeaderOnly is a PNG signature plus an IHDR chunk claiming w×h RGBA pixels
// and no image data, zero-padded to padTo bytes.
func pngHeaderOnly(w, h uint32, padTo int) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8], ihdr[9] = 8, 6 // 8-bit RGBA

	b := []byte("\x89PNG\r\n\x1a\n")
	b = binary.BigEndian.AppendUint32(b, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	b = append(b, chunk...)
	b = binary.BigEndian.AppendUint32(b, crc32.ChecksumIEEE(chunk))
	if len(b) < padTo {
		b = append(b, make([]byte, padTo-len(b))...)
	}
	return b
}
