package media

import (
	"bytes"
	"context"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/photomapper/constants"
	"github.com/joseph-ayodele/photomapper/internal/common"
)

func TestScaledSize(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{4000, 3000, 1600, 1600, 1200},
		{3000, 4000, 1600, 1200, 1600},
		{1600, 1200, 1600, 1600, 1200},
		{800, 600, 1600, 800, 600},
		{4001, 3001, 1600, 1600, 1200},
		{5000, 1, 1600, 1600, 1},
		{1, 5000, 1600, 1, 1600},
		{640, 480, 0, 640, 480},
		{0, 10, 1600, 0, 0},
	}
	for _, tt := range tests {
		w, h := ScaledSize(tt.w, tt.h, tt.max)
		assert.Equal(t, tt.wantW, w, "%dx%d@%d", tt.w, tt.h, tt.max)
		assert.Equal(t, tt.wantH, h, "%dx%d@%d", tt.w, tt.h, tt.max)
	}
}

func TestCompressor_BoundsAndAspect(t *testing.T) {
	const maxDim = 160
	c := NewCompressor(maxDim, 0.8, nil)

	sizes := [][2]int{{400, 300}, {300, 400}, {160, 120}, {80, 60}, {161, 1}, {1, 500}, {333, 97}}
	for _, sz := range sizes {
		inW, inH := sz[0], sz[1]
		src := NewSourceFile("frame.png", "image/png", pngBytes(t, inW, inH), fixedNow)

		asset, err := c.Compress(context.Background(), src)
		require.NoError(t, err)
		assert.Equal(t, constants.MimeJPEG, asset.MIME)
		assert.Equal(t, "frame.jpg", asset.Name)

		outW, outH := decodeSize(t, asset.Data)
		assert.Equal(t, asset.Width, outW)
		assert.Equal(t, asset.Height, outH)
		assert.LessOrEqual(t, max(outW, outH), maxDim)

		// Aspect ratio within one pixel on the shorter side.
		if inW >= inH {
			assert.InDelta(t, float64(inH)*float64(outW)/float64(inW), float64(outH), 1.0, "%dx%d", inW, inH)
		} else {
			assert.InDelta(t, float64(inW)*float64(outH)/float64(inH), float64(outW), 1.0, "%dx%d", inW, inH)
		}
	}
}

func TestCompressor_NeverUpscalesAndIsIdempotent(t *testing.T) {
	c := NewCompressor(160, 0.8, nil)
	src := NewSourceFile("small.jpg", "image/jpeg", jpegBytes(t, 100, 80), fixedNow)

	first, err := c.Compress(context.Background(), src)
	require.NoError(t, err)
	second, err := c.Compress(context.Background(), first.AsSource())
	require.NoError(t, err)

	w1, h1 := decodeSize(t, first.Data)
	w2, h2 := decodeSize(t, second.Data)
	assert.Equal(t, [2]int{100, 80}, [2]int{w1, h1})
	assert.Equal(t, [2]int{w1, h1}, [2]int{w2, h2})
}

func TestCompressor_Defaults(t *testing.T) {
	c := NewCompressor(0, 1.5, nil)
	assert.Equal(t, DefaultMaxDimension, c.maxDimension)
	assert.Equal(t, DefaultJPEGQuality, c.quality)
}

func TestCompressor_DecodeFailed(t *testing.T) {
	c := NewCompressor(0, 0, nil)
	for name, src := range map[string]SourceFile{
		"garbage":    NewSourceFile("x.jpg", "image/jpeg", []byte("definitely not a jpeg"), fixedNow),
		"empty":      NewSourceFile("x.jpg", "image/jpeg", nil, fixedNow),
		"unreadable": failingOpen("x.jpg"),
		"raw heic":   NewSourceFile("x.heic", "", heicHeader("heic"), fixedNow),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Compress(context.Background(), src)
			assert.ErrorIs(t, err, common.ErrDecodeFailed)
		})
	}
}

func TestCompressor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCompressor(0, 0, nil).Compress(ctx, NewSourceFile("a.jpg", "", jpegBytes(t, 4, 4), fixedNow))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_HEICThenCompress(t *testing.T) {
	ctx := context.Background()
	src := NewSourceFile("photo.HEIC", "", heicHeader("heic"), fixedNow)

	cls := NewSniffer(nil).Classify(src)
	require.True(t, cls.IsHEIC)

	conv := newTestConverter(&fakeDecoder{out: jpegBytes(t, 2000, 1000)})
	prepared, err := conv.Prepare(ctx, src, cls)
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", prepared.Name)
	assert.Equal(t, constants.MimeJPEG, prepared.Type)

	asset, err := NewCompressor(1600, 0.8, nil).Compress(ctx, prepared)
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", asset.Name)
	w, h := decodeSize(t, asset.Data)
	assert.Equal(t, 1600, w)
	assert.Equal(t, 800, h)
}

func TestCompressor_TransparencyFlattensToWhite(t *testing.T) {
	asset, err := NewCompressor(0, 1, nil).Compress(context.Background(), NewSourceFile("alpha.png", "image/png", pngBytes(t, 40, 40), fixedNow))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(asset.Data))
	require.NoError(t, err)
	// Column zero is fully transparent in the source.
	r, g, b, _ := img.At(0, 20).RGBA()
	assert.Greater(t, r>>8, uint32(230))
	assert.Greater(t, g>>8, uint32(230))
	assert.Greater(t, b>>8, uint32(230))
}

func TestCompressor_RejectsOversizedHeaderBeforeDecoding(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		src  SourceFile
	}{
		{"tiny png claiming 60000x60000", NewSourceFile("bomb.png", "image/png", pngHeaderOnly(60000, 60000, 0), fixedNow)},
		{"padded past the picker gate", NewSourceFile("bomb.png", "", pngHeaderOnly(60000, 60000, 16<<10), fixedNow)},
		{"wrong extension", NewSourceFile("bomb.jpg", "image/jpeg", pngHeaderOnly(20000, 20000, 0), fixedNow)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset, err := NewCompressor(1600, 0.8, nil).Compress(ctx, tt.src)
			assert.ErrorIs(t, err, common.ErrDecodeFailed)
			assert.Contains(t, err.Error(), "limit")
			assert.Nil(t, asset)
		})
	}
}

func TestCompressor_WithMaxPixels(t *testing.T) {
	ctx := context.Background()
	src := NewSourceFile("a.jpg", "image/jpeg", jpegBytes(t, 200, 100), fixedNow)

	_, err := NewCompressor(1600, 0.8, nil).WithMaxPixels(19_999).Compress(ctx, src)
	assert.ErrorIs(t, err, common.ErrDecodeFailed)

	asset, err := NewCompressor(1600, 0.8, nil).WithMaxPixels(20_000).Compress(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 200, asset.Width)

	c := NewCompressor(1600, 0.8, nil).WithMaxPixels(0)
	assert.Equal(t, DefaultMaxPixels, c.maxPixels)
}
