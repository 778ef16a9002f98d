package media

import (
	"context"
	"errors"
	"image"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/photomapper/constants"
)

func newTestThumbnailer(heic Decoder) *Thumbnailer {
	return NewThumbnailer(nil, heic, ThumbnailOptions{MaxSide: 64, Quality: 0.8}, nil)
}

func TestThumbnailer_GeneratesPreview(t *testing.T) {
	th := newTestThumbnailer(nil)
	asset, ok := th.Generate(context.Background(), NewSourceFile("sunset.jpg", "image/jpeg", jpegBytes(t, 200, 100), fixedNow))
	require.True(t, ok)
	assert.Equal(t, "sunset-thumb.jpg", asset.Name)
	assert.Equal(t, constants.MimeJPEG, asset.MIME)

	w, h := decodeSize(t, asset.Data)
	assert.Equal(t, 64, w)
	assert.Equal(t, 32, h)
}

func TestThumbnailer_RefusesRawWithoutReading(t *testing.T) {
	th := newTestThumbnailer(nil)
	for _, f := range []struct{ name, declared string }{
		{"scan.dng", ""},
		{"scan.DNG", "image/jpeg"},
		{"film.tiff", ""},
		{"film.tif", ""},
		{"export", "image/tiff"},
		{"export", "image/x-adobe-dng"},
	} {
		read := false
		src := NewLazySourceFile(f.name, f.declared, 50<<20, fixedNow, func() (io.ReadCloser, error) {
			read = true
			return nil, errors.New("should not be read")
		})
		asset, ok := th.Generate(context.Background(), src)
		assert.False(t, ok, f.name)
		assert.Nil(t, asset, f.name)
		assert.False(t, read, f.name)
	}
}

func TestThumbnailer_AbsorbsFailures(t *testing.T) {
	corrupt := append(heicHeader("heic"), []byte("corrupted payload")...)
	tests := []struct {
		name string
		heic Decoder
		src  SourceFile
	}{
		{"corrupt heic", &fakeDecoder{err: errors.New("bad container")}, NewSourceFile("a.heic", "", corrupt, fixedNow)},
		{"heic without decoder", nil, NewSourceFile("a.heic", "", corrupt, fixedNow)},
		{"heic decoder returns junk", &fakeDecoder{out: []byte("junk")}, NewSourceFile("a.heic", "", corrupt, fixedNow)},
		{"zero bytes", nil, NewSourceFile("empty.jpg", "image/jpeg", nil, fixedNow)},
		{"unreadable", nil, failingOpen("gone.jpg")},
		{"garbage", nil, NewSourceFile("x.png", "image/png", []byte("not a png at all"), fixedNow)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := newTestThumbnailer(tt.heic)
			assert.NotPanics(t, func() {
				asset, ok := th.Generate(context.Background(), tt.src)
				assert.False(t, ok)
				assert.Nil(t, asset)
			})
		})
	}
}

func TestThumbnailer_HEICPath(t *testing.T) {
	th := newTestThumbnailer(&fakeDecoder{out: jpegBytes(t, 128, 96)})
	asset, ok := th.Generate(context.Background(), NewSourceFile("IMG_1.HEIC", "", heicHeader("heic"), fixedNow))
	require.True(t, ok)
	assert.Equal(t, "IMG_1-thumb.jpg", asset.Name)
	w, h := decodeSize(t, asset.Data)
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)
}

func TestThumbnailer_FallbackDecoder(t *testing.T) {
	primaryFails := func([]byte, string) (image.Image, error) { return nil, errors.New("bitmap decode unavailable") }

	th := newTestThumbnailer(nil).WithDecoders(primaryFails, decodeByMIME)
	_, ok := th.Generate(context.Background(), NewSourceFile("logo.png", "", pngBytes(t, 32, 32), fixedNow))
	assert.True(t, ok)

	th = newTestThumbnailer(nil).WithDecoders(primaryFails, primaryFails)
	_, ok = th.Generate(context.Background(), NewSourceFile("logo.png", "", pngBytes(t, 32, 32), fixedNow))
	assert.False(t, ok)
}

func TestThumbnailer_PanicIsAbsorbed(t *testing.T) {
	boom := func([]byte, string) (image.Image, error) { panic("decoder crashed") }
	th := newTestThumbnailer(nil).WithDecoders(boom, nil)
	assert.NotPanics(t, func() {
		_, ok := th.Generate(context.Background(), NewSourceFile("a.jpg", "", jpegBytes(t, 8, 8), fixedNow))
		assert.False(t, ok)
	})
}

func TestThumbnailer_DoesNotTouchPrimaryAsset(t *testing.T) {
	ctx := context.Background()
	src := NewSourceFile("a.jpg", "image/jpeg", jpegBytes(t, 300, 200), fixedNow)

	primary, err := NewCompressor(160, 0.8, nil).Compress(ctx, src)
	require.NoError(t, err)
	before := append([]byte(nil), primary.Data...)

	boom := func([]byte, string) (image.Image, error) { return nil, errors.New("no") }
	_, ok := newTestThumbnailer(nil).WithDecoders(boom, boom).Generate(ctx, src)
	assert.False(t, ok)
	assert.Equal(t, before, primary.Data)
	assert.Equal(t, "a.jpg", primary.Name)
}

func TestThumbnailer_OversizedHeaderNeverReachesDecoder(t *testing.T) {
	calls := 0
	counting := func(data []byte, mime string) (image.Image, error) {
		calls++
		return decodeRegistered(data, mime)
	}
	th := newTestThumbnailer(nil).WithDecoders(counting, counting)

	for _, src := range []SourceFile{
		NewSourceFile("bomb.png", "image/png", pngHeaderOnly(60000, 60000, 0), fixedNow),
		NewSourceFile("bomb.png", "", pngHeaderOnly(60000, 60000, 16<<10), fixedNow),
	} {
		asset, ok := th.Generate(context.Background(), src)
		assert.False(t, ok)
		assert.Nil(t, asset)
	}
	assert.Zero(t, calls)
}

func TestThumbnailer_PixelBudgetOption(t *testing.T) {
	src := NewSourceFile("a.jpg", "image/jpeg", jpegBytes(t, 200, 100), fixedNow)

	small := NewThumbnailer(nil, nil, ThumbnailOptions{MaxSide: 64, MaxPixels: 10_000}, nil)
	_, ok := small.Generate(context.Background(), src)
	assert.False(t, ok)

	def := NewThumbnailer(nil, nil, ThumbnailOptions{MaxSide: 64}, nil)
	assert.Equal(t, DefaultMaxPixels, def.opts.MaxPixels)
	_, ok = def.Generate(context.Background(), src)
	assert.True(t, ok)
}
