package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"

	// bmp, tiff and webp register themselves with image.Decode on import.
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/joseph-ayodele/photomapper/constants"
)

// DefaultMaxPixels bounds width*height of anything handed to a bitmap decoder.
const DefaultMaxPixels int64 = 64_000_000

// ImageDecoder decodes raw bytes into a bitmap. mime is a hint and may be empty.
type ImageDecoder func(data []byte, mime string) (image.Image, error)

// decodeRegistered sniffs the header through the image format registry.
func decodeRegistered(data []byte, _ string) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// decodeByMIME picks a codec from the MIME hint instead of the header.
func decodeByMIME(data []byte, mime string) (image.Image, error) {
	r := bytes.NewReader(data)
	switch mime {
	case constants.MimeJPEG:
		return jpeg.Decode(r)
	case constants.MimePNG:
		return png.Decode(r)
	case constants.MimeGIF:
		return gif.Decode(r)
	case constants.MimeWEBP:
		return webp.Decode(r)
	case constants.MimeTIFF:
		return tiff.Decode(r)
	case "image/bmp":
		return bmp.Decode(r)
	}
	return nil, fmt.Errorf("no decoder for %q", mime)
}

// headerConfigs returns every header reading available for data: the one from
// the format registry and, when it differs, the one for the MIME hint.
func headerConfigs(data []byte, mime string) []image.Config {
	var out []image.Config
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		out = append(out, cfg)
	}
	var decodeConfig func(io.Reader) (image.Config, error)
	switch mime {
	case constants.MimeJPEG:
		decodeConfig = jpeg.DecodeConfig
	case constants.MimePNG:
		decodeConfig = png.DecodeConfig
	case constants.MimeGIF:
		decodeConfig = gif.DecodeConfig
	case constants.MimeWEBP:
		decodeConfig = webp.DecodeConfig
	case constants.MimeTIFF:
		decodeConfig = tiff.DecodeConfig
	case "image/bmp":
		decodeConfig = bmp.DecodeConfig
	}
	if decodeConfig != nil {
		if cfg, err := decodeConfig(bytes.NewReader(data)); err == nil {
			out = append(out, cfg)
		}
	}
	return out
}

// checkPixels rejects data whose header claims more than maxPixels. It reads
// the header only; a header no codec understands passes here and fails in the
// decoder instead.
func checkPixels(data []byte, mime string, maxPixels int64) error {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	for _, cfg := range headerConfigs(data, mime) {
		if cfg.Width < 0 || cfg.Height < 0 {
			return fmt.Errorf("negative dimensions %dx%d", cfg.Width, cfg.Height)
		}
		if px := int64(cfg.Width) * int64(cfg.Height); px > maxPixels {
			return fmt.Errorf("%dx%d is %d pixels, limit %d", cfg.Width, cfg.Height, px, maxPixels)
		}
	}
	return nil
}

// ScaledSize fits w×h inside maxDim on the longer side with one uniform factor.
// It never upscales; maxDim <= 0 disables scaling.
func ScaledSize(w, h, maxDim int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	longest := w
	if h > longest {
		longest = h
	}
	if maxDim <= 0 || longest <= maxDim {
		return w, h
	}
	scale := float64(maxDim) / float64(longest)
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	if nw > maxDim {
		nw = maxDim
	}
	if nh > maxDim {
		nh = maxDim
	}
	return nw, nh
}

// render draws img onto an opaque w×h canvas. JPEG has no alpha, so
// transparent pixels land on white instead of black.
func render(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality float64, fallback float64) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: qualityPercent(quality, fallback)}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// qualityPercent maps a (0,1] factor to the 1..100 scale encoders expect.
func qualityPercent(q, fallback float64) int {
	if q <= 0 || q > 1 {
		q = fallback
	}
	p := int(math.Round(q * 100))
	if p < 1 {
		p = 1
	}
	if p > 100 {
		p = 100
	}
	return p
}

func isJPEG(b []byte) bool {
	return len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8
}
