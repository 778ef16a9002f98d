package constants

import "strings"

// MIME types the pipeline emits or recognizes.
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeWEBP = "image/webp"
	MimeGIF  = "image/gif"
	MimeHEIC = "image/heic"
	MimeHEIF = "image/heif"
	MimeAVIF = "image/avif"
	MimeTIFF = "image/tiff"
	MimeDNG  = "image/x-adobe-dng"
)

// Output file name conventions.
const (
	JPEGExt     = ".jpg"
	ThumbSuffix = "-thumb"
)

// ExtToMime maps a lowercased extension (sans '.') to its MIME type.
var ExtToMime = map[string]string{
	"jpg":  MimeJPEG,
	"jpeg": MimeJPEG,
	"png":  MimePNG,
	"webp": MimeWEBP,
	"gif":  MimeGIF,
	"heic": MimeHEIC,
	"heif": MimeHEIF,
	"avif": MimeAVIF,
	"tiff": MimeTIFF,
	"tif":  MimeTIFF,
	"dng":  MimeDNG,
}

// AllowedExtensions holds the default extensions picked up from drop folders.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
	"gif":  {},
	"heic": {},
	"heif": {},
	"avif": {},
	"tiff": {},
	"tif":  {},
	"dng":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MimeForExt returns the MIME type for ext, or "" if unknown.
func MimeForExt(ext string) string {
	return ExtToMime[NormalizeExt(ext)]
}

// IsAllowedExt reports whether ext is one of the default drop-folder extensions.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif":
		return true
	}
	return false
}

// IsRawExt reports TIFF/DNG style extensions that are too heavy for previews.
func IsRawExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "tif", "tiff", "dng":
		return true
	}
	return false
}

// IsRawMime is the declared-type counterpart of IsRawExt.
func IsRawMime(mime string) bool {
	m := strings.ToLower(strings.TrimSpace(mime))
	return strings.Contains(m, "tiff") || strings.Contains(m, "dng")
}
