package media

import (
	"bytes"
	"log/slog"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/photomapper/constants"
)

// sniffLen is how much of the header the byte-level rules look at.
const sniffLen = 32

// Source tells which signal produced a Classification.
type Source string

const (
	SourceNone         Source = ""
	SourceDeclaredType Source = "declared-type"
	SourceExtension    Source = "extension"
	SourceMagicBytes   Source = "magic-bytes"
)

// Classification is the sniffer's verdict for one file. An empty MIME means unknown.
type Classification struct {
	IsHEIC bool
	MIME   string
	Source Source
}

func (c Classification) Known() bool {
	return c.MIME != ""
}

// Rule inspects a file and reports a classification when it is confident.
type Rule func(f SourceFile) (Classification, bool)

// Sniffer runs its rules in order; the first confident rule wins.
type Sniffer struct {
	rules  []Rule
	logger *slog.Logger
}

// NewSniffer builds a sniffer from rules, or DefaultRules when none are given.
func NewSniffer(logger *slog.Logger, rules ...Rule) *Sniffer {
	if logger == nil {
		logger = slog.Default()
	}
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Sniffer{rules: rules, logger: logger}
}

// DefaultRules: declared HEIC, HEIC extension, HEIC brand, extension table,
// magic signatures, then any declared image type.
func DefaultRules() []Rule {
	return []Rule{
		DeclaredHEIC,
		ExtensionHEIC,
		BrandHEIC,
		ExtensionLookup,
		MagicSignature,
		DeclaredImage,
	}
}

func (s *Sniffer) Classify(f SourceFile) Classification {
	for _, rule := range s.rules {
		if c, ok := s.apply(rule, f); ok {
			s.logger.Debug("file classified", "file_name", f.Name, "mime", c.MIME, "is_heic", c.IsHEIC, "source", c.Source)
			return c
		}
	}
	s.logger.Debug("file not classified", "file_name", f.Name, "declared_type", f.Type)
	return Classification{}
}

// apply keeps a misbehaving rule from taking the whole chain down.
func (s *Sniffer) apply(rule Rule, f SourceFile) (c Classification, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("sniff rule panicked", "file_name", f.Name, "panic", r)
			c, ok = Classification{}, false
		}
	}()
	return rule(f)
}

var reHEICType = regexp.MustCompile(`(?i)^image/hei[cf](-sequence)?$`)

// DeclaredHEIC trusts a declared image/heic or image/heif type.
func DeclaredHEIC(f SourceFile) (Classification, bool) {
	t := strings.ToLower(strings.TrimSpace(f.Type))
	if !reHEICType.MatchString(t) {
		return Classification{}, false
	}
	mime := constants.MimeHEIC
	if strings.HasPrefix(t, constants.MimeHEIF) {
		mime = constants.MimeHEIF
	}
	return Classification{IsHEIC: true, MIME: mime, Source: SourceDeclaredType}, true
}

// ExtensionHEIC matches .heic/.heif in any case.
func ExtensionHEIC(f SourceFile) (Classification, bool) {
	ext := f.Ext()
	if !constants.IsHEICExt(ext) {
		return Classification{}, false
	}
	return Classification{IsHEIC: true, MIME: constants.MimeForExt(ext), Source: SourceExtension}, true
}

// heicBrands are ISO-BMFF "ftyp" major brands used by HEIC/HEIF containers.
var heicBrands = []struct {
	marker string
	mime   string
}{
	{"ftypheic", constants.MimeHEIC},
	{"ftypheix", constants.MimeHEIC},
	{"ftyphevc", constants.MimeHEIC},
	{"ftyphevx", constants.MimeHEIC},
	{"ftypheif", constants.MimeHEIF},
	{"ftypmif1", constants.MimeHEIF},
	{"ftypmsf1", constants.MimeHEIF},
}

// BrandHEIC looks for an ftyp brand marker anywhere in the first 32 bytes.
func BrandHEIC(f SourceFile) (Classification, bool) {
	head, err := f.Head(sniffLen)
	if err != nil {
		return Classification{}, false
	}
	ascii := string(head)
	for _, b := range heicBrands {
		if strings.Contains(ascii, b.marker) {
			return Classification{IsHEIC: true, MIME: b.mime, Source: SourceMagicBytes}, true
		}
	}
	return Classification{}, false
}

// ExtensionLookup maps the extension through the static table.
func ExtensionLookup(f SourceFile) (Classification, bool) {
	mime := constants.MimeForExt(f.Ext())
	if mime == "" {
		return Classification{}, false
	}
	return Classification{MIME: mime, Source: SourceExtension}, true
}

// MagicSignature recognizes JPEG, PNG, GIF and WEBP headers.
func MagicSignature(f SourceFile) (Classification, bool) {
	head, err := f.Head(sniffLen)
	if err != nil {
		return Classification{}, false
	}
	var mime string
	switch {
	case len(head) >= 2 && head[0] == 0xFF && head[1] == 0xD8:
		mime = constants.MimeJPEG
	case len(head) >= 4 && bytes.Equal(head[1:4], []byte("PNG")):
		mime = constants.MimePNG
	case bytes.HasPrefix(head, []byte("GIF8")):
		mime = constants.MimeGIF
	case len(head) >= 12 && bytes.HasPrefix(head, []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP")):
		mime = constants.MimeWEBP
	default:
		return Classification{}, false
	}
	return Classification{MIME: mime, Source: SourceMagicBytes}, true
}

// DeclaredImage is the last resort: any declared image/* type.
func DeclaredImage(f SourceFile) (Classification, bool) {
	t := strings.ToLower(strings.TrimSpace(f.Type))
	if !strings.HasPrefix(t, "image/") || len(t) == len("image/") {
		return Classification{}, false
	}
	return Classification{MIME: t, Source: SourceDeclaredType}, true
}
