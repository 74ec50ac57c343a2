// Package thumbs renders the cached 64/128/256px icon variants for shortcuts
// whose icon is an embedded data URI. Decoding failures are absorbed: the
// caller receives a null triple and proceeds with the write.
package thumbs

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

var sizes = []int{64, 128, 256}

// Generator renders square PNG thumbnails from embedded icons.
type Generator struct {
	logger *zap.Logger
}

// NewGenerator constructs a Generator. A nil logger disables diagnostics.
func NewGenerator(logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{logger: logger}
}

// Generate produces the 64/128/256 variants as PNG data URIs. Remote icon
// URLs and undecodable payloads yield a null triple; thumbnailing never fails
// the enclosing shortcut write.
func (g *Generator) Generate(iconURL string) (icon64, icon128, icon256 *string) {
	source, ok := decodeDataURI(iconURL)
	if !ok {
		return nil, nil, nil
	}

	img, _, err := image.Decode(bytes.NewReader(source))
	if err != nil {
		g.logger.Debug("icon decode failed", zap.Error(err))
		return nil, nil, nil
	}

	variants := make([]*string, len(sizes))
	for i, size := range sizes {
		encoded, err := encodeThumbnail(img, size)
		if err != nil {
			g.logger.Debug("thumbnail encode failed", zap.Int("size", size), zap.Error(err))
			return nil, nil, nil
		}
		variants[i] = &encoded
	}
	return variants[0], variants[1], variants[2]
}

// decodeDataURI extracts the raw bytes of a data:image/...;base64 URI.
func decodeDataURI(value string) ([]byte, bool) {
	if !strings.HasPrefix(value, "data:image") {
		return nil, false
	}
	comma := strings.IndexByte(value, ',')
	if comma < 0 {
		return nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(value[comma+1:])
	if err != nil {
		return nil, false
	}
	return raw, true
}

func encodeThumbnail(img image.Image, size int) (string, error) {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
