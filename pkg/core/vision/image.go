// Copyright Chicken-AI Breeds Authors
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"
)

// DefaultJPEGQuality matches the compression used by the mobile client.
const DefaultJPEGQuality = 80

// maxPixels rejects images whose decoded size would be unreasonable.
const maxPixels = 50_000_000

// EncodeImage decodes a still image (JPEG, PNG or GIF) and re-encodes it as
// JPEG at the given quality.
func EncodeImage(raw []byte, quality int) ([]byte, error) {
	if len(raw) == 0 {
		return nil, errors.New("empty image")
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("unsupported image dimensions %dx%d", cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

const jpegDataURIPrefix = "data:image/jpeg;base64,"

// DataURI wraps JPEG bytes in a base64 data URI.
func DataURI(jpegData []byte) string {
	return jpegDataURIPrefix + base64.StdEncoding.EncodeToString(jpegData)
}

// ParseDataURI decodes a base64 image data URI and returns its MIME type and
// payload.
func ParseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, errors.New("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("data URI has no payload")
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, errors.New("data URI is not base64 encoded")
	}
	if !strings.HasPrefix(mime, "image/") {
		return "", nil, fmt.Errorf("data URI media type %q is not an image", mime)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URI payload: %w", err)
	}
	return mime, data, nil
}
