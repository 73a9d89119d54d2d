// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package tiles

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/tomtom215/tidegate/internal/tier"
)

// transparentPNG encodes a 1x1 fully transparent image and proves it
// decodes back to the same shape.
func transparentPNG() ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode fallback tile: %w", err)
	}
	data := buf.Bytes()

	decoded, err := decodePNG(data)
	if err != nil {
		return nil, fmt.Errorf("fallback tile: %w", err)
	}
	if b := decoded.Bounds(); b.Dx() != 1 || b.Dy() != 1 {
		return nil, fmt.Errorf("fallback tile is %dx%d, want 1x1", b.Dx(), b.Dy())
	}
	if _, _, _, a := decoded.At(0, 0).RGBA(); a != 0 {
		return nil, fmt.Errorf("fallback tile is not transparent")
	}
	return data, nil
}

// maxTileDimension bounds the width and height of an upstream tile.
const maxTileDimension = 4096

// decodePNG fully decodes data once the header shows a sane size. Failures
// wrap tier.ErrImageDecode.
func decodePNG(data []byte) (image.Image, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tier.ErrImageDecode, err)
	}
	if cfg.Width > maxTileDimension || cfg.Height > maxTileDimension {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels per side", tier.ErrImageDecode, cfg.Width, cfg.Height, maxTileDimension)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tier.ErrImageDecode, err)
	}
	return img, nil
}
