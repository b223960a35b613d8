package assetexport

import (
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"golang.org/x/image/tiff"
)

const jpegQuality = 95

type encoder struct {
	ext    string
	encode imgio.Encoder
}

func encodeTIFF(w io.Writer, img image.Image) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
}

func encoderFor(format string) (encoder, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "", "png":
		return encoder{ext: ".png", encode: imgio.PNGEncoder()}, nil
	case "jpg", "jpeg":
		return encoder{ext: ".jpg", encode: imgio.JPEGEncoder(jpegQuality)}, nil
	case "bmp":
		return encoder{ext: ".bmp", encode: imgio.BMPEncoder()}, nil
	case "tif", "tiff":
		return encoder{ext: ".tiff", encode: encodeTIFF}, nil
	}
	return encoder{}, fmt.Errorf("assetexport: image format %q: %w", format, ErrUnsupportedFormat)
}
