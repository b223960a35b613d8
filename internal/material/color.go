package material

import (
	"fmt"

	"github.com/chewxy/math32"

	"umap-export/internal/asset"
)

// SRGBFromLinearComp converts a linear color component to its gamma-encoded
// sRGB value. Input is clamped to [0,1].
func SRGBFromLinearComp(lin float32) float32 {
	lin = clamp01(lin)
	if lin <= 0.0031308 {
		return 12.92 * lin
	}
	return 1.055*math32.Pow(lin, 1/2.4) - 0.055
}

// compToUint8 scales a [0,1] component to a byte, flooring like the engine does.
func compToUint8(v float32) uint8 {
	return uint8(math32.Floor(clamp01(v) * 255.999))
}

func clamp01(v float32) float32 {
	if math32.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SRGBHex encodes a linear color as an sRGB hex string "RRGGBBAA".
// Color channels are gamma encoded, alpha is kept linear.
func SRGBHex(c asset.LinearColor) string {
	return fmt.Sprintf("%02X%02X%02X%02X",
		compToUint8(SRGBFromLinearComp(c.R)),
		compToUint8(SRGBFromLinearComp(c.G)),
		compToUint8(SRGBFromLinearComp(c.B)),
		compToUint8(c.A))
}
