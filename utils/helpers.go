package utils

import (
	"bytes"
	"net/http"
)

const (
	formatJPEG    = "jpeg"
	formatPNG     = "png"
	formatWebP    = "webp"
	formatBMP     = "bmp"
	formatHEIF    = "heif"
	formatUnknown = "unknown"
)

// heifBrands are the ISO-BMFF ftyp brands that identify HEIF/HEIC containers.
var heifBrands = map[string]bool{
	"heic": true, "heix": true, "heim": true, "heis": true,
	"hevc": true, "hevx": true, "hevm": true, "hevs": true,
	"mif1": true, "msf1": true,
}

// DetectFormat sniffs the leading bytes of data and returns the image
// format name. Content sniffing, not the file extension, selects the
// decoder, so a mislabelled file still decodes correctly.
func DetectFormat(data []byte) string {
	if len(data) < 4 {
		return formatUnknown
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return formatJPEG
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return formatPNG
	}
	// BMP: 42 4D
	if data[0] == 'B' && data[1] == 'M' {
		return formatBMP
	}
	// WebP: RIFF....WEBP
	if len(data) >= 12 &&
		data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
		data[8] == 'W' && data[9] == 'E' && data[10] == 'B' && data[11] == 'P' {
		return formatWebP
	}
	// HEIF/HEIC: size box, then "ftyp" and a known brand.
	if len(data) >= 12 && bytes.Equal(data[4:8], []byte("ftyp")) &&
		heifBrands[string(data[8:12])] {
		return formatHEIF
	}
	// Fallback to net/http sniffing.
	ct := http.DetectContentType(data)
	switch ct {
	case "image/jpeg":
		return formatJPEG
	case "image/png":
		return formatPNG
	case "image/webp":
		return formatWebP
	case "image/bmp":
		return formatBMP
	}
	return formatUnknown
}

// ScaleDimensions computes output (w, h) preserving aspect ratio.
// Pass 0 for either axis to calculate it from the other.
func ScaleDimensions(srcW, srcH, targetW, targetH int) (int, int) {
	if targetW == 0 && targetH == 0 {
		return srcW, srcH
	}
	if targetW == 0 {
		ratio := float64(targetH) / float64(srcH)
		return int(float64(srcW) * ratio), targetH
	}
	if targetH == 0 {
		ratio := float64(targetW) / float64(srcW)
		return targetW, int(float64(srcH) * ratio)
	}
	return targetW, targetH
}

// FitWithin scales (srcW, srcH) so the longer edge is at most maxEdge,
// preserving aspect ratio. It never upscales; maxEdge <= 0 disables it.
func FitWithin(srcW, srcH, maxEdge int) (int, int) {
	if maxEdge <= 0 || (srcW <= maxEdge && srcH <= maxEdge) {
		return srcW, srcH
	}
	if srcW >= srcH {
		return ScaleDimensions(srcW, srcH, maxEdge, 0)
	}
	return ScaleDimensions(srcW, srcH, 0, maxEdge)
}

// CloneBytes returns a copy of b (safe for use after the source buffer is released).
func CloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// BytesReader creates an io.Reader backed by b without allocation.
func BytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
