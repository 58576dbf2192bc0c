package utils_test

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"heiconv/utils"
)

func ftypHeader(brand string) []byte {
	data := []byte{0x00, 0x00, 0x00, 0x18}
	data = append(data, []byte("ftyp")...)
	data = append(data, []byte(brand)...)
	return append(data, make([]byte, 12)...)
}

func TestDetectFormat(t *testing.T) {
	var pngBuf bytes.Buffer
	png.Encode(&pngBuf, image.NewRGBA(image.Rect(0, 0, 1, 1)))

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, "jpeg"},
		{"png", pngBuf.Bytes(), "png"},
		{"bmp", []byte{'B', 'M', 0x36, 0x00, 0x00}, "bmp"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "webp"},
		{"heic", ftypHeader("heic"), "heif"},
		{"heix", ftypHeader("heix"), "heif"},
		{"mif1", ftypHeader("mif1"), "heif"},
		{"msf1", ftypHeader("msf1"), "heif"},
		{"ftyp unknown brand", ftypHeader("mp42"), "unknown"},
		{"text", []byte("hello, this is text"), "unknown"},
		{"short", []byte{0x01, 0x02}, "unknown"},
		{"empty", nil, "unknown"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := utils.DetectFormat(tc.data); got != tc.want {
				t.Errorf("DetectFormat = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestScaleDimensions(t *testing.T) {
	tests := []struct {
		srcW, srcH, targetW, targetH int
		wantW, wantH                 int
	}{
		{800, 600, 400, 0, 400, 300},
		{800, 600, 0, 300, 400, 300},
		{800, 600, 200, 200, 200, 200},
		{800, 600, 0, 0, 800, 600},
	}
	for _, tc := range tests {
		gotW, gotH := utils.ScaleDimensions(tc.srcW, tc.srcH, tc.targetW, tc.targetH)
		if gotW != tc.wantW || gotH != tc.wantH {
			t.Errorf("ScaleDimensions(%d,%d,%d,%d) = %d,%d; want %d,%d",
				tc.srcW, tc.srcH, tc.targetW, tc.targetH, gotW, gotH, tc.wantW, tc.wantH)
		}
	}
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		srcW, srcH, maxEdge int
		wantW, wantH        int
	}{
		{800, 600, 400, 400, 300},
		{600, 800, 400, 300, 400},
		{800, 600, 0, 800, 600},
		{800, 600, 1000, 800, 600}, // never upscales
		{100, 100, 50, 50, 50},
		{1, 1, 400, 1, 1},
	}
	for _, tc := range tests {
		gotW, gotH := utils.FitWithin(tc.srcW, tc.srcH, tc.maxEdge)
		if gotW != tc.wantW || gotH != tc.wantH {
			t.Errorf("FitWithin(%d,%d,%d) = %d,%d; want %d,%d",
				tc.srcW, tc.srcH, tc.maxEdge, gotW, gotH, tc.wantW, tc.wantH)
		}
	}
}

func TestCloneBytes(t *testing.T) {
	src := []byte{1, 2, 3}
	clone := utils.CloneBytes(src)
	src[0] = 9
	if clone[0] != 1 {
		t.Error("clone shares backing array with source")
	}
}
