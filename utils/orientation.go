package utils

import (
	"bytes"

	exif "github.com/dsoprea/go-exif/v3"
)

// ReadOrientation extracts the EXIF orientation tag (1-8) from encoded
// image bytes. It returns 0 when no EXIF block or no valid orientation is
// present; extraction is best-effort and never fails the caller.
func ReadOrientation(data []byte) int {
	tags, _, err := exif.GetFlatExifDataUniversalSearchWithReadSeeker(bytes.NewReader(data), nil, true)
	if err != nil {
		return 0
	}
	for _, tag := range tags {
		if tag.TagName != "Orientation" {
			continue
		}
		o := 0
		switch v := tag.Value.(type) {
		case []uint16:
			if len(v) > 0 {
				o = int(v[0])
			}
		case uint16:
			o = int(v)
		}
		if o >= 1 && o <= 8 {
			return o
		}
	}
	return 0
}
