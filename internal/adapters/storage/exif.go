package storage

import (
	"io"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// PhotoMetadata holds EXIF details extracted from an uploaded source photo.
// Extraction is best-effort: phone uploads frequently strip or mangle EXIF,
// so a zero PhotoMetadata is a normal outcome, not an error.
type PhotoMetadata struct {
	CameraMake  string
	CameraModel string
	Orientation int
	TakenAt     time.Time
}

// InspectPhoto reads EXIF metadata from an image stream. It never fails the
// upload path; callers use the result for logging and diagnostics only.
func InspectPhoto(r io.Reader) PhotoMetadata {
	var meta PhotoMetadata

	x, err := exif.Decode(r)
	if err != nil {
		return meta
	}

	if tag, err := x.Get(exif.Make); err == nil {
		meta.CameraMake, _ = tag.StringVal()
	}
	if tag, err := x.Get(exif.Model); err == nil {
		meta.CameraModel, _ = tag.StringVal()
	}
	if tag, err := x.Get(exif.Orientation); err == nil {
		meta.Orientation, _ = tag.Int(0)
	}
	if taken, err := x.DateTime(); err == nil {
		meta.TakenAt = taken
	}

	return meta
}
