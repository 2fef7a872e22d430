package offscreen

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
)

// SnapshotFormat is a lossless image format for exported frames.
type SnapshotFormat int

const (
	// PNG is the default snapshot format
	PNG SnapshotFormat = iota
	// WebP is lossless WebP (VP8L)
	WebP
)

// ErrUnknownSnapshotFormat is returned for unsupported snapshot file types.
var ErrUnknownSnapshotFormat = errors.New("unknown snapshot format")

// Ext returns the file extension including the leading dot.
func (f SnapshotFormat) Ext() string {
	if f == WebP {
		return ".webp"
	}
	return ".png"
}

func (f SnapshotFormat) String() string {
	return strings.TrimPrefix(f.Ext(), ".")
}

// ParseSnapshotFormat converts "png" or "webp" to a SnapshotFormat.
func ParseSnapshotFormat(name string) (SnapshotFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "png":
		return PNG, nil
	case "webp":
		return WebP, nil
	default:
		return PNG, fmt.Errorf("%w: %q", ErrUnknownSnapshotFormat, name)
	}
}

// EncodeSnapshot writes img to w in the given format.
func EncodeSnapshot(w io.Writer, img image.Image, format SnapshotFormat) error {
	switch format {
	case PNG:
		return png.Encode(w, img)
	case WebP:
		return nativewebp.Encode(w, img, nil)
	default:
		return ErrUnknownSnapshotFormat
	}
}

// snapshotFileName builds "<name>_<seq>.<ext>" with a four digit sequence.
func snapshotFileName(name string, seq int, format SnapshotFormat) string {
	return fmt.Sprintf("%s_%04d%s", name, seq, format.Ext())
}

// writeSnapshot stores img in fileName. The directory must already exist.
func writeSnapshot(fileName string, img image.Image) error {
	format, err := ParseSnapshotFormat(filepath.Ext(fileName))
	if err != nil {
		return err
	}

	file, err := os.Create(fileName)
	if err != nil {
		return err
	}

	if err := EncodeSnapshot(file, img, format); err != nil {
		file.Close()
		return fmt.Errorf("encode %s: %w", fileName, err)
	}
	return file.Close()
}
