package utils

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// IsImage reports whether path has an extension the image loader can decode.
func IsImage(path string) bool {
	extension := strings.ToLower(filepath.Ext(path))
	switch extension {
	case ".png":
		return true
	case ".jpg", ".jpeg":
		return true
	case ".gif":
		return true
	case ".bmp":
		return true
	case ".tif", ".tiff":
		return true
	case ".webp":
		return true
	default:
		return false
	}
}

func NotImage(path string) bool {
	return !IsImage(path)
}

// IsMask reports whether path looks like a mask visualization written by this tool.
func IsMask(path string) bool {
	return strings.HasSuffix(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), "_mask")
}

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
