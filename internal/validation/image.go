package validation

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"net/http"
	"path/filepath"
	"strings"

	// Decoders for every accepted upload format.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrImageEmpty     = errors.New("the submitted file is empty")
	ErrImageExtension = errors.New("file extension is not allowed")
	ErrImageContent   = errors.New("upload a valid image; the file you uploaded was either not an image or a corrupted image")
)

var allowedImageExtensions = map[string]string{
	".bmp":  "bmp",
	".gif":  "gif",
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".webp": "webp",
	".tif":  "tiff",
	".tiff": "tiff",
}

// AllowedImageExtensions lists accepted file extensions.
func AllowedImageExtensions() []string {
	return []string{".bmp", ".gif", ".jpeg", ".jpg", ".png", ".tif", ".tiff", ".webp"}
}

// ImageExtension returns the lower-cased extension when it is accepted.
func ImageExtension(filename string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := allowedImageExtensions[ext]
	return ext, ok
}

// ValidateImage checks name, size and decodability of an upload.
// It returns the decoded image and its format.
func ValidateImage(filename string, content []byte, maxBytes int64) (image.Image, string, error) {
	if len(content) == 0 {
		return nil, "", ErrImageEmpty
	}
	if maxBytes > 0 && int64(len(content)) > maxBytes {
		return nil, "", fmt.Errorf("file too large (max %dMB)", maxBytes/(1024*1024))
	}
	if _, ok := ImageExtension(filename); !ok {
		return nil, "", fmt.Errorf("%w: allowed extensions are %s", ErrImageExtension, strings.Join(AllowedImageExtensions(), ", "))
	}

	detected := http.DetectContentType(content)
	if !strings.HasPrefix(detected, "image/") && detected != "application/octet-stream" {
		return nil, "", ErrImageContent
	}

	img, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, "", ErrImageContent
	}
	return img, format, nil
}
