package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"yatube/internal/config"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/validation"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
)

const (
	DefaultMediaDir             = "media"
	DefaultImageMaxUploadSizeMB = 5
	// ThumbnailWidth and ThumbnailHeight size the center-cropped preview.
	ThumbnailWidth  = 960
	ThumbnailHeight = 339
	WebPQuality     = 80
	// PostImageDir is the media subdirectory for post uploads.
	PostImageDir = "posts"
	MediaURL     = "/media/"
)

// ImageUpload is a file received from a form.
type ImageUpload struct {
	Filename string
	Content  []byte
}

// StoredImage holds media-relative paths of a saved upload.
type StoredImage struct {
	Path      string
	Thumbnail string
}

// ImageService validates uploads and writes them under the media root.
type ImageService struct {
	mediaDir           string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	mediaDir := DefaultMediaDir
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	if cfg != nil {
		if cfg.MediaDir != "" {
			mediaDir = cfg.MediaDir
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
	}
	return &ImageService{
		mediaDir:           mediaDir,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// MediaDir returns the filesystem root served under MediaURL.
func (s *ImageService) MediaDir() string {
	return s.mediaDir
}

// Validate decodes the upload and reports problems as an image field error.
func (s *ImageService) Validate(up *ImageUpload) (image.Image, models.FieldErrors) {
	img, _, err := validation.ValidateImage(up.Filename, up.Content, s.maxUploadSizeBytes)
	if err != nil {
		errs := models.FieldErrors{}
		errs.Add(validation.FieldImage, err.Error())
		middleware.FormRejections.WithLabelValues("image").Inc()
		return nil, errs
	}
	return img, nil
}

// Store writes the original bytes and a WebP thumbnail. The upload must
// already have passed Validate.
func (s *ImageService) Store(ctx context.Context, up *ImageUpload, img image.Image) (*StoredImage, error) {
	ext, ok := validation.ImageExtension(up.Filename)
	if !ok {
		return nil, models.NewValidationError("file extension is not allowed")
	}
	name := uuid.NewString()
	original := path.Join(PostImageDir, name+ext)
	thumb := path.Join(PostImageDir, "thumbs", name+".webp")

	if err := writeBytesToFile(s.abs(original), up.Content); err != nil {
		return nil, models.NewInternalError(err)
	}

	encoded, err := encodeWebP(Thumbnail(img, ThumbnailWidth, ThumbnailHeight), WebPQuality)
	if err != nil {
		s.Remove(ctx, original)
		return nil, models.NewInternalError(fmt.Errorf("encode thumbnail: %w", err))
	}
	if err := writeBytesToFile(s.abs(thumb), encoded); err != nil {
		s.Remove(ctx, original)
		return nil, models.NewInternalError(err)
	}

	return &StoredImage{Path: original, Thumbnail: thumb}, nil
}

// Remove deletes media-relative files, ignoring ones already gone.
func (s *ImageService) Remove(ctx context.Context, rels ...string) {
	for _, rel := range rels {
		if rel == "" {
			continue
		}
		if err := os.Remove(s.abs(rel)); err != nil && !errors.Is(err, os.ErrNotExist) {
			middleware.Logger.WarnContext(ctx, "failed to remove media file",
				slog.String("path", rel),
				slog.String("error", err.Error()),
			)
		}
	}
}

// URL maps a media-relative path to its public URL.
func URL(rel string) string {
	if rel == "" {
		return ""
	}
	return MediaURL + strings.TrimPrefix(rel, "/")
}

func (s *ImageService) abs(rel string) string {
	return filepath.Join(s.mediaDir, filepath.FromSlash(rel))
}

// Thumbnail center-crops src to the w:h aspect ratio and scales it to w x h.
func Thumbnail(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw <= 0 || sh <= 0 {
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}

	cropW, cropH := sw, sw*h/w
	if cropH > sh {
		cropH = sh
		cropW = sh * w / h
	}
	if cropW < 1 {
		cropW = 1
	}
	if cropH < 1 {
		cropH = 1
	}
	x0 := b.Min.X + (sw-cropW)/2
	y0 := b.Min.Y + (sh-cropH)/2

	cropped := image.NewRGBA(image.Rect(0, 0, cropW, cropH))
	draw.Draw(cropped, cropped.Bounds(), src, image.Point{X: x0, Y: y0}, draw.Src)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), cropped, cropped.Bounds(), xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBytesToFile(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}
