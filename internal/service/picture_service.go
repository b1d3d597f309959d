package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"decider/internal/config"
	"decider/internal/models"
	"decider/internal/observability"
	"decider/internal/repository"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaDir             = "./media"
	DefaultMediaURLPrefix       = "/media"
	DefaultImageMaxUploadSizeMB = 10
	MasterMaxSize               = 2048
	PreviewMaxSize              = 640
	JPEGQuality                 = 82
	WebPQuality                 = 70
)

type UploadPictureInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

type PictureService struct {
	repo               repository.PictureRepository
	mediaDir           string
	urlPrefix          string
	maxUploadSizeBytes int64
}

func NewPictureService(repo repository.PictureRepository, cfg *config.Config) *PictureService {
	mediaDir := DefaultMediaDir
	urlPrefix := DefaultMediaURLPrefix
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB

	if cfg != nil {
		if cfg.MediaDir != "" {
			mediaDir = cfg.MediaDir
		}
		if cfg.MediaURLPrefix != "" {
			urlPrefix = cfg.MediaURLPrefix
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
	}

	return &PictureService{
		repo:               repo,
		mediaDir:           mediaDir,
		urlPrefix:          strings.TrimRight(urlPrefix, "/"),
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// MediaDir is the directory pictures are written to.
func (s *PictureService) MediaDir() string { return s.mediaDir }

// URLPrefix is the public path the media directory is served under.
func (s *PictureService) URLPrefix() string { return s.urlPrefix }

// Upload stores a JPEG master and a WebP preview of the image and records
// them under a new uid.
func (s *PictureService) Upload(ctx context.Context, in UploadPictureInput) (*models.Picture, error) {
	if len(in.Content) == 0 {
		return nil, models.NewAppError(models.KindBadImage, "No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewAppError(models.KindBadImage,
			fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}
	if !isAllowedImageMIME(http.DetectContentType(in.Content)) {
		return nil, models.NewAppError(models.KindBadImage, "Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewAppError(models.KindBadImage, "Invalid image file")
	}

	ctx, span := observability.Start(ctx, "PictureService.Upload",
		attribute.String("image.format", format),
		attribute.Int("image.bytes", len(in.Content)),
	)
	defer span.End()

	master, err := encodeJPEG(resizeToFit(decoded, MasterMaxSize, MasterMaxSize), JPEGQuality)
	if err != nil {
		return nil, uploadFailed(observability.Fail(span, err))
	}
	preview, err := encodeWebP(resizeToFit(decoded, PreviewMaxSize, PreviewMaxSize), WebPQuality)
	if err != nil {
		return nil, uploadFailed(observability.Fail(span, err))
	}

	uid := uuid.NewString()
	masterName := uid + ".jpg"
	previewName := uid + "_preview.webp"
	masterPath := filepath.Join(s.mediaDir, masterName)
	previewPath := filepath.Join(s.mediaDir, previewName)
	written := []string{masterPath, previewPath}

	if err := writeBytesToFile(masterPath, master); err != nil {
		return nil, uploadFailed(observability.Fail(span, err))
	}
	if err := writeBytesToFile(previewPath, preview); err != nil {
		cleanupImageFiles(written)
		return nil, uploadFailed(observability.Fail(span, err))
	}

	pic := &models.Picture{
		UID:        uid,
		URL:        s.urlPrefix + "/" + masterName,
		PreviewURL: s.urlPrefix + "/" + previewName,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, pic); err != nil {
		cleanupImageFiles(written)
		return nil, uploadFailed(observability.Fail(span, err))
	}
	return pic, nil
}

func uploadFailed(err error) error {
	return &models.AppError{Kind: models.KindImageUploadFailed, Err: err}
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	if s := float64(maxHeight) / float64(h); s < scale {
		scale = s
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func cleanupImageFiles(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
