package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultUploadDir         = "/tmp/inkwell/uploads"
	DefaultMaxUploadSizeMB   = 10
	UploadMasterMaxDimension = 2048
	UploadJPEGQuality        = 82
	UploadWebPQuality        = 70
)

type UploadInput struct {
	UserID      uint
	Filename    string
	ContentType string
	Content     []byte
}

// UploadResult points at the stored master image. URL is the canonical public
// path; WebPURL is a smaller alternate of the same image.
type UploadResult struct {
	URL     string `json:"url"`
	WebPURL string `json:"webp_url"`
}

// UploadService stores post images on local disk under per-upload uuid
// directories and serves them back at stable /media/ URLs.
type UploadService struct {
	uploadDir          string
	maxUploadSizeBytes int64
}

func NewUploadService(uploadDir string, maxUploadSizeMB int) *UploadService {
	if uploadDir == "" {
		uploadDir = DefaultUploadDir
	}
	if maxUploadSizeMB <= 0 {
		maxUploadSizeMB = DefaultMaxUploadSizeMB
	}
	return &UploadService{
		uploadDir:          uploadDir,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

func (s *UploadService) Dir() string {
	return s.uploadDir
}

func (s *UploadService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if in.UserID == 0 {
		return nil, models.NewValidationError("Invalid user")
	}
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}

	span, ctx := observability.NewSpan(ctx, "upload.image")
	defer span.End()
	span.AddAttributes(
		observability.UserID(in.UserID),
		observability.UploadBytes(int64(len(in.Content))),
	)
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return nil, models.NewValidationError("Unsupported image format")
	}

	master := resizeToFit(decoded, UploadMasterMaxDimension, UploadMasterMaxDimension)

	encodedJPG, err := encodeJPEG(master, UploadJPEGQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	encodedWebP, err := encodeWebP(master, UploadWebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	id := uuid.NewString()
	jpgRel := filepath.ToSlash(filepath.Join(id, "master.jpg"))
	webpRel := filepath.ToSlash(filepath.Join(id, "master.webp"))
	jpgAbs := filepath.Join(s.uploadDir, jpgRel)
	webpAbs := filepath.Join(s.uploadDir, webpRel)

	if err := writeBytesToFile(jpgAbs, encodedJPG); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := writeBytesToFile(webpAbs, encodedWebP); err != nil {
		_ = os.Remove(jpgAbs)
		return nil, models.NewInternalError(err)
	}

	middleware.Logger.InfoContext(ctx, "image uploaded",
		"upload_id", id,
		"filename", in.Filename,
		"bytes", len(encodedJPG),
	)

	return &UploadResult{
		URL:     "/media/" + jpgRel,
		WebPURL: "/media/" + webpRel,
	}, nil
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

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

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
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func writeBytesToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
