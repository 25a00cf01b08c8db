// Package assets stores post images on Cloudinary.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strings"

	"scribe/models"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// MaxImageSize is the largest image accepted for upload.
const MaxImageSize = 10 << 20

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Uploader is the asset host used by the blog service.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, filename string) (models.Asset, error)
	Destroy(ctx context.Context, publicID string) error
}

type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
	preset string
}

// NewCloudinaryUploader builds an uploader from a cloudinary:// URL.
func NewCloudinaryUploader(cloudinaryURL, folder, preset string) (*CloudinaryUploader, error) {
	if cloudinaryURL == "" {
		return nil, errors.New("CLOUDINARY_URL is not set")
	}
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary configuration error: %w", err)
	}
	return NewCloudinaryUploaderFromClient(cld, folder, preset), nil
}

func NewCloudinaryUploaderFromClient(cld *cloudinary.Cloudinary, folder, preset string) *CloudinaryUploader {
	if folder == "" {
		folder = "scribe/blogs"
	}
	return &CloudinaryUploader{cld: cld, folder: folder, preset: preset}
}

// Upload checks size and content type before anything leaves the process.
// Every failure is reported as UploadFailed.
func (u *CloudinaryUploader) Upload(ctx context.Context, file io.Reader, filename string) (models.Asset, error) {
	data, err := ReadImage(file)
	if err != nil {
		return models.Asset{}, err
	}

	params := uploader.UploadParams{
		Folder:       u.folder,
		PublicID:     publicIDFor(filename),
		UploadPreset: u.preset,
	}

	result, err := u.cld.Upload.Upload(ctx, bytes.NewReader(data), params)
	if err != nil {
		log.Printf("[Assets] upload %q failed: %v", filename, err)
		return models.Asset{}, models.NewUploadFailedError(err)
	}
	if result.Error.Message != "" {
		log.Printf("[Assets] upload %q rejected: %s", filename, result.Error.Message)
		return models.Asset{}, models.NewUploadFailedError(errors.New(result.Error.Message))
	}
	if result.SecureURL == "" {
		return models.Asset{}, models.NewUploadFailedError(errors.New("asset host returned no URL"))
	}

	return models.Asset{URL: result.SecureURL, PublicID: result.PublicID}, nil
}

func (u *CloudinaryUploader) Destroy(ctx context.Context, publicID string) error {
	if publicID == "" {
		return nil
	}
	result, err := u.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return err
	}
	if result.Error.Message != "" {
		return errors.New(result.Error.Message)
	}
	// "not found" means there is nothing left to clean up.
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("destroy %s: %s", publicID, result.Result)
	}
	return nil
}

// ReadImage reads at most MaxImageSize bytes and rejects anything that does
// not sniff as JPEG, PNG, GIF or WebP.
func ReadImage(file io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(file, MaxImageSize+1))
	if err != nil {
		return nil, models.NewUploadFailedError(err)
	}
	if len(data) == 0 {
		return nil, models.NewValidationError("Image is empty")
	}
	if len(data) > MaxImageSize {
		return nil, models.NewValidationError("Image too large (max 10MB)")
	}
	if ct := http.DetectContentType(data); !allowedTypes[ct] {
		return nil, models.NewValidationError("Unsupported image type: " + ct)
	}
	return data, nil
}

func publicIDFor(filename string) string {
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
	if base == "" || base == "." || base == "_" {
		base = "image"
	}
	if len(base) > 40 {
		base = base[:40]
	}
	return base + "_" + uuid.NewString()[:8]
}
