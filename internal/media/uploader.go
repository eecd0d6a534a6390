package media

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/homelet-labs/homelet-back/internal/config"
)

// MaxImageSize is the upload size ceiling in bytes.
const MaxImageSize = 1 << 20

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

var (
	ErrImageMissing  = errors.New("an image is required")
	ErrImageTooLarge = errors.New("image size must be less than 1 MB")
	ErrImageType     = errors.New("image must be a JPEG, PNG, WebP or GIF file")
)

type (
	Upload struct {
		Filename    string
		ContentType string
		Data        []byte
	}

	// Uploader pushes an image to the external object store and returns its
	// publicly addressable URL.
	Uploader interface {
		Upload(ctx context.Context, u *Upload) (string, error)
	}

	CDNUploader struct {
		client    *resty.Client
		apiKey    string
		apiSecret string
		folder    string
		logger    *zap.SugaredLogger
	}

	uploadResponse struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
		Error     struct {
			Message string `json:"message"`
		} `json:"error"`
	}
)

// ValidateImage checks the upload constraints. It must pass before any call
// to an Uploader is made.
func ValidateImage(u *Upload) error {
	if u == nil || len(u.Data) == 0 {
		return ErrImageMissing
	}
	if len(u.Data) > MaxImageSize {
		return ErrImageTooLarge
	}
	if _, ok := allowedImageTypes[u.ContentType]; !ok {
		return ErrImageType
	}
	return nil
}

func NewUploader(cfg *config.Config, logger *zap.SugaredLogger) Uploader {
	client := resty.New().
		SetBaseURL(cfg.MediaBaseURL).
		SetTimeout(30 * time.Second)

	return &CDNUploader{
		client:    client,
		apiKey:    cfg.MediaAPIKey,
		apiSecret: cfg.MediaAPISecret,
		folder:    cfg.MediaFolder,
		logger:    logger,
	}
}

func (u *CDNUploader) Upload(ctx context.Context, upload *Upload) (string, error) {
	if err := ValidateImage(upload); err != nil {
		return "", err
	}

	publicID := uuid.New().String()
	if u.folder != "" {
		publicID = u.folder + "/" + publicID
	}
	timestamp := fmt.Sprintf("%d", time.Now().Unix())

	// The store expects a SHA1 signature over public_id and timestamp.
	signatureString := fmt.Sprintf("public_id=%s&timestamp=%s%s", publicID, timestamp, u.apiSecret)
	signature := fmt.Sprintf("%x", sha1.Sum([]byte(signatureString)))

	payload := "data:" + upload.ContentType + ";base64," + base64.StdEncoding.EncodeToString(upload.Data)

	result := uploadResponse{}
	resp, err := u.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"file":      payload,
			"api_key":   u.apiKey,
			"public_id": publicID,
			"timestamp": timestamp,
			"signature": signature,
		}).
		SetResult(&result).
		Post("/image/upload")
	if err != nil {
		return "", errors.Wrap(err, "upload request")
	}
	if resp.StatusCode() != http.StatusOK {
		return "", errors.Errorf("object store returned %d", resp.StatusCode())
	}
	if result.Error.Message != "" {
		return "", errors.Errorf("object store rejected upload: %s", result.Error.Message)
	}

	url := result.SecureURL
	if url == "" {
		url = result.URL
	}
	if url == "" {
		return "", errors.New("object store returned no URL")
	}

	u.logger.Infow("uploaded image", "public_id", publicID)
	return url, nil
}
