package storage

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"signalroom/internal/pkg/errs"
	"signalroom/internal/pkg/randx"
)

const (
	// MaxCoverSizeMB is the maximum allowed cover size in megabytes.
	MaxCoverSizeMB = 5

	// MaxCoverSize is the maximum allowed cover size in bytes.
	MaxCoverSize = MaxCoverSizeMB * 1024 * 1024

	// UploadURLDuration is how long a presigned upload URL stays valid.
	UploadURLDuration = 5 * time.Minute
)

// ExtToMIME maps the accepted cover file extensions to their MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// CoverUploadRequest describes the image a host is about to upload.
type CoverUploadRequest struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// CoverUpload is returned to the client: it PUTs the image to UploadURL and then
// passes CoverURL as the cover of its create message.
type CoverUpload struct {
	UploadURL string `json:"uploadUrl"`
	CoverURL  string `json:"coverUrl"`
	Key       string `json:"key"`
}

// ValidateCover checks the declared size and type of a cover image and returns
// its normalized extension.
func ValidateCover(req CoverUploadRequest) (string, *errs.CustomError) {
	if req.FileSize <= 0 {
		return "", errs.NewError(errs.ErrInvalidParams)
	}
	if req.FileSize > MaxCoverSize {
		return "", errs.NewError(errs.ErrFileSizeTooLarge, MaxCoverSizeMB)
	}

	ext := strings.ToLower(filepath.Ext(req.FileName))
	expectedMIME, ok := ExtToMIME[ext]
	if !ok || expectedMIME != strings.ToLower(req.MimeType) {
		return "", errs.NewError(errs.ErrFileTypeInvalid)
	}

	return ext, nil
}

// CoverService issues upload and read URLs for room cover images.
type CoverService struct {
	store         StorageService
	publicBaseURL string
	coverURLTTL   time.Duration
}

// NewCoverService wraps store. When publicBaseURL is empty, cover URLs are
// presigned GET URLs valid for coverURLTTL.
func NewCoverService(store StorageService, publicBaseURL string, coverURLTTL time.Duration) *CoverService {
	return &CoverService{
		store:         store,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		coverURLTTL:   coverURLTTL,
	}
}

// IssueUpload validates req, picks a fresh object key and presigns both the
// upload and the URL the room will advertise.
func (s *CoverService) IssueUpload(ctx context.Context, req CoverUploadRequest) (*CoverUpload, *errs.CustomError) {
	ext, customErr := ValidateCover(req)
	if customErr != nil {
		return nil, customErr
	}

	key := randx.CoverKey(ext)

	uploadURL, err := s.store.PresignUpload(ctx, key, ExtToMIME[ext], req.FileSize, UploadURLDuration)
	if err != nil {
		return nil, errs.NewError(errs.ErrFileStorageFailed)
	}

	coverURL, err := s.coverURL(ctx, key)
	if err != nil {
		return nil, errs.NewError(errs.ErrFileStorageFailed)
	}

	return &CoverUpload{UploadURL: uploadURL, CoverURL: coverURL, Key: key}, nil
}

func (s *CoverService) coverURL(ctx context.Context, key string) (string, error) {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key, nil
	}
	return s.store.PresignDownload(ctx, key, s.coverURLTTL)
}
