package services

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	"photo-studio-backend/internal/supabase"
)

// ImageMirror copies provider-hosted images into durable storage so saved
// photos outlive the provider's temporary URLs.
type ImageMirror interface {
	MirrorPhoto(ctx context.Context, albumID, photoID, sourceURL string) (storagePath, publicURL string, err error)
	// RemovePhotos deletes mirrored objects. Failures are logged, never
	// returned: it runs after the owning rows are already gone.
	RemovePhotos(ctx context.Context, storagePaths []string)
}

type Downloader interface {
	DownloadFile(ctx context.Context, url string, maxBytes int64) ([]byte, string, error)
}

type ObjectStore interface {
	UploadFile(storagePath string, data []byte, contentType string) (string, error)
	DeleteFiles(storagePaths []string) error
}

type StorageService struct {
	downloader Downloader
	objects    ObjectStore
	maxBytes   int64
}

func NewStorageService(downloader Downloader, objects ObjectStore, maxBytes int64) *StorageService {
	return &StorageService{
		downloader: downloader,
		objects:    objects,
		maxBytes:   maxBytes,
	}
}

func (s *StorageService) MirrorPhoto(ctx context.Context, albumID, photoID, sourceURL string) (string, string, error) {
	data, contentType, err := s.downloader.DownloadFile(ctx, sourceURL, s.maxBytes)
	if err != nil {
		return "", "", fmt.Errorf("failed to download image: %w", err)
	}

	storagePath := supabase.PhotoPath(albumID, photoID, extension(contentType, sourceURL))
	publicURL, err := s.objects.UploadFile(storagePath, data, contentType)
	if err != nil {
		return "", "", err
	}

	log.WithFields(log.Fields{
		"photo_id":     photoID,
		"storage_path": storagePath,
		"size":         humanize.Bytes(uint64(len(data))),
	}).Info("mirrored photo")

	return storagePath, publicURL, nil
}

func (s *StorageService) RemovePhotos(ctx context.Context, storagePaths []string) {
	paths := make([]string, 0, len(storagePaths))
	for _, p := range storagePaths {
		if p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return
	}
	if err := s.objects.DeleteFiles(paths); err != nil {
		log.WithError(err).WithField("count", len(paths)).Warn("failed to remove mirrored photos")
		return
	}
	log.WithField("count", humanize.Comma(int64(len(paths)))).Info("removed mirrored photos")
}

func extension(contentType, sourceURL string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		switch mediaType {
		case "image/jpeg":
			return ".jpg"
		case "image/png":
			return ".png"
		case "image/webp":
			return ".webp"
		}
		if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}
	ext := path.Ext(strings.SplitN(sourceURL, "?", 2)[0])
	if ext == "" || len(ext) > 5 {
		return ".png"
	}
	return strings.ToLower(ext)
}
