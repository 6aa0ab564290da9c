package supabase

import (
	"bytes"
	"fmt"
	"strings"

	storage "github.com/supabase-community/storage-go"
)

type StorageClient struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewStorageClient(supabaseURL, apiKey, bucket string) *StorageClient {
	baseURL := strings.TrimSuffix(supabaseURL, "/")
	client := storage.NewClient(baseURL+"/storage/v1", apiKey, nil)

	return &StorageClient{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
	}
}

// PhotoPath is the object path of a mirrored photo:
// albums/{album_id}/{photo_id}{ext}.
func PhotoPath(albumID, photoID, ext string) string {
	return fmt.Sprintf("albums/%s/%s%s", albumID, photoID, ext)
}

// UploadFile stores data at storagePath, replacing any existing object, and
// returns its public URL.
func (s *StorageClient) UploadFile(storagePath string, data []byte, contentType string) (string, error) {
	upsert := true
	_, err := s.client.UploadFile(s.bucket, storagePath, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return s.GetPublicURL(storagePath), nil
}

func (s *StorageClient) GetPublicURL(storagePath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s",
		s.baseURL, s.bucket, storagePath)
}

func (s *StorageClient) DeleteFiles(storagePaths []string) error {
	if len(storagePaths) == 0 {
		return nil
	}
	if _, err := s.client.RemoveFile(s.bucket, storagePaths); err != nil {
		return fmt.Errorf("failed to delete files: %w", err)
	}
	return nil
}
