package supabase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"photo-studio-backend/internal/supabase"
)

func TestStorageClient_GetPublicURL(t *testing.T) {
	client := supabase.NewStorageClient("https://abc.supabase.co/", "key", "generated-photos")

	url := client.GetPublicURL(supabase.PhotoPath("album-1", "photo-1", ".png"))
	assert.Equal(t, "https://abc.supabase.co/storage/v1/object/public/generated-photos/albums/album-1/photo-1.png", url)
}

func TestPhotoPath(t *testing.T) {
	assert.Equal(t, "albums/a/p.jpg", supabase.PhotoPath("a", "p", ".jpg"))
}
