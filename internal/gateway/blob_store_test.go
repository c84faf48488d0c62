package gateway

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBlobStorePut(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "avatars")
	store, err := NewLocalBlobStore(dir, "http://localhost:3000/uploads/")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "a.png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/uploads/a.png", url)

	content, err := os.ReadFile(filepath.Join(dir, "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(content))
}

func TestLocalBlobStoreRejectsPaths(t *testing.T) {
	store, err := NewLocalBlobStore(t.TempDir(), "http://x")
	require.NoError(t, err)

	for _, name := range []string{"../escape.png", "nested/a.png", ""} {
		t.Run(name, func(t *testing.T) {
			_, err := store.Put(context.Background(), name, []byte("x"))
			assert.Error(t, err)
		})
	}
}

func TestAvatarObjectName(t *testing.T) {
	owner := uuid.MustParse("6f1c1d3e-8a43-4d59-9c52-0c1b8c2f2a10")
	at := time.UnixMilli(1714557600123)

	tests := []struct {
		filename string
		want     string
	}{
		{filename: "me.JPG", want: "6f1c1d3e-8a43-4d59-9c52-0c1b8c2f2a10-1714557600123.jpg"},
		{filename: "photo.webp", want: "6f1c1d3e-8a43-4d59-9c52-0c1b8c2f2a10-1714557600123.webp"},
		{filename: "noext", want: "6f1c1d3e-8a43-4d59-9c52-0c1b8c2f2a10-1714557600123.png"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, AvatarObjectName(owner, tt.filename, at))
		})
	}
}
