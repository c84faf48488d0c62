package gateway

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type BlobStore interface {
	// Put stores data under name and returns the URL it is served from.
	Put(ctx context.Context, name string, data []byte) (string, error)
}

// LocalBlobStore writes into a directory that the HTTP server exposes under publicBaseURL.
type LocalBlobStore struct {
	dir           string
	publicBaseURL string
}

func NewLocalBlobStore(dir, publicBaseURL string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalBlobStore{
		dir:           dir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func (s *LocalBlobStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Base(name)
	if clean == "." || clean == string(filepath.Separator) || clean != name {
		return "", fmt.Errorf("invalid blob name %q", name)
	}

	path := filepath.Join(s.dir, clean)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return s.publicBaseURL + "/" + clean, nil
}
