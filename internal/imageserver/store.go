// Package imageserver hosts the daemon side of the image persistence
// contract: a save endpoint plus serving of stored images. Storage backends
// are pluggable; disk is the default, MinIO is available for deployments
// with object storage.
package imageserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reface/internal/config"
	"reface/internal/services"
)

// Store persists image bytes and returns a public reference path or URL.
type Store interface {
	Put(ctx context.Context, projectID, filename string, data []byte) (string, error)
}

// NewStore selects a backend from configuration.
func NewStore(cfg *config.Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.ImageStore.Backend)) {
	case "", "disk":
		return NewDiskStore(cfg.Paths.ImagesDir, cfg.ImageStore.PublicBaseURL), nil
	case "minio":
		return NewMinioStore(cfg.ImageStore)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "imageserver", "backend",
			fmt.Sprintf("unknown image store backend %q", cfg.ImageStore.Backend), nil)
	}
}

// GenerateFilename builds a unique image filename from a prefix, a millisecond
// timestamp and a short random suffix.
func GenerateFilename(prefix string) string {
	prefix = sanitizeName(prefix)
	if prefix == "" {
		prefix = "image"
	}
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("%s-%d-%s.png", prefix, time.Now().UnixMilli(), hex.EncodeToString(suffix))
}

// DiskStore writes images under per-project subdirectories of a base dir.
type DiskStore struct {
	baseDir       string
	publicBaseURL string
}

// NewDiskStore builds a disk-backed store. publicBaseURL prefixes returned
// paths; empty means daemon-relative paths.
func NewDiskStore(baseDir, publicBaseURL string) *DiskStore {
	return &DiskStore{
		baseDir:       baseDir,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (s *DiskStore) Put(_ context.Context, projectID, filename string, data []byte) (string, error) {
	projectID = sanitizeName(projectID)
	filename = sanitizeName(filename)
	if filename == "" {
		return "", services.Wrap(services.ErrValidation, "imageserver", "put", "filename is required", nil)
	}

	dir := s.baseDir
	rel := filename
	if projectID != "" {
		dir = filepath.Join(dir, projectID)
		rel = projectID + "/" + filename
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrPersistence, "imageserver", "put", "create image directory", err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		return "", services.Wrap(services.ErrPersistence, "imageserver", "put", "write image file", err)
	}
	return s.publicBaseURL + "/generated-images/" + rel, nil
}

// sanitizeName keeps path components flat so stored files cannot escape the
// base directory.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "-")
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "..", "-")
	return name
}
