// Package storage persists generated binary artifacts (images, audio) and hands back
// a stable URL that job results reference.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mediaforge/generation-ledger/internal/config"
)

// ArtifactStore saves generated content and returns the URL it is served from
type ArtifactStore interface {
	Save(ctx context.Context, accountID, jobID uuid.UUID, extension string, data []byte) (string, error)
}

// LocalArtifactStore writes artifacts to the local filesystem under
// RootDir/<accountID>/<jobID>.<ext>
type LocalArtifactStore struct {
	rootDir       string
	publicBaseURL string
	logger        *slog.Logger
}

var _ ArtifactStore = (*LocalArtifactStore)(nil)

// NewLocalArtifactStore creates the root directory if needed
func NewLocalArtifactStore(logger *slog.Logger, cfg *config.StorageConfig) (*LocalArtifactStore, error) {
	if err := os.MkdirAll(cfg.RootDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact root directory: %w", err)
	}

	return &LocalArtifactStore{
		rootDir:       cfg.RootDir,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		logger:        logger,
	}, nil
}

// Save writes the artifact and returns its public URL. Writes go through a temp file
// and rename so a crash never leaves a half-written artifact at the final path.
func (s *LocalArtifactStore) Save(ctx context.Context, accountID, jobID uuid.UUID, extension string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.rootDir, accountID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	fileName := jobID.String() + "." + strings.TrimPrefix(extension, ".")
	finalPath := filepath.Join(dir, fileName)

	tmp, err := os.CreateTemp(dir, fileName+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create artifact temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close artifact temp file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to finalize artifact: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.publicBaseURL, accountID.String(), fileName)
	s.logger.Debug("Stored artifact", "path", finalPath, "url", url, "bytes", len(data))
	return url, nil
}
