package enrich

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// StagingDir returns the directory where uploaded wish images wait for the
// pipeline. Image jobs reference staged files by path, so in the broker
// deployment the api and worker processes must mount the same uploads volume.
func StagingDir(uploadsDir string) string {
	return filepath.Join(uploadsDir, "pending")
}

// EnsureStagingDir creates the staging directory and verifies it is writable.
// The worker calls this at startup so a missing uploads mount fails fast
// instead of failing every image job it consumes.
func EnsureStagingDir(uploadsDir string) error {
	dir := StagingDir(uploadsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating staging dir %s: %w", dir, err)
	}
	marker := filepath.Join(dir, ".write-check-"+uuid.NewString())
	if err := os.WriteFile(marker, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("staging dir %s is not writable: %w", dir, err)
	}
	if err := os.Remove(marker); err != nil {
		return fmt.Errorf("removing staging write check: %w", err)
	}
	return nil
}
