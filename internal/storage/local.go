package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// LocalUploader writes artifacts to a local directory, mainly for
// development and tests.
type LocalUploader struct {
	dir string
}

// NewLocalUploader creates an uploader writing into dir.
func NewLocalUploader(dir string) *LocalUploader {
	return &LocalUploader{dir: dir}
}

// Upload writes content to dir/name, creating the directory on first
// use and overwriting an existing file.
func (u *LocalUploader) Upload(_ context.Context, name string, content []byte, _ string) error {
	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return eris.Wrapf(err, "storage: create dir %s", u.dir)
	}

	target := filepath.Join(u.dir, name)
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return eris.Wrapf(err, "storage: write %s", target)
	}

	zap.L().Info("wrote artifact", zap.String("path", target), zap.Int("bytes", len(content)))
	return nil
}
