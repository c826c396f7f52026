// Package storage uploads finished artifacts to the configured sink.
package storage

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/BlendBerisha/businessscrapper/internal/config"
)

// Uploader persists one named artifact. Uploading an existing name
// overwrites it, so re-running a job is idempotent.
type Uploader interface {
	Upload(ctx context.Context, name string, content []byte, contentType string) error
}

// New selects an Uploader from the configured driver: "supabase",
// "ftp", or "local".
func New(cfg config.StorageConfig) (Uploader, error) {
	switch cfg.Driver {
	case "supabase":
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			return nil, eris.New("storage: supabase driver needs supabase_url and supabase_key")
		}
		return NewSupabaseUploader(cfg.SupabaseURL, cfg.SupabaseKey, cfg.Bucket), nil
	case "ftp":
		if cfg.FTPAddr == "" {
			return nil, eris.New("storage: ftp driver needs ftp_addr")
		}
		return NewFTPUploader(cfg.FTPAddr, cfg.FTPUser, cfg.FTPPassword, cfg.FTPDir), nil
	case "local", "":
		return NewLocalUploader(cfg.Dir), nil
	}
	return nil, eris.Errorf("storage: unknown driver %q", cfg.Driver)
}
