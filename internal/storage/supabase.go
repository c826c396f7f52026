package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// SupabaseUploader writes artifacts to a Supabase storage bucket via its
// REST API.
type SupabaseUploader struct {
	baseURL string
	apiKey  string
	bucket  string
	http    *http.Client
}

// NewSupabaseUploader creates an uploader against the project at
// baseURL, authenticated with the service key.
func NewSupabaseUploader(baseURL, apiKey, bucket string) *SupabaseUploader {
	return &SupabaseUploader{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		bucket:  bucket,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Upload stores content under name in the bucket. The upsert header
// makes repeat uploads overwrite.
func (u *SupabaseUploader) Upload(ctx context.Context, name string, content []byte, contentType string) error {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", u.baseURL, u.bucket, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(content))
	if err != nil {
		return eris.Wrap(err, "storage: create upload request")
	}
	req.Header.Set("Authorization", "Bearer "+u.apiKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := u.http.Do(req)
	if err != nil {
		return eris.Wrapf(err, "storage: upload %s", name)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return eris.New(fmt.Sprintf("storage: upload %s: status %d: %s", name, resp.StatusCode, body))
	}

	zap.L().Info("uploaded artifact",
		zap.String("name", name),
		zap.String("bucket", u.bucket),
		zap.Int("bytes", len(content)),
	)
	return nil
}
