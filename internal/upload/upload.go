// Package upload sends encoded targets to pre-signed object storage URLs.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/vk/evalgraph/internal/ctxlog"
)

// IsRemote reports whether dst is an http(s) URL rather than a file path.
func IsRemote(dst string) bool {
	return strings.HasPrefix(dst, "http://") || strings.HasPrefix(dst, "https://")
}

// ObjectPath returns the path component of a remote destination, which
// carries the file extension used to pick the encoding.
func ObjectPath(dst string) (string, error) {
	u, err := url.Parse(dst)
	if err != nil {
		return "", fmt.Errorf("invalid upload URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid upload URL %q: missing host", dst)
	}
	return u.Path, nil
}

// Uploader PUTs bodies to pre-signed URLs.
type Uploader struct {
	client *http.Client
}

// New creates an uploader. A nil client uses http.DefaultClient.
func New(client *http.Client) *Uploader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Uploader{client: client}
}

// Put uploads body to dst. The content type follows the extension of the
// URL path.
func (u *Uploader) Put(ctx context.Context, dst string, body []byte) error {
	objectPath, err := ObjectPath(dst)
	if err != nil {
		return err
	}
	logger := ctxlog.FromContext(ctx).With("action", "upload")

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, dst, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	contentType := mime.TypeByExtension(path.Ext(objectPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(body))

	logger.Info("Uploading target.", "path", objectPath, "size", len(body), "contentType", contentType)
	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute upload request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("upload failed with status: %s", resp.Status)
	}
	logger.Debug("Successfully uploaded target.", "status", resp.Status)
	return nil
}
