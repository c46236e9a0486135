package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Payload is the JSON body of an upload. Field names follow the receiver's
// form-array convention: f01 carries the chunks, x01 the MIME type.
type Payload struct {
	Chunks      []string `json:"f01"`
	ContentType string   `json:"x01"`
	FileName    string   `json:"name,omitempty"`
}

// Receipt is the receiver's answer to an upload.
type Receipt struct {
	ID     string `json:"id"`
	Digest string `json:"digest,omitempty"`
	Size   int    `json:"size,omitempty"`
}

// HTTPUploader posts gzip-compressed payloads to an upload endpoint.
type HTTPUploader struct {
	url        string
	token      string
	httpClient *http.Client
}

// NewHTTPUploader returns an uploader for url. An empty token sends no
// Authorization header.
func NewHTTPUploader(url, token string) *HTTPUploader {
	return &HTTPUploader{
		url:   url,
		token: token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// WithHTTPClient replaces the HTTP client.
func (u *HTTPUploader) WithHTTPClient(c *http.Client) *HTTPUploader {
	u.httpClient = c
	return u
}

// Upload sends req and returns the stored capture's ID.
func (u *HTTPUploader) Upload(ctx context.Context, req UploadRequest) (string, error) {
	body, err := json.Marshal(Payload{
		Chunks:      req.Chunks,
		ContentType: req.ContentType,
		FileName:    req.FileName,
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return "", fmt.Errorf("compress payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Content-Encoding", "gzip")
	if u.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+u.token)
	}

	resp, err := u.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("upload: status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	var r Receipt
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("decode receipt: %w", err)
	}
	return r.ID, nil
}
