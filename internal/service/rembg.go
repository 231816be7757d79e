package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// BackgroundRemover produces a foreground-with-alpha PNG from an input image
type BackgroundRemover interface {
	Remove(ctx context.Context, imageBytes []byte) ([]byte, error)
}

// RembgClient talks to a rembg-compatible HTTP service. The service accepts
// a multipart upload on /api/remove and responds with a transparent PNG.
type RembgClient struct {
	baseURL string
	client  *http.Client
}

func NewRembgClient(baseURL string) *RembgClient {
	return &RembgClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *RembgClient) Remove(ctx context.Context, imageBytes []byte) ([]byte, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("background removal service not configured")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "photo.png")
	if err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}
	if _, err := part.Write(imageBytes); err != nil {
		return nil, fmt.Errorf("writing multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/remove", &body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling background removal service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("background removal service returned %d: %s", resp.StatusCode, string(snippet))
	}

	result, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading removal result: %w", err)
	}
	return result, nil
}
