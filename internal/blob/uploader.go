package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Uploader stores an image payload (a data URL or base64 string as sent by
// the client) and returns the durable URL it ends up hosted at.
type Uploader interface {
	Upload(ctx context.Context, payload string) (string, error)
}

// Client posts unsigned uploads to a Cloudinary-style endpoint.
type Client struct {
	uploadURL string
	preset    string
	http      *http.Client
}

func NewClient(uploadURL, preset string) *Client {
	return &Client{
		uploadURL: uploadURL,
		preset:    preset,
		http:      &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Upload(ctx context.Context, payload string) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"file":          payload,
		"upload_preset": c.preset,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("blob upload: status %d", resp.StatusCode)
	}

	var result struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.SecureURL == "" {
		return "", fmt.Errorf("blob upload: no secure_url in response")
	}
	return result.SecureURL, nil
}
