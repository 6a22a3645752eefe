// Package attachment is the call boundary to the external object store.
// It owns nothing: bytes go in, {url, publicId, resourceType} comes out,
// and deletes are best-effort.
package attachment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"
)

// ErrDisabled means no file service is configured; uploads are rejected
// before any store work.
var ErrDisabled = errors.New("attachment: file service is not configured")

// StoredFile describes an object accepted by the store.
type StoredFile struct {
	URL          string `json:"url"`
	PublicID     string `json:"public_id"`
	ResourceType string `json:"resource_type"`
}

// Client calls the attachment storage microservice. An empty baseURL
// disables it.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		return &Client{}
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Enabled reports whether a file service is configured.
func (c *Client) Enabled() bool { return c.baseURL != "" }

// Store uploads one attachment and returns its descriptor.
func (c *Client) Store(ctx context.Context, data []byte, filename, mimeType string) (*StoredFile, error) {
	if c.baseURL == "" {
		return nil, ErrDisabled
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	hdr.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, fmt.Errorf("attachment store: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("attachment store: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("attachment store: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("attachment store: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("attachment store: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("attachment store: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	stored := &StoredFile{}
	if err := json.NewDecoder(resp.Body).Decode(stored); err != nil {
		return nil, fmt.Errorf("attachment store: decode: %w", err)
	}
	return stored, nil
}

// Delete removes an object from the store. Callers treat failures as
// non-fatal: the object stays orphaned and is reconciled out of band.
func (c *Client) Delete(ctx context.Context, publicID, resourceType string) error {
	if c.baseURL == "" {
		return nil
	}
	u := c.baseURL + "/files/" + url.PathEscape(publicID)
	if resourceType != "" {
		u += "?resource_type=" + url.QueryEscape(resourceType)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("attachment delete: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("attachment delete: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("attachment delete: status %d", resp.StatusCode)
	}
	return nil
}
