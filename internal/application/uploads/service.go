package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SupabaseClient defines what we need from Supabase storage.
type SupabaseClient interface {
	Upload(ctx context.Context, bucket, path, contentType string, body io.Reader) error
	Remove(ctx context.Context, bucket string, paths []string) error
}

// HTTPClient is a SupabaseClient backed by the HTTP API.
type HTTPClient struct {
	BaseURL   string
	SecretKey string
	Client    *http.Client
}

func (c *HTTPClient) do(req *http.Request) error {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 60 * time.Second}
	}
	// Match @supabase/supabase-js: both apikey and Authorization Bearer (same key)
	req.Header.Set("apikey", c.SecretKey)
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyStr := string(respBody)
		if resp.StatusCode == 400 || resp.StatusCode == 403 {
			if strings.Contains(bodyStr, "Invalid Compact JWS") || strings.Contains(bodyStr, "Unauthorized") {
				return fmt.Errorf("supabase storage requires the service_role key: set SUPABASE_SECRET_KEY (raw body: %s)", bodyStr)
			}
		}
		return fmt.Errorf("supabase error: status %d body: %s", resp.StatusCode, bodyStr)
	}
	return nil
}

func (c *HTTPClient) base() (string, error) {
	if c.BaseURL == "" {
		return "", fmt.Errorf("supabase: SUPABASE_URL is not set")
	}
	if c.SecretKey == "" {
		return "", fmt.Errorf("supabase: SUPABASE_SECRET_KEY is not set")
	}
	return strings.TrimRight(c.BaseURL, "/"), nil
}

func (c *HTTPClient) Upload(ctx context.Context, bucket, path, contentType string, body io.Reader) error {
	base, err := c.base()
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", base, bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")
	return c.do(req)
}

func (c *HTTPClient) Remove(ctx context.Context, bucket string, paths []string) error {
	base, err := c.base()
	if err != nil {
		return err
	}
	bodyBytes, _ := json.Marshal(map[string]interface{}{"prefixes": paths})
	url := fmt.Sprintf("%s/storage/v1/object/%s", base, bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// Service stores files and hands out references of the form "<bucket>/<path>".
type Service struct {
	Client      SupabaseClient
	SupabaseURL string
}

// Put uploads body under a unique path derived from fileName and returns its reference.
func (s *Service) Put(ctx context.Context, bucket, fileName, contentType string, body io.Reader) (string, error) {
	path := fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), uuid.NewString()[:8], safeName(fileName))
	if err := s.Client.Upload(ctx, bucket, path, contentType, body); err != nil {
		return "", err
	}
	return bucket + "/" + path, nil
}

// Remove deletes the referenced files, grouped per bucket.
func (s *Service) Remove(ctx context.Context, refs []string) error {
	byBucket := map[string][]string{}
	var order []string
	for _, ref := range refs {
		bucket, path, ok := strings.Cut(ref, "/")
		if !ok || path == "" {
			continue
		}
		if _, seen := byBucket[bucket]; !seen {
			order = append(order, bucket)
		}
		byBucket[bucket] = append(byBucket[bucket], path)
	}
	for _, bucket := range order {
		if err := s.Client.Remove(ctx, bucket, byBucket[bucket]); err != nil {
			return err
		}
	}
	return nil
}

// PublicURL maps a reference to its public object URL.
func (s *Service) PublicURL(ref string) string {
	if ref == "" {
		return ""
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s", strings.TrimRight(s.SupabaseURL, "/"), ref)
}

// safeName keeps ASCII letters, digits, dot, dash and underscore.
func safeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
