package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const storagePrefix = "/storage/v1"

// Storage downloads objects from Supabase Storage through short-lived signed URLs.
type Storage struct {
	client    *Client
	expiresIn int
}

func NewStorage(client *Client, expiresInSeconds int) *Storage {
	if expiresInSeconds <= 0 {
		expiresInSeconds = 300
	}
	return &Storage{client: client, expiresIn: expiresInSeconds}
}

func (s *Storage) Fetch(ctx context.Context, bucket, path string) (string, error) {
	signed, err := s.signURL(ctx, bucket, path)
	if err != nil {
		return "", err
	}

	body, err := s.client.do(ctx, request{
		operation: "storage.download",
		method:    http.MethodGet,
		url:       s.resolve(signed),
		anonymous: true,
	})
	if err != nil {
		return "", fmt.Errorf("download %s/%s: %w", bucket, path, err)
	}
	return string(body), nil
}

func (s *Storage) signURL(ctx context.Context, bucket, path string) (string, error) {
	body, err := s.client.do(ctx, request{
		operation: "storage.sign",
		method:    http.MethodPost,
		url:       s.client.baseURL + storagePrefix + "/object/sign/" + escapeSegments(bucket) + "/" + escapeSegments(path),
		payload:   map[string]int{"expiresIn": s.expiresIn},
	})
	if err != nil {
		return "", fmt.Errorf("sign %s/%s: %w", bucket, path, err)
	}

	var response struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("decode signed url response: %w", err)
	}
	if response.SignedURL == "" {
		return "", errors.New("signed url response has no signedURL")
	}
	return response.SignedURL, nil
}

// resolve turns the signed URL into an absolute one. Storage answers with a
// path relative to its own prefix.
func (s *Storage) resolve(signed string) string {
	switch {
	case strings.HasPrefix(signed, "http://"), strings.HasPrefix(signed, "https://"):
		return signed
	case strings.HasPrefix(signed, storagePrefix+"/"):
		return s.client.baseURL + signed
	case strings.HasPrefix(signed, "/"):
		return s.client.baseURL + storagePrefix + signed
	default:
		return s.client.baseURL + storagePrefix + "/" + signed
	}
}

func escapeSegments(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
