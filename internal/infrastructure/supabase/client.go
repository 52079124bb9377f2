// Package supabase talks to Supabase Storage and PostgREST on behalf of the importer.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/bpx-import-service/internal/infrastructure/resilience"
)

const (
	maxResponseBytes = 64 << 20
	maxErrorBody     = 2048
)

type Client struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	HTTPClient         *http.Client
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, serviceKey string, options Options) *Client {
	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: httpClient,
		executor:   options.ResilienceExecutor,
	}
}

type request struct {
	operation string
	method    string
	url       string
	payload   any
	headers   map[string]string
	// anonymous requests carry no service credentials, e.g. signed URL downloads
	anonymous bool
	// nonIdempotent requests are only retried when they never reached the server.
	nonIdempotent bool
}

func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	var body []byte
	if req.payload != nil {
		raw, err := json.Marshal(req.payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request: %w", req.operation, err)
		}
		body = raw
	}

	classifier := resilience.ClassifyHTTPError
	if req.nonIdempotent {
		classifier = resilience.ClassifyUnsentHTTPError
	}
	out, err := resilience.Do(ctx, c.executor, "supabase."+req.operation, func(callCtx context.Context) ([]byte, error) {
		return c.roundTrip(callCtx, req, body)
	}, classifier)
	if err != nil {
		return nil, wrapTemporaryIfNeeded(req.operation, err)
	}
	return out, nil
}

func (c *Client) roundTrip(ctx context.Context, req request, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, reader)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", req.operation, err)
	}
	if !req.anonymous {
		httpReq.Header.Set("apikey", c.serviceKey)
		httpReq.Header.Set("Authorization", "Bearer "+c.serviceKey)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("supabase %s request: %w", req.operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, newHTTPStatusError(req.operation, resp)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", req.operation, err)
	}
	if len(raw) > maxResponseBytes {
		return nil, fmt.Errorf("supabase %s response exceeds %d bytes", req.operation, maxResponseBytes)
	}
	return raw, nil
}
