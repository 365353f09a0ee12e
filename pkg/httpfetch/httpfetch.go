// Package httpfetch performs the single GET-and-decode-JSON round trip
// shared by endpoint scraping and global label resolution.
package httpfetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jsonexporter/json-exporter/pkg/jsonvalue"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/jsonexporter/json-exporter/pkg/httpfetch")

// Client wraps an http.Client and a base URL every fetch is resolved against.
type Client struct {
	http    *http.Client
	baseURL *url.URL
}

// New builds a Client. baseURL may be empty, in which case every target
// passed to GetJSON must already be absolute.
func New(httpClient *http.Client, baseURL string) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	var parsed *url.URL
	if baseURL != "" {
		var err error
		parsed, err = url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("httpfetch: invalid base url %q: %w", baseURL, err)
		}
	}
	return &Client{http: httpClient, baseURL: parsed}, nil
}

func (c *Client) resolve(target string) (string, error) {
	if c.baseURL == nil {
		return target, nil
	}
	ref, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("httpfetch: invalid path %q: %w", target, err)
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

// GetJSON issues a GET against target (resolved relative to the client's
// base URL) honoring ctx's deadline, and decodes the response body as an
// order-preserving JSON value. Non-2xx responses are returned as errors.
func (c *Client) GetJSON(ctx context.Context, target string) (interface{}, error) {
	resolved, err := c.resolve(target)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "httpfetch.GetJSON", trace.WithAttributes(
		attribute.String("http.url", resolved),
	))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolved, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("httpfetch: building request for %q: %w", resolved, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("httpfetch: GET %q: %w", resolved, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("httpfetch: GET %q returned status %d", resolved, resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	val, err := jsonvalue.Decode(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("httpfetch: decoding response from %q: %w", resolved, err)
	}
	return val, nil
}
