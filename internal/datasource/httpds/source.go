package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Source downloads one table. It satisfies datasource.Source.
type Source struct {
	client  *Client
	url     string
	headers http.Header
}

// NewSource returns a Source that GETs url through client.
func NewSource(client *Client, url string, headers http.Header) *Source {
	return &Source{client: client, url: url, headers: headers}
}

// Open fetches the URL and returns the response body. Any status outside
// 2xx after retries is an error.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url, s.headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", s.url, resp.Status)
	}
	return resp.Body, nil
}
