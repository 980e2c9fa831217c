// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bending/bendboot/pkg/manifest"
)

const defaultUserAgent = "bendboot/dev"

type (
	// HTTPSource fetches artifacts from a Maven-layout HTTP repository.
	HTTPSource struct {
		name       string
		baseURL    string
		httpClient *http.Client
		token      string
		userAgent  string
	}

	// HTTPOption configures an HTTPSource during construction.
	HTTPOption func(*HTTPSource)

	// StatusError is an unexpected HTTP status. 5xx and 429 are transient.
	StatusError struct {
		URL        string
		StatusCode int
	}
)

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) { s.httpClient = c }
}

// WithToken sets a bearer token sent to the repository host only.
func WithToken(token string) HTTPOption {
	return func(s *HTTPSource) { s.token = token }
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) HTTPOption {
	return func(s *HTTPSource) { s.userAgent = ua }
}

// NewHTTPSource creates a source rooted at baseURL
// (e.g. "https://repo.maven.apache.org/maven2").
func NewHTTPSource(name, baseURL string, opts ...HTTPOption) (*HTTPSource, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("source %s: invalid url: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("source %s: unsupported url scheme %q", name, u.Scheme)
	}

	s := &HTTPSource{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Name implements Source.
func (s *HTTPSource) Name() string { return s.name }

// URL returns the artifact URL for e.
func (s *HTTPSource) URL(e manifest.Entry) string {
	return s.baseURL + "/" + ArtifactPath(e)
}

// Fetch implements Source. The caller closes the returned body.
func (s *HTTPSource) Fetch(ctx context.Context, e manifest.Entry) (io.ReadCloser, error) {
	artifactURL := s.URL(e)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artifactURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	if s.token != "" && s.sameHost(req.URL) {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", redactURL(artifactURL), err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound, http.StatusGone:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, redactURL(artifactURL))
	default:
		resp.Body.Close()
		return nil, &StatusError{URL: redactURL(artifactURL), StatusCode: resp.StatusCode}
	}
}

// sameHost keeps the token from leaking to a redirect target on another host.
func (s *HTTPSource) sameHost(u *url.URL) bool {
	base, err := url.Parse(s.baseURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(base.Host, u.Host)
}

func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
