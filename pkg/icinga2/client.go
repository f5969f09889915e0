// Package icinga2 is a typed client for the Icinga2 HTTPS REST API.
//
// The client translates typed calls into requests against the fixed /v1
// endpoint tree, decodes the JSON result envelopes into typed models, and
// classifies failures into the APIError taxonomy. It holds no state beyond
// its session configuration and performs no retries; a single Client is safe
// for concurrent use.
package icinga2

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	apiBasePath    = "/v1/"
	defaultTimeout = 30 * time.Second
	userAgent      = "icingactl/0.1.0"
)

// Config holds the static session configuration for a Client.
type Config struct {
	// BaseURL is the API endpoint, for example "https://icinga.example:5665".
	BaseURL string
	// Username and Password enable HTTP basic auth.
	Username string
	Password string
	// CertFile and KeyFile enable TLS client certificate auth, which takes
	// precedence over basic auth. If KeyFile is empty the key is expected in
	// CertFile.
	CertFile string
	KeyFile  string
	// CAFile is the bundle used to verify the server certificate. When empty,
	// verification is skipped.
	CAFile string
	// Timeout bounds each request end to end. Defaults to 30s.
	Timeout time.Duration
}

// Dependencies allow test overrides for the HTTP client and logging.
type Dependencies struct {
	HTTPClient *http.Client
	Logger     *log.Logger
}

// Client executes authenticated requests against one Icinga2 API endpoint.
type Client struct {
	httpClient *http.Client
	// streamClient is httpClient without the overall timeout, which would
	// sever long-lived event streams.
	streamClient *http.Client
	baseURL      string
	username     string
	password     string
	useCert      bool
	logger       *log.Logger
}

// NewClient builds a Client from configuration and dependencies.
func NewClient(cfg Config, deps Dependencies) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.CertFile == "" && (cfg.Username == "" || cfg.Password == "") {
		return nil, fmt.Errorf("either username/password or a client certificate is required")
	}

	httpClient := deps.HTTPClient
	if httpClient == nil {
		tlsConfig, err := buildTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: tlsConfig,
			},
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	streamClient := *httpClient
	streamClient.Timeout = 0

	return &Client{
		httpClient:   httpClient,
		streamClient: &streamClient,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		username:     cfg.Username,
		password:     cfg.Password,
		useCert:      cfg.CertFile != "",
		logger:       logger,
	}, nil
}

// Execute performs one API exchange and returns the HTTP status and raw
// body. The wire method always is POST with an X-HTTP-Method-Override header
// carrying the intended method, so filter bodies work on every endpoint.
// Execute does not inspect the status code; transport failures surface as
// APIError with KindTransport.
func (c *Client) Execute(ctx context.Context, method, path string, query url.Values, body any) (int, []byte, error) {
	resp, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, newTransportError(fmt.Errorf("read response: %w", err))
	}
	return resp.StatusCode, raw, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	return c.doWith(ctx, c.httpClient, method, path, query, body)
}

func (c *Client) doWith(ctx context.Context, httpClient *http.Client, method, path string, query url.Values, body any) (*http.Response, error) {
	requestURL := c.baseURL + apiBasePath + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, newValidationError("", fmt.Sprintf("marshal request body: %v", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, reader)
	if err != nil {
		return nil, newValidationError("", fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-HTTP-Method-Override", strings.ToUpper(method))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !c.useCert && c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	c.logger.Printf("request %s %s", method, requestURL)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, newTransportError(err)
	}
	return resp, nil
}

// errorEnvelope is the body Icinga answers with on application-level errors.
type errorEnvelope struct {
	Error  float64 `json:"error"`
	Status string  `json:"status"`
}

// resultsEnvelope wraps every regular API response.
type resultsEnvelope struct {
	Results []json.RawMessage `json:"results"`
}

// call executes a request and unwraps the results envelope, mapping non-2xx
// responses into typed errors that preserve the remote message.
func (c *Client) call(ctx context.Context, method, path string, body any) ([]json.RawMessage, error) {
	status, raw, err := c.Execute(ctx, method, path, nil, body)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, c.remoteError(status, raw)
	}

	var envelope resultsEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, newMalformedResponseError(status, fmt.Errorf("decode results envelope: %w", err))
	}
	return envelope.Results, nil
}

// remoteError maps a non-2xx response into an APIError. A parseable error
// body contributes its remote message; the results envelope form used by
// failed mutations contributes the per-object error strings.
func (c *Client) remoteError(status int, raw []byte) *APIError {
	apiErr := &APIError{Kind: kindForStatus(status), StatusCode: status}

	var envelope errorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Status != "" {
		apiErr.Message = envelope.Status
		return apiErr
	}

	var results struct {
		Results []CommandStatus `json:"results"`
	}
	if err := json.Unmarshal(raw, &results); err == nil && len(results.Results) > 0 {
		first := results.Results[0]
		apiErr.Message = first.Status
		for _, r := range results.Results {
			apiErr.Errors = append(apiErr.Errors, r.Errors...)
		}
		return apiErr
	}

	// Auth rejections and missing objects keep their kind even when the body
	// is not JSON (the server answers 401 with plain text).
	if apiErr.Kind == KindAuthentication || apiErr.Kind == KindNotFound {
		apiErr.Message = http.StatusText(status)
		return apiErr
	}
	return newMalformedResponseError(status, fmt.Errorf("undecodable error body: %s", truncate(raw, 200)))
}

func truncate(raw []byte, max int) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// normalizeName escapes an object name for use in a URL path, so names with
// spaces or the host!service separator survive.
func normalizeName(name string) string {
	return url.PathEscape(name)
}
