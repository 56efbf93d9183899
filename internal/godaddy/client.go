// Package godaddy is a typed client for the source registrar's domain
// API. Mutating calls carry a lock-aware retry policy: the provider
// transiently rejects mutations on a domain that was itself mutated
// moments earlier.
package godaddy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jonesrussell/gomigrate/internal/domain"
	apperrors "github.com/jonesrussell/gomigrate/internal/errors"
	"github.com/jonesrussell/gomigrate/internal/httpx"
	"github.com/jonesrussell/gomigrate/internal/logger"
	"github.com/jonesrussell/gomigrate/internal/retry"
)

// ProviderName qualifies errors raised by this client.
const ProviderName = "godaddy"

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.godaddy.com"

// Resource-lock recognition: the provider signals transient contention
// with this status and message substring.
const (
	lockStatusCode    = http.StatusUnprocessableEntity
	lockBodySubstring = "currently in use"
)

// Limiter gates outbound requests.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Client is a typed client for the source registrar API.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	limiter    Limiter
	logger     logger.Interface
	retryCfg   retry.Config
}

// Config configures a Client.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string

	// Retry overrides the default lock-aware retry policy when
	// MaxAttempts is non-zero. Used by tests to shrink delays.
	Retry *retry.Config
}

// New creates a source registrar client.
func New(cfg Config, limiter Limiter, log logger.Interface) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	retryCfg := retry.DefaultConfig(apperrors.IsResourceLock)
	if cfg.Retry != nil {
		retryCfg = *cfg.Retry
		if retryCfg.IsRetryable == nil {
			retryCfg.IsRetryable = apperrors.IsResourceLock
		}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		httpClient: httpx.NewDefaultClient(),
		limiter:    limiter,
		logger:     log.WithProvider(ProviderName),
		retryCfg:   retryCfg,
	}
}

// Verify checks that the configured credentials are accepted.
func (c *Client) Verify(ctx context.Context) error {
	var domains []domain.Domain
	return c.do(ctx, http.MethodGet, "/v1/domains?limit=1", nil, &domains)
}

// ListActiveDomains returns every domain in the account whose lifecycle
// status is active.
func (c *Client) ListActiveDomains(ctx context.Context) ([]domain.Domain, error) {
	var domains []domain.Domain
	if err := c.do(ctx, http.MethodGet, "/v1/domains?statuses=ACTIVE&includes=nameServers", nil, &domains); err != nil {
		return nil, err
	}

	for i := range domains {
		if domains[i].Name == "" {
			return nil, c.schemaError("/v1/domains", fmt.Sprintf("entry %d has no domain name", i))
		}
	}
	return domains, nil
}

// GetDomain returns the full detail record for one domain.
func (c *Client) GetDomain(ctx context.Context, name string) (*domain.Domain, error) {
	var d domain.Domain
	path := "/v1/domains/" + name
	if err := c.do(ctx, http.MethodGet, path, nil, &d); err != nil {
		return nil, err
	}
	if d.Name == "" || d.Status == "" {
		return nil, c.schemaError(path, "missing domain or status field")
	}
	return &d, nil
}

// GetRecords returns the domain's full DNS record set.
func (c *Client) GetRecords(ctx context.Context, name string) ([]domain.Record, error) {
	var records []domain.Record
	path := "/v1/domains/" + name + "/records"
	if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}

	for i, rec := range records {
		if rec.Type == "" {
			return nil, c.schemaError(path, fmt.Sprintf("record %d has no type", i))
		}
	}
	return records, nil
}

// DeletePrivacy removes WHOIS privacy from the domain. Lock-aware.
func (c *Client) DeletePrivacy(ctx context.Context, name string) error {
	return c.mutate(ctx, name, func() error {
		return c.do(ctx, http.MethodDelete, "/v1/domains/"+name+"/privacy", nil, nil)
	})
}

// patchRequest is the provider's wire shape for a domain patch.
type patchRequest struct {
	Locked      *bool    `json:"locked,omitempty"`
	RenewAuto   *bool    `json:"renewAuto,omitempty"`
	Nameservers []string `json:"nameServers,omitempty"`
}

// UpdateDomain patches the domain's mutable fields. Lock-aware.
func (c *Client) UpdateDomain(ctx context.Context, name string, patch domain.Patch) error {
	req := patchRequest{
		Locked:      patch.Locked,
		RenewAuto:   patch.RenewAuto,
		Nameservers: patch.Nameservers,
	}
	return c.mutate(ctx, name, func() error {
		return c.do(ctx, http.MethodPatch, "/v1/domains/"+name, req, nil)
	})
}

// GetTransferAuthCode fetches the transfer authorization code from the
// dedicated endpoint. The endpoint 404s for suffixes that do not
// support it; callers fall back to the domain detail payload.
func (c *Client) GetTransferAuthCode(ctx context.Context, name string) (string, error) {
	var resp struct {
		AuthCode string `json:"authCode"`
	}
	path := "/v1/domains/" + name + "/transferAuthCode"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	if resp.AuthCode == "" {
		return "", c.schemaError(path, "empty authCode field")
	}
	return resp.AuthCode, nil
}

// mutate runs a mutating call under the lock-aware retry policy.
func (c *Client) mutate(ctx context.Context, name string, fn func() error) error {
	attempt := 0
	return retry.Do(ctx, c.retryCfg, func() error {
		attempt++
		err := fn()
		if err != nil && apperrors.IsResourceLock(err) {
			c.logger.Warn("domain is locked by a pending change, retrying",
				"domain", name,
				"attempt", attempt,
			)
		}
		return err
	})
}

// do issues one rate-limited request and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Acquire(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("sso-key %s:%s", c.apiKey, c.apiSecret))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= apperrors.MinErrorStatusCode {
		return c.errorFor(resp, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return c.schemaError(path, err.Error())
	}
	return nil
}

// errorFor translates a non-2xx response into the typed taxonomy.
func (c *Client) errorFor(resp *http.Response, body []byte) error {
	bodyStr := string(body)

	if resp.StatusCode == lockStatusCode && strings.Contains(strings.ToLower(bodyStr), lockBodySubstring) {
		return &apperrors.ResourceLockError{Body: bodyStr}
	}

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)

	return &apperrors.ProviderHTTPError{
		Provider:   ProviderName,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       bodyStr,
		Message:    payload.Message,
	}
}

func (c *Client) schemaError(endpoint, detail string) error {
	return &apperrors.SchemaError{
		Provider: ProviderName,
		Endpoint: endpoint,
		Detail:   detail,
	}
}
