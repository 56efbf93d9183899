// Package cloudflare is a typed client for the destination DNS and
// registrar API. Zone activation is asynchronous, so the client exposes
// a polling wait alongside the create call.
package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonesrussell/gomigrate/internal/domain"
	apperrors "github.com/jonesrussell/gomigrate/internal/errors"
	"github.com/jonesrussell/gomigrate/internal/httpx"
	"github.com/jonesrussell/gomigrate/internal/logger"
)

// ProviderName qualifies errors raised by this client.
const ProviderName = "cloudflare"

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

// Provider error codes recognized for idempotent retries.
const (
	codeZoneAlreadyExists   = 1061
	codeRecordAlreadyExists = 81057
	codeRecordDuplicate     = 81053
)

// Zone activation polling defaults.
const (
	DefaultActivationInterval = 10 * time.Second
	DefaultActivationTimeout  = 5 * time.Minute
)

// Limiter gates outbound requests.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Client is a typed client for the destination API.
type Client struct {
	baseURL    string
	apiToken   string
	accountID  string
	httpClient *http.Client
	limiter    Limiter
	logger     logger.Interface

	activationInterval time.Duration
	activationTimeout  time.Duration
}

// Config configures a Client.
type Config struct {
	BaseURL   string
	APIToken  string
	AccountID string

	// ActivationInterval and ActivationTimeout tune the zone activation
	// poll loop. Zero values use the defaults.
	ActivationInterval time.Duration
	ActivationTimeout  time.Duration
}

// New creates a destination client.
func New(cfg Config, limiter Limiter, log logger.Interface) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	interval := cfg.ActivationInterval
	if interval == 0 {
		interval = DefaultActivationInterval
	}
	timeout := cfg.ActivationTimeout
	if timeout == 0 {
		timeout = DefaultActivationTimeout
	}

	return &Client{
		baseURL:            strings.TrimSuffix(baseURL, "/"),
		apiToken:           cfg.APIToken,
		accountID:          cfg.AccountID,
		httpClient:         httpx.NewDefaultClient(),
		limiter:            limiter,
		logger:             log.WithProvider(ProviderName),
		activationInterval: interval,
		activationTimeout:  timeout,
	}
}

// Verify checks that the configured API token is accepted.
func (c *Client) Verify(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/user/tokens/verify", nil, nil)
}

// CreateZone provisions a zone for the domain. Returns apperrors.ErrZoneExists
// when the provider reports the zone is already present.
func (c *Client) CreateZone(ctx context.Context, domainName string) (*domain.Zone, error) {
	req := map[string]any{
		"name":    domainName,
		"type":    "full",
		"account": map[string]string{"id": c.accountID},
	}

	var zone domain.Zone
	err := c.do(ctx, http.MethodPost, "/zones", req, &zone)
	if err != nil {
		if hasErrorCode(err, codeZoneAlreadyExists) {
			return nil, apperrors.ErrZoneExists
		}
		return nil, err
	}

	if zone.ID == "" {
		return nil, c.schemaError("/zones", "zone result has no id")
	}
	return &zone, nil
}

// GetZoneByName looks up an existing zone by its domain name.
func (c *Client) GetZoneByName(ctx context.Context, domainName string) (*domain.Zone, error) {
	var zones []domain.Zone
	path := "/zones?name=" + url.QueryEscape(domainName)
	if err := c.do(ctx, http.MethodGet, path, nil, &zones); err != nil {
		return nil, err
	}
	if len(zones) == 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrZoneNotFound, domainName)
	}
	if zones[0].ID == "" {
		return nil, c.schemaError(path, "zone result has no id")
	}
	return &zones[0], nil
}

// GetZoneStatus returns the zone's current activation status.
func (c *Client) GetZoneStatus(ctx context.Context, zoneID string) (string, error) {
	var zone domain.Zone
	path := "/zones/" + zoneID
	if err := c.do(ctx, http.MethodGet, path, nil, &zone); err != nil {
		return "", err
	}
	if zone.Status == "" {
		return "", c.schemaError(path, "zone result has no status")
	}
	return zone.Status, nil
}

// WaitForActive polls the zone's status until it is active or the
// activation timeout elapses.
func (c *Client) WaitForActive(ctx context.Context, zoneID string) error {
	deadline := time.Now().Add(c.activationTimeout)

	for {
		status, err := c.GetZoneStatus(ctx, zoneID)
		if err != nil {
			return err
		}
		if status == domain.ZoneStatusActive {
			return nil
		}

		if time.Now().After(deadline) {
			return &apperrors.TimeoutError{
				Operation: "zone activation for " + zoneID,
				Waited:    c.activationTimeout.String(),
			}
		}

		c.logger.Debug("zone not active yet, polling",
			"zone_id", zoneID,
			"status", status,
		)

		timer := time.NewTimer(c.activationInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// recordData is the structured sub-object of a create-record request.
type recordData struct {
	Priority *int   `json:"priority,omitempty"`
	Weight   *int   `json:"weight,omitempty"`
	Port     *int   `json:"port,omitempty"`
	Target   string `json:"target,omitempty"`
	Flags    *int   `json:"flags,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Value    string `json:"value,omitempty"`
}

// createRecordRequest is the provider's create-record payload.
type createRecordRequest struct {
	Type     string      `json:"type"`
	Name     string      `json:"name"`
	Content  string      `json:"content,omitempty"`
	TTL      int         `json:"ttl"`
	Priority *int        `json:"priority,omitempty"`
	Proxied  *bool       `json:"proxied,omitempty"`
	Data     *recordData `json:"data,omitempty"`
}

// CreateRecord creates one DNS record in the zone. Returns
// apperrors.ErrRecordExists when the provider reports a duplicate.
func (c *Client) CreateRecord(ctx context.Context, zoneID string, rec domain.DestRecord) error {
	req := createRecordRequest{
		Type:     rec.Type,
		Name:     rec.Name,
		Content:  rec.Content,
		TTL:      rec.TTL,
		Priority: rec.Priority,
		Proxied:  rec.Proxied,
	}

	switch {
	case rec.SRV != nil:
		req.Data = &recordData{
			Priority: &rec.SRV.Priority,
			Weight:   &rec.SRV.Weight,
			Port:     &rec.SRV.Port,
			Target:   rec.SRV.Target,
		}
	case rec.CAA != nil:
		req.Data = &recordData{
			Flags: &rec.CAA.Flags,
			Tag:   rec.CAA.Tag,
			Value: rec.CAA.Value,
		}
	}

	err := c.do(ctx, http.MethodPost, "/zones/"+zoneID+"/dns_records", req, nil)
	if err != nil && (hasErrorCode(err, codeRecordAlreadyExists) || hasErrorCode(err, codeRecordDuplicate)) {
		return fmt.Errorf("%w: %s %s", apperrors.ErrRecordExists, rec.Type, rec.Name)
	}
	return err
}

// CheckAuthCode validates the transfer authorization code with the
// destination registrar before the transfer is submitted.
func (c *Client) CheckAuthCode(ctx context.Context, domainName, authCode string) error {
	req := map[string]string{"auth_code": authCode}
	path := fmt.Sprintf("/accounts/%s/registrar/domains/%s/auth_check", c.accountID, domainName)
	return c.do(ctx, http.MethodPost, path, req, nil)
}

// transferRequest is the initiate-transfer payload.
type transferRequest struct {
	AuthCode   string                    `json:"auth_code"`
	ZoneID     string                    `json:"zone_id"`
	Registrant *domain.RegistrantContact `json:"registrant"`
}

// InitiateTransfer submits the registrar transfer. The destination
// completes the transfer asynchronously; this call only starts it.
func (c *Client) InitiateTransfer(ctx context.Context, domainName, zoneID, authCode string, registrant *domain.RegistrantContact) error {
	req := transferRequest{
		AuthCode:   authCode,
		ZoneID:     zoneID,
		Registrant: registrant,
	}
	path := fmt.Sprintf("/accounts/%s/registrar/domains/%s/transfer", c.accountID, domainName)
	return c.do(ctx, http.MethodPost, path, req, nil)
}

// envelope is the provider's standard response wrapper.
type envelope struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Result json.RawMessage `json:"result"`
}

// do issues one rate-limited request, unwraps the response envelope,
// and decodes the result into out.
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

	req.Header.Set("Authorization", "Bearer "+c.apiToken)
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

	var env envelope
	if len(respBody) > 0 {
		if unmarshalErr := json.Unmarshal(respBody, &env); unmarshalErr != nil {
			if resp.StatusCode >= apperrors.MinErrorStatusCode {
				return c.httpError(resp, respBody, "")
			}
			return c.schemaError(path, unmarshalErr.Error())
		}
	}

	if resp.StatusCode >= apperrors.MinErrorStatusCode || (len(respBody) > 0 && !env.Success) {
		message := ""
		code := 0
		if len(env.Errors) > 0 {
			message = env.Errors[0].Message
			code = env.Errors[0].Code
		}
		return &apiError{
			inner: c.httpError(resp, respBody, message),
			code:  code,
		}
	}

	if out == nil {
		return nil
	}
	if len(env.Result) == 0 {
		return c.schemaError(path, "response envelope has no result")
	}
	if unmarshalErr := json.Unmarshal(env.Result, out); unmarshalErr != nil {
		return c.schemaError(path, unmarshalErr.Error())
	}
	return nil
}

// apiError pairs the provider's error code with the typed HTTP error so
// idempotency checks can match on the code.
type apiError struct {
	inner error
	code  int
}

func (e *apiError) Error() string { return e.inner.Error() }

func (e *apiError) Unwrap() error { return e.inner }

// hasErrorCode reports whether err carries the given provider error code.
func hasErrorCode(err error, code int) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr) && apiErr.code == code
}

func (c *Client) httpError(resp *http.Response, body []byte, message string) error {
	return &apperrors.ProviderHTTPError{
		Provider:   ProviderName,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
		Message:    message,
	}
}

func (c *Client) schemaError(endpoint, detail string) error {
	return &apperrors.SchemaError{
		Provider: ProviderName,
		Endpoint: endpoint,
		Detail:   detail,
	}
}
