package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chupakbra/member-admin/internal/config"
	"github.com/chupakbra/member-admin/internal/model"
)

const (
	apiPath        = "/api/v1"
	defaultTimeout = 30 * time.Second
)

// Client talks to the member API of one organization account.
type Client struct {
	baseURL   string
	companyID int64
	token     string
	http      *http.Client
	log       zerolog.Logger
}

// New builds a Client from an OrgConfig.
func New(cfg *config.OrgConfig, log zerolog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("organization URL is not set")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("organization has no API token configured")
	}
	if cfg.CompanyID <= 0 {
		return nil, fmt.Errorf("organization has no company-id configured")
	}

	// Users only provide scheme://host[:port]; the API prefix is appended here.
	baseURL := strings.TrimRight(cfg.URL, "/")
	if !strings.HasSuffix(baseURL, apiPath) {
		baseURL += apiPath
	}

	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: !cfg.VerifyTLS, //nolint:gosec
			},
		},
	}

	return &Client{
		baseURL:   baseURL,
		companyID: cfg.CompanyID,
		token:     cfg.Token,
		http:      httpClient,
		log:       log,
	}, nil
}

// BaseURL is the API root requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

// CompanyID is the organization the client was configured for.
func (c *Client) CompanyID() int64 { return c.companyID }

// Company fetches the organization record. Used as a connectivity check.
func (c *Client) Company(ctx context.Context, companyID int64) (model.Organization, error) {
	var org model.Organization
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/companies/%d", companyID), nil, "", &org)
	return org, err
}

// Members lists the members of a company together with its remaining quota.
func (c *Client) Members(ctx context.Context, companyID int64) (model.MemberList, error) {
	var list model.MemberList
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/companies/%d/members", companyID), nil, "", &list)
	return list, err
}

// CreateMember registers a new member.
func (c *Client) CreateMember(ctx context.Context, companyID int64, in model.MemberInput) (model.Member, error) {
	var m model.Member
	body, err := jsonBody(in)
	if err != nil {
		return m, err
	}
	err = c.do(ctx, http.MethodPost, fmt.Sprintf("/companies/%d/members", companyID), body, "application/json", &m)
	return m, err
}

// UpdateMember replaces the editable fields of a member.
func (c *Client) UpdateMember(ctx context.Context, id int64, in model.MemberInput) (model.Member, error) {
	var m model.Member
	in.Password = ""
	body, err := jsonBody(in)
	if err != nil {
		return m, err
	}
	err = c.do(ctx, http.MethodPut, fmt.Sprintf("/members/%d", id), body, "application/json", &m)
	return m, err
}

// DeleteMember removes a member.
func (c *Client) DeleteMember(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/members/%d", id), nil, "", nil)
}

// ResetPassword asks the server to send the member a password reset email.
func (c *Client) ResetPassword(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/members/%d/password_reset", id), nil, "", nil)
}

// ImportMembers uploads a CSV file of members. Row-level rejections come back
// as an *APIError carrying CSVErrors.
func (c *Client) ImportMembers(ctx context.Context, companyID int64, csv io.Reader) (model.ImportResult, error) {
	var res model.ImportResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/companies/%d/members/import", companyID), csv, "text/csv", &res)
	return res, err
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	return bytes.NewReader(data), nil
}

// do performs a request and decodes a 2xx JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	reqID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", reqID).Msg("api request failed")
		return err
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("request_id", reqID).
		Dur("took", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp, reqID)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}
