package hmrc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vatbridge/vatbridge/internal/config"
	"github.com/vatbridge/vatbridge/internal/models"
)

// Client calls the three VAT resources on the sandbox base URL. Every call
// carries the bearer token and the fraud-prevention header set. Alongside
// the decoded response it returns the raw body so handlers can show the
// sandbox JSON verbatim.
type Client struct {
	baseURL    string
	httpClient *http.Client
	fraud      *FraudHeaders
	logger     *logrus.Logger
}

func NewClient(cfg *config.HMRCConfig, fraud *FraudHeaders, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		fraud:      fraud,
		logger:     logger,
	}
}

// Obligations lists VAT obligations for a VRN within a date range.
func (c *Client) Obligations(ctx context.Context, accessToken, vrn, from, to string) (*models.ObligationsResponse, []byte, error) {
	params := url.Values{}
	params.Set("from", from)
	params.Set("to", to)

	body, err := c.get(ctx, accessToken, fmt.Sprintf("/organisations/vat/%s/obligations", vrn), params)
	if err != nil {
		return nil, nil, err
	}

	var resp models.ObligationsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, body, fmt.Errorf("failed to decode obligations response: %w", err)
	}
	return &resp, body, nil
}

// SubmitReturn sends the nine-box return for a period.
func (c *Client) SubmitReturn(ctx context.Context, accessToken, vrn string, ret *models.VATReturn) (*models.ReturnReceipt, []byte, error) {
	payload, err := json.Marshal(ret)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal return payload: %w", err)
	}

	body, err := c.post(ctx, accessToken, fmt.Sprintf("/organisations/vat/%s/returns", vrn), payload)
	if err != nil {
		return nil, nil, err
	}

	var receipt models.ReturnReceipt
	if err := json.Unmarshal(body, &receipt); err != nil {
		return nil, body, fmt.Errorf("failed to decode return receipt: %w", err)
	}
	return &receipt, body, nil
}

// Liabilities lists VAT liabilities for a VRN within a date range.
func (c *Client) Liabilities(ctx context.Context, accessToken, vrn, from, to string) (*models.LiabilitiesResponse, []byte, error) {
	params := url.Values{}
	params.Set("from", from)
	params.Set("to", to)

	body, err := c.get(ctx, accessToken, fmt.Sprintf("/organisations/vat/%s/liabilities", vrn), params)
	if err != nil {
		return nil, nil, err
	}

	var resp models.LiabilitiesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, body, fmt.Errorf("failed to decode liabilities response: %w", err)
	}
	return &resp, body, nil
}

func (c *Client) get(ctx context.Context, accessToken, path string, params url.Values) ([]byte, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	return c.do(req, accessToken)
}

func (c *Client) post(ctx context.Context, accessToken, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, accessToken)
}

func (c *Client) do(req *http.Request, accessToken string) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	c.fraud.Apply(req.Header)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("path", req.URL.Path).Error("HMRC request failed")
		return nil, fmt.Errorf("hmrc request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"method":   req.Method,
		"path":     req.URL.Path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Info("HMRC request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
