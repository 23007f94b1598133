package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	"streampulse/pkg/circuitbreaker"
	"streampulse/pkg/retry"
	"streampulse/pkg/utils"

	"go.uber.org/zap"
)

const (
	defaultEndpoint = "https://api.resend.com/emails"
	requestTimeout  = 10 * time.Second
)

// ResendClient delivers transactional email through the Resend REST API.
type ResendClient struct {
	endpoint   string
	apiKey     string
	from       string
	httpClient *http.Client
	retryCfg   retry.Config
	// breaker stops hammering the provider during an outage; go-live
	// fan-out already treats a failed email as a per-follower failure.
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.SugaredLogger
}

type ResendOption func(*ResendClient)

// WithEndpoint overrides the API endpoint, used by tests to point at a
// local server.
func WithEndpoint(endpoint string) ResendOption {
	return func(c *ResendClient) {
		c.endpoint = endpoint
	}
}

func WithRetryConfig(cfg retry.Config) ResendOption {
	return func(c *ResendClient) {
		c.retryCfg = cfg
	}
}

func NewResendClient(apiKey, from string, logger *zap.SugaredLogger, opts ...ResendOption) *ResendClient {
	c := &ResendClient{
		endpoint: defaultEndpoint,
		apiKey:   apiKey,
		from:     from,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		retryCfg: retry.DefaultConfig(),
		breaker:  circuitbreaker.New(circuitbreaker.DefaultConfig()),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	logger.Infow("email sender configured",
		"from", from,
		"api_key", utils.MaskSensitive(apiKey, 4))
	return c
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

func (c *ResendClient) Send(ctx context.Context, to domain.Email, subject, htmlBody string) (string, error) {
	payload, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      []string{string(to)},
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal email request: %w", err)
	}

	var deliveryID string
	err = retry.Retry(ctx, c.retryCfg, func() error {
		return c.breaker.Execute(ctx, func() error {
			id, err := c.post(ctx, payload)
			if err != nil {
				return err
			}
			deliveryID = id
			return nil
		})
	})
	if err != nil {
		return "", err
	}

	c.logger.Infow("email sent",
		"to", to,
		"subject", subject,
		"delivery_id", deliveryID,
	)
	return deliveryID, nil
}

func (c *ResendClient) post(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("failed to read email response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("email provider returned %d: %s", resp.StatusCode, string(body))
	}

	var out sendResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode email response: %w", err)
	}
	return out.ID, nil
}

var _ ports.EmailSender = (*ResendClient)(nil)
