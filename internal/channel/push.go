// Package channel holds the outbound delivery channel contracts and their
// provider-backed implementations.
package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// PushResult reports the outcome of a push send. A successful call with zero
// delivered recipients means no one had a registered device endpoint; that is
// not a hard error and must not trigger the email fallback.
type PushResult struct {
	Success        bool
	DeliveredCount int
	Error          string
}

// PushSender sends a push notification to the device endpoints associated
// with the given recipient IDs. The provider resolves endpoints itself.
type PushSender interface {
	SendPush(ctx context.Context, recipientIDs []string, title, message, url string, metadata map[string]string) (*PushResult, error)
}

// PushConfig holds push provider settings
type PushConfig struct {
	BaseURL string
	APIKey  string
	AppID   string
	Timeout time.Duration
}

// HTTPPushProvider sends push notifications through an HTTP push provider API
type HTTPPushProvider struct {
	config PushConfig
	client *http.Client
	log    zerolog.Logger
}

// NewHTTPPushProvider creates a push provider adapter
func NewHTTPPushProvider(config PushConfig, log zerolog.Logger) *HTTPPushProvider {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPPushProvider{
		config: config,
		client: &http.Client{Timeout: timeout},
		log:    log.With().Str("component", "push").Logger(),
	}
}

type pushPayload struct {
	AppID        string            `json:"app_id"`
	RecipientIDs []string          `json:"recipient_ids"`
	Title        string            `json:"title"`
	Message      string            `json:"message"`
	URL          string            `json:"url,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
}

type pushResponse struct {
	Recipients int      `json:"recipients"`
	Errors     []string `json:"errors,omitempty"`
}

// SendPush implements PushSender. A transport failure or a non-2xx provider
// response is a hard error; an accepted request with zero matched endpoints
// is reported as success with DeliveredCount 0.
func (p *HTTPPushProvider) SendPush(ctx context.Context, recipientIDs []string, title, message, url string, metadata map[string]string) (*PushResult, error) {
	body, err := json.Marshal(pushPayload{
		AppID:        p.config.AppID,
		RecipientIDs: recipientIDs,
		Title:        title,
		Message:      message,
		URL:          url,
		Data:         metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending push request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("push provider returned status %d", resp.StatusCode)
	}

	var parsed pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding push response: %w", err)
	}

	result := &PushResult{
		Success:        true,
		DeliveredCount: parsed.Recipients,
	}
	if len(parsed.Errors) > 0 {
		result.Error = parsed.Errors[0]
		p.log.Warn().Strs("provider_errors", parsed.Errors).Msg("push provider reported partial errors")
	}

	return result, nil
}
