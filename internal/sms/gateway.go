package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Gateway is the outbound SMS primitive: deliver one message to one phone
// number, success or failure.
type Gateway interface {
	Send(ctx context.Context, phone, message string) error
}

// HTTPGateway posts messages to a JSON SMS provider endpoint.
type HTTPGateway struct {
	client *http.Client
	url    string
	token  string
	sender string
}

func NewHTTPGateway(url, token, sender string) *HTTPGateway {
	return &HTTPGateway{
		client: &http.Client{Timeout: 15 * time.Second},
		url:    url,
		token:  token,
		sender: sender,
	}
}

type sendRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

func (g *HTTPGateway) Send(ctx context.Context, phone, message string) error {
	body, err := json.Marshal(sendRequest{
		To:      phone,
		From:    g.sender,
		Message: message,
	})
	if err != nil {
		return fmt.Errorf("marshal sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, snippet)
	}

	return nil
}

// LogGateway writes messages to the log instead of a provider. Used in dev
// when no gateway URL is configured.
type LogGateway struct {
	log zerolog.Logger
}

func NewLogGateway(log zerolog.Logger) *LogGateway {
	return &LogGateway{log: log.With().Str("component", "sms").Logger()}
}

func (g *LogGateway) Send(_ context.Context, phone, message string) error {
	g.log.Info().Str("to", phone).Str("message", message).Msg("sms (log gateway)")
	return nil
}
