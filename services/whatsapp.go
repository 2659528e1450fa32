package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"relate-backend/sections/models"
)

// SendTextPayload is the WAHA sendText request body.
type SendTextPayload struct {
	ChatID  string `json:"chatId"`
	Text    string `json:"text"`
	Session string `json:"session"`
}

// WhatsappService delivers replies back out over a tenant's WAHA channel.
// Delivery is best-effort: a false return is logged and recorded by the
// caller, never escalated into a webhook failure.
type WhatsappService struct {
	logger     *slog.Logger
	channels   ChannelStore
	httpClient *http.Client
	defaultURL string
}

// NewWhatsappService creates a new delivery adapter. defaultURL is used when
// a channel row has no gateway URL of its own; when both are empty the send
// is a logged no-op that reports success (mock mode).
func NewWhatsappService(channels ChannelStore, defaultURL string) *WhatsappService {
	return &WhatsappService{
		logger:     slog.With("service", "WhatsappService"),
		channels:   channels,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		defaultURL: defaultURL,
	}
}

// SendMessage composes the WAHA payload for the tenant's active wa_waha
// channel and posts it to the gateway. Returns whether delivery succeeded.
func (s *WhatsappService) SendMessage(ctx context.Context, tenantID, to, text string) bool {
	channel, err := s.channels.FindActiveChannel(ctx, tenantID, models.ChannelWAHA)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Error("No active WAHA channel for tenant", "tenant", tenantID)
		} else {
			s.logger.Error("Channel lookup failed", "tenant", tenantID, "error", err)
		}
		deliveryFailed()
		return false
	}

	gatewayURL := channel.GatewayURL
	if gatewayURL == "" {
		gatewayURL = s.defaultURL
	}

	payload := SendTextPayload{
		ChatID:  to + "@c.us",
		Text:    text,
		Session: channel.SessionName,
	}

	if gatewayURL == "" {
		s.logger.Info("No gateway URL configured, mock send", "tenant", tenantID, "chat_id", payload.ChatID)
		return true
	}

	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to encode sendText payload", "error", err)
		deliveryFailed()
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gatewayURL+"/api/sendText", bytes.NewReader(body))
	if err != nil {
		s.logger.Error("Failed to build sendText request", "error", err)
		deliveryFailed()
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("sendText request failed", "tenant", tenantID, "error", err)
		deliveryFailed()
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("sendText rejected by gateway", "tenant", tenantID,
			"status", fmt.Sprintf("%d", resp.StatusCode))
		deliveryFailed()
		return false
	}

	s.logger.Debug("Reply delivered", "tenant", tenantID, "chat_id", payload.ChatID)
	return true
}
