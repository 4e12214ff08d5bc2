package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"casewatch/pkg/config"
	"casewatch/pkg/logger"

	"go.uber.org/zap"
)

// TelegramNotifier pushes operator alerts through the Telegram bot API
type TelegramNotifier struct {
	config     *config.NotifierConfig
	httpClient *http.Client
}

// TelegramMessage represents a message to be sent via Telegram
type TelegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

// TelegramResponse represents Telegram API response
type TelegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
	ErrorCode   int    `json:"error_code,omitempty"`
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(cfg *config.NotifierConfig) *TelegramNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10
	}
	return &TelegramNotifier{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
	}
}

// Alert sends an operator alert. Disabled notifiers drop silently so
// callers never need to check configuration.
func (t *TelegramNotifier) Alert(ctx context.Context, message string) error {
	if !t.config.Enabled {
		logger.Debug("Telegram notifications disabled")
		return nil
	}

	if t.config.BotToken == "" || t.config.ChatID == "" {
		return fmt.Errorf("telegram bot token or chat ID not configured")
	}

	return t.sendTelegramMessage(ctx, &TelegramMessage{
		ChatID:    t.config.ChatID,
		Text:      message,
		ParseMode: "Markdown",
	})
}

// SendBreakerAlert notifies that a source's circuit breaker opened
func (t *TelegramNotifier) SendBreakerAlert(ctx context.Context, sourceKey string, failures int) error {
	message := fmt.Sprintf("*Collection suspended*\n\nSource `%s` failed %d consecutive runs and was dropped to minimal frequency. It stays there until a run succeeds.",
		sourceKey, failures)
	return t.Alert(ctx, message)
}

// SendRecoveryAlert notifies that a suspended source recovered
func (t *TelegramNotifier) SendRecoveryAlert(ctx context.Context, sourceKey string) error {
	message := fmt.Sprintf("*Collection recovered*\n\nSource `%s` completed a run successfully; adaptive scheduling resumed.", sourceKey)
	return t.Alert(ctx, message)
}

func (t *TelegramNotifier) sendTelegramMessage(ctx context.Context, message *TelegramMessage) error {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.config.BotToken)

	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var telegramResp TelegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&telegramResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !telegramResp.OK {
		return fmt.Errorf("telegram API error: %s (code: %d)", telegramResp.Description, telegramResp.ErrorCode)
	}

	logger.Debug("Telegram message sent", zap.String("chat_id", message.ChatID))
	return nil
}

// ValidateConfig validates the notifier configuration
func (t *TelegramNotifier) ValidateConfig() error {
	if !t.config.Enabled {
		return nil
	}
	if t.config.BotToken == "" {
		return fmt.Errorf("telegram bot token is required when enabled")
	}
	if t.config.ChatID == "" {
		return fmt.Errorf("telegram chat ID is required when enabled")
	}
	return nil
}
