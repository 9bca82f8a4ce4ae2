package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.telegram.org"

// ErrNoRecipient is returned when there is no chat id to send to.
var ErrNoRecipient = errors.New("telegram: empty chat id")

// Client calls the Telegram Bot API sendMessage method.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	stubMode   bool
}

// NewClient creates a client for the bot identified by token. In stub mode
// messages are logged instead of sent.
func NewClient(baseURL, token string, stubMode bool) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		stubMode:   stubMode,
	}
}

// SendMessage posts text to chatID. Only HTTP 200 counts as delivered; any
// other status is returned as an error alongside the result.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) (*SendResult, error) {
	if chatID == "" {
		return nil, ErrNoRecipient
	}

	if c.stubMode {
		slog.Info("Stub telegram message", "chat_id", chatID, "text", text)
		body, _ := json.Marshal(APIResponse{OK: true})
		return &SendResult{StatusCode: http.StatusOK, Body: body}, nil
	}

	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", text)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The request URL carries the bot token.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	result := &SendResult{StatusCode: resp.StatusCode}
	if json.Valid(body) {
		result.Body = body
	} else {
		result.Body, _ = json.Marshal(map[string]string{"raw": string(body)})
	}

	if resp.StatusCode != http.StatusOK {
		var apiResp APIResponse
		if json.Unmarshal(body, &apiResp) == nil && apiResp.Description != "" {
			return result, fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, apiResp.Description)
		}
		return result, fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return result, nil
}
