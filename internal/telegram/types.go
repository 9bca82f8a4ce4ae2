// Package telegram sends reminder messages through the Telegram Bot API.
package telegram

import "encoding/json"

// APIResponse is the envelope every Bot API method returns.
type APIResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// SendResult describes a completed sendMessage call.
type SendResult struct {
	StatusCode int
	Body       json.RawMessage
}
