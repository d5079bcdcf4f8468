// Package telegram sends chat messages through the Telegram Bot API
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	perr "contractscout/internal/platform/errors"
	"contractscout/internal/platform/retry"
)

const (
	baseURLDefault = "https://api.telegram.org"
	defaultTimeout = 10 * time.Second
)

// Options configures the Bot
type Options struct {
	BaseURL string
	Token   string
	ChatID  string
	Timeout time.Duration
}

// Bot posts sendMessage requests. One call is one attempt; callers own retries
type Bot struct {
	http *http.Client
	opts Options
}

// New constructs a Bot
func New(o Options) *Bot {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return &Bot{http: &http.Client{Timeout: o.Timeout}, opts: o}
}

// Configured reports whether both the token and chat id are set
func (o Options) Configured() bool { return o.Token != "" && o.ChatID != "" }

type sendMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Send posts text to the configured chat. Errors are classified for retry:
// 429 carries the server's wait hint, 5xx and transport errors are transient,
// anything else is permanent
func (b *Bot) Send(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessage{ChatID: b.opts.ChatID, Text: text, DisableWebPagePreview: true})
	if err != nil {
		return retry.Permanent(perr.Wrap(err, perr.ErrorCodeJSON, "encode telegram message"))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.opts.BaseURL+"/bot"+b.opts.Token+"/sendMessage", bytes.NewReader(payload))
	if err != nil {
		return retry.Permanent(perr.Wrap(err, perr.ErrorCodeInvalidArgument, "telegram new request failed"))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		// the token is part of the url; never echo it
		return perr.Newf(perr.ErrorCodeUnavailable, "telegram do failed: %s", redact(err.Error(), b.opts.Token))
	}
	defer func() { _ = resp.Body.Close() }()

	var ar apiResponse
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(body, &ar)

	switch {
	case resp.StatusCode == http.StatusOK && ar.OK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		err := perr.Newf(perr.ErrorCodeTooManyRequests, "telegram rate limited: %s", ar.Description)
		if ar.Parameters.RetryAfter > 0 {
			return retry.After(err, time.Duration(ar.Parameters.RetryAfter)*time.Second)
		}
		return err
	case resp.StatusCode >= 500:
		return perr.Newf(perr.ErrorCodeUnavailable, "telegram status %d", resp.StatusCode)
	default:
		return retry.Permanent(perr.Newf(perr.ErrorCodeNotify, "telegram rejected message (%d): %s", resp.StatusCode, ar.Description))
	}
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "<token>")
}
