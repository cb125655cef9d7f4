package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/jarvishq/jarvis-server/internal/config"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/metrics"
	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

// Update is one entry from the Bot API getUpdates response.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is the subset of the Bot API message object the assistant reads.
type Message struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	Chat      Chat   `json:"chat"`
	From      *TgUser `json:"from"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type TgUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

type updatesResponse struct {
	OK          bool     `json:"ok"`
	Result      []Update `json:"result"`
	Description string   `json:"description"`
}

type sendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Client talks to the Telegram Bot API.
type Client struct {
	httpClient *resty.Client
	token      string
}

func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.TelegramAPIBaseURL, "/")).
		SetHeader("User-Agent", "Jarvis-Assistant/1.0")

	return &Client{
		httpClient: client,
		token:      cfg.TelegramBotToken,
	}
}

// GetUpdates long-polls the Bot API for new updates past offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	var result updatesResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("offset", fmt.Sprintf("%d", offset)).
		SetQueryParam("timeout", fmt.Sprintf("%d", int(timeout.Seconds()))).
		SetQueryParam("allowed_updates", `["message"]`).
		SetResult(&result).
		Get(c.methodPath("getUpdates"))
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeExternal,
			"failed to poll telegram updates",
			err,
			"f7a6d4f1-62f0-4d9f-8b44-1a2c3e5b7d90",
		)
	}
	if resp.IsError() || !result.OK {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeExternal,
			fmt.Sprintf("telegram getUpdates error (status %d): %s", resp.StatusCode(), result.Description),
			nil,
			"3d9e1b27-4c85-4f6a-9e02-6b7f8a1c2d43",
		)
	}
	return result.Result, nil
}

// SendMessage posts a text reply to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	var result sendResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"chat_id": chatID,
			"text":    text,
		}).
		SetResult(&result).
		Post(c.methodPath("sendMessage"))
	if err != nil {
		metrics.RecordTelegramSend("error")
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeExternal,
			"failed to send telegram message",
			err,
			"a1c5e8d2-7b34-4e9f-b620-9d4f6a2c8e17",
		)
	}
	if resp.IsError() || !result.OK {
		metrics.RecordTelegramSend("error")
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeExternal,
			fmt.Sprintf("telegram sendMessage error (status %d): %s", resp.StatusCode(), result.Description),
			nil,
			"0b8d3f61-2e4a-45c7-8f19-5c6d7e8a9b02",
		)
	}
	metrics.RecordTelegramSend("success")
	return nil
}

func (c *Client) methodPath(method string) string {
	return fmt.Sprintf("/bot%s/%s", c.token, method)
}
