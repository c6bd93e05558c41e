package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// ActionTyping is the "typing…" chat action.
const ActionTyping = "typing"

// Client is a minimal Telegram Bot API client covering what the bot needs:
// identity resolution, long polling and sending replies.
type Client struct {
	client *resty.Client
}

// NewClient creates a client for the given bot API base URL
// (e.g. "https://api.telegram.org/bot<token>").
func NewClient(apiBase string, requestTimeout time.Duration) *Client {
	return &Client{
		client: resty.New().SetBaseURL(apiBase).SetTimeout(requestTimeout),
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description,omitempty"`
}

func call[T any](ctx context.Context, c *Client, method string, params map[string]string) (T, error) {
	var result T

	res, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/" + method)
	if err != nil {
		return result, fmt.Errorf("telegram %s request failed: %w", method, err)
	}

	var wrapper apiResponse
	if err := json.Unmarshal(res.Body(), &wrapper); err != nil {
		return result, fmt.Errorf("unable to parse %s response: %w", method, err)
	}
	if !wrapper.OK {
		return result, fmt.Errorf("telegram %s rejected: %s", method, wrapper.Description)
	}

	if err := json.Unmarshal(wrapper.Result, &result); err != nil {
		return result, fmt.Errorf("unable to parse %s result: %w", method, err)
	}
	return result, nil
}

// GetMe resolves the bot's own identity. It is called once at startup; a
// failure here is fatal because mention detection needs the username.
func (c *Client) GetMe(ctx context.Context) (User, error) {
	return call[User](ctx, c, "getMe", nil)
}

// GetUpdates long-polls for new updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	return call[[]Update](ctx, c, "getUpdates", map[string]string{
		"offset":  strconv.FormatInt(offset, 10),
		"timeout": strconv.Itoa(timeoutSec),
	})
}

type sendMessageRequest struct {
	ChatID           int64  `json:"chat_id"`
	Text             string `json:"text"`
	ReplyToMessageID int64  `json:"reply_to_message_id,omitempty"`
}

// SendMessage sends text to a chat, optionally as a reply, and returns the
// message as assigned by the platform.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, replyToMessageID int64) (Message, error) {
	res, err := c.client.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{ChatID: chatID, Text: text, ReplyToMessageID: replyToMessageID}).
		Post("/sendMessage")
	if err != nil {
		return Message{}, fmt.Errorf("telegram sendMessage request failed: %w", err)
	}

	var wrapper apiResponse
	if err := json.Unmarshal(res.Body(), &wrapper); err != nil {
		return Message{}, fmt.Errorf("unable to parse sendMessage response: %w", err)
	}
	if !wrapper.OK {
		return Message{}, fmt.Errorf("telegram sendMessage rejected: %s", wrapper.Description)
	}

	var sent Message
	if err := json.Unmarshal(wrapper.Result, &sent); err != nil {
		return Message{}, fmt.Errorf("unable to parse sendMessage result: %w", err)
	}
	return sent, nil
}

// SendChatAction shows a chat action ("typing…") to the chat.
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	_, err := call[bool](ctx, c, "sendChatAction", map[string]string{
		"chat_id": strconv.FormatInt(chatID, 10),
		"action":  action,
	})
	return err
}
