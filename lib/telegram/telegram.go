// Package telegram is a minimal Telegram Bot API client covering the
// methods needed to post changelogs.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"changelog-bot/lib/notify"
	"changelog-bot/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("changelog-bot/lib/telegram")

const (
	DefaultBaseUrl = "https://api.telegram.org"
	// MessageLimit is the maximum length of a message text in runes.
	MessageLimit = 4096
)

var (
	ErrNetwork  = errors.New("telegram request failed")
	ErrNoToken  = errors.New("telegram bot token is not set")
	ErrResponse = errors.New("telegram response malformed")
)

type Options struct {
	Token   string
	BaseUrl string
	Timeout time.Duration
	// Retries is the amount of extra attempts made on network errors, 5xx
	// and 429 responses.
	Retries   int
	RetryWait time.Duration
	Output    restyutil.InstrumentOutput
}

type Bot struct {
	http *resty.Client
}

func New(opts Options) (*Bot, error) {
	if opts.Token == "" {
		return nil, ErrNoToken
	}
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = time.Second
	}

	client := resty.New()
	client.SetBaseURL(fmt.Sprintf("%s/bot%s", opts.BaseUrl, opts.Token))
	client.SetTimeout(opts.Timeout)
	client.SetHeader("content-type", "application/json")
	client.SetRetryCount(opts.Retries)
	client.SetRetryWaitTime(opts.RetryWait)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return res.StatusCode() >= 500 || res.StatusCode() == 429
	})
	restyutil.InstrumentClient(client, otel.Tracer("changelog-bot/lib/telegram/http"), opts.Output)

	return &Bot{http: client}, nil
}

// Message is the part of https://core.telegram.org/bots/api#message this
// client reads.
type Message struct {
	MessageID int64 `json:"message_id"`
}

// response is the envelope of every Bot API reply, Result is only set when
// Ok is true.
type response struct {
	Ok          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

type SendMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type ForwardMessage struct {
	ChatID     string `json:"chat_id"`
	FromChatID string `json:"from_chat_id"`
	MessageID  int64  `json:"message_id"`
}

// call posts body to a Bot API method. A reply with ok=false is returned as
// a Rejected outcome, a successful one as the decoded message.
func (b *Bot) call(ctx context.Context, method string, body any) (Message, notify.Outcome, error) {
	ctx, span := tracer.Start(ctx, method)
	defer span.End()

	res, err := b.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/" + method)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return Message{}, nil, fmt.Errorf("%w: %s: %w", ErrNetwork, method, err)
	}

	var envelope response
	err = json.Unmarshal(res.Body(), &envelope)
	if err != nil {
		span.SetStatus(codes.Error, "failed to decode response")
		if res.IsError() {
			return Message{}, nil, fmt.Errorf("%w: %s: %s", ErrNetwork, method, res.Status())
		}
		return Message{}, nil, fmt.Errorf("%w: %s: %w", ErrResponse, method, err)
	}
	if !envelope.Ok {
		span.SetAttributes(attribute.Int("error_code", envelope.ErrorCode))
		span.SetStatus(codes.Error, envelope.Description)
		return Message{}, notify.Rejected{Reason: envelope.Description}, nil
	}

	var msg Message
	err = json.Unmarshal(envelope.Result, &msg)
	if err != nil {
		span.SetStatus(codes.Error, "failed to decode message")
		return Message{}, nil, fmt.Errorf("%w: %s result: %w", ErrResponse, method, err)
	}
	span.SetAttributes(attribute.Int64("message_id", msg.MessageID))
	return msg, notify.Delivered{MessageIDs: []int64{msg.MessageID}}, nil
}

// SendMessage posts an HTML formatted text without link previews.
func (b *Bot) SendMessage(ctx context.Context, chatID, text string) (notify.Outcome, error) {
	_, outcome, err := b.call(ctx, "sendMessage", SendMessage{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	return outcome, err
}

func (b *Bot) ForwardMessage(ctx context.Context, fromChatID, chatID string, messageID int64) (notify.Outcome, error) {
	_, outcome, err := b.call(ctx, "forwardMessage", ForwardMessage{
		ChatID:     chatID,
		FromChatID: fromChatID,
		MessageID:  messageID,
	})
	return outcome, err
}

// Notify implements notify.Notifier, texts longer than MessageLimit are
// posted as several consecutive messages. Delivery stops at the first
// rejected chunk.
func (b *Bot) Notify(ctx context.Context, chatID, text string) (notify.Outcome, error) {
	var delivered notify.Delivered
	for _, chunk := range notify.Split(text, MessageLimit) {
		outcome, err := b.SendMessage(ctx, chatID, chunk)
		if err != nil {
			return nil, err
		}
		d, ok := outcome.(notify.Delivered)
		if !ok {
			return outcome, nil
		}
		delivered.MessageIDs = append(delivered.MessageIDs, d.MessageIDs...)
	}
	return delivered, nil
}
