// Package anthropic exposes the one Anthropic call the coach makes: a
// single-turn completion under a cacheable system prompt.
package anthropic

import (
	"context"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// Completer turns a prompt into text. Implemented by the SDK client and by
// test mocks.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (*Reply, error)
}

// Prompt is a system instruction plus one user turn.
type Prompt struct {
	Model     string
	MaxTokens int64
	System    string
	// CacheTTL marks System as a cache breakpoint ("5m" or "1h"). Empty
	// disables caching.
	CacheTTL string
	User     string
}

// Reply is the first text block of the response with its accounting.
type Reply struct {
	ID         string
	Model      string
	Text       string
	StopReason string
	Usage      TokenUsage
}

type sdkCompleter struct {
	messages sdk.MessageService
}

// NewClient returns a Completer backed by the official SDK. opts are passed
// through (base URL, retries).
func NewClient(apiKey string, opts ...option.RequestOption) Completer {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	c := sdk.NewClient(opts...)
	return &sdkCompleter{messages: c.Messages}
}

func (c *sdkCompleter) Complete(ctx context.Context, p Prompt) (*Reply, error) {
	msg, err := c.messages.New(ctx, messageParams(p))
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: complete")
	}
	return replyFrom(msg), nil
}

func messageParams(p Prompt) sdk.MessageNewParams {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.Model),
		MaxTokens: p.MaxTokens,
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(p.User))},
	}
	if p.System != "" {
		system := sdk.TextBlockParam{Text: p.System}
		if p.CacheTTL != "" {
			cc := sdk.NewCacheControlEphemeralParam()
			cc.TTL = sdk.CacheControlEphemeralTTL(p.CacheTTL)
			system.CacheControl = cc
		}
		params.System = []sdk.TextBlockParam{system}
	}
	return params
}

func replyFrom(msg *sdk.Message) *Reply {
	r := &Reply{
		ID:         msg.ID,
		Model:      string(msg.Model),
		StopReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:      msg.Usage.InputTokens,
			OutputTokens:     msg.Usage.OutputTokens,
			CacheWriteTokens: msg.Usage.CacheCreationInputTokens,
			CacheReadTokens:  msg.Usage.CacheReadInputTokens,
		},
	}
	for _, b := range msg.Content {
		if b.Type == "text" {
			r.Text = b.Text
			break
		}
	}
	return r
}
