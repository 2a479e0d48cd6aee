// Package aichat wraps the Anthropic Messages API behind the minimal chat
// capability the enrichment pipeline consumes. Callers must tolerate a nil
// Client: some host environments have no AI runtime at all.
package aichat

import (
	"context"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Client defines the chat capability consumed by the pipeline.
type Client interface {
	Chat(ctx context.Context, prompt string, opts Options) (*Response, error)
}

// Options controls a single chat request. A zero Model lets the backend
// choose its configured default.
type Options struct {
	Model       string
	MaxTokens   int64
	Temperature *float64
	WebSearch   bool
}

// Response is the normalized result of a chat request.
type Response struct {
	ID    string
	Model string
	Text  string
	Usage TokenUsage
}

// TokenUsage tracks token consumption for one request.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// Log emits token usage as structured fields.
func (u TokenUsage) Log(model, phase string) {
	zap.L().Info("token usage",
		zap.String("model", model),
		zap.String("phase", phase),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
	)
}

// webSearchMaxUses caps server-side web searches per request.
const webSearchMaxUses = 5

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client       sdk.Client
	defaultModel string
}

// NewClient creates an Anthropic-backed chat client. defaultModel is used
// when a request leaves Options.Model empty.
func NewClient(apiKey, defaultModel string) Client {
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
		defaultModel: defaultModel,
	}
}

func (c *sdkClient) Chat(ctx context.Context, prompt string, opts Options) (*Response, error) {
	model := opts.Model
	if model == "" {
		model = c.defaultModel
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: maxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}

	if opts.Temperature != nil {
		params.Temperature = sdk.Float(*opts.Temperature)
	}

	if opts.WebSearch {
		params.Tools = []sdk.ToolUnionParam{{
			OfWebSearchTool20250305: &sdk.WebSearchTool20250305Param{
				MaxUses: sdk.Int(webSearchMaxUses),
			},
		}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "aichat: create message")
	}

	return fromSDKMessage(msg), nil
}

// fromSDKMessage flattens a message into a Response. Non-text blocks
// (tool use, search results) are skipped; only assistant text survives.
func fromSDKMessage(msg *sdk.Message) *Response {
	var sb strings.Builder
	for _, b := range msg.Content {
		if b.Type == "" || b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}

	return &Response{
		ID:    msg.ID,
		Model: string(msg.Model),
		Text:  sb.String(),
		Usage: TokenUsage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}
}
