package enrich

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/tidewater-group/outreach-cli/pkg/aichat"
)

// Mode selects which model preset a run uses.
type Mode string

const (
	ModeFast    Mode = "fast"
	ModeQuality Mode = "quality"
)

// ModelSet holds the ordered candidate model lists per mode. It is plain
// configuration passed into the invoker, never module-level state.
type ModelSet struct {
	Fast    []string
	Quality []string
}

// For returns the candidate list for a mode. Unknown modes fall back to
// the fast preset.
func (ms ModelSet) For(mode Mode) []string {
	if mode == ModeQuality {
		return ms.Quality
	}
	return ms.Fast
}

// defaultModelSentinel marks the appended empty-model attempt that lets
// the backend choose its own default.
const defaultModelSentinel = ""

// Invoker drives the ranked model cascade against the chat capability.
// A nil client is a legal state and classifies as sdk_unavailable.
type Invoker struct {
	client aichat.Client
}

// NewInvoker creates an Invoker. client may be nil when the host
// environment has no AI runtime.
func NewInvoker(client aichat.Client) *Invoker {
	return &Invoker{client: client}
}

// Invoke tries each candidate model in order and returns the first
// success. Failures are classified; session-level codes halt the cascade
// immediately. The returned attempt log is append-only and covers every
// failed candidate, including on success.
func (inv *Invoker) Invoke(ctx context.Context, prompt string, models []string, opts aichat.Options) (*aichat.Response, []ModelAttempt, *PipelineError) {
	if inv.client == nil {
		attempt := ModelAttempt{
			Model: attemptLabel(defaultModelSentinel),
			Code:  CodeSDKUnavailable,
			Err:   "chat capability is not available in this runtime",
		}
		return nil, []ModelAttempt{attempt}, &PipelineError{
			Code:     CodeSDKUnavailable,
			Attempts: []ModelAttempt{attempt},
		}
	}

	// The sentinel gives the backend one chance to pick its own default
	// after every configured candidate has failed.
	candidates := append(slices.Clone(models), defaultModelSentinel)

	var attempts []ModelAttempt
	allModelUnavailable := true

	for _, candidate := range candidates {
		o := opts
		o.Model = candidate

		resp, err := inv.client.Chat(ctx, prompt, o)
		if err == nil {
			return resp, attempts, nil
		}

		// Compatibility retry: if the backend rejected a specific request
		// option, strip it and retry the same model once.
		if opt := unsupportedOption(err); opt != "" {
			zap.L().Debug("cascade: retrying without unsupported option",
				zap.String("model", attemptLabel(candidate)),
				zap.String("option", opt),
			)
			resp, err = inv.client.Chat(ctx, prompt, stripOption(o, opt))
			if err == nil {
				return resp, attempts, nil
			}
		}

		code := Classify(err)
		attempts = append(attempts, ModelAttempt{
			Model: attemptLabel(candidate),
			Code:  code,
			Err:   err.Error(),
		})
		zap.L().Warn("cascade: model attempt failed",
			zap.String("model", attemptLabel(candidate)),
			zap.String("code", string(code)),
			zap.Error(err),
		)

		if code.SessionLevel() {
			return nil, attempts, &PipelineError{Code: code, Attempts: attempts, Err: err}
		}
		if code != CodeModelUnavailable {
			allModelUnavailable = false
		}
	}

	code := CodeAllModelsFailed
	if allModelUnavailable && len(attempts) > 0 {
		code = CodeModelUnavailable
	}
	return nil, attempts, &PipelineError{Code: code, Attempts: attempts}
}

// attemptLabel names a candidate for logs and attempt records.
func attemptLabel(model string) string {
	if model == defaultModelSentinel {
		return "default"
	}
	return model
}

// strippableOptions are request options a backend may reject; each maps to
// the substrings that identify it in error text.
var strippableOptions = []string{"temperature", "tools", "web_search", "max_tokens"}

// unsupportedOption returns the name of a request option the error text
// identifies as unsupported, or "" when the error is not option-related.
func unsupportedOption(err error) string {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "unsupported") && !strings.Contains(msg, "not supported") {
		return ""
	}
	for _, opt := range strippableOptions {
		if strings.Contains(msg, opt) {
			return opt
		}
	}
	return ""
}

// stripOption clears the named option from a request.
func stripOption(opts aichat.Options, name string) aichat.Options {
	switch name {
	case "temperature":
		opts.Temperature = nil
	case "tools", "web_search":
		opts.WebSearch = false
	case "max_tokens":
		opts.MaxTokens = 0
	}
	return opts
}
