// Package enrich implements the contact enrichment pipeline: evidence
// gathering and verification, a deterministic evidence gate, a ranked model
// cascade, defensive normalization of model output, and structured failure
// results.
package enrich

import (
	"fmt"
	"strings"
)

// FailureCode is the closed taxonomy of pipeline failures.
type FailureCode string

const (
	CodeSDKUnavailable      FailureCode = "sdk_unavailable"
	CodeAuthRequired        FailureCode = "auth_required"
	CodeRateLimited         FailureCode = "rate_limited"
	CodeTimeout             FailureCode = "timeout"
	CodeNetwork             FailureCode = "network"
	CodeModelUnavailable    FailureCode = "model_unavailable"
	CodeAllModelsFailed     FailureCode = "all_models_failed"
	CodeUnknown             FailureCode = "unknown"
	CodeEvidenceGateBlocked FailureCode = "evidence_gate_blocked"
)

// SessionLevel reports whether the code indicates the whole AI session is
// unusable. Session-level failures halt the model cascade: retrying other
// models would repeat the same auth/quota/runtime problem.
func (c FailureCode) SessionLevel() bool {
	switch c {
	case CodeSDKUnavailable, CodeAuthRequired, CodeRateLimited:
		return true
	default:
		return false
	}
}

// ModelAttempt records one failed model invocation within a cascade run.
type ModelAttempt struct {
	Model string      `json:"model"`
	Code  FailureCode `json:"code"`
	Err   string      `json:"error"`
}

// PipelineError is a classified failure carrying the full attempt log of
// the orchestration run that produced it.
type PipelineError struct {
	Code     FailureCode
	Attempts []ModelAttempt
	Err      error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("enrich: %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("enrich: %s", e.Code)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Classify maps an arbitrary capability error to a FailureCode using
// substring heuristics. Error text from model backends is not structured,
// so this is the single place raw text is pattern-matched; call sites only
// ever see the closed enum.
func Classify(err error) FailureCode {
	if err == nil {
		return CodeUnknown
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "401"),
		strings.Contains(msg, "403"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "authentication"),
		strings.Contains(msg, "invalid api key"):
		return CodeAuthRequired
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "overloaded"):
		return CodeRateLimited
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "deadline"),
		strings.Contains(msg, "abort"):
		return CodeTimeout
	case strings.Contains(msg, "network"),
		strings.Contains(msg, "fetch failed"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "cors"):
		return CodeNetwork
	case strings.Contains(msg, "model_not_found"),
		strings.Contains(msg, "unknown model"),
		strings.Contains(msg, "no such model"),
		strings.Contains(msg, "model") && strings.Contains(msg, "not found"):
		return CodeModelUnavailable
	default:
		return CodeUnknown
	}
}
