package enrich

import (
	"fmt"
	"time"

	"github.com/tidewater-group/outreach-cli/internal/model"
)

// failureSummaries maps each failure code to a human-readable summary.
var failureSummaries = map[FailureCode]string{
	CodeSDKUnavailable:      "AI runtime is unavailable in this environment; enrichment could not run.",
	CodeAuthRequired:        "AI authorization is required before enrichment can run.",
	CodeRateLimited:         "The AI provider rate limit was reached before enrichment could complete.",
	CodeTimeout:             "The AI request timed out before enrichment could complete.",
	CodeNetwork:             "A network error prevented enrichment from completing.",
	CodeModelUnavailable:    "None of the configured AI models are available.",
	CodeAllModelsFailed:     "Every configured AI model failed during enrichment.",
	CodeEvidenceGateBlocked: "Enrichment was blocked: not enough verifiable evidence to confirm this contact's identity.",
	CodeUnknown:             "Enrichment failed for an unknown reason.",
}

// failureActions maps each failure code to a concrete remediation step.
var failureActions = map[FailureCode]string{
	CodeSDKUnavailable:      "Refresh the page or relaunch the application, then retry enrichment.",
	CodeAuthRequired:        "Sign in to the AI provider, then retry enrichment.",
	CodeRateLimited:         "Wait a few minutes for the rate limit to reset, then retry.",
	CodeTimeout:             "Retry enrichment; if timeouts persist, switch to the fast model preset.",
	CodeNetwork:             "Check the network connection, then retry enrichment.",
	CodeModelUnavailable:    "Switch to a different model preset in settings, then retry.",
	CodeAllModelsFailed:     "Review the attempt log below, switch models if needed, then retry.",
	CodeEvidenceGateBlocked: "Add a verifiable profile URL or additional source links, then re-run enrichment.",
	CodeUnknown:             "Retry enrichment; if the problem persists, review the application logs.",
}

// FailureOptions carries whatever context survived the failed run.
type FailureOptions struct {
	Evidence   []model.Evidence
	ExtraRisks []string
	Attempts   []ModelAttempt
	Now        time.Time
}

// BuildFailureResult converts a classified failure into a zero-confidence,
// user-actionable result. Scores are all zero, never partial: a failed run
// must not look like a low-scoring success. Each model attempt is rendered
// into the alignment risks so operators can see which backends failed and
// why.
func BuildFailureResult(code FailureCode, opts FailureOptions) (model.Scores, model.EnrichmentData) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	summary, ok := failureSummaries[code]
	if !ok {
		summary = failureSummaries[CodeUnknown]
	}
	action, ok := failureActions[code]
	if !ok {
		action = failureActions[CodeUnknown]
	}

	zeroDim := model.ScoreProvenance{
		Score:              0,
		Confidence:         0,
		Reasoning:          "analysis did not complete",
		MissingDataPenalty: true,
	}
	scores := model.Scores{
		InvestorFit:       zeroDim,
		ValuesAlignment:   zeroDim,
		GovtAccess:        zeroDim,
		MaritimeRelevance: zeroDim,
		ConnectorScore:    zeroDim,
		OverallConfidence: 0,
	}

	risks := append([]string{}, opts.ExtraRisks...)
	for _, attempt := range opts.Attempts {
		risks = append(risks, fmt.Sprintf("model %s failed (%s): %s",
			attempt.Model, attempt.Code, attempt.Err))
	}

	flags := []string{
		FlagAnalysisError,
		FlagManualReview,
		FlagErrorPrefix + string(code),
	}
	// Gate blocks additionally carry the bare code so downstream filters
	// can select them without knowing the error_ prefix convention.
	if code == CodeEvidenceGateBlocked {
		flags = append(flags, string(CodeEvidenceGateBlocked))
	}

	enrichment := model.EnrichmentData{
		Summary:            summary,
		RecommendedAction:  action,
		AlignmentRisks:     risks,
		EvidenceLinks:      opts.Evidence,
		FlaggedAttributes:  flags,
		IdentityConfidence: 0,
		CollisionRisk:      true, // forces manual review downstream
		LastVerified:       now.UTC().Format(time.RFC3339),
	}

	return scores, enrichment
}
