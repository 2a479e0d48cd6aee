package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFailureResultZeroesEverything(t *testing.T) {
	scores, enrichment := BuildFailureResult(CodeAllModelsFailed, FailureOptions{Now: testNow})

	for _, dim := range scores.Dimensions() {
		assert.Equal(t, 0, dim.Score)
		assert.Equal(t, 0, dim.Confidence)
		assert.True(t, dim.MissingDataPenalty)
	}
	assert.Equal(t, 0, scores.OverallConfidence)
	assert.Equal(t, 0, enrichment.IdentityConfidence)
	assert.True(t, enrichment.CollisionRisk)
}

func TestBuildFailureResultFlags(t *testing.T) {
	_, enrichment := BuildFailureResult(CodeRateLimited, FailureOptions{Now: testNow})

	assert.True(t, enrichment.HasFlag(FlagAnalysisError))
	assert.True(t, enrichment.HasFlag(FlagManualReview))
	assert.True(t, enrichment.HasFlag("error_rate_limited"))
}

func TestBuildFailureResultSummaryAndActionPerCode(t *testing.T) {
	for code, summary := range failureSummaries {
		_, enrichment := BuildFailureResult(code, FailureOptions{Now: testNow})
		assert.Equal(t, summary, enrichment.Summary, "code %s", code)
		assert.NotEmpty(t, enrichment.RecommendedAction, "code %s", code)
	}
}

func TestBuildFailureResultUnknownCodeFallsBack(t *testing.T) {
	_, enrichment := BuildFailureResult(FailureCode("made_up"), FailureOptions{Now: testNow})

	assert.Equal(t, failureSummaries[CodeUnknown], enrichment.Summary)
	assert.True(t, enrichment.HasFlag("error_made_up"))
}

func TestBuildFailureResultRendersAttempts(t *testing.T) {
	_, enrichment := BuildFailureResult(CodeAllModelsFailed, FailureOptions{
		ExtraRisks: []string{"pre-existing risk"},
		Attempts: []ModelAttempt{
			{Model: "claude-a", Code: CodeTimeout, Err: "i/o timeout"},
			{Model: "claude-b", Code: CodeNetwork, Err: "connection refused"},
		},
		Now: testNow,
	})

	require.Len(t, enrichment.AlignmentRisks, 3)
	assert.Equal(t, "pre-existing risk", enrichment.AlignmentRisks[0])
	assert.Contains(t, enrichment.AlignmentRisks[1], "claude-a")
	assert.Contains(t, enrichment.AlignmentRisks[1], "timeout")
	assert.Contains(t, enrichment.AlignmentRisks[2], "claude-b")
}

func TestBuildFailureResultKeepsEvidence(t *testing.T) {
	evidence := evidenceAt("https://acme.com/team")
	_, enrichment := BuildFailureResult(CodeEvidenceGateBlocked, FailureOptions{
		Evidence: evidence,
		Now:      testNow,
	})

	assert.Equal(t, evidence, enrichment.EvidenceLinks)
	assert.True(t, enrichment.HasFlag("error_evidence_gate_blocked"))
	assert.True(t, enrichment.HasFlag("evidence_gate_blocked"))
}

func TestBuildFailureResultBareGateFlagOnlyWhenBlocked(t *testing.T) {
	_, enrichment := BuildFailureResult(CodeTimeout, FailureOptions{Now: testNow})
	assert.False(t, enrichment.HasFlag("evidence_gate_blocked"))
}
