package enrich

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewater-group/outreach-cli/internal/model"
)

func TestParseAnalysisStripsFences(t *testing.T) {
	raw := ParseAnalysis("Sure, here you go:\n```json\n{\"enrichment\": {\"summary\": \"hi\"}}\n```")
	require.NotNil(t, raw)
	assert.Contains(t, raw, "enrichment")
}

func TestParseAnalysisRepairsTruncation(t *testing.T) {
	raw := ParseAnalysis(`{"enrichment": {"summary": "cut off", "alignmentRisks": ["a"`)
	require.NotNil(t, raw)
	assert.Contains(t, raw, "enrichment")
}

func TestParseAnalysisRepairsMidStringTruncation(t *testing.T) {
	raw := ParseAnalysis(`{"enrichment": {"summary": "cut mid sen`)
	require.NotNil(t, raw)
	assert.Contains(t, raw, "enrichment")
}

func TestParseAnalysisGarbageReturnsNil(t *testing.T) {
	assert.Nil(t, ParseAnalysis("I refuse to answer in JSON."))
}

func TestNormalizeOutputNilInputStillValid(t *testing.T) {
	scores, enrichment := NormalizeOutput(nil, model.Contact{Name: "Jane"}, nil, testNow)

	for _, dim := range scores.Dimensions() {
		assert.Equal(t, defaultScore, dim.Score)
		assert.Equal(t, defaultConfidence, dim.Confidence)
		assert.True(t, dim.MissingDataPenalty)
	}

	// No evidence: identity is capped and a risk is injected no matter
	// what the (absent) model said.
	assert.LessOrEqual(t, enrichment.IdentityConfidence, noEvidenceIdentityCap)
	assert.Contains(t, enrichment.AlignmentRisks, riskNoEvidence)
	assert.True(t, enrichment.HasFlag(FlagManualReview))
	assert.NotEmpty(t, enrichment.LastVerified)
}

func TestNormalizeOutputClampsScores(t *testing.T) {
	raw := map[string]any{
		"scores": map[string]any{
			"investorFit": map[string]any{"score": float64(150), "confidence": float64(-5)},
		},
	}

	scores, _ := NormalizeOutput(raw, model.Contact{}, diverseEvidence(), testNow)
	assert.Equal(t, 100, scores.InvestorFit.Score)
	assert.Equal(t, 0, scores.InvestorFit.Confidence)
}

func TestNormalizeOutputFiltersTracks(t *testing.T) {
	raw := map[string]any{
		"enrichment": map[string]any{
			"identityConfidence": float64(80),
			"tracks":             []any{"Investment", "Bogus", "Investment", "Government"},
		},
	}

	_, enrichment := NormalizeOutput(raw, model.Contact{}, diverseEvidence(), testNow)
	assert.Equal(t, []model.Track{model.TrackInvestment, model.TrackGovernment}, enrichment.Tracks)
}

func TestNormalizeOutputNoSilentScoreInflation(t *testing.T) {
	raw := map[string]any{
		"enrichment": map[string]any{
			"identityConfidence": float64(95),
		},
	}

	_, enrichment := NormalizeOutput(raw, model.Contact{}, nil, testNow)
	assert.LessOrEqual(t, enrichment.IdentityConfidence, noEvidenceIdentityCap)
}

func TestNormalizeOutputLinkedInOnlyCapsIdentity(t *testing.T) {
	raw := map[string]any{
		"enrichment": map[string]any{
			"identityConfidence": float64(90),
		},
	}
	verified := evidenceAt(
		"https://linkedin.com/in/jane",
		"https://uk.linkedin.com/in/jane",
	)

	_, enrichment := NormalizeOutput(raw, model.Contact{}, verified, testNow)
	assert.LessOrEqual(t, enrichment.IdentityConfidence, linkedInOnlyIdentityCap)
	// LinkedIn-only evidence also fails the profile assessment.
	assert.True(t, enrichment.HasFlag(FlagManualReview))
}

func TestNormalizeOutputInjectsKnownSourceURL(t *testing.T) {
	contact := model.Contact{Name: "Jane", SourceURL: "https://linkedin.com/in/jane"}
	raw := map[string]any{
		"enrichment": map[string]any{
			"identityConfidence": float64(80),
			"evidenceLinks": []any{
				map[string]any{"claim": "CEO", "url": "https://acme.com/team", "confidence": float64(80)},
				map[string]any{"claim": "Fund", "url": "https://fund.example.org", "confidence": float64(70)},
			},
		},
	}

	_, enrichment := NormalizeOutput(raw, contact, nil, testNow)

	found := false
	for _, item := range enrichment.EvidenceLinks {
		if item.URL == contact.SourceURL {
			found = true
		}
	}
	assert.True(t, found, "known source URL should be injected")
	assert.True(t, enrichment.HasFlag(FlagSourceNotVerified))
}

func TestNormalizeOutputMergesVerifiedEvidence(t *testing.T) {
	verified := diverseEvidence()
	raw := map[string]any{
		"enrichment": map[string]any{
			"identityConfidence": float64(80),
			// Model echoes one verified record and adds one new one.
			"evidenceLinks": []any{
				map[string]any{"claim": verified[0].Claim, "url": verified[0].URL, "confidence": float64(80)},
				map[string]any{"claim": "New fact", "url": "https://registry.gov/entry", "confidence": float64(65)},
			},
		},
	}

	_, enrichment := NormalizeOutput(raw, model.Contact{}, verified, testNow)
	assert.Len(t, enrichment.EvidenceLinks, len(verified)+1)
}

func TestNormalizeOutputOverallConfidenceSuppliedWins(t *testing.T) {
	raw := map[string]any{
		"scores": map[string]any{
			"overallConfidence": float64(83),
			"investorFit":       map[string]any{"score": float64(10), "confidence": float64(10)},
		},
		"enrichment": map[string]any{
			"identityConfidence": float64(80),
		},
	}

	scores, _ := NormalizeOutput(raw, model.Contact{}, diverseEvidence(), testNow)
	// The model's explicit value wins even when derived confidences are
	// low. Deliberate, preserved behavior.
	assert.Equal(t, 83, scores.OverallConfidence)
}

func TestNormalizeOutputOverallConfidenceClamped(t *testing.T) {
	raw := map[string]any{
		"scores": map[string]any{"overallConfidence": float64(140)},
		"enrichment": map[string]any{
			"identityConfidence": float64(80),
		},
	}

	scores, _ := NormalizeOutput(raw, model.Contact{}, diverseEvidence(), testNow)
	assert.Equal(t, 100, scores.OverallConfidence)
}

func TestNormalizeOutputOverallConfidenceDerived(t *testing.T) {
	raw := map[string]any{
		"scores": map[string]any{
			"investorFit":       map[string]any{"confidence": float64(60)},
			"valuesAlignment":   map[string]any{"confidence": float64(60)},
			"govtAccess":        map[string]any{"confidence": float64(60)},
			"maritimeRelevance": map[string]any{"confidence": float64(60)},
			"connectorScore":    map[string]any{"confidence": float64(60)},
		},
		"enrichment": map[string]any{
			"identityConfidence": float64(90),
		},
	}

	scores, _ := NormalizeOutput(raw, model.Contact{}, diverseEvidence(), testNow)
	// Mean of five 60s and identity 90.
	assert.Equal(t, (60*5+90)/6, scores.OverallConfidence)
}

func TestNormalizeOutputIdempotent(t *testing.T) {
	contact := model.Contact{Name: "Jane", SourceURL: "https://linkedin.com/in/jane"}
	raw := map[string]any{
		"scores": map[string]any{
			"investorFit": map[string]any{"score": float64(72), "confidence": float64(55), "reasoning": "active angel"},
		},
		"enrichment": map[string]any{
			"summary":            "Jane leads Acme.",
			"identityConfidence": float64(85),
			"tracks":             []any{"Investment"},
			"evidenceLinks": []any{
				map[string]any{"claim": "CEO", "url": "https://acme.com/team", "confidence": float64(80), "timestamp": "2026-07-01T00:00:00Z"},
				map[string]any{"claim": "Fund", "url": "https://fund.example.org", "confidence": float64(70), "timestamp": "2026-07-02T00:00:00Z"},
			},
		},
	}

	scores1, enrichment1 := NormalizeOutput(raw, contact, nil, testNow)

	// Round-trip the normalized result back through the normalizer.
	blob, err := json.Marshal(map[string]any{"scores": scores1, "enrichment": enrichment1})
	require.NoError(t, err)
	var roundTripped map[string]any
	require.NoError(t, json.Unmarshal(blob, &roundTripped))

	scores2, enrichment2 := NormalizeOutput(roundTripped, contact, nil, testNow)
	assert.Equal(t, scores1, scores2)
	assert.Equal(t, enrichment1, enrichment2)
}

func diverseEvidence() []model.Evidence {
	return evidenceAt(
		"https://linkedin.com/in/jane",
		"https://acme.com/team",
	)
}
