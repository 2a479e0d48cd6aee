package enrich

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tidewater-group/outreach-cli/internal/model"
)

// Named fallbacks for untrusted numeric fields.
const (
	defaultScore      = 0
	defaultConfidence = 40

	// Identity-confidence ceilings applied when evidence is weak. The
	// model's self-reported confidence is never taken at face value.
	noEvidenceIdentityCap   = 25
	linkedInOnlyIdentityCap = 55
)

// Flags attached to enrichment records by the normalizer.
const (
	FlagSourceNotVerified = "linkedin_not_verified_by_model"
	FlagManualReview      = "manual_review_required"
	FlagAnalysisError     = "analysis_error"
	FlagErrorPrefix       = "error_"
	riskNoEvidence        = "no verifiable evidence located; identity is unconfirmed"
)

// ParseAnalysis extracts a JSON object from raw model text. Returns nil
// when no object can be recovered; the normalizer defaults everything, so
// a nil map still produces a structurally valid result.
func ParseAnalysis(text string) map[string]any {
	cleaned := stripFences(text)
	obj := sliceJSONObject(cleaned)
	if obj == "" {
		// Output truncated mid-structure may contain no closing brace at
		// all. Take everything from the first opening brace and let the
		// repair below close it.
		start := strings.Index(cleaned, "{")
		if start < 0 {
			return nil
		}
		obj = cleaned[start:]
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		// Models occasionally truncate output mid-structure. Close any
		// unbalanced delimiters and try once more.
		if err2 := json.Unmarshal([]byte(repairTruncatedJSON(obj)), &raw); err2 != nil {
			zap.L().Warn("normalize: analysis output is not valid JSON", zap.Error(err))
			return nil
		}
	}
	return raw
}

// NormalizeOutput converts untrusted model output into a fully-defaulted,
// clamped result. verified is the evidence set the collector already
// validated; it is merged ahead of whatever the model returned.
func NormalizeOutput(raw map[string]any, contact model.Contact, verified []model.Evidence, now time.Time) (model.Scores, model.EnrichmentData) {
	scores := normalizeScores(raw)
	enrichment := normalizeEnrichment(raw, contact, verified, now)

	// Trust downgrade: weak evidence caps identity confidence regardless
	// of what the model claimed.
	hosts := make(map[string]bool)
	allLinkedIn := len(enrichment.EvidenceLinks) > 0
	for _, item := range enrichment.EvidenceLinks {
		host := evidenceHost(item.URL)
		if host == "" {
			continue
		}
		hosts[host] = true
		if !isLinkedInHost(host) {
			allLinkedIn = false
		}
	}
	if len(enrichment.EvidenceLinks) == 0 {
		if enrichment.IdentityConfidence > noEvidenceIdentityCap {
			enrichment.IdentityConfidence = noEvidenceIdentityCap
		}
		enrichment.AlignmentRisks = appendUnique(enrichment.AlignmentRisks, riskNoEvidence)
	} else if allLinkedIn {
		if enrichment.IdentityConfidence > linkedInOnlyIdentityCap {
			enrichment.IdentityConfidence = linkedInOnlyIdentityCap
		}
	}

	// Quality assessment over the built record, generalized from the
	// evidence gate. Failures downgrade to manual review, never to error.
	if assessment := AssessProfile(enrichment); !assessment.Passed {
		for _, issue := range assessment.Issues {
			enrichment.AlignmentRisks = appendUnique(enrichment.AlignmentRisks, issue)
		}
		enrichment.FlaggedAttributes = appendUnique(enrichment.FlaggedAttributes, FlagManualReview)
	}

	// The model's explicit overall confidence wins when present; otherwise
	// derive it from the dimension confidences and identity confidence.
	if n, ok := lookupInt(raw, "scores", "overallConfidence"); ok {
		scores.OverallConfidence = clampInt(n, 0, 100)
	} else {
		scores.OverallConfidence = deriveOverallConfidence(scores, enrichment.IdentityConfidence)
	}

	return scores, enrichment
}

func deriveOverallConfidence(scores model.Scores, identityConfidence int) int {
	sum := identityConfidence
	for _, dim := range scores.Dimensions() {
		sum += dim.Confidence
	}
	return sum / (len(model.DimensionKeys) + 1)
}

func normalizeScores(raw map[string]any) model.Scores {
	dims := make([]model.ScoreProvenance, len(model.DimensionKeys))
	for i, key := range model.DimensionKeys {
		dims[i] = normalizeDimension(lookupMap(raw, "scores", key))
	}
	return model.Scores{
		InvestorFit:       dims[0],
		ValuesAlignment:   dims[1],
		GovtAccess:        dims[2],
		MaritimeRelevance: dims[3],
		ConnectorScore:    dims[4],
	}
}

func normalizeDimension(m map[string]any) model.ScoreProvenance {
	dim := model.ScoreProvenance{
		Score:      defaultScore,
		Confidence: defaultConfidence,
	}
	if m == nil {
		dim.MissingDataPenalty = true
		return dim
	}
	if n, ok := toInt(m["score"]); ok {
		dim.Score = clampInt(n, 0, 100)
	}
	if n, ok := toInt(m["confidence"]); ok {
		dim.Confidence = clampInt(n, 0, 100)
	}
	dim.Reasoning, _ = m["reasoning"].(string)
	dim.ContributingFactors = toStringSlice(m["contributingFactors"])
	dim.MissingDataPenalty = toBool(m["missingDataPenalty"])
	return dim
}

func normalizeEnrichment(raw map[string]any, contact model.Contact, verified []model.Evidence, now time.Time) model.EnrichmentData {
	m := lookupMap(raw, "enrichment", "")
	if m == nil {
		m = map[string]any{}
	}

	e := model.EnrichmentData{
		IdentityConfidence: defaultConfidence,
		LastVerified:       now.UTC().Format(time.RFC3339),
	}

	e.Summary, _ = m["summary"].(string)
	e.RecommendedAngle, _ = m["recommendedAngle"].(string)
	e.RecommendedAction, _ = m["recommendedAction"].(string)
	e.AlignmentRisks = toStringSlice(m["alignmentRisks"])
	e.FlaggedAttributes = toStringSlice(m["flaggedAttributes"])
	e.CollisionRisk = toBool(m["collisionRisk"])

	if n, ok := toInt(m["identityConfidence"]); ok {
		e.IdentityConfidence = clampInt(n, 0, 100)
	}

	// Unrecognized track values are dropped, not errored.
	seen := make(map[model.Track]bool)
	for _, s := range toStringSlice(m["tracks"]) {
		if track, ok := model.ParseTrack(s); ok && !seen[track] {
			seen[track] = true
			e.Tracks = append(e.Tracks, track)
		}
	}

	// The model's evidence links go through the same validation and
	// dedupe as collector candidates, merged behind what the collector
	// already verified.
	var modelLinks []model.Evidence
	if links, ok := m["evidenceLinks"].([]any); ok {
		modelLinks = coerceEvidenceList(links)
	}
	e.EvidenceLinks = NormalizeEvidence(append(append([]model.Evidence{}, verified...), modelLinks...), now)

	// Re-inject the known source URL if the model dropped it, and flag
	// that the model never confirmed it.
	if u, ok := sanitizeURL(contact.SourceURL); ok {
		found := false
		for _, item := range e.EvidenceLinks {
			if item.URL == u {
				found = true
				break
			}
		}
		if !found {
			e.EvidenceLinks = append(e.EvidenceLinks, model.Evidence{
				Claim:      "Known profile supplied with the contact record",
				URL:        u,
				Timestamp:  now.UTC().Format(time.RFC3339),
				Confidence: seededSourceConfidence,
			})
			e.FlaggedAttributes = appendUnique(e.FlaggedAttributes, FlagSourceNotVerified)
		}
	}

	return e
}

// lookupMap finds a nested object under parent/key, tolerating flat
// layouts where the key sits at the top level. An empty key returns the
// parent object itself (or the whole map for flat output).
func lookupMap(raw map[string]any, parent, key string) map[string]any {
	if raw == nil {
		return nil
	}
	if p, ok := raw[parent].(map[string]any); ok {
		if key == "" {
			return p
		}
		if m, ok := p[key].(map[string]any); ok {
			return m
		}
		return nil
	}
	if key == "" {
		return raw
	}
	if m, ok := raw[key].(map[string]any); ok {
		return m
	}
	return nil
}

// lookupInt finds a numeric field under parent/key, tolerating flat layouts.
func lookupInt(raw map[string]any, parent, key string) (int, bool) {
	if raw == nil {
		return 0, false
	}
	if p, ok := raw[parent].(map[string]any); ok {
		if n, ok := toInt(p[key]); ok {
			return n, true
		}
	}
	return toInt(raw[key])
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// toInt coerces JSON-decoded values (float64, int, numeric string) to int.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

// toStringSlice coerces a JSON array (or a lone string) to []string,
// dropping non-string entries.
func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []any:
		var out []string
		for _, entry := range vv {
			if s, ok := entry.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if vv == "" {
			return nil
		}
		return []string{vv}
	}
	return nil
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	}
	return false
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

// repairTruncatedJSON closes unbalanced brackets and braces in truncated
// model output.
func repairTruncatedJSON(text string) string {
	if text == "" {
		return text
	}

	var stack []byte
	inString := false
	escape := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if escape {
			escape = false
			continue
		}
		if c == '\\' && inString {
			escape = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if inString {
		text += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			text += "}"
		} else {
			text += "]"
		}
	}
	return text
}
