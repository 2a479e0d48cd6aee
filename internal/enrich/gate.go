package enrich

import (
	"fmt"

	"github.com/tidewater-group/outreach-cli/internal/model"
)

const (
	// minEvidenceCount is the minimum verified sources the gate accepts.
	minEvidenceCount = 2

	// minDistinctHosts is the minimum distinct source domains the gate
	// accepts for a non-empty evidence set.
	minDistinctHosts = 2

	// lowIdentityThreshold marks a profile for manual review during the
	// post-normalization assessment.
	lowIdentityThreshold = 40
)

// GateResult is the outcome of a deterministic quality check. Issues
// accumulate independently; the gate fails if any apply.
type GateResult struct {
	Passed bool     `json:"passed"`
	Issues []string `json:"issues,omitempty"`
}

// EvaluateEvidence is the evidence gate: a pure pass/fail decision on an
// evidence set, run before any analysis tokens are spent. Failing it
// short-circuits the pipeline straight to a failure result.
func EvaluateEvidence(evidence []model.Evidence) GateResult {
	var issues []string

	if len(evidence) < minEvidenceCount {
		issues = append(issues, fmt.Sprintf(
			"insufficient evidence: %d verified source(s), need at least %d",
			len(evidence), minEvidenceCount))
	}

	if len(evidence) > 0 {
		hosts := make(map[string]bool)
		allLinkedIn := true
		for _, item := range evidence {
			host := evidenceHost(item.URL)
			if host == "" {
				continue
			}
			hosts[host] = true
			if !isLinkedInHost(host) {
				allLinkedIn = false
			}
		}

		if len(hosts) < minDistinctHosts {
			issues = append(issues, fmt.Sprintf(
				"lacks source diversity: %d distinct domain(s), need at least %d",
				len(hosts), minDistinctHosts))
		}
		if allLinkedIn {
			issues = append(issues, "LinkedIn-only sourcing cannot confirm identity")
		}
	}

	return GateResult{Passed: len(issues) == 0, Issues: issues}
}

// AssessProfile generalizes the evidence gate to a normalized enrichment
// record: it re-checks the evidence set and additionally flags low identity
// confidence and collision risk. Failing profiles get their issues merged
// into alignment risks and are marked for manual review.
func AssessProfile(enrichment model.EnrichmentData) GateResult {
	result := EvaluateEvidence(enrichment.EvidenceLinks)

	if enrichment.IdentityConfidence < lowIdentityThreshold {
		result.Issues = append(result.Issues, fmt.Sprintf(
			"low identity confidence (%d)", enrichment.IdentityConfidence))
	}
	if enrichment.CollisionRisk {
		result.Issues = append(result.Issues, "possible identity collision with another person")
	}

	result.Passed = len(result.Issues) == 0
	return result
}
