package enrich

import (
	"fmt"
	"strings"

	"github.com/tidewater-group/outreach-cli/internal/model"
)

// KnowledgeProvider supplies the pre-assembled thesis and strategic
// context injected verbatim into the analysis prompt.
type KnowledgeProvider interface {
	Context() string
}

// StaticKnowledge is a KnowledgeProvider backed by a fixed text block.
type StaticKnowledge string

func (k StaticKnowledge) Context() string { return string(k) }

const evidencePromptTemplate = `You are a due-diligence researcher verifying the identity and background of a professional contact.

Contact:
%s
Find publicly verifiable facts about this specific person: current role, affiliations, investments, government or maritime industry involvement. Prefer primary sources (company pages, registries, news) over social profiles.

Return ONLY a JSON array of evidence records:
[{"claim": "<one verifiable fact>", "url": "<absolute http(s) source URL>", "confidence": <0-100>, "timestamp": "<ISO-8601>"}]

Include at most 8 records. If nothing can be verified, return [].`

const analysisPromptTemplate = `You are an analyst scoring a professional contact for outreach prioritization.

Strategic context:
%s

Contact:
%s
Verified evidence:
%s

Score the contact on five dimensions (investorFit, valuesAlignment, govtAccess, maritimeRelevance, connectorScore), each 0-100 with a confidence 0-100, reasoning, and contributingFactors. Assess identity confidence and whether the evidence might describe a different person with the same name.

Return ONLY a JSON object:
{
  "scores": {
    "investorFit": {"score": 0, "confidence": 0, "reasoning": "", "contributingFactors": [], "missingDataPenalty": false},
    "valuesAlignment": {...},
    "govtAccess": {...},
    "maritimeRelevance": {...},
    "connectorScore": {...},
    "overallConfidence": 0
  },
  "enrichment": {
    "summary": "",
    "alignmentRisks": [],
    "evidenceLinks": [{"claim": "", "url": "", "confidence": 0, "timestamp": ""}],
    "recommendedAngle": "",
    "recommendedAction": "",
    "tracks": ["Investment" | "Government" | "StrategicPartner"],
    "flaggedAttributes": [],
    "identityConfidence": 0,
    "collisionRisk": false
  }
}`

// evidencePrompt builds the due-diligence prompt for one contact.
func evidencePrompt(contact model.Contact) string {
	return fmt.Sprintf(evidencePromptTemplate, contactBlock(contact))
}

// analysisPrompt builds the scoring prompt from the contact, its verified
// evidence, and the strategic context block.
func analysisPrompt(contact model.Contact, evidence []model.Evidence, knowledge string) string {
	knowledge = strings.TrimSpace(knowledge)
	if knowledge == "" {
		knowledge = "(none provided)"
	}
	return fmt.Sprintf(analysisPromptTemplate, knowledge, contactBlock(contact), evidenceBlock(evidence))
}

func contactBlock(contact model.Contact) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", contact.Name)
	if contact.Headline != "" {
		fmt.Fprintf(&b, "Headline: %s\n", contact.Headline)
	}
	if contact.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", contact.Location)
	}
	if contact.Source != "" {
		fmt.Fprintf(&b, "Source: %s\n", contact.Source)
	}
	if contact.SourceURL != "" {
		fmt.Fprintf(&b, "Known profile URL: %s\n", contact.SourceURL)
	}
	if contact.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", contact.Notes)
	}
	return b.String()
}

func evidenceBlock(evidence []model.Evidence) string {
	if len(evidence) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for _, item := range evidence {
		fmt.Fprintf(&b, "- %s (%s, confidence %d)\n", item.Claim, item.URL, item.Confidence)
	}
	return b.String()
}
