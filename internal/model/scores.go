package model

// ScoreProvenance carries one scoring dimension with its supporting rationale.
// JSON field names match the schema requested from the model.
type ScoreProvenance struct {
	Score               int      `json:"score"`
	Confidence          int      `json:"confidence"`
	Reasoning           string   `json:"reasoning,omitempty"`
	ContributingFactors []string `json:"contributingFactors,omitempty"`
	MissingDataPenalty  bool     `json:"missingDataPenalty,omitempty"`
}

// Scores holds the five scoring dimensions plus the derived overall confidence.
type Scores struct {
	InvestorFit       ScoreProvenance `json:"investorFit"`
	ValuesAlignment   ScoreProvenance `json:"valuesAlignment"`
	GovtAccess        ScoreProvenance `json:"govtAccess"`
	MaritimeRelevance ScoreProvenance `json:"maritimeRelevance"`
	ConnectorScore    ScoreProvenance `json:"connectorScore"`
	OverallConfidence int             `json:"overallConfidence"`
}

// Dimensions returns the five scoring dimensions in canonical order.
func (s Scores) Dimensions() []ScoreProvenance {
	return []ScoreProvenance{
		s.InvestorFit,
		s.ValuesAlignment,
		s.GovtAccess,
		s.MaritimeRelevance,
		s.ConnectorScore,
	}
}

// DimensionKeys lists the JSON keys of the five scoring dimensions in the
// same order as Dimensions.
var DimensionKeys = []string{
	"investorFit",
	"valuesAlignment",
	"govtAccess",
	"maritimeRelevance",
	"connectorScore",
}
