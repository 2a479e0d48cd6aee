package model

// Track is an outreach track a contact can be routed to.
type Track string

// Valid tracks. Unrecognized values from model output are dropped.
const (
	TrackInvestment       Track = "Investment"
	TrackGovernment       Track = "Government"
	TrackStrategicPartner Track = "StrategicPartner"
)

// ParseTrack maps a raw string to a known Track. The second return value
// is false for unrecognized input.
func ParseTrack(s string) (Track, bool) {
	switch Track(s) {
	case TrackInvestment, TrackGovernment, TrackStrategicPartner:
		return Track(s), true
	default:
		return "", false
	}
}

// EnrichmentData is the qualitative half of an enrichment result.
// JSON field names match the schema requested from the model.
type EnrichmentData struct {
	Summary            string     `json:"summary"`
	AlignmentRisks     []string   `json:"alignmentRisks,omitempty"`
	EvidenceLinks      []Evidence `json:"evidenceLinks,omitempty"`
	RecommendedAngle   string     `json:"recommendedAngle,omitempty"`
	RecommendedAction  string     `json:"recommendedAction,omitempty"`
	Tracks             []Track    `json:"tracks,omitempty"`
	FlaggedAttributes  []string   `json:"flaggedAttributes,omitempty"`
	IdentityConfidence int        `json:"identityConfidence"`
	CollisionRisk      bool       `json:"collisionRisk"`
	LastVerified       string     `json:"lastVerified,omitempty"` // RFC 3339
}

// HasFlag reports whether the record carries the given flagged attribute.
func (e EnrichmentData) HasFlag(flag string) bool {
	for _, f := range e.FlaggedAttributes {
		if f == flag {
			return true
		}
	}
	return false
}
