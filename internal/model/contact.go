package model

// Contact is the raw record supplied by the caller for enrichment.
// It is treated as immutable for the duration of one enrichment run.
type Contact struct {
	Name      string `json:"name"`
	Headline  string `json:"headline,omitempty"`
	Location  string `json:"location,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Source    string `json:"source,omitempty"`
	SourceURL string `json:"source_url,omitempty"`

	// Prior results from an earlier run, if any. Read-only context.
	Scores     *Scores         `json:"scores,omitempty"`
	Enrichment *EnrichmentData `json:"enrichment,omitempty"`
}

// EnrichmentResult is the output of one enrichment run for one contact.
type EnrichmentResult struct {
	RunID      string         `json:"run_id"`
	Contact    string         `json:"contact"`
	Scores     Scores         `json:"scores"`
	Enrichment EnrichmentData `json:"enrichment"`
	DurationMS int64          `json:"duration_ms"`
}
