package model

// Evidence is a single verifiable claim about a contact, backed by a URL.
// JSON field names match the schema requested from the model.
type Evidence struct {
	Claim      string `json:"claim"`
	URL        string `json:"url"`
	Timestamp  string `json:"timestamp"` // RFC 3339
	Confidence int    `json:"confidence"`
}

// Key returns the dedupe key for an evidence record. (claim, url) pairs
// are unique within a result set.
func (e Evidence) Key() string {
	return e.Claim + "|" + e.URL
}
