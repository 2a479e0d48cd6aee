package enrich

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tidewater-group/outreach-cli/internal/model"
)

const (
	// defaultEvidenceConfidence is assigned when a candidate omits or
	// mangles its confidence field.
	defaultEvidenceConfidence = 50

	// placeholderConfidence is assigned to claims synthesized from bare
	// URLs found by regex scan.
	placeholderConfidence = 30
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"'\)\]]+`)

// ExtractEvidenceCandidates pulls evidence candidates out of raw model
// text. Preference order: a top-level JSON array, then a JSON object's
// evidenceLinks field, then a bare-URL scan with placeholder claims. A
// response that ignores the schema still yields usable evidence.
func ExtractEvidenceCandidates(text string) []model.Evidence {
	cleaned := stripFences(text)

	if items := parseEvidenceArray(cleaned); items != nil {
		return items
	}

	if obj := sliceJSONObject(cleaned); obj != "" {
		var raw map[string]any
		if err := json.Unmarshal([]byte(obj), &raw); err == nil {
			if links, ok := raw["evidenceLinks"].([]any); ok {
				if items := coerceEvidenceList(links); len(items) > 0 {
					return items
				}
			}
		}
	}

	// Last resort: scan for bare URLs and synthesize low-confidence claims.
	var items []model.Evidence
	for _, u := range urlPattern.FindAllString(text, -1) {
		items = append(items, model.Evidence{
			Claim:      "Source located during web search (unstructured response)",
			URL:        u,
			Confidence: placeholderConfidence,
		})
	}
	if len(items) > 0 {
		zap.L().Debug("evidence: fell back to bare-URL scan",
			zap.Int("urls", len(items)),
		)
	}
	return items
}

// parseEvidenceArray parses text as a top-level JSON array of evidence
// objects. Returns nil when the text is not an array.
func parseEvidenceArray(text string) []model.Evidence {
	start := strings.Index(text, "[")
	objStart := strings.Index(text, "{")
	if start < 0 || (objStart >= 0 && objStart < start) {
		return nil
	}
	end := strings.LastIndex(text, "]")
	if end <= start {
		return nil
	}

	var raw []any
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil
	}
	return coerceEvidenceList(raw)
}

func coerceEvidenceList(raw []any) []model.Evidence {
	var items []model.Evidence
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		claim, _ := m["claim"].(string)
		u, _ := m["url"].(string)
		ts, _ := m["timestamp"].(string)

		conf := defaultEvidenceConfidence
		if n, ok := toInt(m["confidence"]); ok {
			conf = n
		}

		items = append(items, model.Evidence{
			Claim:      strings.TrimSpace(claim),
			URL:        u,
			Timestamp:  ts,
			Confidence: conf,
		})
	}
	return items
}

// NormalizeEvidence validates, clamps, and dedupes evidence candidates.
// Records whose URL does not parse as http(s) are dropped; malformed
// timestamps default to now; (claim, url) pairs are unique in the output.
func NormalizeEvidence(items []model.Evidence, now time.Time) []model.Evidence {
	seen := make(map[string]bool, len(items))
	var out []model.Evidence

	for _, item := range items {
		u, ok := sanitizeURL(item.URL)
		if !ok {
			continue
		}
		item.URL = u

		if item.Claim == "" {
			item.Claim = "Source located during web search (unstructured response)"
			item.Confidence = placeholderConfidence
		}

		item.Confidence = clampInt(item.Confidence, 0, 100)

		if _, err := time.Parse(time.RFC3339, item.Timestamp); err != nil {
			item.Timestamp = now.UTC().Format(time.RFC3339)
		}

		if seen[item.Key()] {
			continue
		}
		seen[item.Key()] = true
		out = append(out, item)
	}

	return out
}

// sanitizeURL trims whitespace and trailing punctuation, then requires an
// absolute http(s) URL with a host.
func sanitizeURL(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimRight(s, ".,;:!?)]}'\"")
	if s == "" {
		return "", false
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return s, true
}

// evidenceHost extracts the normalized hostname of an evidence URL.
// Returns "" for unparseable URLs.
func evidenceHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// isLinkedInHost reports whether a normalized host belongs to linkedin.com.
func isLinkedInHost(host string) bool {
	return host == "linkedin.com" || strings.HasSuffix(host, ".linkedin.com")
}

// stripFences removes markdown code fences wrapping a JSON payload.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(text)
}

// sliceJSONObject cuts text down to the outermost {...} span.
// Returns "" when no object is present.
func sliceJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}
