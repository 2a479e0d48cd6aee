package enrich

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/tidewater-group/outreach-cli/internal/cost"
	"github.com/tidewater-group/outreach-cli/internal/model"
	"github.com/tidewater-group/outreach-cli/pkg/aichat"
)

// seededSourceConfidence is assigned to the synthetic record created from
// a contact's already-known source URL.
const seededSourceConfidence = 60

// Collector gathers and verifies web evidence for one contact.
type Collector struct {
	invoker  *Invoker
	verifier *Verifier
	models   []string
	costs    *cost.Calculator
	now      func() time.Time
}

// NewCollector creates a Collector using the given candidate models for
// the evidence-gathering call.
func NewCollector(invoker *Invoker, verifier *Verifier, models []string, costs *cost.Calculator) *Collector {
	return &Collector{
		invoker:  invoker,
		verifier: verifier,
		models:   models,
		costs:    costs,
		now:      time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (c *Collector) WithNow(now func() time.Time) *Collector {
	c.now = now
	return c
}

// CollectResult carries verified evidence plus any unrecoverable failure
// hit along the way. Partial evidence and a failure can coexist.
type CollectResult struct {
	Evidence []model.Evidence
	Failure  *PipelineError
	CostUSD  float64
}

// Gather prompts the chat capability for candidate evidence, normalizes
// and verifies it, and seeds the contact's known source URL when the model
// did not surface it.
func (c *Collector) Gather(ctx context.Context, contact model.Contact) CollectResult {
	prompt := evidencePrompt(contact)

	resp, _, perr := c.invoker.Invoke(ctx, prompt, c.models, aichat.Options{
		MaxTokens: 2048,
		WebSearch: true,
	})
	if perr != nil {
		if perr.Code.SessionLevel() {
			return CollectResult{Failure: perr}
		}
		// The search-capable invocation failed for a model-level reason.
		// Retry once as plain generation before giving up.
		zap.L().Info("collect: retrying evidence gathering without web search",
			zap.String("contact", contact.Name),
			zap.String("code", string(perr.Code)),
		)
		searchAttempts := perr.Attempts
		resp, _, perr = c.invoker.Invoke(ctx, prompt, c.models, aichat.Options{
			MaxTokens: 2048,
		})
		if perr != nil {
			// Both rounds failed; keep the full attempt log so the failure
			// result shows the search-capable round too.
			perr.Attempts = append(slices.Clone(searchAttempts), perr.Attempts...)
			return CollectResult{Failure: perr}
		}
	}

	resp.Usage.Log(resp.Model, "evidence")
	spent := c.costs.Estimate(resp.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)

	candidates := ExtractEvidenceCandidates(resp.Text)
	evidence := NormalizeEvidence(candidates, c.now())
	evidence = seedSourceURL(evidence, contact, c.now())
	evidence = c.verifier.Verify(ctx, evidence)

	zap.L().Info("collect: evidence gathered",
		zap.String("contact", contact.Name),
		zap.Int("candidates", len(candidates)),
		zap.Int("verified", len(evidence)),
	)

	return CollectResult{Evidence: evidence, CostUSD: spent}
}

// seedSourceURL prepends a synthetic evidence record for the contact's
// known source URL when no candidate already references it.
func seedSourceURL(evidence []model.Evidence, contact model.Contact, now time.Time) []model.Evidence {
	u, ok := sanitizeURL(contact.SourceURL)
	if !ok {
		return evidence
	}
	for _, item := range evidence {
		if item.URL == u {
			return evidence
		}
	}

	seeded := model.Evidence{
		Claim:      "Known profile supplied with the contact record",
		URL:        u,
		Timestamp:  now.UTC().Format(time.RFC3339),
		Confidence: seededSourceConfidence,
	}
	return append([]model.Evidence{seeded}, evidence...)
}
