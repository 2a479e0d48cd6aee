package enrich

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tidewater-group/outreach-cli/internal/cost"
	"github.com/tidewater-group/outreach-cli/internal/model"
	"github.com/tidewater-group/outreach-cli/pkg/aichat"
)

// Pipeline sequences one enrichment run: gather evidence, gate it, run the
// analysis cascade, normalize the output. Any stage failure routes to a
// structured failure result; the caller never sees a raw error.
//
// A Pipeline holds no mutable state and is safe to use concurrently for
// independent contacts.
type Pipeline struct {
	collector      *Collector
	invoker        *Invoker
	analysisModels []string
	knowledge      KnowledgeProvider
	costs          *cost.Calculator
	now            func() time.Time
}

// New wires a Pipeline from its capabilities. client and fetcher may be
// nil; absence degrades per stage rather than erroring up front.
func New(client aichat.Client, fetcher Fetcher, models ModelSet, mode Mode, knowledge KnowledgeProvider) *Pipeline {
	invoker := NewInvoker(client)
	verifier := NewVerifier(fetcher)
	candidates := models.For(mode)
	costs := cost.NewCalculator(cost.DefaultRates())

	if knowledge == nil {
		knowledge = StaticKnowledge("")
	}

	return &Pipeline{
		collector:      NewCollector(invoker, verifier, candidates, costs),
		invoker:        invoker,
		analysisModels: candidates,
		knowledge:      knowledge,
		costs:          costs,
		now:            time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (p *Pipeline) WithNow(now func() time.Time) *Pipeline {
	p.now = now
	p.collector.WithNow(now)
	return p
}

// Enrich runs the full pipeline for one contact. It always returns a
// structurally valid result; failures surface through flagged attributes
// and zeroed confidence, not errors. A run in progress always completes.
func (p *Pipeline) Enrich(ctx context.Context, contact model.Contact) model.EnrichmentResult {
	start := p.now()
	runID := uuid.NewString()
	log := zap.L().With(
		zap.String("run_id", runID),
		zap.String("contact", contact.Name),
	)

	result := model.EnrichmentResult{
		RunID:   runID,
		Contact: contact.Name,
	}

	// Stage: gathering evidence.
	log.Info("pipeline: gathering evidence")
	collected := p.collector.Gather(ctx, contact)
	if collected.Failure != nil && len(collected.Evidence) == 0 {
		log.Warn("pipeline: evidence gathering failed",
			zap.String("code", string(collected.Failure.Code)),
		)
		result.Scores, result.Enrichment = BuildFailureResult(collected.Failure.Code, FailureOptions{
			Attempts: collected.Failure.Attempts,
			Now:      p.now(),
		})
		return p.finish(result, start)
	}
	if collected.Failure != nil {
		log.Warn("pipeline: continuing with partial evidence",
			zap.String("code", string(collected.Failure.Code)),
			zap.Int("evidence", len(collected.Evidence)),
		)
	}

	// Stage: gate check. Failing here spends no analysis tokens.
	gate := EvaluateEvidence(collected.Evidence)
	if !gate.Passed {
		log.Info("pipeline: evidence gate blocked",
			zap.Strings("issues", gate.Issues),
		)
		result.Scores, result.Enrichment = BuildFailureResult(CodeEvidenceGateBlocked, FailureOptions{
			Evidence:   collected.Evidence,
			ExtraRisks: gate.Issues,
			Now:        p.now(),
		})
		return p.finish(result, start)
	}

	// Stage: analyzing.
	log.Info("pipeline: analyzing", zap.Int("evidence", len(collected.Evidence)))
	prompt := analysisPrompt(contact, collected.Evidence, p.knowledge.Context())
	resp, attempts, perr := p.invoker.Invoke(ctx, prompt, p.analysisModels, aichat.Options{
		MaxTokens: 4096,
	})
	if perr != nil {
		log.Warn("pipeline: analysis failed",
			zap.String("code", string(perr.Code)),
			zap.Int("attempts", len(perr.Attempts)),
		)
		result.Scores, result.Enrichment = BuildFailureResult(perr.Code, FailureOptions{
			Evidence: collected.Evidence,
			Attempts: perr.Attempts,
			Now:      p.now(),
		})
		return p.finish(result, start)
	}
	if len(attempts) > 0 {
		log.Info("pipeline: analysis succeeded after fallback",
			zap.Int("failed_attempts", len(attempts)),
			zap.String("model", resp.Model),
		)
	}
	resp.Usage.Log(resp.Model, "analysis")
	spent := collected.CostUSD + p.costs.Estimate(resp.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)

	// Stage: normalizing. Cannot fail: everything defaults.
	raw := ParseAnalysis(resp.Text)
	result.Scores, result.Enrichment = NormalizeOutput(raw, contact, collected.Evidence, p.now())

	log.Info("pipeline: done",
		zap.Int("overall_confidence", result.Scores.OverallConfidence),
		zap.Int("evidence", len(result.Enrichment.EvidenceLinks)),
		zap.Float64("est_cost_usd", spent),
	)
	return p.finish(result, start)
}

func (p *Pipeline) finish(result model.EnrichmentResult, start time.Time) model.EnrichmentResult {
	result.DurationMS = p.now().Sub(start).Milliseconds()
	return result
}
