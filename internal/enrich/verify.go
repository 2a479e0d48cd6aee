package enrich

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tidewater-group/outreach-cli/internal/model"
)

const (
	// maxVerifyCandidates bounds both the fan-out and the size of the
	// evidence set carried forward.
	maxVerifyCandidates = 8

	headTimeout = 8 * time.Second
	getTimeout  = 10 * time.Second
)

// FetchResult is the outcome of one reachability probe.
type FetchResult struct {
	OK     bool
	Status int
}

// Fetcher is the optional network-fetch capability. A nil Fetcher degrades
// verification to pass-through rather than failure: some runtimes cannot
// perform outbound fetches at all.
type Fetcher interface {
	Fetch(ctx context.Context, url, method string) (FetchResult, error)
}

// Verifier checks candidate evidence URLs for reachability.
type Verifier struct {
	fetcher Fetcher
}

// NewVerifier creates a Verifier. fetcher may be nil.
func NewVerifier(fetcher Fetcher) *Verifier {
	return &Verifier{fetcher: fetcher}
}

// Verify probes up to maxVerifyCandidates evidence URLs concurrently and
// keeps those that answer 2xx/3xx to a HEAD (or fallback GET) request.
// If verification yields zero survivors the capped unverified set is
// returned instead, so a transient network blip does not starve the
// pipeline.
func (v *Verifier) Verify(ctx context.Context, items []model.Evidence) []model.Evidence {
	if len(items) > maxVerifyCandidates {
		items = items[:maxVerifyCandidates]
	}
	if v.fetcher == nil || len(items) == 0 {
		return items
	}

	reachable := make([]bool, len(items))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxVerifyCandidates)
	for i, item := range items {
		g.Go(func() error {
			reachable[i] = v.probe(gCtx, item.URL)
			return nil
		})
	}
	_ = g.Wait()

	var out []model.Evidence
	for i, item := range items {
		if reachable[i] {
			out = append(out, item)
		}
	}

	if len(out) == 0 {
		zap.L().Warn("verify: no candidates reachable, keeping unverified set",
			zap.Int("candidates", len(items)),
		)
		return items
	}

	zap.L().Debug("verify: reachability check complete",
		zap.Int("candidates", len(items)),
		zap.Int("verified", len(out)),
	)
	return out
}

// probe checks one URL: HEAD under headTimeout, falling back to GET under
// getTimeout. A per-URL timeout counts as unreachable, never as a
// pipeline-level error.
func (v *Verifier) probe(ctx context.Context, url string) bool {
	headCtx, cancel := context.WithTimeout(ctx, headTimeout)
	res, err := v.fetcher.Fetch(headCtx, url, http.MethodHead)
	cancel()
	if err == nil && statusReachable(res) {
		return true
	}

	getCtx, cancel := context.WithTimeout(ctx, getTimeout)
	res, err = v.fetcher.Fetch(getCtx, url, http.MethodGet)
	cancel()
	if err != nil {
		zap.L().Debug("verify: probe failed", zap.String("url", url), zap.Error(err))
		return false
	}
	return statusReachable(res)
}

func statusReachable(res FetchResult) bool {
	return res.OK || (res.Status >= 200 && res.Status < 400)
}

// HTTPFetcher implements Fetcher over net/http. Timeouts are supplied per
// call through the context.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates an HTTP-backed Fetcher.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url, method string) (FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return FetchResult{}, eris.Wrap(err, "verify: build request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return FetchResult{}, eris.Wrap(err, "verify: fetch")
	}
	defer resp.Body.Close()

	return FetchResult{
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status: resp.StatusCode,
	}, nil
}
