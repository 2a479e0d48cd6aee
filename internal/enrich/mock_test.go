package enrich

import (
	"context"
	"sync"

	"github.com/tidewater-group/outreach-cli/pkg/aichat"
)

// --- Chat mock ---

type chatCall struct {
	prompt string
	opts   aichat.Options
}

type chatResult struct {
	resp *aichat.Response
	err  error
}

// mockChat implements aichat.Client with a scripted queue of results,
// consumed one per call. An exhausted script returns an empty success.
type mockChat struct {
	mu     sync.Mutex
	calls  []chatCall
	script []chatResult
}

func (m *mockChat) Chat(_ context.Context, prompt string, opts aichat.Options) (*aichat.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, chatCall{prompt: prompt, opts: opts})
	if len(m.script) == 0 {
		return &aichat.Response{Text: "{}"}, nil
	}
	next := m.script[0]
	m.script = m.script[1:]
	return next.resp, next.err
}

func (m *mockChat) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func textResponse(text string) chatResult {
	return chatResult{resp: &aichat.Response{Model: "mock-model", Text: text}}
}

func errResponse(err error) chatResult {
	return chatResult{err: err}
}

// --- Fetcher mock ---

// mockFetcher implements Fetcher with per-"METHOD url" results. Unmatched
// probes fall back to defaultResult / defaultErr.
type mockFetcher struct {
	mu            sync.Mutex
	calls         []string
	results       map[string]FetchResult
	errs          map[string]error
	defaultResult FetchResult
	defaultErr    error
}

func (f *mockFetcher) Fetch(_ context.Context, url, method string) (FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := method + " " + url
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return FetchResult{}, err
	}
	if res, ok := f.results[key]; ok {
		return res, nil
	}
	if f.defaultErr != nil {
		return FetchResult{}, f.defaultErr
	}
	return f.defaultResult, nil
}

func (f *mockFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func okFetcher() *mockFetcher {
	return &mockFetcher{defaultResult: FetchResult{OK: true, Status: 200}}
}
