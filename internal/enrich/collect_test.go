package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewater-group/outreach-cli/internal/cost"
	"github.com/tidewater-group/outreach-cli/internal/model"
)

const evidenceJSON = `[
	{"claim": "CEO of Acme", "url": "https://acme.com/team", "confidence": 85, "timestamp": "2026-07-01T00:00:00Z"},
	{"claim": "Angel investor", "url": "https://news.example.com/story", "confidence": 70, "timestamp": "2026-07-02T00:00:00Z"}
]`

func testCollector(chat *mockChat, fetcher Fetcher) *Collector {
	c := NewCollector(NewInvoker(chat), NewVerifier(fetcher), []string{"m1"}, cost.NewCalculator(cost.DefaultRates()))
	return c.WithNow(func() time.Time { return testNow })
}

func TestGatherHappyPath(t *testing.T) {
	chat := &mockChat{script: []chatResult{textResponse(evidenceJSON)}}
	c := testCollector(chat, okFetcher())

	result := c.Gather(context.Background(), model.Contact{Name: "Jane"})
	require.Nil(t, result.Failure)

	assert.Len(t, result.Evidence, 2)
	require.Equal(t, 1, chat.callCount())
	assert.True(t, chat.calls[0].opts.WebSearch)
}

func TestGatherSeedsKnownSourceURL(t *testing.T) {
	chat := &mockChat{script: []chatResult{textResponse(evidenceJSON)}}
	c := testCollector(chat, okFetcher())

	result := c.Gather(context.Background(), model.Contact{
		Name:      "Jane",
		SourceURL: "https://linkedin.com/in/jane",
	})
	require.Nil(t, result.Failure)

	require.Len(t, result.Evidence, 3)
	assert.Equal(t, "https://linkedin.com/in/jane", result.Evidence[0].URL)
	assert.Equal(t, seededSourceConfidence, result.Evidence[0].Confidence)
}

func TestGatherDoesNotDuplicateSourceURL(t *testing.T) {
	chat := &mockChat{script: []chatResult{textResponse(
		`[{"claim": "Profile", "url": "https://linkedin.com/in/jane", "confidence": 80}]`,
	)}}
	c := testCollector(chat, okFetcher())

	result := c.Gather(context.Background(), model.Contact{
		Name:      "Jane",
		SourceURL: "https://linkedin.com/in/jane",
	})
	require.Nil(t, result.Failure)
	assert.Len(t, result.Evidence, 1)
}

func TestGatherSessionFailureHalts(t *testing.T) {
	chat := &mockChat{script: []chatResult{
		errResponse(errors.New("401 unauthorized")),
	}}
	c := testCollector(chat, okFetcher())

	result := c.Gather(context.Background(), model.Contact{Name: "Jane"})
	require.NotNil(t, result.Failure)

	assert.Equal(t, CodeAuthRequired, result.Failure.Code)
	assert.Empty(t, result.Evidence)
	// No plain-generation retry for session-level failures.
	assert.Equal(t, 1, chat.callCount())
}

func TestGatherRetriesWithoutWebSearch(t *testing.T) {
	chat := &mockChat{script: []chatResult{
		errResponse(errors.New("web_search tool failed")),
		errResponse(errors.New("web_search tool failed")),
		textResponse(evidenceJSON),
	}}
	c := testCollector(chat, okFetcher())

	result := c.Gather(context.Background(), model.Contact{Name: "Jane"})
	require.Nil(t, result.Failure)

	assert.Len(t, result.Evidence, 2)
	// m1 + sentinel with search, then the plain retry succeeded.
	require.Equal(t, 3, chat.callCount())
	assert.True(t, chat.calls[0].opts.WebSearch)
	assert.True(t, chat.calls[1].opts.WebSearch)
	assert.False(t, chat.calls[2].opts.WebSearch)
}

func TestGatherRetryAlsoFails(t *testing.T) {
	chat := &mockChat{script: []chatResult{
		errResponse(errors.New("boom")),
		errResponse(errors.New("boom")),
		errResponse(errors.New("boom")),
		errResponse(errors.New("boom")),
	}}
	c := testCollector(chat, okFetcher())

	result := c.Gather(context.Background(), model.Contact{Name: "Jane"})
	require.NotNil(t, result.Failure)
	assert.Equal(t, CodeAllModelsFailed, result.Failure.Code)

	// Both rounds appear in the attempt log: m1 + the default sentinel,
	// with web search and then without.
	require.Len(t, result.Failure.Attempts, 4)
	assert.Equal(t, "m1", result.Failure.Attempts[0].Model)
	assert.Equal(t, "default", result.Failure.Attempts[1].Model)
	assert.Equal(t, "m1", result.Failure.Attempts[2].Model)
	assert.Equal(t, "default", result.Failure.Attempts[3].Model)
}

func TestGatherDropsUnreachableEvidence(t *testing.T) {
	chat := &mockChat{script: []chatResult{textResponse(evidenceJSON)}}
	fetcher := &mockFetcher{
		results: map[string]FetchResult{
			"HEAD https://acme.com/team":          {OK: true, Status: 200},
			"HEAD https://news.example.com/story": {Status: 404},
			"GET https://news.example.com/story":  {Status: 404},
		},
	}
	c := testCollector(chat, fetcher)

	result := c.Gather(context.Background(), model.Contact{Name: "Jane"})
	require.Nil(t, result.Failure)

	require.Len(t, result.Evidence, 1)
	assert.Equal(t, "https://acme.com/team", result.Evidence[0].URL)
}
