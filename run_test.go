package newswatch_test

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mvelinov/newswatch"
	"github.com/mvelinov/newswatch/archive"
	"github.com/mvelinov/newswatch/ledger"
)

const fixedPage = `<html><body>
<article><a href="/news/1">First headline here</a></article>
<article><a href="/news/2">Second headline here</a></article>
</body></html>`

// fakeNotifier records deliveries and fails the URLs listed in failURLs.
type fakeNotifier struct {
	failURLs  map[string]bool
	sent      []newswatch.Article
	summaries [][2]int
}

func (f *fakeNotifier) SendArticle(article newswatch.Article) bool {
	if f.failURLs[article.URL] {
		return false
	}
	f.sent = append(f.sent, article)
	return true
}

func (f *fakeNotifier) SendSummary(newCount, totalCount int) bool {
	f.summaries = append(f.summaries, [2]int{newCount, totalCount})
	return true
}

func servePage(t *testing.T, page string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(page))
	}))
	t.Cleanup(server.Close)
	return server
}

func newRunner(server *httptest.Server, seen newswatch.SeenSet, notifier newswatch.Notifier,
	store newswatch.Archive, dryRun bool) *newswatch.Runner {

	extractor := newswatch.NewExtractor(server.URL, newswatch.Heuristics{}, zap.NewNop())
	fetcher := newswatch.NewFetcher(server.URL, extractor, zap.NewNop())
	return newswatch.NewRunner(fetcher, seen, notifier, store, dryRun, zap.NewNop())
}

// TestRunner_DeliversNewAndMarksSeen verifies the full pass: both articles
// delivered in document order, marked seen, one summary sent.
func TestRunner_DeliversNewAndMarksSeen(t *testing.T) {
	server := servePage(t, fixedPage)
	seen := ledger.Open(filepath.Join(t.TempDir(), "seen.json"), zap.NewNop())
	notifier := &fakeNotifier{}

	delivered := newRunner(server, seen, notifier, nil, false).Run()

	assert.Equal(t, 2, delivered)
	require.Len(t, notifier.sent, 2)
	assert.Equal(t, "First headline here", notifier.sent[0].Title)
	assert.Equal(t, "Second headline here", notifier.sent[1].Title)
	assert.Equal(t, 2, seen.Count())
	require.Len(t, notifier.summaries, 1)
	assert.Equal(t, [2]int{2, 2}, notifier.summaries[0])
}

// TestRunner_SecondRunIsQuiet verifies idempotence: a second run over the
// same page and ledger delivers nothing and sends no summary.
func TestRunner_SecondRunIsQuiet(t *testing.T) {
	server := servePage(t, fixedPage)
	path := filepath.Join(t.TempDir(), "seen.json")

	first := &fakeNotifier{}
	newRunner(server, ledger.Open(path, zap.NewNop()), first, nil, false).Run()

	second := &fakeNotifier{}
	delivered := newRunner(server, ledger.Open(path, zap.NewNop()), second, nil, false).Run()

	assert.Equal(t, 0, delivered)
	assert.Empty(t, second.sent)
	assert.Empty(t, second.summaries)
}

// TestRunner_FailedDeliveryRetriesNextRun verifies that a failed delivery
// leaves the article unmarked so the next run picks it up again.
func TestRunner_FailedDeliveryRetriesNextRun(t *testing.T) {
	server := servePage(t, fixedPage)
	path := filepath.Join(t.TempDir(), "seen.json")
	failing := &fakeNotifier{failURLs: map[string]bool{server.URL + "/news/2": true}}

	delivered := newRunner(server, ledger.Open(path, zap.NewNop()), failing, nil, false).Run()
	assert.Equal(t, 1, delivered)

	recovering := &fakeNotifier{}
	delivered = newRunner(server, ledger.Open(path, zap.NewNop()), recovering, nil, false).Run()
	assert.Equal(t, 1, delivered)
	require.Len(t, recovering.sent, 1)
	assert.Equal(t, "Second headline here", recovering.sent[0].Title)
}

// TestRunner_NoSummaryWhenNothingDelivered verifies that a run where every
// delivery fails sends no aggregate summary.
func TestRunner_NoSummaryWhenNothingDelivered(t *testing.T) {
	server := servePage(t, fixedPage)
	seen := ledger.Open(filepath.Join(t.TempDir(), "seen.json"), zap.NewNop())
	notifier := &fakeNotifier{failURLs: map[string]bool{
		server.URL + "/news/1": true,
		server.URL + "/news/2": true,
	}}

	delivered := newRunner(server, seen, notifier, nil, false).Run()

	assert.Equal(t, 0, delivered)
	assert.Empty(t, notifier.summaries)
	assert.Equal(t, 0, seen.Count())
}

// TestRunner_DryRunTwice verifies the dry-run property: the first run marks
// every discovered article seen without any delivery, and the second run
// finds nothing new.
func TestRunner_DryRunTwice(t *testing.T) {
	server := servePage(t, fixedPage)
	path := filepath.Join(t.TempDir(), "seen.json")
	notifier := &fakeNotifier{}

	first := newRunner(server, ledger.Open(path, zap.NewNop()), notifier, nil, true).Run()
	assert.Equal(t, 2, first)

	second := newRunner(server, ledger.Open(path, zap.NewNop()), notifier, nil, true).Run()
	assert.Equal(t, 0, second)

	assert.Empty(t, notifier.sent, "dry run must not deliver")
	assert.Empty(t, notifier.summaries, "dry run must not send a summary")
}

// TestRunner_EmptyPage verifies that a page with no recognizable articles
// ends the run cleanly.
func TestRunner_EmptyPage(t *testing.T) {
	server := servePage(t, "<html><body><p>nothing here</p></body></html>")
	seen := ledger.Open(filepath.Join(t.TempDir(), "seen.json"), zap.NewNop())
	notifier := &fakeNotifier{}

	delivered := newRunner(server, seen, notifier, nil, false).Run()

	assert.Equal(t, 0, delivered)
	assert.Empty(t, notifier.sent)
	assert.Empty(t, notifier.summaries)
}

// TestRunner_FetchFailure verifies that an unreachable source ends the run
// with zero deliveries instead of an error.
func TestRunner_FetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()
	seen := ledger.Open(filepath.Join(t.TempDir(), "seen.json"), zap.NewNop())
	notifier := &fakeNotifier{}

	extractor := newswatch.NewExtractor(server.URL, newswatch.Heuristics{}, zap.NewNop())
	fetcher := newswatch.NewFetcher(server.URL, extractor, zap.NewNop())
	delivered := newswatch.NewRunner(fetcher, seen, notifier, nil, false, zap.NewNop()).Run()

	assert.Equal(t, 0, delivered)
	assert.Empty(t, notifier.sent)
}

// TestRunner_ArchivesDeliveredArticles verifies that confirmed deliveries
// land in the archive store.
func TestRunner_ArchivesDeliveredArticles(t *testing.T) {
	server := servePage(t, fixedPage)
	seen := ledger.Open(filepath.Join(t.TempDir(), "seen.json"), zap.NewNop())
	notifier := &fakeNotifier{failURLs: map[string]bool{server.URL + "/news/2": true}}

	store, err := archive.Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	defer store.Close()

	delivered := newRunner(server, seen, notifier, store, false).Run()
	assert.Equal(t, 1, delivered)

	deliveries, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, server.URL+"/news/1", deliveries[0].Article.URL)
}
