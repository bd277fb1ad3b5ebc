package newswatch

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier delivers article notifications and run summaries. Implementations
// convert every transport or provider failure into a false return; callers
// never see an error.
type Notifier interface {
	SendArticle(article Article) bool
	SendSummary(newCount, totalCount int) bool
}

// SeenSet is the ledger surface the runner needs: membership, insertion and
// size of the set of already-notified article IDs.
type SeenSet interface {
	IsSeen(id string) bool
	MarkSeen(id string)
	Count() int
}

// Archive records delivered articles for later inspection. Recording is
// best-effort; a failure is logged by the runner and never blocks delivery.
type Archive interface {
	Record(article Article) error
}

// Runner wires one complete pass: fetch, diff against the ledger, notify,
// persist, summarize. It holds no state between runs; everything durable
// lives in the ledger and the archive.
type Runner struct {
	fetcher  *Fetcher
	seen     SeenSet
	notifier Notifier
	archive  Archive
	dryRun   bool
	log      *zap.Logger
}

// NewRunner assembles a runner. notifier may be nil in dry-run mode, and
// archive may be nil to disable delivery recording.
func NewRunner(fetcher *Fetcher, seen SeenSet, notifier Notifier, archive Archive, dryRun bool, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		fetcher:  fetcher,
		seen:     seen,
		notifier: notifier,
		archive:  archive,
		dryRun:   dryRun,
		log:      log,
	}
}

// Run executes a single pass and returns the number of articles delivered,
// or in dry-run mode the number that would have been. Articles whose
// delivery fails stay unmarked in the ledger so the next scheduled run
// retries them.
func (r *Runner) Run() int {
	log := r.log.With(zap.String("run_id", uuid.NewString()))

	articles := r.fetcher.FetchArticles()
	if len(articles) == 0 {
		log.Warn("no articles found")
		return 0
	}

	var fresh []Article
	for _, article := range articles {
		if r.seen.IsSeen(article.ID()) {
			continue
		}
		fresh = append(fresh, article)
		log.Info("new article",
			zap.String("id", article.ID()),
			zap.String("title", article.Title))
	}
	log.Info("partitioned articles",
		zap.Int("new", len(fresh)),
		zap.Int("total", len(articles)))

	delivered := 0
	for _, article := range fresh {
		if r.dryRun {
			log.Info("dry run, would notify",
				zap.String("title", article.Title),
				zap.String("url", article.URL),
				zap.String("date", article.Date))
			r.seen.MarkSeen(article.ID())
			delivered++
			continue
		}

		if !r.notifier.SendArticle(article) {
			// Leave unmarked so the next scheduled run retries it.
			continue
		}
		r.seen.MarkSeen(article.ID())
		r.recordDelivery(log, article)
		delivered++
	}

	if !r.dryRun && delivered > 0 {
		r.notifier.SendSummary(delivered, r.seen.Count())
	}

	log.Info("run complete", zap.Int("delivered", delivered))
	return delivered
}

func (r *Runner) recordDelivery(log *zap.Logger, article Article) {
	if r.archive == nil {
		return
	}
	if err := r.archive.Record(article); err != nil {
		log.Warn("failed to archive delivered article",
			zap.String("url", article.URL),
			zap.Error(err))
	}
}
