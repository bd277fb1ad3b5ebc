package newswatch

import (
	"strings"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

// looksLikeFeed reports whether a fetched document is an RSS or Atom feed
// rather than an HTML page, judged by content type and the opening bytes.
// The markers are deliberately feed-specific: XHTML pages also carry xml
// content types and XML declarations, and those must stay on the HTML path.
func looksLikeFeed(contentType, body string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "rss") || strings.Contains(ct, "atom") {
		return true
	}

	head := strings.ToLower(strings.TrimSpace(body))
	if rest, ok := strings.CutPrefix(head, "<?xml"); ok {
		if _, after, found := strings.Cut(rest, "?>"); found {
			head = strings.TrimSpace(after)
		}
	}
	return strings.HasPrefix(head, "<rss") || strings.HasPrefix(head, "<feed")
}

// ArticlesFromFeed maps RSS or Atom feed items to Articles. The gofeed
// library normalizes both formats, so titles, links, dates and descriptions
// come out the same way. Items without a link or with a too-short title are
// skipped, mirroring the HTML extraction rules. An unparseable feed yields
// an empty slice, never an error.
func ArticlesFromFeed(body string, log *zap.Logger) []Article {
	if log == nil {
		log = zap.NewNop()
	}

	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		log.Warn("failed to parse feed", zap.Error(err))
		return nil
	}

	articles := make([]Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if item.Link == "" || utf8.RuneCountInString(title) < minTitleLen {
			continue
		}
		articles = append(articles, Article{
			URL:     item.Link,
			Title:   title,
			Date:    strings.TrimSpace(item.Published),
			Summary: truncate(strings.TrimSpace(item.Description), maxSummaryLen),
		})
	}

	log.Info("parsed feed items", zap.Int("count", len(articles)))
	return articles
}
