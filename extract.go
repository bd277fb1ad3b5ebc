package newswatch

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// defaultSelectors is the ordered cascade of structural patterns that
// news-listing pages commonly use for individual article containers. The
// first selector that matches at least one element wins; entries further
// down are noisier and only reached when the precise ones find nothing.
var defaultSelectors = []string{
	"article",
	".news-item",
	".news-article",
	".news-list-item",
	".list-item",
	`div[class*="news"]`,
	".content-list article",
	".news a",
	"ul.news li",
	".panel-body a",
}

// defaultSkipPatterns rejects navigation, social and contact links during
// the fallback link scan. Matched case-insensitively against the whole href.
var defaultSkipPatterns = []string{
	"facebook", "twitter", "instagram", "linkedin", "youtube",
	"login", "register", "mailto:", "tel:", "#", "javascript:",
}

// summaryClassHints is the priority order for locating a summary element.
// The first hint whose class-attribute match yields an element wins.
var summaryClassHints = []string{"summary", "excerpt", "description", "text", "content"}

const (
	minTitleLen    = 5
	minLinkTextLen = 10
	maxSummaryLen  = 200
)

// Heuristics carries the tunable parts of the extraction cascade. Zero
// values fall back to the built-in defaults.
type Heuristics struct {
	Selectors      []string
	SkipPatterns   []string
	DomainFragment string
}

// Extractor turns raw page markup into Articles using a prioritized cascade
// of structural heuristics plus a link-scan fallback. It performs no I/O and
// never fails: malformed markup yields an empty result.
type Extractor struct {
	baseURL        string
	selectors      []string
	skipPatterns   []string
	domainFragment string
	log            *zap.Logger
}

// NewExtractor creates an extractor for pages fetched from baseURL. Relative
// links are resolved against it and the fallback link scan rejects absolute
// links pointing off its registrable domain.
func NewExtractor(baseURL string, h Heuristics, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Extractor{
		baseURL:        baseURL,
		selectors:      h.Selectors,
		skipPatterns:   h.SkipPatterns,
		domainFragment: strings.ToLower(h.DomainFragment),
		log:            log,
	}
	if len(e.selectors) == 0 {
		e.selectors = defaultSelectors
	}
	if len(e.skipPatterns) == 0 {
		e.skipPatterns = defaultSkipPatterns
	}
	if e.domainFragment == "" {
		e.domainFragment = registrableFragment(baseURL)
	}
	return e
}

// Extract parses raw markup and returns every article it can recognize, in
// document order. Duplicate URLs are kept; deduplication belongs to the
// ledger. Malformed markup yields an empty slice, never an error.
func (e *Extractor) Extract(rawHTML string) []Article {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		e.log.Warn("failed to parse page markup", zap.Error(err))
		return nil
	}

	var articles []Article
	e.findCandidates(doc).Each(func(_ int, item *goquery.Selection) {
		article, ok := e.extractArticle(item)
		if !ok {
			return
		}
		articles = append(articles, article)
	})

	e.log.Info("extracted articles", zap.Int("count", len(articles)))
	return articles
}

// findCandidates tries each cascade selector in order and returns the
// matches of the first one that hits. When nothing matches it falls back to
// scanning every hyperlink and keeping the plausible news links, trading
// precision for recall on unrecognized page structures.
func (e *Extractor) findCandidates(doc *goquery.Document) *goquery.Selection {
	for _, selector := range e.selectors {
		items := doc.Find(selector)
		if items.Length() > 0 {
			e.log.Debug("selector matched",
				zap.String("selector", selector),
				zap.Int("count", items.Length()))
			return items
		}
	}

	e.log.Warn("no items found with standard selectors, trying link extraction")
	return doc.Find("a[href]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return e.looksLikeNewsLink(s)
	})
}

// looksLikeNewsLink filters out navigation, social and contact links during
// the fallback scan. Absolute links are rejected when their text does not
// contain the source's domain fragment; this is a deliberately loose
// substring check, not a host-suffix comparison.
func (e *Extractor) looksLikeNewsLink(s *goquery.Selection) bool {
	href := strings.ToLower(s.AttrOr("href", ""))
	for _, pattern := range e.skipPatterns {
		if strings.Contains(href, pattern) {
			return false
		}
	}

	if utf8.RuneCountInString(strings.TrimSpace(s.Text())) < minLinkTextLen {
		return false
	}

	if strings.HasPrefix(href, "http") && !strings.Contains(href, e.domainFragment) {
		return false
	}

	return true
}

// extractArticle derives an Article from one candidate element. A false
// return means the element had no usable link or title; the caller skips it
// and continues with the rest.
func (e *Extractor) extractArticle(item *goquery.Selection) (Article, bool) {
	link := item
	if !item.Is("a") {
		link = item.Find("a[href]").First()
		if link.Length() == 0 {
			return Article{}, false
		}
	}

	href := link.AttrOr("href", "")
	if href == "" || href == "#" {
		return Article{}, false
	}

	title := strings.TrimSpace(link.Text())
	if title == "" {
		title = strings.TrimSpace(link.AttrOr("title", ""))
	}
	if utf8.RuneCountInString(title) < minTitleLen {
		return Article{}, false
	}

	article := Article{
		URL:   e.absoluteURL(href),
		Title: title,
	}

	if dateElem := findByClassFragment(item, "date"); dateElem != nil {
		article.Date = strings.TrimSpace(dateElem.Text())
	}

	for _, hint := range summaryClassHints {
		if summaryElem := findByClassFragment(item, hint); summaryElem != nil {
			article.Summary = truncate(strings.TrimSpace(summaryElem.Text()), maxSummaryLen)
			break
		}
	}

	return article, true
}

// absoluteURL normalizes a link target against the configured base URL:
// root-relative targets are resolved properly, targets that already carry a
// scheme are kept, anything else is joined by simple path concatenation.
func (e *Extractor) absoluteURL(href string) string {
	switch {
	case strings.HasPrefix(href, "/"):
		base, err := url.Parse(e.baseURL)
		if err != nil {
			break
		}
		ref, err := url.Parse(href)
		if err != nil {
			break
		}
		return base.ResolveReference(ref).String()
	case strings.HasPrefix(href, "http"):
		return href
	}
	return strings.TrimRight(e.baseURL, "/") + "/" + strings.TrimLeft(href, "/")
}

// findByClassFragment returns the first descendant whose class attribute
// contains fragment, case-insensitively. Matching is a substring test
// against the raw attribute, so a fragment inside any class token counts
// whether the attribute holds one token or a whitespace-separated list.
func findByClassFragment(item *goquery.Selection, fragment string) *goquery.Selection {
	var found *goquery.Selection
	item.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(s.AttrOr("class", "")), fragment) {
			found = s
			return false
		}
		return true
	})
	return found
}

// registrableFragment derives the loose domain fragment used by the off-site
// check from the base URL host: the last two dot-separated labels, e.g.
// "dz-priem.plovdiv.bg" becomes "plovdiv.bg".
func registrableFragment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	labels := strings.Split(strings.ToLower(u.Hostname()), ".")
	if len(labels) > 2 {
		labels = labels[len(labels)-2:]
	}
	return strings.Join(labels, ".")
}

// truncate cuts s to at most n code points.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
