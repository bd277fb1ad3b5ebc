package newswatch

import (
	"crypto/sha256"
	"encoding/hex"
)

// Article represents a single news entry discovered on the source page.
// Articles are created by the extraction engine and never mutated afterward.
type Article struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Date    string `json:"date,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// ID returns the article's stable identifier: the first 16 hex characters of
// the SHA-256 digest of the URL. Identity depends on the URL alone, so a
// re-extraction that picks up a different title or summary still maps to the
// same ledger entry.
func (a Article) ID() string {
	sum := sha256.Sum256([]byte(a.URL))
	return hex.EncodeToString(sum[:])[:16]
}
