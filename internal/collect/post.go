package collect

import (
	"strings"
	"time"
)

// Post is one scraped board item, normalized across sources. Posts are
// per-run artifacts; persistence happens downstream under deterministic IDs.
type Post struct {
	Source       string
	Title        string
	URL          string
	Views        int
	Likes        int
	Content      string
	PostDate     *time.Time
	ThumbnailURL string
}

// FilterOld drops posts older than maxAgeDays. Posts without a date are kept
// and treated as recent. Returns the kept posts and the number excluded.
func FilterOld(posts []Post, maxAgeDays int, now time.Time) ([]Post, int) {
	if maxAgeDays <= 0 {
		return posts, 0
	}
	cutoff := now.AddDate(0, 0, -maxAgeDays)

	kept := make([]Post, 0, len(posts))
	excluded := 0
	for _, p := range posts {
		if p.PostDate != nil && !p.PostDate.After(cutoff) {
			excluded++
			continue
		}
		kept = append(kept, p)
	}
	return kept, excluded
}

// imageExcludePatterns rejects icons, logos and tracking pixels that board
// markup frequently places where a thumbnail would be.
var imageExcludePatterns = []string{
	"icon", "logo", "emoji", "avatar", "profile",
	".gif", "1x1", "spacer", "blank", "loading",
}

// NormalizeImageURL resolves a scraped image source against the board's base
// URL and rejects obvious non-thumbnails. Returns "" when unusable.
func NormalizeImageURL(src, baseURL string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}

	lower := strings.ToLower(src)
	for _, pattern := range imageExcludePatterns {
		if strings.Contains(lower, pattern) {
			return ""
		}
	}

	switch {
	case strings.HasPrefix(src, "//"):
		return "https:" + src
	case strings.HasPrefix(src, "/"):
		return strings.TrimSuffix(baseURL, "/") + src
	case strings.HasPrefix(src, "http"):
		return src
	}
	return ""
}
