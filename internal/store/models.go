package store

import "time"

// Ranking is one aggregated trend entry. Its ID is derived from
// category and keyword, so re-ingesting the same post updates the
// existing row instead of inserting a new one.
type Ranking struct {
	ID           string
	Keyword      string
	Category     string
	Popularity   int64
	Summary      string
	SourceURLs   []string
	PostDate     *time.Time
	RankChange   int
	ThumbnailURL string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RawPost is a scraped post as collected, keyed by a URL-derived ID.
type RawPost struct {
	ID           string
	Source       string
	Title        string
	URL          string
	Views        int
	Likes        int
	Content      string
	PostDate     *time.Time
	ThumbnailURL string
	ScrapedAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RankingFilter narrows QueryRankings results.
type RankingFilter struct {
	Category string
	Limit    int
}

// Stats contains aggregate store statistics.
type Stats struct {
	Rankings   int
	RawPosts   int
	ByCategory map[string]int
}
