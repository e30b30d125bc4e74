package store

import (
	"fmt"
	"time"

	"memeboard/internal/classify"
	"memeboard/internal/collect"
	"memeboard/internal/config"
	"memeboard/internal/identity"
)

// keywordMaxRunes bounds the keyword column, which is a truncated title.
const keywordMaxRunes = 200

// Ingestor projects collected and classified posts into store records and
// writes them in fixed-size batches. A failed batch is reported and the
// remaining batches still go through; upserts make retries safe.
type Ingestor struct {
	repo          Repository
	threshold     float64
	batchSize     int
	scoreWeight   int
	retentionDays int
	now           func() time.Time
}

// NewIngestor builds an Ingestor from config, falling back to the standard
// batch size, score weight, and retention window when unset.
func NewIngestor(repo Repository, cfg *config.Config) *Ingestor {
	batchSize := cfg.Storage.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}
	scoreWeight := cfg.Storage.ScoreWeight
	if scoreWeight <= 0 {
		scoreWeight = 10
	}
	retentionDays := cfg.Storage.RetentionDays
	if retentionDays <= 0 {
		retentionDays = 7
	}
	return &Ingestor{
		repo:          repo,
		threshold:     cfg.Classifier.ConfidenceThreshold,
		batchSize:     batchSize,
		scoreWeight:   scoreWeight,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

// BuildRankings projects classified posts into ranking records. Posts below
// the confidence threshold are skipped. Within the result, records sharing
// an ID are deduplicated last-write-wins.
func (in *Ingestor) BuildRankings(posts []classify.ClassifiedPost) []Ranking {
	var rankings []Ranking
	seen := make(map[string]int)

	for _, p := range posts {
		if p.Confidence < in.threshold {
			continue
		}

		keyword := truncateRunes(p.Title, keywordMaxRunes)
		summary := p.Summary
		if summary == "" {
			summary = p.Title
		}
		urls := []string{}
		if p.URL != "" {
			urls = []string{p.URL}
		}

		r := Ranking{
			ID:           identity.RankingID(p.Category, keyword),
			Keyword:      keyword,
			Category:     p.Category,
			Popularity:   int64(p.Views) + int64(p.Likes)*int64(in.scoreWeight),
			Summary:      summary,
			SourceURLs:   urls,
			PostDate:     p.PostDate,
			RankChange:   0,
			ThumbnailURL: p.ThumbnailURL,
		}

		if idx, ok := seen[r.ID]; ok {
			rankings[idx] = r
		} else {
			seen[r.ID] = len(rankings)
			rankings = append(rankings, r)
		}
	}
	return rankings
}

// BuildRawPosts projects scraped posts into raw post records, deduplicated
// last-write-wins by their URL-derived ID.
func (in *Ingestor) BuildRawPosts(posts []collect.Post) []RawPost {
	var raw []RawPost
	seen := make(map[string]int)
	scrapedAt := in.now()

	for _, p := range posts {
		r := RawPost{
			ID:           identity.PostID(p.URL, p.Source, p.Title),
			Source:       p.Source,
			Title:        p.Title,
			URL:          p.URL,
			Views:        p.Views,
			Likes:        p.Likes,
			Content:      p.Content,
			PostDate:     p.PostDate,
			ThumbnailURL: p.ThumbnailURL,
			ScrapedAt:    scrapedAt,
		}
		if idx, ok := seen[r.ID]; ok {
			raw[idx] = r
		} else {
			seen[r.ID] = len(raw)
			raw = append(raw, r)
		}
	}
	return raw
}

// IngestRankings builds and writes rankings, returning the number written
// and one error per failed batch.
func (in *Ingestor) IngestRankings(posts []classify.ClassifiedPost) (int, []error) {
	rankings := in.BuildRankings(posts)

	var written int
	var errs []error
	for start := 0; start < len(rankings); start += in.batchSize {
		end := start + in.batchSize
		if end > len(rankings) {
			end = len(rankings)
		}
		n, err := in.repo.UpsertRankings(rankings[start:end])
		if err != nil {
			errs = append(errs, fmt.Errorf("rankings batch %d-%d: %w", start, end, err))
			continue
		}
		written += n
	}
	return written, errs
}

// IngestRawPosts builds and writes raw posts, returning the number written
// and one error per failed batch.
func (in *Ingestor) IngestRawPosts(posts []collect.Post) (int, []error) {
	raw := in.BuildRawPosts(posts)

	var written int
	var errs []error
	for start := 0; start < len(raw); start += in.batchSize {
		end := start + in.batchSize
		if end > len(raw) {
			end = len(raw)
		}
		n, err := in.repo.UpsertRawPosts(raw[start:end])
		if err != nil {
			errs = append(errs, fmt.Errorf("raw posts batch %d-%d: %w", start, end, err))
			continue
		}
		written += n
	}
	return written, errs
}

// Sweep deletes rankings untouched for longer than the retention window
// and returns the count removed.
func (in *Ingestor) Sweep() (int64, error) {
	cutoff := in.now().AddDate(0, 0, -in.retentionDays)
	return in.repo.DeleteRankingsOlderThan(cutoff)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
