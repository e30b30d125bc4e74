package store

import (
	"errors"
	"strings"
	"testing"
	"time"

	"memeboard/internal/classify"
	"memeboard/internal/collect"
	"memeboard/internal/config"
	"memeboard/internal/identity"
)

func testIngestConfig() *config.Config {
	return &config.Config{
		Classifier: config.Classifier{ConfidenceThreshold: 0.1},
		Storage:    config.Storage{BatchSize: 2, RetentionDays: 7, ScoreWeight: 10},
	}
}

func classified(title, url, category string, confidence float64, views, likes int) classify.ClassifiedPost {
	return classify.ClassifiedPost{
		Post:   collect.Post{Source: "dcinside", Title: title, URL: url, Views: views, Likes: likes},
		Result: classify.Result{Category: category, Confidence: confidence},
	}
}

func TestBuildRankings(t *testing.T) {
	in := NewIngestor(nil, testIngestConfig())

	posts := []classify.ClassifiedPost{
		classified("popular post", "https://example.com/1", "sports", 0.9, 100, 5),
		classified("too uncertain", "https://example.com/2", "issue", 0.05, 10, 0),
	}
	rankings := in.BuildRankings(posts)

	if len(rankings) != 1 {
		t.Fatalf("expected sub-threshold post skipped, got %d rankings", len(rankings))
	}
	r := rankings[0]
	if r.Keyword != "popular post" || r.Category != "sports" {
		t.Errorf("unexpected projection %+v", r)
	}
	if r.Popularity != 100+5*10 {
		t.Errorf("expected popularity 150, got %d", r.Popularity)
	}
	if len(r.SourceURLs) != 1 || r.SourceURLs[0] != "https://example.com/1" {
		t.Errorf("expected single source url, got %v", r.SourceURLs)
	}
	if r.Summary != "popular post" {
		t.Errorf("summary should fall back to title, got %q", r.Summary)
	}
	if r.ID != identity.RankingID("sports", "popular post") {
		t.Errorf("unexpected id %s", r.ID)
	}
}

func TestBuildRankingsTruncatesKeyword(t *testing.T) {
	in := NewIngestor(nil, testIngestConfig())

	long := strings.Repeat("가", 250)
	rankings := in.BuildRankings([]classify.ClassifiedPost{
		classified(long, "https://example.com/1", "issue", 0.5, 0, 0),
	})
	if len(rankings) != 1 {
		t.Fatal("expected one ranking")
	}
	if got := len([]rune(rankings[0].Keyword)); got != 200 {
		t.Errorf("expected keyword truncated to 200 runes, got %d", got)
	}
}

func TestBuildRankingsDedupLastWins(t *testing.T) {
	in := NewIngestor(nil, testIngestConfig())

	first := classified("same title", "https://example.com/1", "sports", 0.9, 10, 0)
	second := classified("same title", "https://example.com/2", "sports", 0.9, 999, 0)
	rankings := in.BuildRankings([]classify.ClassifiedPost{first, second})

	if len(rankings) != 1 {
		t.Fatalf("expected dedup to one record, got %d", len(rankings))
	}
	if rankings[0].Popularity != 999 {
		t.Errorf("later record must win, got popularity %d", rankings[0].Popularity)
	}
}

func TestBuildRawPostsDedupByURL(t *testing.T) {
	in := NewIngestor(nil, testIngestConfig())

	posts := []collect.Post{
		{Source: "dcinside", Title: "old title", URL: "https://example.com/1", Views: 1},
		{Source: "dcinside", Title: "new title", URL: "https://example.com/1", Views: 2},
		{Source: "ruliweb", Title: "other", URL: "https://example.com/2"},
	}
	raw := in.BuildRawPosts(posts)

	if len(raw) != 2 {
		t.Fatalf("expected 2 after dedup, got %d", len(raw))
	}
	if raw[0].Title != "new title" || raw[0].Views != 2 {
		t.Errorf("later record must win, got %+v", raw[0])
	}
}

// flakyRepo fails every UpsertRankings call for selected batches.
type flakyRepo struct {
	calls    int
	failCall int
	written  int
}

func (f *flakyRepo) UpsertRankings(rankings []Ranking) (int, error) {
	f.calls++
	if f.calls == f.failCall {
		return 0, errors.New("write refused")
	}
	f.written += len(rankings)
	return len(rankings), nil
}

func (f *flakyRepo) UpsertRawPosts(posts []RawPost) (int, error) { return len(posts), nil }

func (f *flakyRepo) DeleteRankingsOlderThan(time.Time) (int64, error) { return 0, nil }

func (f *flakyRepo) QueryRankings(RankingFilter) ([]Ranking, error) { return nil, nil }

func (f *flakyRepo) QueryRawPostsByURL([]string) ([]RawPost, error) { return nil, nil }

func (f *flakyRepo) Stats() (*Stats, error) { return &Stats{}, nil }

func TestIngestRankingsContinuesPastFailedBatch(t *testing.T) {
	repo := &flakyRepo{failCall: 2}
	in := NewIngestor(repo, testIngestConfig()) // batch size 2

	var posts []classify.ClassifiedPost
	for _, title := range []string{"one", "two", "three", "four", "five"} {
		posts = append(posts, classified(title, "https://example.com/"+title, "sports", 0.9, 1, 0))
	}

	written, errs := in.IngestRankings(posts)
	if repo.calls != 3 {
		t.Fatalf("expected 3 batches, got %d", repo.calls)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 batch error, got %v", errs)
	}
	if written != 3 {
		t.Errorf("expected 3 written (batches 1 and 3), got %d", written)
	}
}

func TestIngestEndToEnd(t *testing.T) {
	db := openTestDB(t)
	in := NewIngestor(db, testIngestConfig())

	posts := []classify.ClassifiedPost{
		classified("first", "https://example.com/1", "sports", 0.9, 10, 1),
		classified("second", "https://example.com/2", "stock", 0.5, 5, 0),
	}

	written, errs := in.IngestRankings(posts)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors %v", errs)
	}
	if written != 2 {
		t.Fatalf("expected 2 written, got %d", written)
	}

	// Re-ingesting is idempotent.
	if _, errs := in.IngestRankings(posts); len(errs) != 0 {
		t.Fatalf("unexpected errors %v", errs)
	}
	rankings, err := db.QueryRankings(RankingFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rankings) != 2 {
		t.Errorf("expected 2 rows after re-ingest, got %d", len(rankings))
	}
}

func TestSweep(t *testing.T) {
	db := openTestDB(t)
	in := NewIngestor(db, testIngestConfig())

	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	in.now = func() time.Time { return now }

	db.now = func() time.Time { return now.AddDate(0, 0, -8) }
	if _, err := db.UpsertRankings([]Ranking{sampleRanking("stale")}); err != nil {
		t.Fatal(err)
	}
	db.now = func() time.Time { return now }
	if _, err := db.UpsertRankings([]Ranking{sampleRanking("fresh")}); err != nil {
		t.Fatal(err)
	}

	deleted, err := in.Sweep()
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 swept, got %d", deleted)
	}
}
