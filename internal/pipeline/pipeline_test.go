package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"memeboard/internal/classify"
	"memeboard/internal/collect"
	"memeboard/internal/config"
	"memeboard/internal/store"
)

type stubConnector struct {
	posts []collect.Post
}

func (s *stubConnector) Name() string { return "stub" }

func (s *stubConnector) Scrape(_ context.Context, page int) ([]collect.Post, error) {
	if page > 1 {
		return nil, nil
	}
	return s.posts, nil
}

func testPipeline(t *testing.T, posts []collect.Post) (*Pipeline, *store.DB, *config.Config) {
	t.Helper()

	cfg := &config.Config{
		Categories: config.Categories{
			Order:    []string{"politics", "sports", "celebrity", "stock", "game", "issue"},
			Fallback: "issue",
		},
		Keywords: []config.KeywordSet{
			{Category: "sports", Terms: []string{"soccer", "baseball", "league"}},
			{Category: "stock", Terms: []string{"stock", "coin", "nasdaq"}},
		},
		// 0.4 puts the zero-match floor of 0.3 below the line, so posts
		// matching no keywords go to manual review.
		Classifier: config.Classifier{Provider: "keyword", ConfidenceThreshold: 0.4, Workers: 2},
		Storage:    config.Storage{BatchSize: 50, RetentionDays: 7, ScoreWeight: 10, MaxAgeDays: 7},
		Review:     config.Review{OutputDir: t.TempDir()},
	}

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	p := &Pipeline{
		cfg:        cfg,
		repo:       db,
		collector:  collect.NewCollectorWith(&stubConnector{posts: posts}),
		classifier: classify.NewKeyword(cfg),
		ingestor:   store.NewIngestor(db, cfg),
	}
	return p, db, cfg
}

func testPosts() []collect.Post {
	return []collect.Post{
		{Source: "stub", Title: "soccer league final today", URL: "https://example.com/1", Views: 100, Likes: 3, Content: "soccer"},
		{Source: "stub", Title: "coin and nasdaq rally", URL: "https://example.com/2", Views: 50, Content: "stock"},
		{Source: "stub", Title: "completely unclassifiable mumbling", URL: "https://example.com/3", Content: "nothing relevant"},
	}
}

func TestRunEndToEnd(t *testing.T) {
	p, db, cfg := testPipeline(t, testPosts())

	result := p.Run(context.Background(), 1, false)

	for _, step := range result.Steps {
		if step.Err != nil {
			t.Errorf("step %s failed: %v", step.Name, step.Err)
		}
	}
	if result.Certain != 2 || result.Uncertain != 1 {
		t.Errorf("expected 2 certain / 1 uncertain, got %d / %d", result.Certain, result.Uncertain)
	}

	rankings, err := db.QueryRankings(store.RankingFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rankings) != 2 {
		t.Errorf("expected 2 rankings, got %d", len(rankings))
	}

	raw, err := db.QueryRawPostsByURL([]string{"https://example.com/1", "https://example.com/2", "https://example.com/3"})
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 3 {
		t.Errorf("expected all 3 raw posts stored, got %d", len(raw))
	}

	// The uncertain post landed in a review file.
	entries, err := os.ReadDir(cfg.Review.OutputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one review file, got %d", len(entries))
	}
	data, err := os.ReadFile(filepath.Join(cfg.Review.OutputDir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "https://example.com/3") {
		t.Error("review file missing the uncertain post")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	p, db, _ := testPipeline(t, testPosts())

	p.Run(context.Background(), 1, false)
	p.Run(context.Background(), 1, false)

	rankings, err := db.QueryRankings(store.RankingFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(rankings) != 2 {
		t.Errorf("expected 2 rankings after second run, got %d", len(rankings))
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	p, db, cfg := testPipeline(t, testPosts())

	result := p.Run(context.Background(), 1, true)
	for _, step := range result.Steps {
		if step.Err != nil {
			t.Errorf("step %s failed: %v", step.Name, step.Err)
		}
	}

	stats, err := db.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Rankings != 0 || stats.RawPosts != 0 {
		t.Errorf("dry run must not write, got %+v", stats)
	}
	entries, err := os.ReadDir(cfg.Review.OutputDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Error("dry run must not export review files")
	}
}

func TestRunEmptyCollect(t *testing.T) {
	p, _, _ := testPipeline(t, nil)

	result := p.Run(context.Background(), 1, false)
	if len(result.Steps) != 1 {
		t.Errorf("expected only the collect step, got %d steps", len(result.Steps))
	}
}

func TestRunFilterDropsOldPosts(t *testing.T) {
	old := time.Now().AddDate(0, 0, -10)
	posts := append(testPosts(), collect.Post{
		Source: "stub", Title: "stale soccer recap", URL: "https://example.com/old", PostDate: &old,
	})
	p, _, _ := testPipeline(t, posts)

	kept, step := p.runFilter(posts)
	if len(kept) != 3 {
		t.Errorf("expected 3 posts kept, got %d", len(kept))
	}
	if step.Summary != "3 posts kept, 1 too old" {
		t.Errorf("unexpected filter summary %q", step.Summary)
	}
}

func TestImportReviewRoundTrip(t *testing.T) {
	p, db, _ := testPipeline(t, testPosts())
	p.Run(context.Background(), 1, false)

	reviewFile := filepath.Join(t.TempDir(), "edited.txt")
	edited := strings.Join([]string{
		"1. [stub] completely unclassifiable mumbling",
		"   URL: https://example.com/3",
		"   Confidence: 30.0%",
		"   Category: game",
		"   Summary:",
		"   Human-written summary.",
		"",
		"2. [stub] never exported",
		"   URL: https://example.com/unknown",
		"   Category: sports",
		"",
	}, "\n")
	if err := os.WriteFile(reviewFile, []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}

	written, err := p.ImportReview(context.Background(), reviewFile)
	if err != nil {
		t.Fatalf("ImportReview: %v", err)
	}
	if written != 1 {
		t.Fatalf("expected 1 ranking written (unknown URL dropped), got %d", written)
	}

	rankings, err := db.QueryRankings(store.RankingFilter{Category: "game"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rankings) != 1 {
		t.Fatalf("expected 1 game ranking, got %d", len(rankings))
	}
	if rankings[0].Summary != "Human-written summary." {
		t.Errorf("unexpected summary %q", rankings[0].Summary)
	}
}

func TestNewClassifierFallsBackToKeyword(t *testing.T) {
	cfg := &config.Config{
		Categories: config.Categories{Order: []string{"issue"}, Fallback: "issue"},
		Classifier: config.Classifier{Provider: "keyword"},
	}
	if _, ok := newClassifier(cfg).(*classify.Keyword); !ok {
		t.Error("expected keyword classifier")
	}
}
