package collect

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubConnector struct {
	name  string
	posts []Post
	err   error
}

func (s *stubConnector) Name() string { return s.name }

func (s *stubConnector) Scrape(_ context.Context, page int) ([]Post, error) {
	if s.err != nil {
		return nil, s.err
	}
	if page > 1 {
		return nil, nil
	}
	return s.posts, nil
}

func TestCollectMergesSources(t *testing.T) {
	a := &stubConnector{name: "boardA", posts: []Post{
		{Source: "boardA", Title: "one", URL: "https://a.com/1"},
		{Source: "boardA", Title: "two", URL: "https://a.com/2"},
	}}
	b := &stubConnector{name: "boardB", posts: []Post{
		{Source: "boardB", Title: "three", URL: "https://b.com/3"},
	}}

	result, posts := NewCollectorWith(a, b).Collect(context.Background(), 1)

	if result.TotalFound != 3 {
		t.Errorf("expected 3 found, got %d", result.TotalFound)
	}
	if len(posts) != 3 {
		t.Errorf("expected 3 posts, got %d", len(posts))
	}
	if result.BySource["boardA"] != 2 || result.BySource["boardB"] != 1 {
		t.Errorf("unexpected per-source counts: %v", result.BySource)
	}
}

func TestCollectFailingSourceDoesNotAbortRun(t *testing.T) {
	broken := &stubConnector{name: "broken", err: errors.New("connection refused")}
	healthy := &stubConnector{name: "healthy", posts: []Post{
		{Source: "healthy", Title: "ok", URL: "https://h.com/1"},
	}}

	result, posts := NewCollectorWith(broken, healthy).Collect(context.Background(), 2)

	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(result.Errors))
	}
	if len(posts) != 1 || posts[0].Source != "healthy" {
		t.Errorf("expected the healthy source's post to survive, got %v", posts)
	}
}

func TestFilterOld(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -8)
	recent := now.AddDate(0, 0, -6)

	posts := []Post{
		{Title: "old", PostDate: &old},
		{Title: "recent", PostDate: &recent},
		{Title: "undated"},
	}

	kept, excluded := FilterOld(posts, 7, now)

	if excluded != 1 {
		t.Errorf("expected 1 excluded, got %d", excluded)
	}
	if len(kept) != 2 {
		t.Fatalf("expected 2 kept, got %d", len(kept))
	}
	if kept[0].Title != "recent" || kept[1].Title != "undated" {
		t.Errorf("unexpected kept set: %v", kept)
	}
}

func TestFilterOldDisabled(t *testing.T) {
	old := time.Now().AddDate(0, 0, -30)
	posts := []Post{{Title: "ancient", PostDate: &old}}
	kept, excluded := FilterOld(posts, 0, time.Now())
	if excluded != 0 || len(kept) != 1 {
		t.Error("maxAgeDays <= 0 should disable filtering")
	}
}

func TestNormalizeImageURL(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"//cdn.example.com/img/1.jpg", "https://cdn.example.com/img/1.jpg"},
		{"/img/1.jpg", "https://board.example.com/img/1.jpg"},
		{"https://cdn.example.com/img/1.jpg", "https://cdn.example.com/img/1.jpg"},
		{"/img/site-logo.png", ""},
		{"/img/loading.gif", ""},
		{"favicon.ico", ""},
		{"", ""},
	}
	for _, tt := range tests {
		got := NormalizeImageURL(tt.src, "https://board.example.com")
		if got != tt.want {
			t.Errorf("NormalizeImageURL(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}
