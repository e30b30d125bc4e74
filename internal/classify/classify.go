// Package classify assigns topical categories to collected posts.
//
// Two implementations sit behind the Classifier interface: a keyword-scoring
// classifier that is a pure function of its configuration, and a delegate
// backed by a text-generation provider. Callers pick one via configuration.
package classify

import (
	"context"
	"strings"

	"memeboard/internal/collect"
	"memeboard/internal/config"
)

// Result is the outcome of classifying one post.
type Result struct {
	Category        string
	Confidence      float64 // always within [0,1]
	MatchedKeywords []string
}

// ClassifiedPost is a post with its classification merged in.
type ClassifiedPost struct {
	collect.Post
	Result
	Summary string
}

// Classifier is the classification contract shared by all implementations.
// Classify always produces a result; failures surface as low-confidence
// fallback classifications, never as errors.
type Classifier interface {
	Classify(ctx context.Context, title, content string) Result
	Summarize(ctx context.Context, title, content string) string
}

// Keyword classifies by counting keyword matches per category.
type Keyword struct {
	table     []config.KeywordSet
	priority  []string
	fallback  string
	threshold float64
}

// NewKeyword builds a keyword classifier from configuration.
func NewKeyword(cfg *config.Config) *Keyword {
	return &Keyword{
		table:     cfg.Keywords,
		priority:  cfg.Categories.Order,
		fallback:  cfg.Categories.Fallback,
		threshold: cfg.Classifier.ConfidenceThreshold,
	}
}

// Classify scores title+content against the keyword table.
//
// Scoring: each category earns one point per keyword found as a substring of
// the lowercased text. The top-scoring category wins, ties broken by the
// configured priority order. Confidence is min(1, score/3); three matches
// saturate it. Zero matches yields the fallback category at a fixed 0.3,
// and a sub-threshold score yields the fallback category with the computed
// confidence and the winner's matched keywords intact.
func (k *Keyword) Classify(_ context.Context, title, content string) Result {
	text := strings.ToLower(title)
	if content != "" {
		text += " " + strings.ToLower(content)
	}

	scores := make([]int, len(k.table))
	matched := make([][]string, len(k.table))
	maxScore := 0
	for i, set := range k.table {
		for _, keyword := range set.Terms {
			if strings.Contains(text, strings.ToLower(keyword)) {
				matched[i] = append(matched[i], keyword)
			}
		}
		scores[i] = len(matched[i])
		if scores[i] > maxScore {
			maxScore = scores[i]
		}
	}

	if maxScore == 0 {
		return Result{
			Category:        k.fallback,
			Confidence:      0.3,
			MatchedKeywords: []string{},
		}
	}

	tied := make(map[string]int)
	best := ""
	for i, set := range k.table {
		if scores[i] == maxScore {
			tied[set.Category] = i
			if best == "" {
				best = set.Category
			}
		}
	}
	for _, cat := range k.priority {
		if _, ok := tied[cat]; ok {
			best = cat
			break
		}
	}

	confidence := float64(maxScore) / 3
	if confidence > 1.0 {
		confidence = 1.0
	}

	category := best
	if confidence < k.threshold {
		category = k.fallback
	}

	return Result{
		Category:        category,
		Confidence:      confidence,
		MatchedKeywords: matched[tied[best]],
	}
}

// Summarize returns the title; keyword scoring produces no summaries.
func (k *Keyword) Summarize(_ context.Context, title, _ string) string {
	return title
}
