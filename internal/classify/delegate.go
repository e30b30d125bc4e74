package classify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"memeboard/internal/config"
	"memeboard/internal/llm"
)

const classifyPrompt = `You are classifying posts from online community boards into topical categories.

Valid categories: %s
"%s" is the catch-all for posts that fit no other category.

Title: %s%s

Respond with ONLY this JSON (no other text):
{"category": "category name", "confidence": 0.0-1.0, "reason": "one short sentence"}`

const summarizePrompt = `Summarize the following community post in up to three short lines.
Keep it light and conversational; stick to the facts in the post.

Title: %s%s

Summary:`

const (
	classifyContentLimit  = 500
	summarizeContentLimit = 1000
)

// Delegate classifies via a remote text-generation provider. It satisfies
// the same contract as the keyword classifier and recovers every failure
// into a low-confidence fallback result, so a run always classifies every
// post. After maxFailures consecutive transport errors it stops calling the
// remote service and hands the rest of the run to the local classifier.
type Delegate struct {
	provider    llm.Provider
	local       *Keyword
	categories  []string
	fallback    string
	timeout     time.Duration
	maxTokens   int
	maxFailures int32
	failures    atomic.Int32
}

// NewDelegate wires a delegate classifier; local handles degraded operation.
func NewDelegate(provider llm.Provider, local *Keyword, cfg *config.Config) *Delegate {
	maxFailures := cfg.Classifier.LLM.MaxFailures
	if maxFailures <= 0 {
		maxFailures = 3
	}
	maxTokens := cfg.Classifier.LLM.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &Delegate{
		provider:    provider,
		local:       local,
		categories:  cfg.Categories.Order,
		fallback:    cfg.Categories.Fallback,
		timeout:     cfg.LLMTimeout(),
		maxTokens:   maxTokens,
		maxFailures: int32(maxFailures),
	}
}

// Degraded reports whether the delegate has given up on the remote service
// for this run.
func (d *Delegate) Degraded() bool {
	return d.failures.Load() >= d.maxFailures
}

// Classify asks the provider for a category. Transport failures yield the
// fallback category at confidence 0.1 with the error text as the sole
// matched keyword; unparseable payloads yield 0.3 the same way.
func (d *Delegate) Classify(ctx context.Context, title, content string) Result {
	if d.Degraded() {
		return d.local.Classify(ctx, title, content)
	}

	prompt := fmt.Sprintf(classifyPrompt,
		strings.Join(d.categories, ", "),
		d.fallback,
		title,
		contentBlock(content, classifyContentLimit),
	)

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	response, err := d.provider.Generate(callCtx, prompt, d.maxTokens)
	if err != nil {
		failures := d.failures.Add(1)
		if failures >= d.maxFailures {
			log.Printf("Delegate classifier degraded after %d consecutive failures; using keyword classifier", failures)
		}
		return Result{
			Category:        d.fallback,
			Confidence:      0.1,
			MatchedKeywords: []string{err.Error()},
		}
	}
	d.failures.Store(0)

	parsed, err := llm.ExtractJSON(response)
	if err != nil {
		return Result{
			Category:        d.fallback,
			Confidence:      0.3,
			MatchedKeywords: []string{err.Error()},
		}
	}

	category := llm.GetString(parsed, "category", d.fallback)
	if !d.knownCategory(category) {
		category = d.fallback
	}

	confidence := llm.GetFloat(parsed, "confidence", 0.5)
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	var matched []string
	if reason := llm.GetString(parsed, "reason", ""); reason != "" {
		matched = []string{reason}
	}

	return Result{
		Category:        category,
		Confidence:      confidence,
		MatchedKeywords: matched,
	}
}

// Summarize asks the provider for a short summary; any failure returns the
// title unchanged.
func (d *Delegate) Summarize(ctx context.Context, title, content string) string {
	if d.Degraded() {
		return title
	}

	prompt := fmt.Sprintf(summarizePrompt, title, contentBlock(content, summarizeContentLimit))

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	response, err := d.provider.Generate(callCtx, prompt, d.maxTokens)
	if err != nil {
		log.Printf("Summarize failed for %q: %v", title, err)
		return title
	}

	summary := strings.TrimSpace(response)
	if summary == "" {
		return title
	}
	return summary
}

func (d *Delegate) knownCategory(name string) bool {
	for _, cat := range d.categories {
		if cat == name {
			return true
		}
	}
	return false
}

func contentBlock(content string, limit int) string {
	if content == "" {
		return ""
	}
	runes := []rune(content)
	if len(runes) > limit {
		content = string(runes[:limit])
	}
	return "\nContent: " + content
}
