// Package pipeline orchestrates the scrape-classify-ingest run.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"memeboard/internal/classify"
	"memeboard/internal/collect"
	"memeboard/internal/config"
	"memeboard/internal/fetch"
	"memeboard/internal/llm"
	"memeboard/internal/review"
	"memeboard/internal/store"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Steps     []StepResult
	Certain   int
	Uncertain int
}

// Pipeline runs collect, classify, and ingest as named steps. Only a
// collect step that yields nothing ends the run early; every other failure
// is recorded on its step and the remaining steps still execute, which is
// safe because all writes are idempotent upserts.
type Pipeline struct {
	cfg        *config.Config
	repo       store.Repository
	collector  *collect.Collector
	classifier classify.Classifier
	ingestor   *store.Ingestor
}

// New creates a pipeline from config. When the classifier provider is
// "llm" but no provider is reachable, it falls back to keyword matching.
func New(cfg *config.Config, repo store.Repository) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		repo:       repo,
		collector:  collect.NewCollector(cfg),
		classifier: newClassifier(cfg),
		ingestor:   store.NewIngestor(repo, cfg),
	}
}

func newClassifier(cfg *config.Config) classify.Classifier {
	keyword := classify.NewKeyword(cfg)
	if cfg.Classifier.Provider != "llm" {
		return keyword
	}

	c := cfg.Classifier.LLM
	provider := llm.CreateProvider(c.Provider, c.Model, c.OllamaURL, c.OpenAIModel, c.APIKeyEnv)
	if provider == nil {
		log.Println("No LLM provider available, falling back to keyword classifier")
		return keyword
	}
	return classify.NewDelegate(provider, keyword, cfg)
}

// Run executes the full pipeline. With dryRun set, nothing is written and
// the write steps report what they would have done.
func (p *Pipeline) Run(ctx context.Context, pages int, dryRun bool) *Result {
	r := &Result{}

	posts, step := p.runCollect(ctx, pages)
	r.Steps = append(r.Steps, step)
	if len(posts) == 0 {
		return r
	}

	r.Steps = append(r.Steps, p.runFetch(posts))

	posts, step = p.runFilter(posts)
	r.Steps = append(r.Steps, step)

	classified, step := p.runClassify(ctx, posts)
	r.Steps = append(r.Steps, step)

	certain, uncertain := classify.Split(classified, p.cfg.Classifier.ConfidenceThreshold)
	r.Certain = len(certain)
	r.Uncertain = len(uncertain)
	r.Steps = append(r.Steps, StepResult{
		Name:    "Route",
		Summary: fmt.Sprintf("%d certain, %d for manual review", len(certain), len(uncertain)),
	})

	r.Steps = append(r.Steps, p.runExport(uncertain, dryRun))
	r.Steps = append(r.Steps, p.runRawPosts(posts, dryRun))
	r.Steps = append(r.Steps, p.runRankings(ctx, certain, dryRun))
	r.Steps = append(r.Steps, p.runSweep(dryRun))

	return r
}

func (p *Pipeline) runCollect(ctx context.Context, pages int) ([]collect.Post, StepResult) {
	log.Println("Step 1/8: Collecting posts...")
	result, posts := p.collector.Collect(ctx, pages)

	summary := fmt.Sprintf("Found %d posts from %d sources", result.TotalFound, len(result.BySource))
	if len(result.Errors) > 0 {
		summary += fmt.Sprintf(" (%d sources failed)", len(result.Errors))
	}
	return posts, StepResult{Name: "Collect", Summary: summary}
}

func (p *Pipeline) runFetch(posts []collect.Post) StepResult {
	log.Println("Step 2/8: Fetching post content...")
	fetcher := fetch.NewContentFetcher(15 * time.Second)
	result := fetcher.FillMissingContent(posts)
	return StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d posts, %d failed", result.Fetched, result.Failed),
	}
}

func (p *Pipeline) runFilter(posts []collect.Post) ([]collect.Post, StepResult) {
	log.Println("Step 3/8: Filtering old posts...")
	kept, excluded := collect.FilterOld(posts, p.cfg.Storage.MaxAgeDays, time.Now())
	return kept, StepResult{
		Name:    "Filter",
		Summary: fmt.Sprintf("%d posts kept, %d too old", len(kept), excluded),
	}
}

func (p *Pipeline) runClassify(ctx context.Context, posts []collect.Post) ([]classify.ClassifiedPost, StepResult) {
	log.Println("Step 4/8: Classifying posts...")
	classified := classify.ClassifyBatch(ctx, p.classifier, posts, p.cfg.Classifier.Workers)

	counts := make(map[string]int)
	for _, c := range classified {
		counts[c.Category]++
	}
	var parts []string
	for _, category := range sortedKeys(counts) {
		parts = append(parts, fmt.Sprintf("%s: %d", category, counts[category]))
	}
	return classified, StepResult{
		Name:    "Classify",
		Summary: strings.Join(parts, ", "),
	}
}

func (p *Pipeline) runExport(uncertain []classify.ClassifiedPost, dryRun bool) StepResult {
	log.Println("Step 5/8: Exporting uncertain posts...")
	if len(uncertain) == 0 {
		return StepResult{Name: "Export", Summary: "Nothing to review"}
	}
	if dryRun {
		return StepResult{
			Name:    "Export",
			Summary: fmt.Sprintf("[dry-run] Would export %d posts for review", len(uncertain)),
		}
	}

	path, err := review.Export(uncertain, p.cfg.Categories.Order, p.cfg.Review.OutputDir, "")
	if err != nil {
		return StepResult{Name: "Export", Err: err}
	}
	return StepResult{
		Name:    "Export",
		Summary: fmt.Sprintf("Exported %d posts to %s", len(uncertain), path),
	}
}

func (p *Pipeline) runRawPosts(posts []collect.Post, dryRun bool) StepResult {
	log.Println("Step 6/8: Saving raw posts...")
	if dryRun {
		return StepResult{
			Name:    "Raw posts",
			Summary: fmt.Sprintf("[dry-run] Would upsert %d raw posts", len(posts)),
		}
	}

	written, errs := p.ingestor.IngestRawPosts(posts)
	return StepResult{
		Name:    "Raw posts",
		Summary: fmt.Sprintf("Upserted %d raw posts", written),
		Err:     joinErrs(errs),
	}
}

func (p *Pipeline) runRankings(ctx context.Context, certain []classify.ClassifiedPost, dryRun bool) StepResult {
	log.Println("Step 7/8: Saving rankings...")
	if dryRun {
		return StepResult{
			Name:    "Rankings",
			Summary: fmt.Sprintf("[dry-run] Would upsert rankings for %d posts", len(certain)),
		}
	}

	for i := range certain {
		if certain[i].Summary == "" {
			certain[i].Summary = p.classifier.Summarize(ctx, certain[i].Title, certain[i].Content)
		}
	}

	written, errs := p.ingestor.IngestRankings(certain)
	return StepResult{
		Name:    "Rankings",
		Summary: fmt.Sprintf("Upserted %d rankings", written),
		Err:     joinErrs(errs),
	}
}

func (p *Pipeline) runSweep(dryRun bool) StepResult {
	log.Println("Step 8/8: Sweeping old rankings...")
	if dryRun {
		return StepResult{Name: "Sweep", Summary: "[dry-run] Skipped"}
	}

	deleted, err := p.ingestor.Sweep()
	if err != nil {
		// Non-fatal: stale rows are removed on the next successful run.
		log.Printf("Sweep failed: %v", err)
		return StepResult{Name: "Sweep", Err: err}
	}
	return StepResult{
		Name:    "Sweep",
		Summary: fmt.Sprintf("Deleted %d stale rankings", deleted),
	}
}

// ExportReview collects and classifies posts, exports the uncertain ones
// to a review file, and stores the raw posts so an edited file can be
// imported later. Returns the file path and the number exported.
func (p *Pipeline) ExportReview(ctx context.Context, pages int) (string, int, error) {
	_, posts := p.collector.Collect(ctx, pages)
	posts, _ = collect.FilterOld(posts, p.cfg.Storage.MaxAgeDays, time.Now())
	if len(posts) == 0 {
		return "", 0, nil
	}

	classified := classify.ClassifyBatch(ctx, p.classifier, posts, p.cfg.Classifier.Workers)
	_, uncertain := classify.Split(classified, p.cfg.Classifier.ConfidenceThreshold)

	if _, errs := p.ingestor.IngestRawPosts(posts); len(errs) > 0 {
		return "", 0, joinErrs(errs)
	}
	if len(uncertain) == 0 {
		return "", 0, nil
	}

	path, err := review.Export(uncertain, p.cfg.Categories.Order, p.cfg.Review.OutputDir, "")
	if err != nil {
		return "", 0, err
	}
	return path, len(uncertain), nil
}

// ImportReview parses an edited review file and upserts rankings for the
// records whose URLs are known raw posts.
func (p *Pipeline) ImportReview(ctx context.Context, path string) (int, error) {
	records, err := review.ParseFile(path)
	if err != nil {
		return 0, fmt.Errorf("parsing review file: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	urls := make([]string, 0, len(records))
	for _, rec := range records {
		urls = append(urls, rec.URL)
	}
	raw, err := p.repo.QueryRawPostsByURL(urls)
	if err != nil {
		return 0, fmt.Errorf("resolving review urls: %w", err)
	}

	posts := make([]collect.Post, 0, len(raw))
	for _, rp := range raw {
		posts = append(posts, collect.Post{
			Source:       rp.Source,
			Title:        rp.Title,
			URL:          rp.URL,
			Views:        rp.Views,
			Likes:        rp.Likes,
			Content:      rp.Content,
			PostDate:     rp.PostDate,
			ThumbnailURL: rp.ThumbnailURL,
		})
	}

	applied := review.Apply(records, posts)
	written, errs := p.ingestor.IngestRankings(applied)
	return written, joinErrs(errs)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinErrs(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Errorf("%d batches failed: %s", len(errs), strings.Join(msgs, "; "))
}
