package classify

import (
	"context"
	"sync"

	"memeboard/internal/collect"
)

// ClassifyBatch classifies each post independently and returns new records
// with the classification merged in. Input order is preserved and the input
// slice is never mutated. Distinct posts share no state, so up to workers
// goroutines run concurrently; the persisted identity of a post is derived
// from its content, not its position, so concurrency cannot change the
// outcome.
func ClassifyBatch(ctx context.Context, c Classifier, posts []collect.Post, workers int) []ClassifiedPost {
	results := make([]ClassifiedPost, len(posts))
	if len(posts) == 0 {
		return results
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(posts) {
		workers = len(posts)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				post := posts[i]
				results[i] = ClassifiedPost{
					Post:   post,
					Result: c.Classify(ctx, post.Title, post.Content),
				}
			}
		}()
	}

	for i := range posts {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// Split partitions classified posts into (certain, uncertain) around the
// confidence threshold. Pure: input order is preserved within each half and
// nothing is modified.
func Split(posts []ClassifiedPost, threshold float64) (certain, uncertain []ClassifiedPost) {
	for _, p := range posts {
		if p.Confidence >= threshold {
			certain = append(certain, p)
		} else {
			uncertain = append(uncertain, p)
		}
	}
	return certain, uncertain
}
