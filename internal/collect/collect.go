// Package collect gathers posts from configured community boards and feeds.
//
// Sources are pluggable through the Connector interface; a failing source is
// reported and skipped, never aborting the run.
package collect

import (
	"context"
	"fmt"
	"log"

	"memeboard/internal/config"
)

// Connector produces normalized posts from one source. Page numbering starts
// at 1; sources without pagination may return nothing for later pages.
type Connector interface {
	Name() string
	Scrape(ctx context.Context, page int) ([]Post, error)
}

// Result holds the aggregate outcome of a collection run.
type Result struct {
	TotalFound int
	BySource   map[string]int
	Errors     []string
}

// Collector runs every configured connector and merges their posts.
type Collector struct {
	connectors []Connector
}

// NewCollector builds connectors for all configured boards and feeds.
func NewCollector(cfg *config.Config) *Collector {
	c := &Collector{}
	for _, b := range cfg.Sources.Boards {
		c.connectors = append(c.connectors, NewBoardConnector(b))
	}
	for _, f := range cfg.Sources.Feeds {
		c.connectors = append(c.connectors, NewFeedConnector(f))
	}
	return c
}

// NewCollectorWith wires explicit connectors; used by tests and backfills.
func NewCollectorWith(connectors ...Connector) *Collector {
	return &Collector{connectors: connectors}
}

// Collect scrapes each connector over the requested number of pages.
func (c *Collector) Collect(ctx context.Context, pages int) (*Result, []Post) {
	if pages < 1 {
		pages = 1
	}

	r := &Result{BySource: make(map[string]int)}
	var all []Post

	for _, conn := range c.connectors {
		name := conn.Name()
		var posts []Post

		for page := 1; page <= pages; page++ {
			pagePosts, err := conn.Scrape(ctx, page)
			if err != nil {
				r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", name, err))
				log.Printf("Collect error from %s (page %d): %v", name, page, err)
				break
			}
			posts = append(posts, pagePosts...)
		}

		r.BySource[name] = len(posts)
		r.TotalFound += len(posts)
		all = append(all, posts...)
		log.Printf("Collected %d posts from %s", len(posts), name)
	}

	return r, all
}
