package collect

import (
	"context"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"memeboard/internal/config"
)

const maxPerFeed = 50

// FeedConnector pulls posts from an RSS/Atom feed. Boards that expose a feed
// are cheaper to poll than their HTML list pages.
type FeedConnector struct {
	cfg    config.Feed
	parser *gofeed.Parser
}

// NewFeedConnector creates a connector for one feed.
func NewFeedConnector(cfg config.Feed) *FeedConnector {
	return &FeedConnector{cfg: cfg, parser: gofeed.NewParser()}
}

func (f *FeedConnector) Name() string {
	if f.cfg.Name != "" {
		return f.cfg.Name
	}
	return sourceNameFromURL(f.cfg.URL)
}

// Scrape parses the feed. Feeds are not paginated; pages beyond the first
// return nothing.
func (f *FeedConnector) Scrape(ctx context.Context, page int) ([]Post, error) {
	if page > 1 {
		return nil, nil
	}

	feed, err := f.parser.ParseURLWithContext(f.cfg.URL, ctx)
	if err != nil {
		return nil, err
	}

	source := f.Name()
	var posts []Post
	for _, item := range feed.Items {
		if len(posts) >= maxPerFeed {
			break
		}
		post, ok := feedItemToPost(item, source)
		if ok {
			posts = append(posts, post)
		}
	}
	return posts, nil
}

func feedItemToPost(item *gofeed.Item, source string) (Post, bool) {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	title := strings.TrimSpace(item.Title)
	if itemURL == "" || title == "" {
		return Post{}, false
	}

	post := Post{
		Source: source,
		Title:  title,
		URL:    itemURL,
	}

	if item.PublishedParsed != nil {
		t := *item.PublishedParsed
		post.PostDate = &t
	} else if item.UpdatedParsed != nil {
		t := *item.UpdatedParsed
		post.PostDate = &t
	}

	if item.Content != "" {
		post.Content = stripHTML(item.Content)
	} else if item.Description != "" {
		post.Content = stripHTML(item.Description)
	}

	if item.Image != nil {
		post.ThumbnailURL = item.Image.URL
	}

	return post, true
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")

	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func sourceNameFromURL(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "rss.", "feeds.", "bbs."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		return parts[len(parts)-2]
	}
	return host
}
