package collect

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"memeboard/internal/config"
	"memeboard/internal/dates"
)

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// fallbackThumbSelectors are tried when a board config gives no thumbnail
// selector of its own.
var fallbackThumbSelectors = []string{
	"img.thumb",
	"img.thumbnail",
	"td.thumbnail img",
	"div.thumbnail img",
	".thum img",
	"img[src*='thumb']",
}

// BoardConnector scrapes a community board list page. It carries no
// site-specific code: rows, fields, and pagination all come from selectors
// in the board config.
type BoardConnector struct {
	cfg    config.Board
	client *http.Client
}

// NewBoardConnector wires an HTTP client for one configured board.
func NewBoardConnector(cfg config.Board) *BoardConnector {
	return &BoardConnector{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (b *BoardConnector) Name() string { return b.cfg.Name }

// Scrape fetches one list page and extracts its posts. Rows missing a title
// or link are skipped silently; board markup is full of ad rows and notices.
func (b *BoardConnector) Scrape(ctx context.Context, page int) ([]Post, error) {
	pageURL := b.cfg.PageURL
	if strings.Contains(pageURL, "%d") {
		pageURL = fmt.Sprintf(b.cfg.PageURL, page)
	} else if page > 1 {
		return nil, nil
	}

	doc, err := b.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var posts []Post
	doc.Find(b.cfg.Selectors.Row).Each(func(_ int, row *goquery.Selection) {
		post, ok := b.extractPost(row, now)
		if ok {
			posts = append(posts, post)
		}
	})
	return posts, nil
}

func (b *BoardConnector) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pageURL, err)
	}
	return doc, nil
}

func (b *BoardConnector) extractPost(row *goquery.Selection, now time.Time) (Post, bool) {
	sel := b.cfg.Selectors

	title := strings.TrimSpace(row.Find(sel.Title).First().Text())
	if title == "" {
		return Post{}, false
	}

	href, _ := row.Find(sel.Link).First().Attr("href")
	postURL := b.resolveURL(href)
	if postURL == "" {
		return Post{}, false
	}

	post := Post{
		Source: b.cfg.Name,
		Title:  title,
		URL:    postURL,
		Views:  parseCount(row.Find(sel.Views).First().Text()),
		Likes:  parseCount(row.Find(sel.Likes).First().Text()),
	}

	if sel.Date != "" {
		raw := row.Find(sel.Date).First().Text()
		if t, ok := dates.Parse(raw, now); ok {
			post.PostDate = &t
		}
	}

	post.ThumbnailURL = b.extractThumbnail(row)
	return post, true
}

func (b *BoardConnector) extractThumbnail(row *goquery.Selection) string {
	selectors := fallbackThumbSelectors
	if b.cfg.Selectors.Thumbnail != "" {
		selectors = []string{b.cfg.Selectors.Thumbnail}
	}

	for _, selector := range selectors {
		img := row.Find(selector).First()
		if img.Length() == 0 {
			continue
		}
		src, ok := img.Attr("src")
		if !ok || src == "" {
			// Lazy-loaded images keep the real source in data-src.
			src, _ = img.Attr("data-src")
		}
		if normalized := NormalizeImageURL(src, b.cfg.BaseURL); normalized != "" {
			return normalized
		}
	}
	return ""
}

func (b *BoardConnector) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	switch {
	case href == "" || strings.HasPrefix(href, "javascript:"):
		return ""
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "/"):
		return strings.TrimSuffix(b.cfg.BaseURL, "/") + href
	case strings.HasPrefix(href, "http"):
		return href
	}
	return strings.TrimSuffix(b.cfg.BaseURL, "/") + "/" + href
}

// parseCount extracts a non-negative integer from board counter text such as
// "1,234", "[56]" or "12만" prefixes; non-numeric text counts as zero.
func parseCount(text string) int {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	var digits strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		} else if digits.Len() > 0 {
			break
		}
	}
	if digits.Len() == 0 {
		return 0
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil || n < 0 {
		return 0
	}
	return n
}
