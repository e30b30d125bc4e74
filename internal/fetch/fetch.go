// Package fetch fills in missing post content via HTTP and readability
// extraction before classification.
package fetch

import (
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"memeboard/internal/collect"
)

// minContentLength filters out boilerplate-only extractions.
const minContentLength = 100

// Result holds the results of a content fetch run.
type Result struct {
	Fetched           int
	AlreadyHadContent int
	Failed            int
}

// ContentFetcher fetches full post text via HTTP + readability extraction.
type ContentFetcher struct {
	client *http.Client
}

// NewContentFetcher creates a new content fetcher.
func NewContentFetcher(timeout time.Duration) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ContentFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FillMissingContent fetches content for posts whose Content is empty,
// mutating the slice in place. After the first HTTP failure for a domain,
// the remaining posts from that domain are skipped.
func (f *ContentFetcher) FillMissingContent(posts []collect.Post) *Result {
	result := &Result{}
	failedDomains := make(map[string]struct{})

	for i := range posts {
		if posts[i].Content != "" {
			result.AlreadyHadContent++
			continue
		}

		u, _ := url.Parse(posts[i].URL)
		domain := ""
		if u != nil {
			domain = strings.ToLower(u.Host)
		}

		if _, failed := failedDomains[domain]; failed {
			result.Failed++
			continue
		}

		content, httpErr := f.fetchPostContent(posts[i].URL)
		if httpErr != nil {
			result.Failed++
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			log.Printf("HTTP error for %s — skipping remaining from %s", posts[i].URL, domain)
			continue
		}

		if content != "" {
			posts[i].Content = content
			result.Fetched++
		} else {
			result.Failed++
			log.Printf("No extractable content from: %s", posts[i].URL)
		}
	}

	log.Printf("Content fetch complete: %d fetched, %d failed, %d already had content",
		result.Fetched, result.Failed, result.AlreadyHadContent)
	return result
}

func (f *ContentFetcher) fetchPostContent(postURL string) (string, error) {
	req, err := http.NewRequest("GET", postURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "memeboard/1.0 (trend aggregator)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil // connection error, not HTTP error
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil
	}

	parsedURL, _ := url.Parse(postURL)
	article, err := readability.FromReader(strings.NewReader(string(bodyBytes)), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > minContentLength {
		return text, nil
	}
	return "", nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
