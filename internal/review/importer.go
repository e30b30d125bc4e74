package review

import (
	"bufio"
	"io"
	"os"
	"strings"

	"memeboard/internal/classify"
	"memeboard/internal/collect"
)

// Record is one manual classification parsed from an edited review file.
type Record struct {
	URL      string
	Category string
	Summary  string
}

// ParseFile reads an edited review file and returns the completed records.
func ParseFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse scans the edited artifact line by line. A URL line starts a record,
// a category line without the placeholder completes it, and the first free
// text line after the URL becomes the summary. A blank line commits the
// record; records without a category are dropped. There is no flush at EOF,
// so a file truncated mid-block loses its last record.
func Parse(r io.Reader) ([]Record, error) {
	var records []Record
	var cur Record

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())

		switch {
		case strings.HasPrefix(line, "URL:"):
			cur.URL = strings.TrimSpace(strings.TrimPrefix(line, "URL:"))

		case strings.Contains(line, "Category:"):
			if !strings.Contains(line, placeholder) {
				after := line[strings.Index(line, "Category:")+len("Category:"):]
				if category := strings.TrimSpace(after); category != "" {
					cur.Category = category
				}
			}

		case strings.Contains(line, "Summary:"):
			// summary text follows on its own line

		case cur.URL != "" && line != "" && !strings.HasPrefix(line, "_"):
			if !strings.HasPrefix(line, "Confidence:") &&
				!strings.HasPrefix(line, "Matched keywords:") &&
				cur.Summary == "" {
				cur.Summary = line
			}
		}

		if line == "" && cur.URL != "" {
			if cur.Category != "" {
				records = append(records, cur)
			}
			cur = Record{}
		}
	}
	return records, sc.Err()
}

// Apply merges manual classifications back onto the posts they correct,
// keyed by URL. Records whose URL matches none of the given posts are
// discarded. Applied posts carry full confidence.
func Apply(records []Record, posts []collect.Post) []classify.ClassifiedPost {
	byURL := make(map[string]collect.Post, len(posts))
	for _, p := range posts {
		byURL[p.URL] = p
	}

	var applied []classify.ClassifiedPost
	for _, rec := range records {
		post, ok := byURL[rec.URL]
		if !ok {
			continue
		}
		summary := rec.Summary
		if summary == "" {
			summary = post.Title
		}
		applied = append(applied, classify.ClassifiedPost{
			Post: post,
			Result: classify.Result{
				Category:        rec.Category,
				Confidence:      1.0,
				MatchedKeywords: []string{"manual"},
			},
			Summary: summary,
		})
	}
	return applied
}
