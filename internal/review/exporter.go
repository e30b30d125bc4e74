// Package review exports low-confidence classifications to a human-editable
// text file and parses the edited file back into corrections.
package review

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"memeboard/internal/classify"
)

// placeholder marks the editable fields in an exported file. A category
// line still containing it is treated as unfilled.
const placeholder = "_______"

// Export writes the uncertain posts to a review file in outputDir and
// returns its path. Filename defaults to uncertain_posts_YYYY-MM-DD.txt.
func Export(posts []classify.ClassifiedPost, categories []string, outputDir, filename string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	now := time.Now()
	if filename == "" {
		filename = fmt.Sprintf("uncertain_posts_%s.txt", now.Format("2006-01-02"))
	}
	path := filepath.Join(outputDir, filename)

	var b strings.Builder
	options := strings.Join(categories, "/")

	fmt.Fprintf(&b, "===== %s manual review needed (%d items) =====\n\n", now.Format("2006-01-02 15:04"), len(posts))
	fmt.Fprintf(&b, "Category options: %s\n", strings.Join(categories, " / "))
	b.WriteString(strings.Repeat("-", 60) + "\n\n")

	for i, p := range posts {
		source := p.Source
		if source == "" {
			source = "unknown"
		}
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, source, p.Title)
		fmt.Fprintf(&b, "   URL: %s\n", p.URL)
		fmt.Fprintf(&b, "   Confidence: %.1f%%\n", p.Confidence*100)
		if len(p.MatchedKeywords) > 0 {
			fmt.Fprintf(&b, "   Matched keywords: %s\n", strings.Join(p.MatchedKeywords, ", "))
		}
		fmt.Fprintf(&b, "   Category: %s (%s)\n", placeholder, options)
		b.WriteString("   Summary:\n")
		b.WriteString("   _______________________________\n")
		b.WriteString("\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing review file: %w", err)
	}
	return path, nil
}
