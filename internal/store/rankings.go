package store

import (
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const upsertRankingSQL = `
INSERT INTO rankings (id, keyword, category, popularity_score, summary,
	source_urls, post_date, rank_change, thumbnail_url, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	keyword = excluded.keyword,
	category = excluded.category,
	popularity_score = excluded.popularity_score,
	summary = excluded.summary,
	source_urls = excluded.source_urls,
	post_date = excluded.post_date,
	rank_change = excluded.rank_change,
	thumbnail_url = excluded.thumbnail_url,
	updated_at = excluded.updated_at`

// UpsertRankings writes rankings in one transaction. On conflict every
// field is overwritten except created_at; updated_at is always refreshed.
func (db *DB) UpsertRankings(rankings []Ranking) (int, error) {
	if len(rankings) == 0 {
		return 0, nil
	}

	now := formatTime(db.now())

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertRankingSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rankings {
		urls := r.SourceURLs
		if urls == nil {
			urls = []string{}
		}
		urlsJSON, err := json.Marshal(urls)
		if err != nil {
			return 0, fmt.Errorf("encoding source urls for %s: %w", r.ID, err)
		}

		if _, err := stmt.Exec(
			r.ID, r.Keyword, r.Category, r.Popularity, r.Summary,
			string(urlsJSON), nullableTime(r.PostDate), r.RankChange,
			r.ThumbnailURL, now, now,
		); err != nil {
			return 0, fmt.Errorf("upserting ranking %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return len(rankings), nil
}

// DeleteRankingsOlderThan removes rankings last touched before the cutoff
// and returns the number removed. Running it again is a no-op.
func (db *DB) DeleteRankingsOlderThan(cutoff time.Time) (int64, error) {
	result, err := db.conn.Exec(
		"DELETE FROM rankings WHERE updated_at < ?", formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old rankings: %w", err)
	}
	return result.RowsAffected()
}

// QueryRankings returns rankings ordered by popularity, optionally
// filtered by category.
func (db *DB) QueryRankings(filter RankingFilter) ([]Ranking, error) {
	q := sq.Select("id", "keyword", "category", "popularity_score", "summary",
		"source_urls", "post_date", "rank_change", "thumbnail_url",
		"created_at", "updated_at").
		From("rankings").
		OrderBy("popularity_score DESC")

	if filter.Category != "" {
		q = q.Where(sq.Eq{"category": filter.Category})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rankings []Ranking
	for rows.Next() {
		var r Ranking
		var urlsJSON, createdAt, updatedAt string
		var postDate *string
		if err := rows.Scan(&r.ID, &r.Keyword, &r.Category, &r.Popularity,
			&r.Summary, &urlsJSON, &postDate, &r.RankChange, &r.ThumbnailURL,
			&createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(urlsJSON), &r.SourceURLs); err != nil {
			r.SourceURLs = []string{}
		}
		if postDate != nil {
			t := parseTime(*postDate)
			r.PostDate = &t
		}
		r.CreatedAt = parseTime(createdAt)
		r.UpdatedAt = parseTime(updatedAt)
		rankings = append(rankings, r)
	}
	return rankings, rows.Err()
}

// Stats returns aggregate row counts.
func (db *DB) Stats() (*Stats, error) {
	stats := &Stats{ByCategory: make(map[string]int)}

	if err := db.conn.QueryRow("SELECT COUNT(*) FROM rankings").Scan(&stats.Rankings); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM raw_posts").Scan(&stats.RawPosts); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query("SELECT category, COUNT(*) FROM rankings GROUP BY category")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		stats.ByCategory[category] = count
	}
	return stats, rows.Err()
}

func nullableTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}
