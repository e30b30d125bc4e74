package store

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

const upsertRawPostSQL = `
INSERT INTO raw_posts (id, source, title, url, views, likes, content,
	post_date, thumbnail_url, scraped_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	source = excluded.source,
	title = excluded.title,
	url = excluded.url,
	views = excluded.views,
	likes = excluded.likes,
	content = excluded.content,
	post_date = excluded.post_date,
	thumbnail_url = excluded.thumbnail_url,
	scraped_at = excluded.scraped_at,
	updated_at = excluded.updated_at`

// UpsertRawPosts writes scraped posts in one transaction, updating rows
// whose URL-derived ID already exists.
func (db *DB) UpsertRawPosts(posts []RawPost) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	now := formatTime(db.now())

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertRawPostSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range posts {
		scrapedAt := now
		if !p.ScrapedAt.IsZero() {
			scrapedAt = formatTime(p.ScrapedAt)
		}
		if _, err := stmt.Exec(
			p.ID, p.Source, p.Title, p.URL, p.Views, p.Likes, p.Content,
			nullableTime(p.PostDate), p.ThumbnailURL, scrapedAt, now, now,
		); err != nil {
			return 0, fmt.Errorf("upserting raw post %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return len(posts), nil
}

// QueryRawPostsByURL returns the raw posts matching any of the given URLs.
func (db *DB) QueryRawPostsByURL(urls []string) ([]RawPost, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	query, args, err := sq.Select("id", "source", "title", "url", "views",
		"likes", "content", "post_date", "thumbnail_url", "scraped_at",
		"created_at", "updated_at").
		From("raw_posts").
		Where(sq.Eq{"url": urls}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []RawPost
	for rows.Next() {
		var p RawPost
		var content, thumbnail *string
		var postDate *string
		var scrapedAt, createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Source, &p.Title, &p.URL, &p.Views,
			&p.Likes, &content, &postDate, &thumbnail,
			&scrapedAt, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if content != nil {
			p.Content = *content
		}
		if thumbnail != nil {
			p.ThumbnailURL = *thumbnail
		}
		if postDate != nil {
			t := parseTime(*postDate)
			p.PostDate = &t
		}
		p.ScrapedAt = parseTime(scrapedAt)
		p.CreatedAt = parseTime(createdAt)
		p.UpdatedAt = parseTime(updatedAt)
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
