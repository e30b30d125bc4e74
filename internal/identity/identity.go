// Package identity derives deterministic identifiers for stored records.
//
// Identifiers are a pure function of a canonical key, so re-ingesting the
// same logical entity at any later time yields the same ID and writes become
// merge-on-conflict upserts instead of duplicates.
package identity

import (
	"crypto/md5"

	"github.com/google/uuid"
)

// FromString derives a UUID from "a:b". Same inputs always yield the same ID.
func FromString(a, b string) string {
	return fromDigest(md5.Sum([]byte(a + ":" + b)))
}

// FromURL derives a UUID from a URL.
func FromURL(url string) string {
	return fromDigest(md5.Sum([]byte(url)))
}

// RankingID is the canonical identifier of a ranking entry.
func RankingID(category, keyword string) string {
	return FromString(category, keyword)
}

// PostID is the canonical identifier of a raw post. The URL is the preferred
// natural key; source+title is the fallback when a scraper yields no URL.
func PostID(url, source, title string) string {
	if url != "" {
		return FromURL(url)
	}
	if source == "" {
		source = "unknown"
	}
	return FromString(source, title)
}

// fromDigest maps an MD5 digest into UUID text form, stamping the version 3
// and RFC 4122 variant bits the way name-based UUIDs are encoded.
func fromDigest(sum [16]byte) string {
	sum[6] = (sum[6] & 0x0f) | 0x30
	sum[8] = (sum[8] & 0x3f) | 0x80
	u, err := uuid.FromBytes(sum[:])
	if err != nil {
		// 16 bytes always parse; unreachable.
		return uuid.Nil.String()
	}
	return u.String()
}
