// Package dedup implements the content-fingerprint "seen" set used to
// collapse duplicate articles arriving from concurrent fetchers. TryInsert
// is atomic: racing callers on the same fingerprint only ever see one
// "true" within the TTL window.
package dedup

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"github.com/riskpipe/supplychain/internal/errkind"
)

const keyPrefix = "dedup:"

// Index is a Redis-backed fingerprint set with per-key TTL.
type Index struct {
	client *redis.Client
}

// New wraps an existing Redis client.
func New(client *redis.Client) *Index {
	return &Index{client: client}
}

// Fingerprint produces a stable 128-bit hash of an article's identity:
// lowercase(headline) + " " + lowercase(first 100 bytes of body). It is
// invariant under case in both fields and under leading/trailing
// whitespace of the headline and of the body's first 100 bytes; the body
// is cut to 100 bytes before it is trimmed, so leading whitespace in a
// longer body shifts which bytes are kept.
//
// xxhash is used instead of MD5 to avoid pulling in crypto/md5 for a
// non-cryptographic identity hash; two independent 64-bit digests (over
// the content and over the content reversed) are concatenated to reach
// the 128 bits the specification calls for.
func Fingerprint(headline, body string) string {
	h := strings.ToLower(strings.TrimSpace(headline))
	b := body
	if len(b) > 100 {
		b = b[:100]
	}
	b = strings.ToLower(strings.TrimSpace(b))
	content := h
	if b != "" {
		content += " " + b
	}

	lo := xxhash.Sum64String(content)
	hi := xxhash.Sum64String(reverseString(content))

	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], hi)
	binary.BigEndian.PutUint64(buf[8:], lo)
	return fmt.Sprintf("%x", buf)
}

func reverseString(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// TryInsert atomically inserts fp if absent. It returns true iff this call
// created the key (the article is novel); any subsequent call for the same
// fingerprint within ttl returns false.
func (idx *Index) TryInsert(ctx context.Context, fp string, ttl time.Duration) (bool, error) {
	ok, err := idx.client.SetNX(ctx, keyPrefix+fp, 1, ttl).Result()
	if err != nil {
		return false, errkind.Wrap(errkind.TransientExternal, fmt.Errorf("dedup setnx: %w", err))
	}
	return ok, nil
}
