package server

import (
	"crypto/sha256"
	"encoding/binary"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/polisai/sourcemark/pkg/locate"
)

type cacheKey [sha256.Size]byte

// matchCache memoises locator results. A nil *matchCache is a valid, disabled cache.
type matchCache struct {
	entries *lru.Cache[cacheKey, locate.Match]
}

func newMatchCache(size int) (*matchCache, error) {
	if size <= 0 {
		return nil, nil
	}
	entries, err := lru.New[cacheKey, locate.Match](size)
	if err != nil {
		return nil, err
	}
	return &matchCache{entries: entries}, nil
}

func keyFor(document, excerpt string) cacheKey {
	h := sha256.New()
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(document)))
	h.Write(n[:])
	h.Write([]byte(document))
	h.Write([]byte(excerpt))

	var key cacheKey
	copy(key[:], h.Sum(nil))
	return key
}

func (c *matchCache) get(key cacheKey) (locate.Match, bool) {
	if c == nil {
		return locate.Match{}, false
	}
	return c.entries.Get(key)
}

func (c *matchCache) add(key cacheKey, m locate.Match) {
	if c == nil {
		return
	}
	c.entries.Add(key, m)
}

func (c *matchCache) resize(size int) {
	if c == nil || size <= 0 {
		return
	}
	c.entries.Resize(size)
}

func (c *matchCache) len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
