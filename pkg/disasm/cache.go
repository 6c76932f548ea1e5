package disasm

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/go-delve/ppc64dec/pkg/ppc64"
	"github.com/go-delve/ppc64dec/pkg/ppc64/asmtext"
)

// DefaultCacheSize is the number of decoded words kept by a Cache when the
// configuration does not say otherwise.
const DefaultCacheSize = 4096

type cacheEntry struct {
	tokens []asmtext.Token
	valid  bool
}

// Cache remembers the display tokens of recently decoded words. Tokens do
// not depend on the address of the instruction so the word is the key.
type Cache struct {
	lru *lru.Cache
}

// NewCache returns a cache holding up to size words.
func NewCache(size int) (*Cache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

// Tokens returns the display tokens of w and whether w is valid. Callers
// must not modify the returned slice.
func (c *Cache) Tokens(w ppc64.Word) ([]asmtext.Token, bool) {
	if c == nil {
		return asmtext.Decode(w, 0)
	}
	if v, ok := c.lru.Get(w); ok {
		e := v.(cacheEntry)
		return e.tokens, e.valid
	}
	tokens, valid := asmtext.Decode(w, 0)
	c.lru.Add(w, cacheEntry{tokens: tokens, valid: valid})
	return tokens, valid
}

// Len returns the number of cached words.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Purge empties the cache.
func (c *Cache) Purge() {
	if c != nil {
		c.lru.Purge()
	}
}
