package asm

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheSize is the number of distinct encodings kept by NewCached.
const DefaultCacheSize = 4096

type cacheKey struct {
	enc   uint32
	width int
}

type cacheEntry struct {
	inst Instruction
	err  error
}

// Cached memoises another table by encoding. Memory images are full of
// repeated words (padding, zero fill, loops), and the whole image is decoded
// again after every edit.
type Cached struct {
	table OpcodeTable
	cache *lru.Cache
}

// NewCached wraps table with an LRU of the given size.
func NewCached(table OpcodeTable, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create decode cache: %w", err)
	}
	return &Cached{table: table, cache: cache}, nil
}

// Decode returns the wrapped table's result for word, from cache when possible.
func (c *Cached) Decode(word []byte) (Instruction, error) {
	if len(word) != WidthCompressed && len(word) != WidthStandard {
		return c.table.Decode(word)
	}

	key := cacheKey{enc: encoding(word), width: len(word)}
	if v, ok := c.cache.Get(key); ok {
		e := v.(cacheEntry)
		return e.inst, e.err
	}

	inst, err := c.table.Decode(word)
	c.cache.Add(key, cacheEntry{inst: inst, err: err})
	return inst, err
}

// Len returns the number of cached encodings.
func (c *Cached) Len() int {
	return c.cache.Len()
}
