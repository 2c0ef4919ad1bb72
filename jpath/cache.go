// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package jpath

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of compiled paths kept by a Cache created
// with a size of zero.
const DefaultCacheSize = 256

type cacheKey struct {
	text string
	opts Options
}

// Cache keeps the most recently compiled paths.  It is safe for concurrent
// use.
type Cache struct {
	paths *lru.Cache[cacheKey, *Path]
}

// NewCache returns a cache of up to size paths.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	paths, err := lru.New[cacheKey, *Path](size)
	if err != nil {
		return nil, err
	}
	return &Cache{paths: paths}, nil
}

// Compile returns the compiled path for text and opts, compiling it on a
// miss.  Errors are not cached.
func (c *Cache) Compile(text string, opts Options) (*Path, error) {
	if opts.IndexBase != 1 {
		opts.IndexBase = 0
	}
	key := cacheKey{text: text, opts: opts}
	if p, ok := c.paths.Get(key); ok {
		return p, nil
	}
	p, err := Compile(text, opts)
	if err != nil {
		return nil, err
	}
	c.paths.Add(key, p)
	return p, nil
}

// Len returns the number of cached paths.
func (c *Cache) Len() int { return c.paths.Len() }

// Purge empties the cache.
func (c *Cache) Purge() { c.paths.Purge() }
