// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package jpath

import (
	"sync"
	"testing"
)

func TestCache(t *testing.T) {
	t.Parallel()

	c, err := NewCache(0)
	if err != nil {
		t.Fatal(err)
	}

	p1, err := c.Compile("$.a[1]", Options{})
	if err != nil {
		t.Fatal(err)
	}
	p2, err := c.Compile("$.a[1]", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Error("expected the cached path on a second compile")
	}

	// a base other than one is base zero
	p3, _ := c.Compile("$.a[1]", Options{IndexBase: 7})
	if p3 != p1 {
		t.Error("expected index base to be normalized")
	}

	p4, err := c.Compile("$.a[1]", Options{IndexBase: 1})
	if err != nil {
		t.Fatal(err)
	}
	if p4 == p1 || p4.Nodes()[1].Rank != 0 {
		t.Error("expected a distinct path for base one")
	}
	if _, err = c.Compile("$.a[1]", Options{Write: true}); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 3 {
		t.Errorf("expected 3 cached paths, got %d", c.Len())
	}

	if _, err = c.Compile("$.a[%]", Options{}); err == nil {
		t.Error("expected an error")
	}
	if c.Len() != 3 {
		t.Errorf("errors were cached: %d paths", c.Len())
	}

	c.Purge()
	if c.Len() != 0 {
		t.Errorf("expected an empty cache, got %d", c.Len())
	}
}

func TestCacheEviction(t *testing.T) {
	t.Parallel()

	c, err := NewCache(2)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := c.Compile("$.a", Options{})
	_, _ = c.Compile("$.b", Options{})
	// touch a so b is the oldest
	_, _ = c.Compile("$.a", Options{})
	_, _ = c.Compile("$.c", Options{})
	if c.Len() != 2 {
		t.Fatalf("expected 2 cached paths, got %d", c.Len())
	}
	if again, _ := c.Compile("$.a", Options{}); again != a {
		t.Error("recently used path was evicted")
	}
}

func TestCacheConcurrent(t *testing.T) {
	t.Parallel()

	c, err := NewCache(8)
	if err != nil {
		t.Fatal(err)
	}
	paths := []string{"$.a", "$.b[2]", "$.c[+].d", "$.e[*].f"}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := c.Compile(paths[(i+j)%len(paths)], Options{}); err != nil {
					t.Error(err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	if c.Len() != len(paths) {
		t.Errorf("expected %d cached paths, got %d", len(paths), c.Len())
	}
}
