// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

// Config holds the settings shared by a document and the operations run
// against it.
type Config struct {
	// ArenaSize is the initial arena capacity in bytes.
	ArenaSize int `mapstructure:"arena_size"`
	// MaxArenaSize bounds arena growth.  A value not larger than ArenaSize
	// gives a fixed-size arena.  Sizes above 4 GiB are reduced to it.
	MaxArenaSize int `mapstructure:"max_arena_size"`
	// MaxDepth is the deepest container nesting the parser accepts.
	MaxDepth int `mapstructure:"max_depth"`
	// DefaultPrec is the number of decimals used for floats built from host
	// doubles that carry no precision of their own.  Zero means 6.
	DefaultPrec int `mapstructure:"default_prec"`
	// JSONNull, if not empty, stands in for null elements in concatenation
	// aggregates and value text.
	JSONNull string `mapstructure:"json_null"`
	// IndexBase is the number of the first array element in paths, 0 or 1.
	IndexBase int `mapstructure:"index_base"`
	// GroupSize caps the number of rows an aggregate function accepts.
	GroupSize int `mapstructure:"group_size"`
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		ArenaSize:    1 << 20,
		MaxArenaSize: 64 << 20,
		MaxDepth:     200,
		DefaultPrec:  6,
		IndexBase:    0,
		GroupSize:    10,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ArenaSize <= 0 {
		c.ArenaSize = def.ArenaSize
	}
	if c.MaxArenaSize <= 0 {
		c.MaxArenaSize = def.MaxArenaSize
	}
	c.ArenaSize, c.MaxArenaSize = clampArena(c.ArenaSize), clampArena(c.MaxArenaSize)
	if c.MaxDepth <= 0 {
		c.MaxDepth = def.MaxDepth
	}
	if c.DefaultPrec <= 0 {
		c.DefaultPrec = def.DefaultPrec
	}
	if c.GroupSize <= 0 {
		c.GroupSize = def.GroupSize
	}
	if c.IndexBase != 1 {
		c.IndexBase = 0
	}
	return c
}
