// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package jpath

import (
	"fmt"
	"strconv"
	"strings"
)

// Op tells what a path node does with the value it is applied to.
type Op uint8

// Path node operations.
const (
	// OpKey selects an object member.
	OpKey Op = iota
	// OpIndex selects an array element by rank.
	OpIndex
	// OpFirst selects the first array element.
	OpFirst
	// OpAppend adds an element at the end of an array in write paths.
	OpAppend
	OpSum
	OpProduct
	OpMax
	OpMin
	OpAverage
	OpConcat
	OpCount
	// OpExpand gives every element of an array as a separate row.
	OpExpand
	// OpJSON returns the container reached so far as JSON.
	OpJSON
)

var opNames = [...]string{"key", "index", "first", "append", "sum", "product", "max", "min", "average", "concat", "count", "expand", "json"}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "op(" + strconv.Itoa(int(op)) + ")"
}

// IsAggregate reports whether op reduces an array to one value.
func (op Op) IsAggregate() bool { return op >= OpSum && op <= OpCount }

// Node is one compiled path segment.
type Node struct {
	Key  string
	Rank int
	Op   Op
	// Sep is inserted between the strings joined by OpConcat.
	Sep string
}

// Options control how a path is compiled.
type Options struct {
	// IndexBase is the number of the first array element, 0 or 1.
	IndexBase int
	// Write compiles a path for Write: an empty bracket appends and the
	// aggregate operators are rejected.
	Write bool
	// JSON makes an empty bracket return the whole array instead of its
	// first element.
	JSON bool
}

// Path is a compiled path expression.  Paths are immutable and may be shared.
type Path struct {
	text   string
	opts   Options
	nodes  []Node
	expand int
}

// PathError records a malformed path or a path that cannot be applied.
type PathError struct {
	Path string
	msg  string
}

func (e *PathError) Error() string { return fmt.Sprintf("path %q: %s", e.Path, e.msg) }

func (p *Path) errorf(format string, args ...interface{}) error {
	return &PathError{Path: p.text, msg: fmt.Sprintf(format, args...)}
}

// Compile parses a path expression:
//
//	path    := ["$"] ["."] segment*
//	segment := "." key | "[" (index | op | quoted | "") "]"
//
// A key made of digits is an index.  The bracket operators are + (sum),
// x (product), > (max), < (min), ! (average), # (count) and * (expand).  A
// quoted bracket concatenates the element strings with the quoted text in
// between.  A bare * returns the value reached as JSON.
func Compile(text string, opts Options) (*Path, error) {
	if opts.IndexBase != 1 {
		opts.IndexBase = 0
	}
	p := &Path{text: text, opts: opts, expand: -1}
	s := strings.TrimPrefix(text, "$")
	s = strings.TrimPrefix(s, ".")
	for len(s) > 0 {
		var (
			n   Node
			err error
		)
		if s[0] == '[' {
			var spec string
			if spec, s, err = p.bracket(s); err != nil {
				return nil, err
			}
			n, err = p.arrayNode(spec)
		} else {
			end := strings.IndexAny(s, ".[")
			if end < 0 {
				end = len(s)
			}
			n, err = p.keyNode(s[:end])
			s = s[end:]
		}
		if err != nil {
			return nil, err
		}
		if err = p.add(n); err != nil {
			return nil, err
		}
		if len(s) > 0 && s[0] == '.' {
			if s = s[1:]; len(s) == 0 {
				n, _ = p.arrayNode("")
				if err = p.add(n); err != nil {
					return nil, err
				}
			}
		}
	}
	return p, nil
}

// bracket splits "[spec]rest" into spec and rest.
func (p *Path) bracket(s string) (string, string, error) {
	from := 1
	if len(s) > 1 && s[1] == '"' {
		q := strings.IndexByte(s[2:], '"')
		if q < 0 {
			return "", "", p.errorf("unterminated quoted text")
		}
		from = q + 3
	}
	end := strings.IndexByte(s[from:], ']')
	if end < 0 {
		return "", "", p.errorf("invalid array specification %s", s)
	}
	end += from
	return s[1:end], s[end+1:], nil
}

func (p *Path) add(n Node) error {
	if n.Op == OpExpand {
		if p.expand >= 0 {
			return p.errorf("only one expand allowed")
		}
		p.expand = len(p.nodes)
	}
	p.nodes = append(p.nodes, n)
	return nil
}

func (p *Path) keyNode(key string) (Node, error) {
	switch {
	case key == "" || isIndex(key):
		return p.arrayNode(key)
	case key == "*":
		if p.opts.Write {
			return Node{}, p.errorf("invalid specification * in a write path")
		}
		return Node{Op: OpJSON}, nil
	}
	return Node{Key: key, Op: OpKey}, nil
}

func (p *Path) arrayNode(spec string) (Node, error) {
	switch {
	case spec == "":
		switch {
		case p.opts.Write:
			return Node{Op: OpAppend}, nil
		case p.opts.JSON:
			return Node{Op: OpJSON}, nil
		}
		return Node{Op: OpFirst}, nil
	case isIndex(spec):
		n, err := strconv.Atoi(spec)
		if err != nil {
			return Node{}, p.errorf("invalid array index %s", spec)
		}
		if n >= 0 {
			if n < p.opts.IndexBase {
				return Node{}, p.errorf("array index %d is below base %d", n, p.opts.IndexBase)
			}
			n -= p.opts.IndexBase
		}
		return Node{Rank: n, Op: OpIndex}, nil
	case p.opts.Write:
		return Node{}, p.errorf("invalid specification %s in a write path", spec)
	case len(spec) == 1:
		switch spec[0] {
		case '+':
			return Node{Op: OpSum}, nil
		case 'x':
			return Node{Op: OpProduct}, nil
		case '>':
			return Node{Op: OpMax}, nil
		case '<':
			return Node{Op: OpMin}, nil
		case '!':
			return Node{Op: OpAverage}, nil
		case '#':
			return Node{Op: OpCount}, nil
		case '*':
			return Node{Op: OpExpand}, nil
		}
		return Node{}, p.errorf("invalid function specification %c", spec[0])
	case len(spec) >= 2 && spec[0] == '"' && spec[len(spec)-1] == '"':
		return Node{Op: OpConcat, Sep: spec[1 : len(spec)-1]}, nil
	}
	return Node{}, p.errorf("wrong array specification %s", spec)
}

func isIndex(s string) bool {
	if strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String returns the text p was compiled from.
func (p *Path) String() string { return p.text }

// Options returns the options p was compiled with.
func (p *Path) Options() Options { return p.opts }

// Nodes returns a copy of the compiled nodes of p.
func (p *Path) Nodes() []Node { return append([]Node(nil), p.nodes...) }

// Len returns the number of nodes of p.
func (p *Path) Len() int { return len(p.nodes) }
