// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package jpath

import (
	"math"
	"strconv"
	"strings"

	"github.com/xdg-go/bjson"
)

// DefaultLocateDepth is the nesting depth searched by LocateAll when none is
// given.
const DefaultLocateDepth = 10

// Locate returns the path of the k-th value, in depth first order, of the
// tree rooted at root that is deeply equal to needle of nd.  The members of
// a matching container are not searched.  Array indexes in the path start at
// the index base of d.
func Locate(d *bjson.Doc, root bjson.Offset, nd *bjson.Doc, needle bjson.Offset, k int) (string, bool) {
	if k < 1 {
		return "", false
	}
	var found string
	walk(d, root, nd, needle, math.MaxInt32, func(path string) bool {
		if k--; k == 0 {
			found = path
			return false
		}
		return true
	})
	return found, found != ""
}

// LocateAll returns the paths of every value of the tree rooted at root that
// is deeply equal to needle of nd, searching at most maxDepth levels of
// containers.  A maxDepth of zero or less means DefaultLocateDepth.
func LocateAll(d *bjson.Doc, root bjson.Offset, nd *bjson.Doc, needle bjson.Offset, maxDepth int) []string {
	if maxDepth <= 0 {
		maxDepth = DefaultLocateDepth
	}
	paths := []string{}
	walk(d, root, nd, needle, maxDepth, func(path string) bool {
		paths = append(paths, path)
		return true
	})
	return paths
}

// step is a container being searched.
type step struct {
	// how the container is reached from its parent
	label string
	array bool
	// member to visit next: an element or a pair
	next  bjson.Offset
	index int
}

// walk calls found with the path of every match until it returns false.  The
// containers being searched are kept on an explicit stack, at most maxDepth
// deep, so paths are rebuilt from the stack rather than from recursion.
func walk(d *bjson.Doc, root bjson.Offset, nd *bjson.Doc, needle bjson.Offset, maxDepth int, found func(string) bool) {
	root = d.Deref(root)
	switch d.Type(root) {
	case bjson.TypeArray, bjson.TypeObject:
	case bjson.TypeUnknown:
		return
	default:
		if bjson.CompareTree(d, root, nd, needle) {
			found("$")
		}
		return
	}

	base := d.Config().IndexBase
	stack := []step{open(d, root, "")}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		m := top.next
		if m == bjson.Nil {
			stack = stack[:len(stack)-1]
			continue
		}

		var v bjson.Offset
		var label string
		if top.array {
			v = m
			label = "[" + strconv.Itoa(top.index+base) + "]"
			top.next = d.Next(m)
		} else {
			v = d.PairValue(m)
			label = "." + d.PairKey(m)
			top.next = d.NextPair(m)
		}
		top.index++

		if bjson.CompareTree(d, v, nd, needle) {
			if !found(pathOf(stack, label)) {
				return
			}
			continue
		}
		if v = d.Deref(v); len(stack) < maxDepth {
			switch d.Type(v) {
			case bjson.TypeArray, bjson.TypeObject:
				stack = append(stack, open(d, v, label))
			}
		}
	}
}

func open(d *bjson.Doc, v bjson.Offset, label string) step {
	if d.Type(v) == bjson.TypeArray {
		return step{label: label, array: true, next: d.FirstValue(v)}
	}
	return step{label: label, next: d.FirstPair(v)}
}

func pathOf(stack []step, label string) string {
	var sb strings.Builder
	sb.WriteByte('$')
	for i := range stack {
		sb.WriteString(stack[i].label)
	}
	sb.WriteString(label)
	return sb.String()
}
