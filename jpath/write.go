// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package jpath

import (
	"github.com/xdg-go/bjson"
)

// Write stores a copy of v at the place p selects in the tree rooted at
// root.  Missing objects and arrays along the way are created, as are
// nulls met before the last node.  The last node decides the write: a key
// sets or adds an object member, an index sets an array element, padding
// with nulls, and an empty bracket appends.  A path with no node
// overwrites root.  p must be compiled with Options.Write.
func (p *Path) Write(d *bjson.Doc, root, v bjson.Offset) error {
	if !p.opts.Write {
		return p.errorf("not a write path")
	}
	if len(p.nodes) == 0 {
		return d.SetValueVal(root, v)
	}
	row, err := p.getRow(d, root)
	if err != nil {
		return err
	}
	last := &p.nodes[len(p.nodes)-1]
	row = d.Deref(row)
	if d.Type(row) == bjson.TypeArray && last.Op == OpKey {
		if row, err = p.unwrap(d, row); err != nil {
			return err
		}
	}

	switch d.Type(row) {
	case bjson.TypeArray:
		if last.Op == OpIndex {
			return d.SetArrayValue(row, v, last.Rank)
		}
		c, err := d.NewNull()
		if err != nil {
			return err
		}
		if err = d.SetValueVal(c, v); err != nil {
			return err
		}
		return d.AddArrayValue(row, c, nil)
	case bjson.TypeObject:
		if last.Op != OpKey {
			return p.errorf("unexpected object")
		}
		return d.SetKeyValue(row, v, last.Key)
	}
	return p.errorf("cannot write into a %s value", d.Type(row))
}

// getRow walks all nodes but the last, creating what is missing, and
// returns the container the last node applies to.
func (p *Path) getRow(d *bjson.Doc, root bjson.Offset) (bjson.Offset, error) {
	row := root
	last := len(p.nodes) - 1
	for i := 0; i < last; {
		n := &p.nodes[i]
		row = d.Deref(row)
		var (
			val bjson.Offset
			err error
		)
		switch d.Type(row) {
		case bjson.TypeObject:
			if n.Op != OpKey {
				i++
				continue
			}
			val = d.GetKeyValue(row, n.Key)
		case bjson.TypeArray:
			switch n.Op {
			case OpKey:
				if row, err = p.unwrap(d, row); err != nil {
					return bjson.Nil, err
				}
				continue
			case OpIndex:
				val = d.GetArrayValue(row, n.Rank)
			}
		default:
			return bjson.Nil, p.errorf("cannot write through a %s value", d.Type(row))
		}

		if val == bjson.Nil || d.IsNull(val) {
			c, err := p.newContainer(d, i+1)
			if err != nil {
				return bjson.Nil, err
			}
			if val == bjson.Nil {
				val, err = p.link(d, row, n, c)
			} else {
				err = d.SetValueVal(val, c)
			}
			if err != nil {
				return bjson.Nil, err
			}
		}
		row = val
		i++
	}
	return row, nil
}

// unwrap returns the first element of arr, adding an empty object when arr
// is empty.
func (p *Path) unwrap(d *bjson.Doc, arr bjson.Offset) (bjson.Offset, error) {
	if first := d.GetArrayValue(arr, 0); first != bjson.Nil {
		return d.Deref(first), nil
	}
	obj, err := d.NewObject()
	if err != nil {
		return bjson.Nil, err
	}
	return obj, d.AddArrayValue(arr, obj, nil)
}

// newContainer allocates the container node i applies to: an object for a
// key and an array otherwise.
func (p *Path) newContainer(d *bjson.Doc, i int) (bjson.Offset, error) {
	if p.nodes[i].Op == OpKey {
		return d.NewObject()
	}
	return d.NewArray()
}

// link adds the new container c to row where node n points and returns the
// linked node.
func (p *Path) link(d *bjson.Doc, row bjson.Offset, n *Node, c bjson.Offset) (bjson.Offset, error) {
	if d.Type(row) == bjson.TypeObject {
		if err := d.SetKeyValue(row, c, n.Key); err != nil {
			return bjson.Nil, err
		}
		return d.GetKeyValue(row, n.Key), nil
	}
	if n.Op != OpIndex {
		return c, d.AddArrayValue(row, c, nil)
	}
	rank := n.Rank
	if rank < 0 {
		if rank += d.GetArraySize(row, false); rank < 0 {
			rank = 0
		}
	}
	if err := d.SetArrayValue(row, c, rank); err != nil {
		return bjson.Nil, err
	}
	return d.GetArrayValue(row, rank), nil
}

// Delete removes what p selects in the tree rooted at root and returns the
// number of removed items.  A key removes an object member, an index or
// empty bracket removes an array element, and a final * sets the value
// reached to null.  After an expand, the rest of the path is applied to
// every element of the expanded array.
func (p *Path) Delete(d *bjson.Doc, root bjson.Offset) (int, error) {
	if len(p.nodes) == 0 {
		return 0, p.errorf("cannot delete the root")
	}
	return p.delete(d, root, 0)
}

func (p *Path) delete(d *bjson.Doc, row bjson.Offset, i int) (int, error) {
	last := len(p.nodes) - 1
	for i < last {
		n := &p.nodes[i]
		if row = d.Deref(row); row == bjson.Nil {
			return 0, nil
		}
		switch d.Type(row) {
		case bjson.TypeObject:
			if n.Op != OpKey {
				i++
				continue
			}
			row = d.GetKeyValue(row, n.Key)
		case bjson.TypeArray:
			switch n.Op {
			case OpKey:
				row = d.GetArrayValue(row, 0)
				continue
			case OpIndex:
				row = d.GetArrayValue(row, n.Rank)
			case OpFirst, OpAppend:
				row = d.GetArrayValue(row, 0)
			case OpExpand:
				total := 0
				for e := d.FirstValue(row); e != bjson.Nil; e = d.Next(e) {
					c, err := p.delete(d, e, i+1)
					if err != nil {
						return total, err
					}
					total += c
				}
				return total, nil
			default:
				return 0, p.errorf("cannot delete through %s", n.Op)
			}
		default:
			return 0, nil
		}
		i++
	}

	n := &p.nodes[last]
	if row = d.Deref(row); row == bjson.Nil {
		return 0, nil
	}
	if n.Op == OpJSON {
		if d.Type(row) == bjson.TypeNull {
			return 0, nil
		}
		return 1, d.SetNull(row)
	}
	switch d.Type(row) {
	case bjson.TypeObject:
		if n.Op != OpKey {
			return 0, nil
		}
		return count(d.DeleteKey(row, n.Key))
	case bjson.TypeArray:
		switch n.Op {
		case OpKey:
			first := d.Deref(d.GetArrayValue(row, 0))
			if d.Type(first) != bjson.TypeObject {
				return 0, nil
			}
			return count(d.DeleteKey(first, n.Key))
		case OpIndex:
			return count(d.DeleteValue(row, n.Rank))
		case OpFirst, OpAppend:
			return count(d.DeleteValue(row, 0))
		case OpExpand:
			total := 0
			for {
				ok, err := d.DeleteValue(row, 0)
				if err != nil || !ok {
					return total, err
				}
				total++
			}
		}
		return 0, p.errorf("cannot delete with %s", n.Op)
	}
	return 0, nil
}

func count(ok bool, err error) (int, error) {
	if ok {
		return 1, err
	}
	return 0, err
}

// Contains reports whether the place p selects exists in the tree rooted at
// root.  Count and JSON nodes do not move, and aggregates never match.
func (p *Path) Contains(d *bjson.Doc, root bjson.Offset) bool {
	row := root
	for i := 0; i < len(p.nodes); {
		if row = d.Deref(row); row == bjson.Nil {
			return false
		}
		n := &p.nodes[i]
		if n.Op == OpCount || n.Op == OpJSON {
			i++
			continue
		}
		switch d.Type(row) {
		case bjson.TypeObject:
			if n.Op != OpKey {
				return false
			}
			row = d.GetKeyValue(row, n.Key)
		case bjson.TypeArray:
			switch n.Op {
			case OpKey:
				row = d.GetArrayValue(row, 0)
				continue
			case OpIndex:
				row = d.GetArrayValue(row, n.Rank)
			case OpFirst, OpAppend, OpExpand:
				row = d.GetArrayValue(row, 0)
			default:
				return false
			}
		default:
			return false
		}
		i++
	}
	return row != bjson.Nil
}
