// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package udf

import (
	"errors"
	"fmt"

	"github.com/xdg-go/bjson"
	"github.com/xdg-go/bjson/jpath"
)

// Value returns its single argument as JSON.
func (s *Session) Value(args ...Arg) Result {
	return s.run("Value", args, func(c *call) {
		if len(c.args) > 1 {
			c.failf(-1, "cannot accept more than 1 argument")
			return
		}
		v, err := c.value(0)
		if err != nil {
			c.fail(0, err)
			return
		}
		c.json(v)
	})
}

// MakeArray returns an array of its arguments.
func (s *Session) MakeArray(args ...Arg) Result {
	return s.run("MakeArray", args, func(c *call) {
		d := c.doc()
		arr, err := d.NewArray()
		if err == nil {
			err = c.addValues(arr, 0)
		}
		if err != nil {
			c.fail(-1, err)
			return
		}
		c.json(arr)
	})
}

// MakeObject returns an object of its arguments, each keyed by its
// attribute name.
func (s *Session) MakeObject(args ...Arg) Result {
	return s.run("MakeObject", args, func(c *call) {
		d := c.doc()
		obj, err := d.NewObject()
		if err != nil {
			c.fail(-1, err)
			return
		}
		for i, a := range c.args {
			v, err := c.value(i)
			if err == nil {
				err = d.SetKeyValue(obj, v, a.key(i))
			}
			if err != nil {
				c.fail(i, err)
				return
			}
		}
		c.json(obj)
	})
}

func (c *call) addValues(arr bjson.Offset, from int) error {
	for i := from; i < len(c.args); i++ {
		v, err := c.value(i)
		if err != nil {
			return fmt.Errorf("argument %d: %w", i+1, err)
		}
		if err = c.doc().AddArrayValue(arr, v, nil); err != nil {
			return err
		}
	}
	return nil
}

// ArrayAddValues appends its other arguments to the array given first.  If
// the first argument is not an array, every argument goes to a new array.
func (s *Session) ArrayAddValues(args ...Arg) Result {
	return s.run("ArrayAddValues", args, func(c *call) {
		if len(c.args) < 2 {
			c.failf(-1, "this function must have at least 2 arguments")
			return
		}
		d := c.doc()
		first, err := c.value(0)
		if err != nil {
			c.original(err)
			return
		}
		arr, from := first, 1
		if d.Type(d.Deref(first)) != bjson.TypeArray {
			if arr, err = d.NewArray(); err != nil {
				c.original(err)
				return
			}
			from = 0
		}
		if err = c.addValues(d.Deref(arr), from); err != nil {
			c.original(err)
			return
		}
		c.json(arr)
	})
}

// target resolves the optional path argument i in doc.  Without a path the
// target is doc itself.
func (c *call) target(doc bjson.Offset, i int) (bjson.Offset, error) {
	if i < 0 || i >= len(c.args) || c.args[i].Null {
		return c.doc().Deref(doc), nil
	}
	p, err := c.path(i, jpath.Options{JSON: true})
	if err != nil {
		return bjson.Nil, err
	}
	v, err := p.Resolve(c.doc(), doc)
	if err != nil {
		return bjson.Nil, err
	}
	if v == bjson.Nil {
		return bjson.Nil, fmt.Errorf("path %s not found", p)
	}
	return c.doc().Deref(v), nil
}

// options splits the arguments after the first n into an optional integer
// and an optional path, given in any order.
func (c *call) options(n int) (index, path int) {
	index, path = -1, -1
	for i := n; i < len(c.args); i++ {
		switch {
		case c.args[i].Type == IntArg && index < 0:
			index = i
		case c.args[i].Type == StringArg && path < 0:
			path = i
		}
	}
	return index, path
}

// ArrayAdd inserts its second argument into the array given first, before
// the element at an optional integer argument or at the end.  An optional
// string argument is the path of the array within the first argument.  A
// target that is not an array is first wrapped in one.
func (s *Session) ArrayAdd(args ...Arg) Result {
	return s.run("ArrayAdd", args, func(c *call) {
		if len(c.args) < 2 {
			c.failf(-1, "this function must have at least 2 arguments")
			return
		}
		d := c.doc()
		doc, err := c.value(0)
		if err != nil {
			c.original(err)
			return
		}
		ix, px := c.options(2)
		arr, err := c.target(doc, px)
		if err == nil && d.Type(arr) != bjson.TypeArray {
			arr, err = c.wrap(arr)
		}
		var v bjson.Offset
		if err == nil {
			v, err = c.value(1)
		}
		if err == nil {
			var x *int
			if ix >= 0 {
				n := int(c.args[ix].Int) - d.Config().IndexBase
				x = &n
			}
			err = d.AddArrayValue(arr, v, x)
		}
		if err != nil {
			c.original(err)
			return
		}
		c.json(doc)
	})
}

// wrap replaces v with an array holding it.
func (c *call) wrap(v bjson.Offset) (bjson.Offset, error) {
	d := c.doc()
	inner, err := d.DupVal(v)
	if err != nil {
		return bjson.Nil, err
	}
	arr, err := d.NewArray()
	if err != nil {
		return bjson.Nil, err
	}
	if err = d.AddArrayValue(arr, inner, nil); err != nil {
		return bjson.Nil, err
	}
	if err = d.SetValueVal(v, arr); err != nil {
		return bjson.Nil, err
	}
	return v, nil
}

// ArrayDelete removes the element at an integer argument from the array
// given first, or from the array at an optional path argument.
func (s *Session) ArrayDelete(args ...Arg) Result {
	return s.run("ArrayDelete", args, func(c *call) {
		d := c.doc()
		doc, err := c.value(0)
		if err != nil {
			c.original(err)
			return
		}
		ix, px := c.options(1)
		if ix < 0 {
			c.original(errors.New("missing or null array index"))
			return
		}
		arr, err := c.target(doc, px)
		if err == nil && d.Type(arr) != bjson.TypeArray {
			err = fmt.Errorf("cannot delete an element of a %s value", d.Type(arr))
		}
		if err == nil {
			var ok bool
			n := int(c.args[ix].Int) - d.Config().IndexBase
			if ok, err = d.DeleteValue(arr, n); err == nil && !ok {
				c.warn(ix, "no element %d", c.args[ix].Int)
			}
		}
		if err != nil {
			c.original(err)
			return
		}
		c.json(doc)
	})
}

// ObjectAdd sets its second argument, keyed by its attribute name, into the
// object given first, or into the object at an optional path argument.
func (s *Session) ObjectAdd(args ...Arg) Result {
	return s.run("ObjectAdd", args, func(c *call) {
		if len(c.args) < 2 {
			c.failf(-1, "this function must have at least 2 arguments")
			return
		}
		d := c.doc()
		doc, err := c.value(0)
		if err != nil {
			c.original(err)
			return
		}
		_, px := c.options(2)
		obj, err := c.target(doc, px)
		var v bjson.Offset
		if err == nil {
			v, err = c.value(1)
		}
		if err == nil {
			err = d.SetKeyValue(obj, v, c.args[1].key(1))
		}
		if err != nil {
			c.original(err)
			return
		}
		c.json(doc)
	})
}

// ObjectDelete removes the key given second from the object given first, or
// from the object at an optional path argument.
func (s *Session) ObjectDelete(args ...Arg) Result {
	return s.run("ObjectDelete", args, func(c *call) {
		if len(c.args) < 2 {
			c.failf(-1, "this function must have at least 2 arguments")
			return
		}
		d := c.doc()
		key, ok := c.args[1].text()
		if !ok {
			c.original(errors.New("second argument must be a key string"))
			return
		}
		doc, err := c.value(0)
		if err != nil {
			c.original(err)
			return
		}
		obj, err := c.target(doc, c.pathAfter(2))
		if err == nil {
			if ok, err = d.DeleteKey(obj, key); err == nil && !ok {
				c.warn(1, "no key %q", key)
			}
		}
		if err != nil {
			c.original(err)
			return
		}
		c.json(doc)
	})
}

// pathAfter returns the index of the first string argument from n, or -1.
func (c *call) pathAfter(n int) int {
	_, px := c.options(n)
	return px
}

// ObjectKeys returns the array of keys of an object, given first or found at
// an optional path argument.
func (s *Session) ObjectKeys(args ...Arg) Result {
	return s.objectList("ObjectKeys", args, (*bjson.Doc).GetKeyList)
}

// ObjectValues returns the array of values of an object, given first or
// found at an optional path argument.
func (s *Session) ObjectValues(args ...Arg) Result {
	return s.objectList("ObjectValues", args, (*bjson.Doc).GetObjectValList)
}

func (s *Session) objectList(name string, args []Arg, list func(*bjson.Doc, bjson.Offset) (bjson.Offset, error)) Result {
	return s.run(name, args, func(c *call) {
		doc, err := c.tree(0)
		if err != nil {
			c.fail(0, err)
			return
		}
		obj, err := c.target(doc, c.pathAfter(1))
		if err != nil {
			c.fail(1, err)
			return
		}
		arr, err := list(c.doc(), obj)
		if err != nil {
			c.fail(0, err)
			return
		}
		c.json(arr)
	})
}

// ItemMerge merges its second argument into the first: arrays are appended,
// and the members of objects replace those of the first on key collision.
func (s *Session) ItemMerge(args ...Arg) Result {
	return s.run("ItemMerge", args, func(c *call) {
		if len(c.args) != 2 {
			c.failf(-1, "this function must have 2 arguments")
			return
		}
		d := c.doc()
		v1, err := c.value(0)
		if err != nil {
			c.original(err)
			return
		}
		v2, err := c.value(1)
		if err == nil {
			err = d.MergeValues(v1, v2)
		}
		if err != nil {
			c.original(err)
			return
		}
		c.json(v1)
	})
}
