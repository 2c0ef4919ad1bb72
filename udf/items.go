// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package udf

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/xdg-go/bjson"
	"github.com/xdg-go/bjson/bfile"
	"github.com/xdg-go/bjson/jpath"
	"github.com/xdg-go/bjson/scalar"
)

// GetItem returns the JSON found at the path given second in the document
// given first.  It is null if there is none.
func (s *Session) GetItem(args ...Arg) Result {
	return s.run("GetItem", args, func(c *call) {
		v, ok := c.lookup(jpath.Options{JSON: true})
		if !ok {
			return
		}
		c.json(v)
	})
}

// lookup resolves the path given second in the document given first.  It
// sets a null result and returns false when nothing is found or on error.
func (c *call) lookup(opts jpath.Options) (bjson.Offset, bool) {
	if len(c.args) < 2 {
		c.failf(-1, "this function must have at least 2 arguments")
		return bjson.Nil, false
	}
	doc, err := c.tree(0)
	if err != nil {
		c.fail(0, err)
		return bjson.Nil, false
	}
	p, err := c.path(1, opts)
	if err != nil {
		c.fail(1, err)
		return bjson.Nil, false
	}
	v, err := p.Resolve(c.doc(), doc)
	if err != nil {
		c.fail(1, err)
		return bjson.Nil, false
	}
	if v == bjson.Nil {
		c.res.Null = true
		return bjson.Nil, false
	}
	return v, true
}

// scalarAt returns the scalar at the path given second in the document given
// first, converted to kind.
func (c *call) scalarAt(kind scalar.Kind) (scalar.Value, bool) {
	v, ok := c.lookup(jpath.Options{})
	if !ok {
		return scalar.Value{}, false
	}
	x := jpath.ToScalar(c.doc(), v)
	if x.IsNull() {
		c.res.Null = true
		return x, false
	}
	return x.Convert(kind), true
}

// GetString returns the text of the value at a path.  Arrays and objects give
// their value text.
func (s *Session) GetString(args ...Arg) Result {
	return s.run("GetString", args, func(c *call) {
		c.res.Type = StringResult
		if x, ok := c.scalarAt(scalar.String); ok {
			c.res.Text = x.String()
		}
	})
}

// GetInt returns the value at a path as an integer.
func (s *Session) GetInt(args ...Arg) Result {
	return s.run("GetInt", args, func(c *call) {
		c.res.Type = IntResult
		if x, ok := c.scalarAt(scalar.Bigint); ok {
			c.res.Int = x.Bigint()
		}
	})
}

// GetReal returns the value at a path as a floating point number, rounded to
// an optional third argument number of decimals.
func (s *Session) GetReal(args ...Arg) Result {
	return s.run("GetReal", args, func(c *call) {
		c.res.Type = RealResult
		prec, err := c.intArg(2, -1)
		if err != nil {
			c.fail(2, err)
			return
		}
		x, ok := c.scalarAt(scalar.Double)
		if !ok {
			return
		}
		f := x.Float()
		if prec >= 0 && !math.IsInf(f, 0) && !math.IsNaN(f) {
			f, _ = strconv.ParseFloat(strconv.FormatFloat(f, 'f', int(prec), 64), 64)
		}
		c.res.Real = f
	})
}

// writeMode selects which paths SetItem and its variants write.
type writeMode int

const (
	writeAlways writeMode = iota
	writeMissing
	writeExisting
)

// SetItem writes values into the document given first.  The other arguments
// are pairs of a value and the path where it goes.  A pair with a bad path
// is skipped with a warning.
func (s *Session) SetItem(args ...Arg) Result {
	return s.setItem("SetItem", args, writeAlways)
}

// InsertItem is SetItem writing only to paths that do not exist yet.
func (s *Session) InsertItem(args ...Arg) Result {
	return s.setItem("InsertItem", args, writeMissing)
}

// UpdateItem is SetItem writing only to paths that already exist.
func (s *Session) UpdateItem(args ...Arg) Result {
	return s.setItem("UpdateItem", args, writeExisting)
}

func (s *Session) setItem(name string, args []Arg, mode writeMode) Result {
	return s.run(name, args, func(c *call) {
		if len(c.args) == 0 {
			c.failf(-1, "at least 1 argument required")
			return
		}
		d := c.doc()
		doc, err := c.value(0)
		if err != nil {
			c.original(err)
			return
		}
		if len(c.args)%2 == 0 {
			c.warn(len(c.args)-1, "missing path for the last value")
		}
		for i := 1; i+1 < len(c.args); i += 2 {
			p, err := c.path(i+1, jpath.Options{Write: true})
			if err != nil {
				c.warn(i+1, "%v", err)
				continue
			}
			switch mode {
			case writeMissing:
				if p.Contains(d, doc) {
					continue
				}
			case writeExisting:
				if !p.Contains(d, doc) {
					continue
				}
			}
			v, err := c.value(i)
			if err != nil {
				c.warn(i, "%v", err)
				continue
			}
			if err = p.Write(d, doc, v); err != nil {
				if errors.Is(err, bjson.ErrOutOfMemory) {
					c.original(err)
					return
				}
				c.warn(i+1, "%v", err)
			}
		}
		c.json(doc)
	})
}

// DeleteItem deletes the items at each path argument from the document given
// first.  A bad path is skipped with a warning.
func (s *Session) DeleteItem(args ...Arg) Result {
	return s.run("DeleteItem", args, func(c *call) {
		if len(c.args) == 0 {
			c.failf(-1, "at least 1 argument required")
			return
		}
		d := c.doc()
		doc, err := c.value(0)
		if err != nil {
			c.original(err)
			return
		}
		for i := 1; i < len(c.args); i++ {
			p, err := c.path(i, jpath.Options{})
			if err == nil {
				_, err = p.Delete(d, doc)
			}
			if err != nil {
				c.warn(i, "%v", err)
			}
		}
		c.json(doc)
	})
}

// Contains returns 1 if the path given second exists in the document given
// first and 0 otherwise.
func (s *Session) Contains(args ...Arg) Result {
	return s.run("Contains", args, func(c *call) {
		c.res.Type = IntResult
		if len(c.args) != 2 {
			c.failf(-1, "this function must have 2 arguments")
			return
		}
		doc, err := c.tree(0)
		if err != nil {
			c.fail(0, err)
			return
		}
		p, err := c.path(1, jpath.Options{})
		if err != nil {
			c.fail(1, err)
			return
		}
		if p.Contains(c.doc(), doc) {
			c.res.Int = 1
		}
	})
}

// needle prepares Locate and LocateAll: the document, the item to find and
// the optional integer argument.
func (c *call) needle(def int64) (doc, item bjson.Offset, n int64, ok bool) {
	if len(c.args) < 2 {
		c.failf(-1, "at least 2 arguments required")
		return
	}
	var err error
	if n, err = c.intArg(2, def); err != nil {
		c.fail(2, err)
		return
	}
	if doc, err = c.tree(0); err != nil {
		c.fail(0, fmt.Errorf("first argument is not a valid JSON item: %w", err))
		return
	}
	if item, err = c.value(1); err != nil {
		c.fail(1, fmt.Errorf("invalid second argument: %w", err))
		return
	}
	return doc, item, n, true
}

// Locate returns the path of the k-th occurrence of the item given second
// in the document given first.  The optional third argument is k, 1 by
// default.  It is null if there is no such occurrence.
func (s *Session) Locate(args ...Arg) Result {
	return s.run("Locate", args, func(c *call) {
		doc, item, k, ok := c.needle(1)
		c.res.Type = StringResult
		if !ok {
			return
		}
		path, found := jpath.Locate(c.doc(), doc, c.doc(), item, int(k))
		if !found {
			c.res.Null = true
			return
		}
		c.str(path)
	})
}

// LocateAll returns the array of paths of every occurrence of the item given
// second in the document given first.  The optional third argument is the
// number of nesting levels searched, 10 by default.
func (s *Session) LocateAll(args ...Arg) Result {
	return s.run("LocateAll", args, func(c *call) {
		doc, item, depth, ok := c.needle(jpath.DefaultLocateDepth)
		if !ok {
			return
		}
		d := c.doc()
		arr, err := d.NewArray()
		if err != nil {
			c.fail(-1, err)
			return
		}
		for _, path := range jpath.LocateAll(d, doc, d, item, int(depth)) {
			v, err := d.NewString(path, false)
			if err == nil {
				err = d.AddArrayValue(arr, v, nil)
			}
			if err != nil {
				c.fail(-1, err)
				return
			}
		}
		c.json(arr)
	})
}

// Serialize returns the document given first as text in a pretty style
// given by an optional integer argument, 1 by default.  With an optional
// file name argument the text is written to that file, and the result is
// the file name.
func (s *Session) Serialize(args ...Arg) Result {
	return s.run("Serialize", args, func(c *call) {
		if len(c.args) == 0 {
			c.failf(-1, "at least 1 argument required (json)")
			return
		}
		pretty := int64(1)
		file := ""
		for i := 1; i < len(c.args); i++ {
			switch c.args[i].Type {
			case StringArg:
				file = string(c.args[i].Text)
			case IntArg:
				pretty = c.args[i].Int
			}
		}
		v, err := c.tree(0)
		if err != nil {
			c.fail(0, err)
			return
		}
		if file != "" {
			if err = c.doc().SerializeFile(file, v, int(pretty)); err != nil {
				c.fail(-1, err)
				return
			}
			c.str(file)
			return
		}
		text, err := c.doc().SerializeString(v, int(pretty))
		if err != nil {
			c.fail(-1, err)
			return
		}
		c.str(text)
	})
}

// FileToBlob converts the JSON file named first to a blob file named second,
// one record per value.  An optional third argument names the compression
// codec.  The result is the output file name, or the error message.
func (s *Session) FileToBlob(args ...Arg) Result {
	return s.run("FileToBlob", args, func(c *call) {
		if len(c.args) != 2 && len(c.args) != 3 {
			c.failf(-1, "this function must have 2 or 3 arguments")
			return
		}
		var names [3]string
		for i := range c.args {
			if c.args[i].Type != StringArg || c.args[i].Null {
				c.failf(i, "argument %d must be a string", i+1)
				return
			}
			names[i] = string(c.args[i].Text)
		}
		codec, err := bfile.ParseCodec(names[2])
		if err == nil {
			var n int
			n, err = bfile.FileToBlob(names[0], names[1], c.doc().Config(), codec)
			c.s.log.WithField("func", c.name).Debugf("wrote %d records to %s", n, names[1])
		}
		if err != nil {
			c.warn(-1, "%v", err)
			c.res.Error = true
			c.str(err.Error())
			return
		}
		c.str(names[1])
	})
}
