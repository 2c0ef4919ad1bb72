// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package udf

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/xdg-go/bjson"
)

// Group aggregates rows into an array or an object.  It keeps its own arena
// until Clear, and accepts at most the configured group size of rows; later
// rows are dropped with a warning.
type Group struct {
	s        *Session
	name     string
	object   bool
	doc      *bjson.Doc
	root     bjson.Offset
	left     int
	warnings []string
	truncate bool
}

// ArrayGroup returns an aggregate building an array of one value per row.
func (s *Session) ArrayGroup() *Group { return s.newGroup("ArrayGroup", false) }

// ObjectGroup returns an aggregate building an object from a key and a
// value per row.
func (s *Session) ObjectGroup() *Group { return s.newGroup("ObjectGroup", true) }

func (s *Session) newGroup(name string, object bool) *Group {
	g := &Group{s: s, name: name, object: object, doc: bjson.NewDoc(s.doc.Config())}
	g.Clear()
	return g
}

// Clear starts a new group.
func (g *Group) Clear() {
	g.doc.Reset()
	g.root = bjson.Nil
	g.left = g.doc.Config().GroupSize
	g.warnings = nil
	g.truncate = false
}

func (g *Group) warn(format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	g.warnings = append(g.warnings, msg)
	g.s.log.WithFields(logrus.Fields{"func": g.name}).Warn(msg)
}

// Add adds one row: a value for an array group, a key and a value for an
// object group.
func (g *Group) Add(args ...Arg) {
	want := 1
	if g.object {
		want = 2
	}
	if len(args) != want {
		g.warn("%s takes %d arguments per row, got %d", g.name, want, len(args))
		return
	}
	if g.left <= 0 {
		if !g.truncate {
			g.truncate = true
			g.warn("result truncated to %d rows", g.doc.Config().GroupSize)
		}
		return
	}
	if err := g.add(args); err != nil {
		g.warn("%v", err)
		return
	}
	g.left--
}

func (g *Group) add(args []Arg) error {
	d := g.doc
	var err error
	if g.root == bjson.Nil {
		if g.object {
			g.root, err = d.NewObject()
		} else {
			g.root, err = d.NewArray()
		}
		if err != nil {
			return err
		}
	}
	if !g.object {
		v, err := makeValue(d, args[0])
		if err != nil {
			return err
		}
		return d.AddArrayValue(g.root, v, nil)
	}
	key, ok := args[0].text()
	if !ok {
		return fmt.Errorf("null key")
	}
	v, err := makeValue(d, args[1])
	if err != nil {
		return err
	}
	return d.SetKeyValue(g.root, v, key)
}

// Result returns the aggregate built so far.  An empty group gives an empty
// array or object.
func (g *Group) Result() Result {
	r := Result{Type: JSONResult, Warnings: append([]string(nil), g.warnings...)}
	d := g.doc
	if g.root == bjson.Nil {
		var err error
		if g.object {
			g.root, err = d.NewObject()
		} else {
			g.root, err = d.NewArray()
		}
		if err != nil {
			r.Null, r.Error = true, true
			r.Warnings = append(r.Warnings, err.Error())
			g.s.metrics.observe(g.name, &r, d.Arena().Used())
			return r
		}
	}
	text, err := d.SerializeString(g.root, 0)
	if err != nil {
		r.Null, r.Error = true, true
		r.Warnings = append(r.Warnings, err.Error())
	} else {
		r.Text, r.Doc, r.Value = text, d, g.root
	}
	g.s.metrics.observe(g.name, &r, d.Arena().Used())
	return r
}
