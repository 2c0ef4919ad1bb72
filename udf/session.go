// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package udf

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"
	"github.com/xdg-go/bjson"
	"github.com/xdg-go/bjson/jpath"
)

// ResultType is the host type of a function result.
type ResultType int

// Result types.
const (
	JSONResult ResultType = iota
	StringResult
	IntResult
	RealResult
)

// Result is what a function returns to the host.  Null and Error are
// independent: a call may fail and still return a value, as mutations do by
// returning their input unchanged.
type Result struct {
	Type ResultType
	// Text is the compact JSON text of JSON results and the value of string
	// results.
	Text string
	Int  int64
	Real float64
	// Doc and Value hold the tree of a JSON result.  They are valid until the
	// next call on the session or its Reset.
	Doc   *bjson.Doc
	Value bjson.Offset

	Null     bool
	Error    bool
	Warnings []string
}

// Blob returns a JSON result as a relocatable blob, which may be passed back
// to a function as a Blob argument.
func (r Result) Blob() ([]byte, error) {
	if r.Doc == nil || r.Value == bjson.Nil {
		return nil, fmt.Errorf("result holds no document")
	}
	return r.Doc.Externalize(r.Value)
}

// Session runs functions for one host connection.  It owns one arena, which
// is reused by each call, and a cache of results that depend only on
// constant arguments.  The cache lasts until Reset.  A Session is not safe
// for concurrent use.
type Session struct {
	doc *bjson.Doc
	// arena position preserved across calls, past the kept constants
	base    bjson.Mark
	gen     uint64
	consts  map[uint64]constEntry
	log     logrus.FieldLogger
	metrics *Metrics
	paths   *jpath.Cache
}

type constEntry struct {
	res  Result
	tree bjson.Offset
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger receiving warnings.  The default is the logrus
// standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) { s.log = l }
}

// WithMetrics sets the metrics updated by every call.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithPathCache sets the compiled path cache, which may be shared between
// sessions.
func WithPathCache(c *jpath.Cache) Option {
	return func(s *Session) { s.paths = c }
}

// NewSession returns a session whose arena is configured by cfg.
func NewSession(cfg bjson.Config, opts ...Option) (*Session, error) {
	s := &Session{
		doc:    bjson.NewDoc(cfg),
		consts: make(map[uint64]constEntry),
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.paths == nil {
		var err error
		if s.paths, err = jpath.NewCache(0); err != nil {
			return nil, err
		}
	}
	s.base = s.doc.Mark()
	s.gen = s.doc.Arena().Generation()
	return s, nil
}

// Config returns the configuration of the session arena.
func (s *Session) Config() bjson.Config { return s.doc.Config() }

// Reset empties the arena, which discards every kept constant.
func (s *Session) Reset() {
	s.doc.Reset()
	s.base = s.doc.Mark()
}

// sync drops the constants of an earlier arena generation.
func (s *Session) sync() {
	if g := s.doc.Arena().Generation(); g != s.gen {
		s.gen = g
		s.base = s.doc.Mark()
		for k := range s.consts {
			delete(s.consts, k)
		}
	}
}

// keep preserves everything allocated so far across later calls.
func (s *Session) keep() { s.base = s.doc.Mark() }

// fingerprint hashes a function name and its arguments.
func fingerprint(name string, args []Arg) uint64 {
	h := xxhash.New()
	var buf [8]byte
	_, _ = h.WriteString(name)
	for _, a := range args {
		buf[0] = byte(a.Type)
		if a.Null {
			buf[0] |= 0x80
		}
		_, _ = h.Write(buf[:1])
		_, _ = h.WriteString(a.Attribute)
		binary.LittleEndian.PutUint64(buf[:], uint64(len(a.Text)))
		_, _ = h.Write(buf[:])
		_, _ = h.Write(a.Text)
		binary.LittleEndian.PutUint64(buf[:], uint64(a.Int))
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(a.Real))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

func allConst(args []Arg) bool {
	for _, a := range args {
		if !a.Const {
			return false
		}
	}
	return len(args) > 0
}

// run calls fn for function name.  Calls whose arguments are all constant
// are answered once and then from the cache.
func (s *Session) run(name string, args []Arg, fn func(c *call)) Result {
	s.sync()
	constant := allConst(args)
	var key uint64
	if constant {
		key = fingerprint(name, args)
		if e, ok := s.consts[key]; ok {
			s.metrics.constHit(name)
			return e.res
		}
	}

	s.doc.Restore(s.base)
	c := &call{s: s, name: name, args: args}
	fn(c)
	if constant && !c.res.Error {
		s.keep()
		s.consts[key] = constEntry{res: c.res}
	}
	s.metrics.observe(name, &c.res, s.doc.Arena().Used())
	return c.res
}

// call is the state of one function call.
type call struct {
	s    *Session
	name string
	args []Arg
	res  Result
}

func (c *call) doc() *bjson.Doc { return c.s.doc }

// warn records a warning about argument i, or about the call if i < 0.
func (c *call) warn(i int, format string, a ...interface{}) {
	msg := fmt.Sprintf(format, a...)
	c.res.Warnings = append(c.res.Warnings, msg)
	fields := logrus.Fields{"func": c.name}
	if i >= 0 {
		fields["arg"] = i
	}
	c.s.log.WithFields(fields).Warn(msg)
}

// fail makes the result a null error of the type already set.
func (c *call) fail(i int, err error) {
	c.warn(i, "%v", err)
	c.res.Null = true
	c.res.Error = true
	c.res.Doc, c.res.Value = nil, bjson.Nil
}

// failf is fail with a formatted message.
func (c *call) failf(i int, format string, a ...interface{}) {
	c.fail(i, fmt.Errorf(format, a...))
}

// original makes the result the unchanged first argument after a failed
// mutation.
func (c *call) original(err error) {
	c.warn(-1, "%v", err)
	c.res.Error = true
	if len(c.args) == 0 || c.args[0].Null {
		c.res.Null = true
		return
	}
	a := c.args[0]
	if a.Type == StringArg {
		c.res.Type = JSONResult
		c.res.Text = string(a.Text)
		c.res.Doc, c.res.Value = nil, bjson.Nil
		return
	}
	c.s.doc.Restore(c.s.base)
	v, verr := makeValue(c.s.doc, a)
	if verr != nil {
		c.res.Null = true
		return
	}
	text, verr := c.s.doc.SerializeString(v, 0)
	if verr != nil {
		c.res.Null = true
		return
	}
	c.res.Type = JSONResult
	c.res.Text, c.res.Doc, c.res.Value = text, c.s.doc, v
}

// value returns argument i as a new value.  Missing arguments are null.
func (c *call) value(i int) (bjson.Offset, error) {
	if i >= len(c.args) {
		return c.doc().NewNull()
	}
	return makeValue(c.doc(), c.args[i])
}

// tree returns argument i as a value that the call must not change.  A
// constant argument is built once and kept for later calls.
func (c *call) tree(i int) (bjson.Offset, error) {
	if i >= len(c.args) || !c.args[i].Const {
		return c.value(i)
	}
	key := fingerprint("tree", c.args[i:i+1])
	if e, ok := c.s.consts[key]; ok {
		return e.tree, nil
	}
	v, err := c.value(i)
	if err != nil {
		return bjson.Nil, err
	}
	c.s.keep()
	c.s.consts[key] = constEntry{tree: v}
	return v, nil
}

// path compiles argument i as a path.
func (c *call) path(i int, opts jpath.Options) (*jpath.Path, error) {
	text, ok := "", false
	if i < len(c.args) {
		text, ok = c.args[i].text()
	}
	if !ok {
		return nil, fmt.Errorf("argument %d is not a path", i+1)
	}
	opts.IndexBase = c.doc().Config().IndexBase
	return c.s.paths.Compile(text, opts)
}

// intArg returns integer argument i, or def if it is missing.
func (c *call) intArg(i int, def int64) (int64, error) {
	if i >= len(c.args) || c.args[i].Null {
		return def, nil
	}
	if c.args[i].Type != IntArg {
		return 0, fmt.Errorf("argument %d is not an integer", i+1)
	}
	return c.args[i].Int, nil
}

// json makes v the result.
func (c *call) json(v bjson.Offset) {
	text, err := c.doc().SerializeString(v, 0)
	if err != nil {
		c.fail(-1, err)
		return
	}
	c.res.Type = JSONResult
	c.res.Text, c.res.Doc, c.res.Value = text, c.doc(), v
}

// str makes s the result.
func (c *call) str(s string) {
	c.res.Type = StringResult
	c.res.Text = s
}
