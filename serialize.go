// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

// SerializeError reports a failure to serialize a document.
type SerializeError struct {
	msg string
	err error
}

func (e *SerializeError) Error() string {
	if e.err != nil {
		return "serialize error: " + e.msg + ": " + e.err.Error()
	}
	return "serialize error: " + e.msg
}

func (e *SerializeError) Unwrap() error { return e.err }

const lineEnd = "\n"

type serializer struct {
	d      *Doc
	w      *bufio.Writer
	pretty int
	indent bool
	m      int
	file   bool
}

// Serialize writes value v as JSON text to w.  pretty selects the layout:
//
//	0  compact
//	1  a top-level array with one element per line, tab indented
//	2  fully indented, one member per line
//	3  the layout inferred by the last Parse
func (d *Doc) Serialize(w io.Writer, v Offset, pretty int) error {
	return d.serialize(w, v, pretty, false)
}

// SerializeString returns value v as JSON text.
func (d *Doc) SerializeString(v Offset, pretty int) (string, error) {
	var buf bytes.Buffer
	if err := d.serialize(&buf, v, pretty, false); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SerializeFile writes value v to the file at path, terminated by a new line.
// With pretty 0 the elements of a top-level array are written one per line
// without brackets, the layout Parse reads back as an implicit array.
func (d *Doc) SerializeFile(path string, v Offset, pretty int) error {
	f, err := os.Create(path)
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	err = d.serialize(f, v, pretty, true)
	if cerr := f.Close(); cerr != nil && err == nil {
		err = &IOError{Op: "close", Path: path, Err: cerr}
	}
	return err
}

func (d *Doc) serialize(w io.Writer, v Offset, pretty int, file bool) error {
	if v == Nil {
		return &SerializeError{msg: "null json tree"}
	}
	if pretty < 0 || pretty > 2 {
		pretty = d.pretty
		if pretty < 0 || pretty > 2 {
			pretty = 0
		}
	}
	s := &serializer{
		d:      d,
		w:      bufio.NewWriter(w),
		pretty: pretty,
		indent: pretty >= 2,
		file:   file,
	}

	var err error
	v = d.Deref(v)
	if d.Type(v) == TypeArray && pretty < 2 && d.firstVal(v) != Nil {
		err = s.topArray(v)
	} else {
		err = s.value(v)
	}
	if err != nil {
		return err
	}
	if file {
		s.w.WriteString(lineEnd)
	}
	if err = s.w.Flush(); err != nil {
		return &SerializeError{msg: "write failed", err: err}
	}
	return nil
}

func (s *serializer) topArray(arr Offset) error {
	d := s.d
	bare := s.file && s.pretty == 0
	switch {
	case bare:
	case s.pretty == 1:
		s.w.WriteString("[" + lineEnd + "\t")
	default:
		s.w.WriteByte('[')
	}
	for v := d.firstVal(arr); v != Nil; v = d.Next(v) {
		if v != d.firstVal(arr) {
			switch {
			case bare:
				s.w.WriteString(lineEnd)
			case s.pretty == 1:
				s.w.WriteString("," + lineEnd + "\t")
			default:
				s.w.WriteByte(',')
			}
		}
		if err := s.value(v); err != nil {
			return err
		}
	}
	switch {
	case bare:
	case s.pretty == 1:
		s.w.WriteString(lineEnd + "]")
	default:
		s.w.WriteByte(']')
	}
	return nil
}

// writeChr writes one structural character, laying it out when indenting.
func (s *serializer) writeChr(c byte) {
	if !s.indent {
		s.w.WriteByte(c)
		return
	}
	switch c {
	case ':':
		s.w.WriteString(": ")
	case '{', '[':
		s.m++
		s.w.WriteByte(c)
		s.newLine()
	case '}', ']':
		s.m--
		s.newLine()
		s.w.WriteByte(c)
	case ',':
		s.w.WriteByte(c)
		s.newLine()
	default:
		s.w.WriteByte(c)
	}
}

func (s *serializer) newLine() {
	s.w.WriteString(lineEnd)
	for i := 0; i < s.m; i++ {
		s.w.WriteByte('\t')
	}
}

func (s *serializer) array(arr Offset) error {
	d := s.d
	first := d.firstVal(arr)
	if first == Nil {
		s.w.WriteString("[]")
		return nil
	}
	s.writeChr('[')
	for v := first; v != Nil; v = d.Next(v) {
		if v != first {
			s.writeChr(',')
		}
		if err := s.value(v); err != nil {
			return err
		}
	}
	s.writeChr(']')
	return nil
}

func (s *serializer) object(obj Offset) error {
	d := s.d
	first := d.firstPair(obj)
	if first == Nil {
		s.w.WriteString("{}")
		return nil
	}
	s.writeChr('{')
	for p := first; p != Nil; p = d.nextPair(p) {
		if p != first {
			s.writeChr(',')
		}
		s.escape(d.strBytes(d.pairKey(p)))
		s.writeChr(':')
		if err := s.value(d.PairValue(p)); err != nil {
			return err
		}
	}
	s.writeChr('}')
	return nil
}

func (s *serializer) value(v Offset) error {
	d := s.d
	var buf [64]byte
	switch t := d.Type(v); t {
	case TypeArray:
		return s.array(v)
	case TypeObject:
		return s.object(v)
	case TypeJVal:
		return s.value(Offset(d.payload(v)))
	case TypeBool:
		if d.payload(v) != 0 {
			s.w.WriteString("true")
		} else {
			s.w.WriteString("false")
		}
	case TypeString:
		s.escape(d.strBytes(Offset(d.payload(v))))
	case TypeInt:
		s.w.Write(strconv.AppendInt(buf[:0], int64(int32(d.payload(v))), 10))
	case TypeBigint:
		s.w.Write(strconv.AppendInt(buf[:0], d.bigint(v), 10))
	case TypeFloat:
		s.w.Write(strconv.AppendFloat(buf[:0], float64(d.float(v)), 'f', d.Prec(v), 32))
	case TypeDouble:
		f := d.double(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			s.w.WriteString("null")
			break
		}
		s.w.Write(strconv.AppendFloat(buf[:0], f, 'f', d.Prec(v), 64))
	case TypeNull:
		s.w.WriteString("null")
	default:
		return &SerializeError{msg: fmt.Sprintf("unrecognized node type %s at %d", t, v)}
	}
	return nil
}

const hexDigits = "0123456789abcdef"

func (s *serializer) escape(b []byte) {
	s.w.WriteByte('"')
	for _, c := range b {
		switch c {
		case '"', '\\':
			s.w.WriteByte('\\')
			s.w.WriteByte(c)
		case '\t':
			s.w.WriteString(`\t`)
		case '\n':
			s.w.WriteString(`\n`)
		case '\r':
			s.w.WriteString(`\r`)
		case '\b':
			s.w.WriteString(`\b`)
		case '\f':
			s.w.WriteString(`\f`)
		default:
			if c < 0x20 {
				s.w.WriteString(`\u00`)
				s.w.WriteByte(hexDigits[c>>4])
				s.w.WriteByte(hexDigits[c&0xF])
				continue
			}
			s.w.WriteByte(c)
		}
	}
	s.w.WriteByte('"')
}
