// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package udf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xdg-go/bjson"
)

// ArgType is the declared type of a host argument.
type ArgType int

// Host argument types.
const (
	StringArg ArgType = iota
	IntArg
	RealArg
	DecimalArg
	// BlobArg holds a relocatable blob made by bjson's Externalize, as
	// returned by Result.Blob.
	BlobArg
)

func (t ArgType) String() string {
	switch t {
	case StringArg:
		return "string"
	case IntArg:
		return "int"
	case RealArg:
		return "real"
	case DecimalArg:
		return "decimal"
	case BlobArg:
		return "blob"
	}
	return fmt.Sprintf("argtype(%d)", int(t))
}

// Arg is one argument of a function call as the host passes it.
type Arg struct {
	Type ArgType
	// Text holds string and decimal values, and blobs.
	Text []byte
	Int  int64
	Real float64
	// Attribute is the name of the argument expression.  It supplies object
	// keys and selects special handling: "ci..." makes a string compare case
	// insensitively, "jfile_..." names a JSON file to read, and the names
	// TRUE and FALSE turn the integers 1 and 0 into booleans.
	Attribute string
	Null      bool
	// Const is set when the argument has the same value on every call of a
	// query, so results depending only on constants may be kept.
	Const bool
}

// String returns a string argument.
func String(s string) Arg { return Arg{Type: StringArg, Text: []byte(s)} }

// Int returns an integer argument.
func Int(n int64) Arg { return Arg{Type: IntArg, Int: n} }

// Real returns a floating point argument.
func Real(f float64) Arg { return Arg{Type: RealArg, Real: f} }

// Decimal returns a decimal argument given by its text.
func Decimal(s string) Arg { return Arg{Type: DecimalArg, Text: []byte(s)} }

// Blob returns a binary document argument.
func Blob(b []byte) Arg { return Arg{Type: BlobArg, Text: b} }

// Null returns a null argument.
func Null() Arg { return Arg{Null: true} }

// Named returns a copy of a with attribute name.
func (a Arg) Named(name string) Arg {
	a.Attribute = name
	return a
}

// AsConst returns a copy of a flagged as constant.
func (a Arg) AsConst() Arg {
	a.Const = true
	return a
}

// text returns the argument as a string, for paths, keys and file names.
func (a Arg) text() (string, bool) {
	if a.Null {
		return "", false
	}
	switch a.Type {
	case StringArg, DecimalArg:
		return string(a.Text), true
	case IntArg:
		return strconv.FormatInt(a.Int, 10), true
	case RealArg:
		return strconv.FormatFloat(a.Real, 'f', -1, 64), true
	}
	return "", false
}

// key returns the object key given by the attribute of a, or a key made
// from its position.
func (a Arg) key(i int) string {
	k := a.Attribute
	for _, p := range []string{"json_", "jbin_", "jfile_"} {
		if len(k) > len(p) && strings.EqualFold(k[:len(p)], p) {
			k = k[len(p):]
			break
		}
	}
	if k == "" {
		k = "key" + strconv.Itoa(i+1)
	}
	return k
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// makeValue returns argument a as a value of d.  A string that is valid
// JSON becomes the tree it describes and any other string a string value.
func makeValue(d *bjson.Doc, a Arg) (bjson.Offset, error) {
	if a.Null {
		return d.NewNull()
	}
	switch a.Type {
	case StringArg:
		if len(a.Text) == 0 {
			return d.NewNull()
		}
		if hasPrefixFold(a.Attribute, "jfile_") {
			return parseFile(d, string(a.Text))
		}
		if hasPrefixFold(a.Attribute, "json_") {
			return d.Parse(a.Text, 3)
		}
		m := d.Mark()
		if v, err := d.Parse(a.Text, 3); err == nil {
			return v, nil
		}
		d.Restore(m)
		return d.NewString(string(a.Text), hasPrefixFold(a.Attribute, "ci"))
	case IntArg:
		if (a.Int == 0 && a.Attribute == "FALSE") || (a.Int == 1 && a.Attribute == "TRUE") {
			return d.NewBool(a.Int == 1)
		}
		return d.NewBigint(a.Int)
	case RealArg:
		return d.NewFloat(a.Real, decimals(strconv.FormatFloat(a.Real, 'f', -1, 64)))
	case DecimalArg:
		s := strings.TrimSpace(string(a.Text))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return bjson.Nil, fmt.Errorf("invalid decimal %q", s)
		}
		return d.NewFloat(f, decimals(s))
	case BlobArg:
		src, root, err := bjson.View(a.Text, d.Config())
		if err != nil {
			return bjson.Nil, err
		}
		return bjson.CopyTree(d, src, root)
	}
	return bjson.Nil, fmt.Errorf("unsupported argument type %s", a.Type)
}

func parseFile(d *bjson.Doc, path string) (bjson.Offset, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return bjson.Nil, &bjson.IOError{Op: "read", Path: path, Err: err}
	}
	return d.Parse(text, 3)
}

// decimals counts the significant decimals of a number's text.
func decimals(s string) int {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0
	}
	n := 0
	for _, c := range s[dot+1:] {
		if c < '0' || c > '9' {
			break
		}
		n++
	}
	frac := s[dot+1 : dot+1+n]
	n = len(strings.TrimRight(frac, "0"))
	if n > 16 {
		n = 16
	}
	return n
}
