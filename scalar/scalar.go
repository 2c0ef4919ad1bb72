// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package scalar holds typed scalar values exchanged with a host: the
// results of path lookups and aggregates, and the arguments they are built
// from.
package scalar

import (
	"strconv"
	"strings"
)

// Kind is the type of a scalar value.
type Kind uint8

// Scalar kinds, from narrowest to widest number.
const (
	Null Kind = iota
	Bool
	Int
	Bigint
	Double
	String
)

var kindNames = [...]string{"null", "bool", "int", "bigint", "double", "string"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// IsNumeric reports whether k is one of the number kinds.
func (k Kind) IsNumeric() bool { return k >= Int && k <= Double }

// Value is a scalar value.  The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	prec int
	ci   bool
}

// NewBool returns a boolean value.
func NewBool(b bool) Value {
	v := Value{kind: Bool}
	if b {
		v.i = 1
	}
	return v
}

// NewInt returns a 32-bit integer value.
func NewInt(n int32) Value { return Value{kind: Int, i: int64(n)} }

// NewBigint returns a 64-bit integer value.
func NewBigint(n int64) Value { return Value{kind: Bigint, i: n} }

// NewInteger returns an Int when n fits in 32 bits and a Bigint otherwise.
func NewInteger(n int64) Value {
	if fitsInt32(n) {
		return NewInt(int32(n))
	}
	return NewBigint(n)
}

// NewDouble returns a floating point value shown with prec decimals.
func NewDouble(f float64, prec int) Value {
	if prec < 0 {
		prec = 0
	}
	return Value{kind: Double, f: f, prec: prec}
}

// NewString returns a string value.
func NewString(s string) Value { return Value{kind: String, s: s} }

// NewStringCI returns a string value that compares case insensitively.
func NewStringCI(s string) Value { return Value{kind: String, s: s, ci: true} }

// Parse returns the number written in s: an integer if it has no fraction
// or exponent and a double with the decimals of the text otherwise.  Text
// that is not a number gives a string value.
func Parse(s string) Value {
	t := strings.TrimSpace(s)
	if n, err := strconv.ParseInt(t, 10, 64); err == nil {
		return NewInteger(n)
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return NewDouble(f, decimals(t))
	}
	return NewString(s)
}

// decimals counts the digits after the decimal point of a number, adjusted by
// its exponent.
func decimals(t string) int {
	mant, exp := t, 0
	if i := strings.IndexAny(t, "eE"); i >= 0 {
		mant = t[:i]
		exp, _ = strconv.Atoi(t[i+1:])
	}
	nd := 0
	if i := strings.IndexByte(mant, '.'); i >= 0 {
		nd = len(mant) - i - 1
	}
	if nd -= exp; nd < 0 {
		nd = 0
	}
	return nd
}

// Kind returns the kind of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == Null }

// IsCI reports whether v is a string flagged for case insensitive
// comparison.
func (v Value) IsCI() bool { return v.ci }

// Prec returns the number of decimals shown for a double.
func (v Value) Prec() int { return v.prec }

// Set replaces v with x.
func (v *Value) Set(x Value) { *v = x }

// Reset makes v null.
func (v *Value) Reset() { *v = Value{} }

// String returns the text of v: numbers in decimal, doubles with their
// precision, booleans as true or false and null as an empty string.
func (v Value) String() string {
	switch v.kind {
	case Bool:
		if v.i != 0 {
			return "true"
		}
		return "false"
	case Int, Bigint:
		return strconv.FormatInt(v.i, 10)
	case Double:
		return strconv.FormatFloat(v.f, 'f', v.prec, 64)
	case String:
		return v.s
	}
	return ""
}

// Bigint returns v as a 64-bit integer, truncating doubles and reading the
// leading number of strings.
func (v Value) Bigint() int64 {
	switch v.kind {
	case Bool, Int, Bigint:
		return v.i
	case Double:
		return int64(v.f)
	case String:
		return Parse(v.s).numeric().Bigint()
	}
	return 0
}

// Float returns v as a float64.
func (v Value) Float() float64 {
	switch v.kind {
	case Bool, Int, Bigint:
		return float64(v.i)
	case Double:
		return v.f
	case String:
		return Parse(v.s).numeric().Float()
	}
	return 0
}

// Bool returns the truth of v: non zero numbers, the string "true" and
// non empty strings that are not numbers are true.
func (v Value) Bool() bool {
	switch v.kind {
	case Bool, Int, Bigint:
		return v.i != 0
	case Double:
		return v.f != 0
	case String:
		if strings.EqualFold(v.s, "false") {
			return false
		}
		if x := Parse(v.s); x.kind != String {
			return x.Bool()
		}
		return v.s != ""
	}
	return false
}

// Convert returns v converted to kind k.  Null converts to null whatever k.
func (v Value) Convert(k Kind) Value {
	if v.kind == k || v.kind == Null {
		return v
	}
	switch k {
	case Null:
		return Value{}
	case Bool:
		return NewBool(v.Bool())
	case Int:
		return NewInt(int32(v.Bigint()))
	case Bigint:
		return NewBigint(v.Bigint())
	case Double:
		x := v.numeric()
		if x.kind == Double {
			return x
		}
		return NewDouble(x.Float(), 0)
	case String:
		return NewString(v.String())
	}
	return v
}

// numeric returns v as a number kind.  Booleans are integers and strings are
// parsed, giving zero when they do not hold a number.
func (v Value) numeric() Value {
	switch v.kind {
	case Bool:
		return NewInt(int32(v.i))
	case String:
		x := Parse(v.s)
		if x.kind == String {
			return NewInt(0)
		}
		return x
	}
	return v
}

func fitsInt32(n int64) bool { return n >= -1<<31 && n <= 1<<31-1 }
