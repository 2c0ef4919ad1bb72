// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

import (
	"math"
	"strconv"
	"strings"
)

// Type is the type tag of a value node.
type Type byte

// Value node types.
const (
	TypeUnknown Type = iota
	TypeNull
	TypeBool
	TypeInt
	TypeBigint
	TypeFloat
	TypeDouble
	TypeString
	TypeArray
	TypeObject
	// TypeJVal wraps another value node.
	TypeJVal
)

var typeNames = [...]string{"unknown", "null", "bool", "int", "bigint", "float", "double", "string", "array", "object", "jval"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "type(" + strconv.Itoa(int(t)) + ")"
}

// IsNumeric reports whether t is one of the number types.
func (t Type) IsNumeric() bool { return t >= TypeInt && t <= TypeDouble }

// Node layouts.  A value is 16 bytes: payload, next, digit count, type.  A
// pair is a key offset followed by an embedded value whose next field links
// the pairs of an object.
const (
	valSize  = 16
	pairSize = 4 + valSize

	valPayload = 0
	valNext    = 4
	valNd      = 8
	valType    = 12
)

// Doc is a document: an arena plus the configuration used to build, read
// and modify the values it holds.  Values are addressed by Offset.  The zero
// Doc is not usable; create one with NewDoc.
type Doc struct {
	a   *Arena
	cfg Config

	// inferred pretty style of the last parse
	pretty int

	// random-access index of array members, dropped on any list change
	index map[Offset][]Offset
}

// NewDoc returns an empty document with a new arena sized from cfg.
func NewDoc(cfg Config) *Doc {
	cfg = cfg.withDefaults()
	return &Doc{a: NewArena(cfg.ArenaSize, cfg.MaxArenaSize), cfg: cfg, pretty: 3}
}

// Arena returns the arena backing d.
func (d *Doc) Arena() *Arena { return d.a }

// Config returns the configuration of d.
func (d *Doc) Config() Config { return d.cfg }

// Pretty returns the pretty style inferred by the last Parse, or 3 if none
// could be determined.
func (d *Doc) Pretty() int { return d.pretty }

// Reset discards every value of d.
func (d *Doc) Reset() {
	d.a.Reset()
	d.index = nil
	d.pretty = 3
}

// Mark returns a checkpoint of the arena of d.
func (d *Doc) Mark() Mark { return d.a.Mark() }

// Restore discards every value allocated since m was taken.
func (d *Doc) Restore(m Mark) {
	d.a.Restore(m)
	d.index = nil
}

func (d *Doc) changed() { d.index = nil }

func (d *Doc) writable() error {
	if d.a.readOnly {
		return ErrReadOnly
	}
	return nil
}

// Type returns the type of value v, or TypeUnknown for Nil.
func (d *Doc) Type(v Offset) Type {
	if v == Nil {
		return TypeUnknown
	}
	return Type(d.a.buf[int(v)+valType])
}

// Next returns the sibling following v in its array, or Nil.
func (d *Doc) Next(v Offset) Offset { return Offset(d.a.u32(int(v) + valNext)) }

func (d *Doc) setNext(v, n Offset) { d.a.putU32(int(v)+valNext, uint32(n)) }

// Prec returns the number of decimals stored with a float or double, or the
// case-insensitivity flag of a string.
func (d *Doc) Prec(v Offset) int { return int(int32(d.a.u32(int(v) + valNd))) }

func (d *Doc) setPrec(v Offset, nd int) { d.a.putU32(int(v)+valNd, uint32(int32(nd))) }

func (d *Doc) payload(v Offset) uint32 { return d.a.u32(int(v) + valPayload) }

func (d *Doc) setPayload(v Offset, p uint32) { d.a.putU32(int(v)+valPayload, p) }

func (d *Doc) setType(v Offset, t Type) {
	if Type(d.a.buf[int(v)+valType]) == TypeArray {
		d.changed()
	}
	d.a.buf[int(v)+valType] = byte(t)
}

// Deref follows a JVal wrapper to the value it holds.
func (d *Doc) Deref(v Offset) Offset {
	for v != Nil && d.Type(v) == TypeJVal {
		v = Offset(d.payload(v))
	}
	return v
}

// IsJSON reports whether v is an array, an object or a wrapped value.
func (d *Doc) IsJSON(v Offset) bool {
	switch d.Type(v) {
	case TypeArray, TypeObject, TypeJVal:
		return true
	}
	return false
}

// IsNull reports whether v is absent or a null.
func (d *Doc) IsNull(v Offset) bool {
	v = d.Deref(v)
	return v == Nil || d.Type(v) == TypeNull
}

// NewVal allocates a value of type t with an empty payload.  Arrays and
// objects start empty.
func (d *Doc) NewVal(t Type) (Offset, error) {
	v, err := d.a.Alloc(valSize)
	if err != nil {
		return Nil, err
	}
	d.setType(v, t)
	return v, nil
}

// NewNull allocates a null value.
func (d *Doc) NewNull() (Offset, error) { return d.NewVal(TypeNull) }

// NewBool allocates a boolean value.
func (d *Doc) NewBool(b bool) (Offset, error) {
	v, err := d.NewVal(TypeBool)
	if err != nil {
		return Nil, err
	}
	if b {
		d.setPayload(v, 1)
	}
	return v, nil
}

// NewInt allocates a 32-bit integer value.
func (d *Doc) NewInt(n int32) (Offset, error) {
	v, err := d.NewVal(TypeInt)
	if err != nil {
		return Nil, err
	}
	d.setPayload(v, uint32(n))
	return v, nil
}

// NewBigint allocates an integer value, stored out of line when it does not
// fit in 32 bits.
func (d *Doc) NewBigint(n int64) (Offset, error) {
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		return d.NewInt(int32(n))
	}
	v, err := d.NewVal(TypeBigint)
	if err != nil {
		return Nil, err
	}
	if err = d.SetBigint(v, n); err != nil {
		return Nil, err
	}
	return v, nil
}

func (d *Doc) newInt64(n int64) (Offset, error) {
	v, err := d.NewVal(TypeBigint)
	if err != nil {
		return Nil, err
	}
	return v, d.setInt64(v, n)
}

// NewFloat allocates a number with nd decimals, stored in single precision
// when that reproduces it at nd decimals and in double precision otherwise.
func (d *Doc) NewFloat(f float64, nd int) (Offset, error) {
	v, err := d.NewVal(TypeFloat)
	if err != nil {
		return Nil, err
	}
	if err = d.SetFloat(v, f, nd); err != nil {
		return Nil, err
	}
	return v, nil
}

// NewDouble allocates a double precision number with nd decimals.
func (d *Doc) NewDouble(f float64, nd int) (Offset, error) {
	v, err := d.NewVal(TypeDouble)
	if err != nil {
		return Nil, err
	}
	if err = d.setDouble(v, f, nd); err != nil {
		return Nil, err
	}
	return v, nil
}

// NewString allocates a string value.  Strings flagged ci compare case
// insensitively.
func (d *Doc) NewString(s string, ci bool) (Offset, error) {
	v, err := d.NewVal(TypeString)
	if err != nil {
		return Nil, err
	}
	if err = d.SetString(v, s, ci); err != nil {
		return Nil, err
	}
	return v, nil
}

// DupVal allocates a shallow copy of v: containers share their members with
// the original and the copy is not linked to any sibling.
func (d *Doc) DupVal(v Offset) (Offset, error) {
	n, err := d.a.Alloc(valSize)
	if err != nil {
		return Nil, err
	}
	copy(d.a.buf[n:int(n)+valSize], d.a.buf[v:int(v)+valSize])
	d.setNext(n, Nil)
	return n, nil
}

// SetValueVal overwrites dst in place with the content of src, keeping the
// sibling link of dst.
func (d *Doc) SetValueVal(dst, src Offset) error {
	if err := d.writable(); err != nil {
		return err
	}
	if src == Nil {
		d.setType(dst, TypeNull)
		d.setPayload(dst, 0)
		d.setPrec(dst, 0)
		return nil
	}
	next := d.Next(dst)
	copy(d.a.buf[dst:int(dst)+valSize], d.a.buf[src:int(src)+valSize])
	d.setNext(dst, next)
	d.changed()
	return nil
}

// SetNull turns v into a null in place.
func (d *Doc) SetNull(v Offset) error { return d.SetValueVal(v, Nil) }

// SetBool stores a boolean in v.
func (d *Doc) SetBool(v Offset, b bool) error {
	if err := d.writable(); err != nil {
		return err
	}
	var p uint32
	if b {
		p = 1
	}
	d.setType(v, TypeBool)
	d.setPayload(v, p)
	d.setPrec(v, 0)
	return nil
}

// SetInt stores a 32-bit integer in v.
func (d *Doc) SetInt(v Offset, n int32) error {
	if err := d.writable(); err != nil {
		return err
	}
	d.setType(v, TypeInt)
	d.setPayload(v, uint32(n))
	d.setPrec(v, 0)
	return nil
}

// SetBigint stores n in v, out of line if it does not fit in 32 bits.
func (d *Doc) SetBigint(v Offset, n int64) error {
	if n >= math.MinInt32 && n <= math.MaxInt32 {
		return d.SetInt(v, int32(n))
	}
	return d.setInt64(v, n)
}

// setInt64 stores n out of line whatever its magnitude, so a 64-bit integer
// read from BSON stays 64 bits wide.
func (d *Doc) setInt64(v Offset, n int64) error {
	if err := d.writable(); err != nil {
		return err
	}
	p, err := d.a.Alloc(8)
	if err != nil {
		return err
	}
	d.a.putU64(int(p), uint64(n))
	d.setType(v, TypeBigint)
	d.setPayload(v, uint32(p))
	d.setPrec(v, 0)
	return nil
}

// SetFloat stores f with nd decimals in v, choosing single or double
// precision storage.
func (d *Doc) SetFloat(v Offset, f float64, nd int) error {
	if err := d.writable(); err != nil {
		return err
	}
	if nd < 0 {
		nd = d.cfg.DefaultPrec
	}
	if !fitsFloat32(f, nd) {
		return d.setDouble(v, f, nd)
	}
	d.setType(v, TypeFloat)
	d.setPayload(v, math.Float32bits(float32(f)))
	d.setPrec(v, nd)
	return nil
}

func (d *Doc) setDouble(v Offset, f float64, nd int) error {
	if err := d.writable(); err != nil {
		return err
	}
	p, err := d.a.Alloc(8)
	if err != nil {
		return err
	}
	d.a.putU64(int(p), math.Float64bits(f))
	d.setType(v, TypeDouble)
	d.setPayload(v, uint32(p))
	d.setPrec(v, nd)
	return nil
}

// maxFloatDigits is the largest decimal count kept in single precision.
const maxFloatDigits = 6

// fitsFloat32 reports whether f can be stored in single precision and still
// print identically with nd decimals.
func fitsFloat32(f float64, nd int) bool {
	if nd > maxFloatDigits {
		return false
	}
	abs := math.Abs(f)
	if abs > math.MaxFloat32 || (abs != 0 && abs < 1.1754943508222875e-38) {
		return false
	}
	f32 := float64(float32(f))
	return strconv.FormatFloat(f32, 'f', nd, 64) == strconv.FormatFloat(f, 'f', nd, 64)
}

// SetString stores s in v.
func (d *Doc) SetString(v Offset, s string, ci bool) error {
	if err := d.writable(); err != nil {
		return err
	}
	p, err := d.newStr(s)
	if err != nil {
		return err
	}
	d.setType(v, TypeString)
	d.setPayload(v, uint32(p))
	if ci {
		d.setPrec(v, 1)
	} else {
		d.setPrec(v, 0)
	}
	return nil
}

// newStr stores s as a length-prefixed, NUL-terminated byte run.
func (d *Doc) newStr(s string) (Offset, error) {
	p, err := d.a.Alloc(4 + len(s) + 1)
	if err != nil {
		return Nil, err
	}
	d.a.putU32(int(p), uint32(len(s)))
	copy(d.a.buf[int(p)+4:], s)
	return p, nil
}

func (d *Doc) str(p Offset) string {
	if p == Nil {
		return ""
	}
	n := int(d.a.u32(int(p)))
	return string(d.a.buf[int(p)+4 : int(p)+4+n])
}

func (d *Doc) strBytes(p Offset) []byte {
	if p == Nil {
		return nil
	}
	n := int(d.a.u32(int(p)))
	return d.a.buf[int(p)+4 : int(p)+4+n]
}

// Bool returns the boolean held by v.
func (d *Doc) Bool(v Offset) bool { return d.payload(d.Deref(v)) != 0 }

// bigint and double read the out-of-line payloads of v.
func (d *Doc) bigint(v Offset) int64 { return int64(d.a.u64(int(d.payload(v)))) }

func (d *Doc) double(v Offset) float64 { return math.Float64frombits(d.a.u64(int(d.payload(v)))) }

func (d *Doc) float(v Offset) float32 { return math.Float32frombits(d.payload(v)) }

// GetInteger returns v converted to a 32-bit integer.
func (d *Doc) GetInteger(v Offset) int32 {
	v = d.Deref(v)
	switch d.Type(v) {
	case TypeInt:
		return int32(d.payload(v))
	case TypeFloat:
		return int32(d.float(v))
	case TypeString:
		n, _ := strconv.ParseInt(leadingInt(d.str(Offset(d.payload(v)))), 10, 32)
		return int32(n)
	case TypeBool:
		if d.payload(v) != 0 {
			return 1
		}
	case TypeBigint:
		return int32(d.bigint(v))
	case TypeDouble:
		return int32(d.double(v))
	}
	return 0
}

// GetBigint returns v converted to a 64-bit integer.
func (d *Doc) GetBigint(v Offset) int64 {
	v = d.Deref(v)
	switch d.Type(v) {
	case TypeBigint:
		return d.bigint(v)
	case TypeInt:
		return int64(int32(d.payload(v)))
	case TypeFloat:
		return int64(d.float(v))
	case TypeDouble:
		return int64(d.double(v))
	case TypeString:
		n, _ := strconv.ParseInt(leadingInt(d.str(Offset(d.payload(v)))), 10, 64)
		return n
	case TypeBool:
		if d.payload(v) != 0 {
			return 1
		}
	}
	return 0
}

// GetDouble returns v converted to a float64.
func (d *Doc) GetDouble(v Offset) float64 {
	v = d.Deref(v)
	switch d.Type(v) {
	case TypeDouble:
		return d.double(v)
	case TypeBigint:
		return float64(d.bigint(v))
	case TypeInt:
		return float64(int32(d.payload(v)))
	case TypeFloat:
		return float64(d.float(v))
	case TypeString:
		f, _ := strconv.ParseFloat(leadingFloat(d.str(Offset(d.payload(v)))), 64)
		return f
	case TypeBool:
		if d.payload(v) != 0 {
			return 1
		}
	}
	return 0
}

// GetString returns the text of a scalar: strings as is, numbers formatted
// with their stored decimals, and the literals true, false and null.  It
// returns false for containers and Nil.
func (d *Doc) GetString(v Offset) (string, bool) {
	v = d.Deref(v)
	switch d.Type(v) {
	case TypeString:
		return d.str(Offset(d.payload(v))), true
	case TypeInt:
		return strconv.FormatInt(int64(int32(d.payload(v))), 10), true
	case TypeFloat:
		return strconv.FormatFloat(float64(d.float(v)), 'f', d.Prec(v), 32), true
	case TypeBigint:
		return strconv.FormatInt(d.bigint(v), 10), true
	case TypeDouble:
		return strconv.FormatFloat(d.double(v), 'f', d.Prec(v), 64), true
	case TypeBool:
		if d.payload(v) != 0 {
			return "true", true
		}
		return "false", true
	case TypeNull:
		return "null", true
	}
	return "", false
}

// GetValueText returns the text of v.  Scalars give their GetString text
// except nulls, which give the configured JSON null text.  Objects give their
// values separated by spaces and arrays give "(a, b, ...)" when nested.
func (d *Doc) GetValueText(v Offset) string {
	var sb strings.Builder
	d.valueText(&sb, d.Deref(v), true)
	return strings.TrimSpace(sb.String())
}

func (d *Doc) valueText(sb *strings.Builder, v Offset, top bool) {
	switch d.Type(v) {
	case TypeObject:
		d.objectText(sb, v, top)
	case TypeArray:
		d.arrayText(sb, v, top)
	case TypeNull, TypeUnknown:
		sb.WriteString(d.cfg.JSONNull)
	default:
		s, _ := d.GetString(v)
		sb.WriteString(s)
	}
}

func (d *Doc) objectText(sb *strings.Builder, obj Offset, top bool) {
	p := d.firstPair(obj)
	if p == Nil {
		return
	}
	if !top {
		if s := sb.String(); len(s) > 0 && s[len(s)-1] != ' ' {
			sb.WriteByte(' ')
		}
	}
	if top && d.nextPair(p) == Nil && d.str(d.pairKey(p)) == "$date" {
		// dates are stored in milliseconds, shown in seconds
		var ms strings.Builder
		d.valueText(&ms, d.PairValue(p), false)
		s := ms.String()
		i := 0
		if strings.HasPrefix(s, "-") {
			i = 1
		}
		if _, err := strconv.ParseInt(s[i:], 10, 64); err == nil {
			if len(s) >= 4+i {
				sb.WriteString(s[:len(s)-3])
			} else {
				sb.WriteString("0")
			}
			return
		}
		sb.WriteString(s)
		return
	}
	for ; p != Nil; p = d.nextPair(p) {
		d.valueText(sb, d.PairValue(p), false)
		if d.nextPair(p) != Nil {
			sb.WriteByte(' ')
		}
	}
}

func (d *Doc) arrayText(sb *strings.Builder, arr Offset, top bool) {
	v := d.firstVal(arr)
	if v == Nil {
		return
	}
	if !top {
		if s := sb.String(); len(s) > 0 && s[len(s)-1] != ' ' {
			sb.WriteString(" (")
		} else {
			sb.WriteByte('(')
		}
	}
	for ; v != Nil; v = d.Next(v) {
		d.valueText(sb, v, false)
		if d.Next(v) != Nil {
			sb.WriteString(", ")
		} else if !top {
			sb.WriteByte(')')
		}
	}
}

// leadingInt and leadingFloat return the numeric prefix of s, the way C's
// atoi and atof read it.
func leadingInt(s string) string {
	s = strings.TrimLeft(s, " \t\n\r")
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || (i == 1 && (s[0] == '-' || s[0] == '+')) {
		return "0"
	}
	return s[:i]
}

func leadingFloat(s string) string {
	s = strings.TrimLeft(s, " \t\n\r")
	end := 0
	seenDigit, seenDot, seenE := false, false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
			end = i + 1
		case (c == '-' || c == '+') && (i == 0 || s[i-1] == 'e' || s[i-1] == 'E'):
		case c == '.' && !seenDot && !seenE:
			seenDot = true
		case (c == 'e' || c == 'E') && seenDigit && !seenE:
			seenE = true
		default:
			i = len(s)
		}
	}
	if end == 0 {
		return "0"
	}
	return s[:end]
}
