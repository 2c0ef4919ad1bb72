// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CopyTree deep copies value v of src into dst and returns the copy.  dst and
// src may be the same document.
func CopyTree(dst, src *Doc, v Offset) (Offset, error) {
	v = src.Deref(v)
	if v == Nil {
		return Nil, nil
	}
	n, err := dst.NewNull()
	if err != nil {
		return Nil, err
	}
	if err = copyInto(dst, src, v, n); err != nil {
		return Nil, err
	}
	return n, nil
}

// copyInto fills the empty node n of dst with a deep copy of v.
func copyInto(dst, src *Doc, v, n Offset) error {
	v = src.Deref(v)
	switch t := src.Type(v); t {
	case TypeArray:
		dst.setType(n, TypeArray)
		var last Offset
		for e := src.firstVal(v); e != Nil; e = src.Next(e) {
			c, err := CopyTree(dst, src, e)
			if err != nil {
				return err
			}
			last = dst.link(n, last, c)
		}
	case TypeObject:
		dst.setType(n, TypeObject)
		var last Offset
		for p := src.firstPair(v); p != Nil; p = src.nextPair(p) {
			np, err := dst.NewPair(src.PairKey(p))
			if err != nil {
				return err
			}
			if err = copyInto(dst, src, src.PairValue(p), dst.PairValue(np)); err != nil {
				return err
			}
			if last == Nil {
				dst.setPayload(n, uint32(np))
			} else {
				dst.setNext(dst.PairValue(last), np)
			}
			last = np
		}
	case TypeString:
		return dst.SetString(n, src.str(Offset(src.payload(v))), src.Prec(v) != 0)
	case TypeBigint:
		return dst.setInt64(n, src.bigint(v))
	case TypeDouble:
		return dst.setDouble(n, src.double(v), src.Prec(v))
	case TypeNull, TypeBool, TypeInt, TypeFloat:
		dst.setType(n, t)
		dst.setPayload(n, src.payload(v))
		dst.setPrec(n, src.Prec(v))
	default:
		return fmt.Errorf("cannot copy node of type %s", t)
	}
	return nil
}

// ToNative converts value v into a tree of Go values: bson.D for objects,
// bson.A for arrays, and string, int32, int64, float64, bool or nil for
// scalars.  The result shares nothing with the arena.
func (d *Doc) ToNative(v Offset) (interface{}, error) {
	v = d.Deref(v)
	switch t := d.Type(v); t {
	case TypeArray:
		a := make(bson.A, 0, d.GetArraySize(v, false))
		for e := d.firstVal(v); e != Nil; e = d.Next(e) {
			x, err := d.ToNative(e)
			if err != nil {
				return nil, err
			}
			a = append(a, x)
		}
		return a, nil
	case TypeObject:
		var doc bson.D
		for p := d.firstPair(v); p != Nil; p = d.nextPair(p) {
			x, err := d.ToNative(d.PairValue(p))
			if err != nil {
				return nil, err
			}
			doc = append(doc, bson.E{Key: d.PairKey(p), Value: x})
		}
		if doc == nil {
			doc = bson.D{}
		}
		return doc, nil
	case TypeString:
		return d.str(Offset(d.payload(v))), nil
	case TypeInt:
		return int32(d.payload(v)), nil
	case TypeBigint:
		return d.bigint(v), nil
	case TypeFloat:
		return roundTo(float64(d.float(v)), d.Prec(v)), nil
	case TypeDouble:
		return d.double(v), nil
	case TypeBool:
		return d.payload(v) != 0, nil
	case TypeNull, TypeUnknown:
		return nil, nil
	default:
		return nil, fmt.Errorf("cannot convert node of type %s", t)
	}
}

// roundTo gives the float64 closest to the decimal text of f at nd places,
// so widening a single precision value does not add noise digits.
func roundTo(f float64, nd int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', nd, 32), 64)
	if err != nil {
		return f
	}
	return r
}

// FromNative builds a value of d from a tree of Go values, the inverse of
// ToNative.  It also accepts maps, slices of values, the other Go integer and
// float types, and the driver's ObjectID, DateTime, Decimal128 and Timestamp
// types, which become their extended JSON wrapper objects.  Map keys are
// sorted.
func (d *Doc) FromNative(x interface{}) (Offset, error) {
	switch x := x.(type) {
	case nil:
		return d.NewNull()
	case bson.D:
		obj, err := d.NewObject()
		if err != nil {
			return Nil, err
		}
		for _, e := range x {
			v, err := d.FromNative(e.Value)
			if err != nil {
				return Nil, err
			}
			if err = d.appendPair(obj, e.Key, v); err != nil {
				return Nil, err
			}
		}
		return obj, nil
	case bson.M:
		return d.fromMap(x)
	case map[string]interface{}:
		return d.fromMap(x)
	case bson.A:
		return d.fromSlice(x)
	case []interface{}:
		return d.fromSlice(x)
	case string:
		return d.NewString(x, false)
	case bool:
		return d.NewBool(x)
	case int:
		return d.NewBigint(int64(x))
	case int32:
		return d.NewInt(x)
	case int64:
		return d.newInt64(x)
	case uint32:
		return d.NewBigint(int64(x))
	case float32:
		return d.NewFloat(float64(x), floatDecimals(float64(x), 32))
	case float64:
		return d.NewFloat(x, floatDecimals(x, 64))
	case primitive.ObjectID:
		return d.wrapper("$oid", x.Hex())
	case primitive.DateTime:
		ms, err := d.NewBigint(int64(x))
		if err != nil {
			return Nil, err
		}
		return d.wrapValue("$date", ms)
	case time.Time:
		return d.FromNative(primitive.NewDateTimeFromTime(x))
	case primitive.Decimal128:
		return d.wrapper("$numberDecimal", x.String())
	case primitive.Timestamp:
		return d.FromNative(bson.D{{Key: "$timestamp", Value: bson.D{
			{Key: "t", Value: int64(x.T)}, {Key: "i", Value: int64(x.I)}}}})
	case primitive.Null, primitive.Undefined:
		return d.NewNull()
	default:
		return Nil, fmt.Errorf("cannot convert Go type %T", x)
	}
}

func (d *Doc) fromMap(m map[string]interface{}) (Offset, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	obj, err := d.NewObject()
	if err != nil {
		return Nil, err
	}
	for _, k := range keys {
		v, err := d.FromNative(m[k])
		if err != nil {
			return Nil, err
		}
		if err = d.appendPair(obj, k, v); err != nil {
			return Nil, err
		}
	}
	return obj, nil
}

func (d *Doc) fromSlice(s []interface{}) (Offset, error) {
	arr, err := d.NewArray()
	if err != nil {
		return Nil, err
	}
	var last Offset
	for _, x := range s {
		v, err := d.FromNative(x)
		if err != nil {
			return Nil, err
		}
		last = d.link(arr, last, v)
	}
	return arr, nil
}

func (d *Doc) wrapper(key, s string) (Offset, error) {
	obj, err := d.NewObject()
	if err != nil {
		return Nil, err
	}
	v, err := d.NewString(s, false)
	if err != nil {
		return Nil, err
	}
	return obj, d.appendPair(obj, key, v)
}

// appendPair adds a member at the end of obj without looking for an existing
// key.
func (d *Doc) appendPair(obj Offset, key string, v Offset) error {
	p, err := d.NewPair(key)
	if err != nil {
		return err
	}
	if err = d.SetValueVal(d.PairValue(p), v); err != nil {
		return err
	}
	last := d.firstPair(obj)
	if last == Nil {
		d.setPayload(obj, uint32(p))
		return nil
	}
	for n := d.nextPair(last); n != Nil; n = d.nextPair(last) {
		last = n
	}
	d.setNext(d.PairValue(last), p)
	return nil
}

// floatDecimals returns the number of decimals of the shortest text that
// reads back as f.
func floatDecimals(f float64, bits int) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	s := strconv.FormatFloat(f, 'f', -1, bits)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		if n := len(s) - i - 1; n < maxDecimals {
			return n
		}
		return maxDecimals
	}
	return 0
}
