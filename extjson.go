// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// Extended JSON detection:
//
// A wrapper is an object whose first key is one of the keys below.  The
// longest is $regularExpression at 18 letters, the shortest $oid at 4.  Any
// $-prefixed key outside those lengths isn't extended JSON, and an object of
// the wrong shape for its key (such as a $regex query operator) is left as a
// plain document.

// $oid
// $code
// $date
// $scope -- only with $code
// $binary
// $maxKey
// $minKey
// $symbol
// $dbPointer
// $numberInt
// $timestamp
// $undefined
// $numberLong
// $numberDouble
// $numberDecimal
// $regularExpression

const (
	minExtJSONKey = 4
	maxExtJSONKey = 18
)

// canonicalNaN is the quiet NaN written by other BSON encoders.
const canonicalNaN = 0x7FF8000000000000

// extJSONValue converts the wrapper object obj to a BSON value.  It returns
// false if obj is not a wrapper.
func (d *Doc) extJSONValue(obj Offset) (bsoncore.Value, bool, error) {
	p := d.firstPair(obj)
	if p == Nil {
		return bsoncore.Value{}, false, nil
	}
	key := d.strBytes(d.pairKey(p))
	if len(key) < minExtJSONKey || len(key) > maxExtJSONKey || key[0] != '$' {
		return bsoncore.Value{}, false, nil
	}
	n := d.GetObjectSize(obj, false)
	v := d.Deref(d.PairValue(p))

	switch string(key) {
	case "$oid":
		if n != 1 {
			break
		}
		return d.convertOID(v)
	case "$date":
		if n != 1 {
			break
		}
		return d.convertDate(v)
	case "$numberInt":
		if n != 1 {
			break
		}
		return d.convertNumberInt(v)
	case "$numberLong":
		if n != 1 {
			break
		}
		return d.convertNumberLong(v)
	case "$numberDouble":
		if n != 1 {
			break
		}
		return d.convertNumberDouble(v)
	case "$numberDecimal":
		if n != 1 {
			break
		}
		return d.convertNumberDecimal(v)
	case "$binary":
		if n != 1 || d.Type(v) != TypeObject {
			break
		}
		return d.convertBinary(v)
	case "$timestamp":
		if n != 1 || d.Type(v) != TypeObject {
			break
		}
		return d.convertTimestamp(v)
	case "$regularExpression":
		if n != 1 || d.Type(v) != TypeObject {
			break
		}
		return d.convertRegularExpression(v)
	case "$dbPointer":
		if n != 1 || d.Type(v) != TypeObject {
			break
		}
		return d.convertDBPointer(v)
	case "$minKey", "$maxKey":
		if n != 1 || d.GetInteger(v) != 1 {
			return bsoncore.Value{}, false, fmt.Errorf("%s value must be 1", key)
		}
		if string(key) == "$minKey" {
			return bsoncore.Value{Type: bsontype.MinKey}, true, nil
		}
		return bsoncore.Value{Type: bsontype.MaxKey}, true, nil
	case "$undefined":
		if n != 1 {
			break
		}
		if d.Type(v) != TypeBool || !d.Bool(v) {
			return bsoncore.Value{}, false, fmt.Errorf("$undefined value must be true")
		}
		return bsoncore.Value{Type: bsontype.Undefined}, true, nil
	case "$symbol":
		if n != 1 || d.Type(v) != TypeString {
			break
		}
		s, _ := d.GetString(v)
		return bsoncore.Value{Type: bsontype.Symbol, Data: bsoncore.AppendSymbol(nil, s)}, true, nil
	case "$code":
		return d.convertCode(obj, v, n)
	}
	return bsoncore.Value{}, false, nil
}

func (d *Doc) wrapperString(v Offset, what string) (string, error) {
	if d.Type(v) != TypeString {
		return "", fmt.Errorf("%s value must be a string, got %s", what, d.Type(v))
	}
	s, _ := d.GetString(v)
	return s, nil
}

func (d *Doc) convertOID(v Offset) (bsoncore.Value, bool, error) {
	s, err := d.wrapperString(v, "$oid")
	if err != nil {
		return bsoncore.Value{}, false, err
	}
	if len(s) != 24 {
		return bsoncore.Value{}, false, fmt.Errorf("$oid value must be 24 hex characters: %q", s)
	}
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return bsoncore.Value{}, false, fmt.Errorf("invalid $oid value %q: %w", s, err)
	}
	return bsoncore.Value{Type: bsontype.ObjectID, Data: bsoncore.AppendObjectID(nil, oid)}, true, nil
}

// convertDate accepts an ISO-8601 string, a {"$numberLong": "..."} wrapper or
// a plain integer number of milliseconds.
func (d *Doc) convertDate(v Offset) (bsoncore.Value, bool, error) {
	var ms int64
	switch d.Type(v) {
	case TypeString:
		s, _ := d.GetString(v)
		var err error
		if ms, err = parseISO8601toEpochMillis([]byte(s)); err != nil {
			return bsoncore.Value{}, false, err
		}
	case TypeInt, TypeBigint:
		ms = d.GetBigint(v)
	case TypeObject:
		nl := d.GetKeyValue(v, "$numberLong")
		if nl == Nil || d.GetObjectSize(v, false) != 1 {
			return bsoncore.Value{}, false, fmt.Errorf("$date object must be a $numberLong wrapper")
		}
		s, err := d.wrapperString(d.Deref(nl), "$numberLong")
		if err != nil {
			return bsoncore.Value{}, false, err
		}
		if ms, err = strconv.ParseInt(s, 10, 64); err != nil {
			return bsoncore.Value{}, false, fmt.Errorf("invalid $date value %q: %w", s, err)
		}
	default:
		return bsoncore.Value{}, false, fmt.Errorf("invalid $date value of type %s", d.Type(v))
	}
	return bsoncore.Value{Type: bsontype.DateTime, Data: bsoncore.AppendDateTime(nil, ms)}, true, nil
}

func (d *Doc) convertNumberInt(v Offset) (bsoncore.Value, bool, error) {
	s, err := d.wrapperString(v, "$numberInt")
	if err != nil {
		return bsoncore.Value{}, false, err
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return bsoncore.Value{}, false, fmt.Errorf("int conversion: %w", err)
	}
	return bsoncore.Value{Type: bsontype.Int32, Data: bsoncore.AppendInt32(nil, int32(n))}, true, nil
}

func (d *Doc) convertNumberLong(v Offset) (bsoncore.Value, bool, error) {
	s, err := d.wrapperString(v, "$numberLong")
	if err != nil {
		return bsoncore.Value{}, false, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return bsoncore.Value{}, false, fmt.Errorf("int conversion: %w", err)
	}
	return bsoncore.Value{Type: bsontype.Int64, Data: bsoncore.AppendInt64(nil, n)}, true, nil
}

func (d *Doc) convertNumberDouble(v Offset) (bsoncore.Value, bool, error) {
	s, err := d.wrapperString(v, "$numberDouble")
	if err != nil {
		return bsoncore.Value{}, false, err
	}
	var f float64
	switch s {
	case "Infinity":
		f = math.Inf(1)
	case "-Infinity":
		f = math.Inf(-1)
	case "NaN":
		f = math.Float64frombits(canonicalNaN)
	default:
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return bsoncore.Value{}, false, fmt.Errorf("float conversion: %w", err)
		}
	}
	return bsoncore.Value{Type: bsontype.Double, Data: bsoncore.AppendDouble(nil, f)}, true, nil
}

func (d *Doc) convertNumberDecimal(v Offset) (bsoncore.Value, bool, error) {
	s, err := d.wrapperString(v, "$numberDecimal")
	if err != nil {
		return bsoncore.Value{}, false, err
	}
	d128, err := primitive.ParseDecimal128(s)
	if err != nil {
		return bsoncore.Value{}, false, fmt.Errorf("decimal conversion: %w", err)
	}
	return bsoncore.Value{Type: bsontype.Decimal128, Data: bsoncore.AppendDecimal128(nil, d128)}, true, nil
}

// convertBinary handles the canonical form {"base64": "...", "subType": "xx"}.
func (d *Doc) convertBinary(v Offset) (bsoncore.Value, bool, error) {
	b64, st := d.GetKeyValue(v, "base64"), d.GetKeyValue(v, "subType")
	if b64 == Nil || st == Nil || d.GetObjectSize(v, false) != 2 {
		return bsoncore.Value{}, false, fmt.Errorf("$binary must have exactly base64 and subType keys")
	}
	s, err := d.wrapperString(d.Deref(b64), "base64")
	if err != nil {
		return bsoncore.Value{}, false, err
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return bsoncore.Value{}, false, fmt.Errorf("invalid base64 string: %w", err)
	}
	hs, err := d.wrapperString(d.Deref(st), "subType")
	if err != nil {
		return bsoncore.Value{}, false, err
	}
	if len(hs) == 1 {
		hs = "0" + hs
	}
	sub, err := hex.DecodeString(hs)
	if err != nil || len(sub) != 1 {
		return bsoncore.Value{}, false, fmt.Errorf("invalid binary subtype %q", hs)
	}
	return bsoncore.Value{Type: bsontype.Binary, Data: bsoncore.AppendBinary(nil, sub[0], data)}, true, nil
}

func (d *Doc) convertTimestamp(v Offset) (bsoncore.Value, bool, error) {
	t, i := d.Deref(d.GetKeyValue(v, "t")), d.Deref(d.GetKeyValue(v, "i"))
	if !isInteger(d.Type(t)) || !isInteger(d.Type(i)) || d.GetObjectSize(v, false) != 2 {
		return bsoncore.Value{}, false, fmt.Errorf("$timestamp must have exactly integer t and i keys")
	}
	tv, iv := d.GetBigint(t), d.GetBigint(i)
	if tv < 0 || tv > math.MaxUint32 || iv < 0 || iv > math.MaxUint32 {
		return bsoncore.Value{}, false, fmt.Errorf("$timestamp values must be unsigned 32-bit integers")
	}
	return bsoncore.Value{Type: bsontype.Timestamp, Data: bsoncore.AppendTimestamp(nil, uint32(tv), uint32(iv))}, true, nil
}

func (d *Doc) convertRegularExpression(v Offset) (bsoncore.Value, bool, error) {
	pat, opt := d.Deref(d.GetKeyValue(v, "pattern")), d.Deref(d.GetKeyValue(v, "options"))
	if pat == Nil || opt == Nil || d.GetObjectSize(v, false) != 2 {
		return bsoncore.Value{}, false, fmt.Errorf("$regularExpression must have exactly pattern and options keys")
	}
	ps, err := d.wrapperString(pat, "pattern")
	if err != nil {
		return bsoncore.Value{}, false, err
	}
	opts, err := d.wrapperString(opt, "options")
	if err != nil {
		return bsoncore.Value{}, false, err
	}
	if strings.IndexByte(ps, 0) >= 0 || strings.IndexByte(opts, 0) >= 0 {
		return bsoncore.Value{}, false, fmt.Errorf("$regularExpression pattern and options must not contain null bytes")
	}
	return bsoncore.Value{Type: bsontype.Regex, Data: bsoncore.AppendRegex(nil, ps, opts)}, true, nil
}

func (d *Doc) convertDBPointer(v Offset) (bsoncore.Value, bool, error) {
	ref, id := d.Deref(d.GetKeyValue(v, "$ref")), d.Deref(d.GetKeyValue(v, "$id"))
	if ref == Nil || id == Nil || d.Type(id) != TypeObject || d.GetObjectSize(v, false) != 2 {
		return bsoncore.Value{}, false, fmt.Errorf("$dbPointer must have exactly $ref and $id keys")
	}
	ns, err := d.wrapperString(ref, "$ref")
	if err != nil {
		return bsoncore.Value{}, false, err
	}
	oid, ok, err := d.extJSONValue(id)
	if err != nil {
		return bsoncore.Value{}, false, err
	}
	if !ok || oid.Type != bsontype.ObjectID {
		return bsoncore.Value{}, false, fmt.Errorf("$dbPointer $id must be an $oid")
	}
	return bsoncore.Value{Type: bsontype.DBPointer, Data: bsoncore.AppendDBPointer(nil, ns, oid.ObjectID())}, true, nil
}

// convertCode handles {"$code": "..."} and {"$code": "...", "$scope": {...}}.
func (d *Doc) convertCode(obj, v Offset, n int) (bsoncore.Value, bool, error) {
	code, err := d.wrapperString(v, "$code")
	if err != nil {
		return bsoncore.Value{}, false, err
	}
	if n == 1 {
		return bsoncore.Value{Type: bsontype.JavaScript, Data: bsoncore.AppendJavaScript(nil, code)}, true, nil
	}
	scope := d.Deref(d.GetKeyValue(obj, "$scope"))
	if n != 2 || d.Type(scope) != TypeObject {
		return bsoncore.Value{}, false, fmt.Errorf("$code may only be followed by a $scope document")
	}
	doc, err := d.appendDocument(nil, scope)
	if err != nil {
		return bsoncore.Value{}, false, err
	}
	return bsoncore.Value{Type: bsontype.CodeWithScope, Data: bsoncore.AppendCodeWithScope(nil, code, doc)}, true, nil
}

// Date conversion adapted from the MongoDB Go Driver: https://github.com/mongodb/mongo-go-driver
// Licensed under the Apache 2 license.
var timeFormats = []string{"2006-01-02T15:04:05.999Z07:00", "2006-01-02T15:04:05.999Z0700"}

func parseISO8601toEpochMillis(data []byte) (int64, error) {
	var t time.Time
	var err error
	for _, format := range timeFormats {
		t, err = time.Parse(format, string(data))
		if err == nil {
			break
		}
	}
	if err != nil {
		return 0, fmt.Errorf("invalid $date value string: %s", string(data))
	}

	return t.Unix()*1e3 + int64(t.Nanosecond())/1e6, nil
}
