// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// ToBSON appends the object v to buf as a BSON document and returns the
// extended buffer, just like with `append`.  Objects nested in v that are
// extended JSON wrappers, such as {"$oid": "..."} or {"$date": ...}, become
// the BSON type they describe.
func (d *Doc) ToBSON(buf []byte, v Offset) ([]byte, error) {
	v = d.Deref(v)
	if d.Type(v) != TypeObject {
		return nil, typeError("object", d.Type(v))
	}
	return d.appendDocument(buf, v)
}

func (d *Doc) appendDocument(out []byte, obj Offset) ([]byte, error) {
	idx, out := bsoncore.AppendDocumentStart(out)
	var err error
	for p := d.firstPair(obj); p != Nil; p = d.nextPair(p) {
		if out, err = d.appendElement(out, d.PairKey(p), d.PairValue(p)); err != nil {
			return nil, err
		}
	}
	return bsoncore.AppendDocumentEnd(out, idx)
}

func (d *Doc) appendArray(out []byte, arr Offset) ([]byte, error) {
	idx, out := bsoncore.AppendArrayStart(out)
	var err error
	i := 0
	for v := d.firstVal(arr); v != Nil; v = d.Next(v) {
		if out, err = d.appendElement(out, strconv.Itoa(i), v); err != nil {
			return nil, err
		}
		i++
	}
	return bsoncore.AppendArrayEnd(out, idx)
}

func (d *Doc) appendElement(out []byte, key string, v Offset) ([]byte, error) {
	if strings.IndexByte(key, 0) >= 0 {
		return nil, fmt.Errorf("key %q contains a null byte", key)
	}
	v = d.Deref(v)
	switch t := d.Type(v); t {
	case TypeObject:
		ext, ok, err := d.extJSONValue(v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		if ok {
			return bsoncore.AppendValueElement(out, key, ext), nil
		}
		out = bsoncore.AppendHeader(out, bsontype.EmbeddedDocument, key)
		return d.appendDocument(out, v)
	case TypeArray:
		out = bsoncore.AppendHeader(out, bsontype.Array, key)
		return d.appendArray(out, v)
	case TypeString:
		return bsoncore.AppendStringElement(out, key, d.str(Offset(d.payload(v)))), nil
	case TypeInt:
		return bsoncore.AppendInt32Element(out, key, int32(d.payload(v))), nil
	case TypeBigint:
		return bsoncore.AppendInt64Element(out, key, d.bigint(v)), nil
	case TypeFloat:
		return bsoncore.AppendDoubleElement(out, key, roundTo(float64(d.float(v)), d.Prec(v))), nil
	case TypeDouble:
		return bsoncore.AppendDoubleElement(out, key, d.double(v)), nil
	case TypeBool:
		return bsoncore.AppendBooleanElement(out, key, d.payload(v) != 0), nil
	case TypeNull:
		return bsoncore.AppendNullElement(out, key), nil
	default:
		return nil, fmt.Errorf("key %q: cannot convert node of type %s", key, t)
	}
}

// FromBSON builds a value of d from the BSON document raw.  BSON types with
// no JSON counterpart become their canonical extended JSON wrappers, except
// 64-bit integers and dates, which are kept as numbers.
func (d *Doc) FromBSON(raw []byte) (Offset, error) {
	doc := bsoncore.Document(raw)
	if err := doc.Validate(); err != nil {
		return Nil, fmt.Errorf("invalid BSON document: %w", err)
	}
	mark := d.Mark()
	v, err := d.fromDocument(doc)
	if err != nil {
		d.Restore(mark)
		return Nil, err
	}
	return v, nil
}

func (d *Doc) fromDocument(doc bsoncore.Document) (Offset, error) {
	elems, err := doc.Elements()
	if err != nil {
		return Nil, err
	}
	obj, err := d.NewObject()
	if err != nil {
		return Nil, err
	}
	for _, e := range elems {
		v, err := d.fromBSONValue(e.Value())
		if err != nil {
			return Nil, fmt.Errorf("key %q: %w", e.Key(), err)
		}
		if err = d.appendPair(obj, e.Key(), v); err != nil {
			return Nil, err
		}
	}
	return obj, nil
}

func (d *Doc) fromBSONValue(bv bsoncore.Value) (Offset, error) {
	switch bv.Type {
	case bsontype.Double:
		f := bv.Double()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return d.wrapper("$numberDouble", formatSpecialDouble(f))
		}
		return d.NewFloat(f, floatDecimals(f, 64))
	case bsontype.String:
		return d.NewString(bv.StringValue(), false)
	case bsontype.EmbeddedDocument:
		return d.fromDocument(bv.Document())
	case bsontype.Array:
		vals, err := bv.Array().Values()
		if err != nil {
			return Nil, err
		}
		arr, err := d.NewArray()
		if err != nil {
			return Nil, err
		}
		var last Offset
		for _, x := range vals {
			v, err := d.fromBSONValue(x)
			if err != nil {
				return Nil, err
			}
			last = d.link(arr, last, v)
		}
		return arr, nil
	case bsontype.Binary:
		sub, data := bv.Binary()
		inner, err := d.NewObject()
		if err != nil {
			return Nil, err
		}
		if err = d.appendString(inner, "base64", base64.StdEncoding.EncodeToString(data)); err != nil {
			return Nil, err
		}
		if err = d.appendString(inner, "subType", fmt.Sprintf("%02x", sub)); err != nil {
			return Nil, err
		}
		return d.wrapValue("$binary", inner)
	case bsontype.Undefined:
		t, err := d.NewBool(true)
		if err != nil {
			return Nil, err
		}
		return d.wrapValue("$undefined", t)
	case bsontype.ObjectID:
		return d.wrapper("$oid", bv.ObjectID().Hex())
	case bsontype.Boolean:
		return d.NewBool(bv.Boolean())
	case bsontype.DateTime:
		ms, err := d.NewBigint(bv.DateTime())
		if err != nil {
			return Nil, err
		}
		return d.wrapValue("$date", ms)
	case bsontype.Null:
		return d.NewNull()
	case bsontype.Regex:
		pat, opts := bv.Regex()
		inner, err := d.NewObject()
		if err != nil {
			return Nil, err
		}
		if err = d.appendString(inner, "pattern", pat); err != nil {
			return Nil, err
		}
		if err = d.appendString(inner, "options", opts); err != nil {
			return Nil, err
		}
		return d.wrapValue("$regularExpression", inner)
	case bsontype.DBPointer:
		ns, oid := bv.DBPointer()
		inner, err := d.NewObject()
		if err != nil {
			return Nil, err
		}
		if err = d.appendString(inner, "$ref", ns); err != nil {
			return Nil, err
		}
		id, err := d.wrapper("$oid", oid.Hex())
		if err != nil {
			return Nil, err
		}
		if err = d.appendPair(inner, "$id", id); err != nil {
			return Nil, err
		}
		return d.wrapValue("$dbPointer", inner)
	case bsontype.JavaScript:
		return d.wrapper("$code", bv.JavaScript())
	case bsontype.Symbol:
		return d.wrapper("$symbol", bv.Symbol())
	case bsontype.CodeWithScope:
		code, scope := bv.CodeWithScope()
		obj, err := d.wrapper("$code", code)
		if err != nil {
			return Nil, err
		}
		sv, err := d.fromDocument(scope)
		if err != nil {
			return Nil, err
		}
		return obj, d.appendPair(obj, "$scope", sv)
	case bsontype.Int32:
		return d.NewInt(bv.Int32())
	case bsontype.Timestamp:
		t, i := bv.Timestamp()
		inner, err := d.NewObject()
		if err != nil {
			return Nil, err
		}
		for _, kv := range []struct {
			k string
			n uint32
		}{{"t", t}, {"i", i}} {
			n, err := d.NewBigint(int64(kv.n))
			if err != nil {
				return Nil, err
			}
			if err = d.appendPair(inner, kv.k, n); err != nil {
				return Nil, err
			}
		}
		return d.wrapValue("$timestamp", inner)
	case bsontype.Int64:
		return d.newInt64(bv.Int64())
	case bsontype.Decimal128:
		return d.wrapper("$numberDecimal", bv.Decimal128().String())
	case bsontype.MinKey, bsontype.MaxKey:
		one, err := d.NewInt(1)
		if err != nil {
			return Nil, err
		}
		if bv.Type == bsontype.MinKey {
			return d.wrapValue("$minKey", one)
		}
		return d.wrapValue("$maxKey", one)
	default:
		return Nil, fmt.Errorf("unsupported BSON type %s", bv.Type)
	}
}

func (d *Doc) wrapValue(key string, v Offset) (Offset, error) {
	obj, err := d.NewObject()
	if err != nil {
		return Nil, err
	}
	return obj, d.appendPair(obj, key, v)
}

func (d *Doc) appendString(obj Offset, key, s string) error {
	v, err := d.NewString(s, false)
	if err != nil {
		return err
	}
	return d.appendPair(obj, key, v)
}

func formatSpecialDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	}
	return "-Infinity"
}
