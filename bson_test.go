// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TestToBSON tests parsing followed by BSON conversion of the various
// primitive types, including some error cases.
//
// Some tests adapted from the MongoDB BSON Corpus, licensed CC by-sa-nc:
// https://github.com/mongodb/specifications/blob/master/source/bson-corpus/bson-corpus.rst
func TestToBSON(t *testing.T) {
	t.Parallel()

	cases := []unmarshalTestCase{
		// True
		{
			label:  "true ok",
			input:  `{"b" : true}`,
			output: "090000000862000100",
		},
		{
			label:  "true not ok",
			input:  `{"b" : t, "c": 1}`,
			errStr: "expecting true",
		},
		// False
		{
			label:  "false ok",
			input:  `{"b" : false}`,
			output: "090000000862000000",
		},
		{
			label:  "false not ok",
			input:  `{"b" : fake}`,
			errStr: "expecting false",
		},
		// Null
		{
			label:  "null ok",
			input:  `{"a" : null}`,
			output: "080000000A610000",
		},
		{
			label:  "null not ok",
			input:  `{"a" : nul}`,
			errStr: "expecting null",
		},
		// String
		{
			label:  "Empty string",
			input:  `{"a" : ""}`,
			output: "0D000000026100010000000000",
		},
		{
			label:  "Single character",
			input:  `{"a" : "b"}`,
			output: "0E00000002610002000000620000",
		},
		{
			label:  "Multi-character",
			input:  `{"a" : "abababababab"}`,
			output: "190000000261000D0000006162616261626162616261620000",
		},
		{
			label:  "two-byte UTF-8 (é)",
			input:  `{"a" : "éééééé"}`,
			output: "190000000261000D000000C3A9C3A9C3A9C3A9C3A9C3A90000",
		},
		{
			label:  "three-byte UTF-8 (☆)",
			input:  `{"a" : "☆☆☆☆"}`,
			output: "190000000261000D000000E29886E29886E29886E298860000",
		},
		{
			label:  "Embedded nulls",
			input:  `{"a" : "ab\u0000bab\u0000babab"}`,
			output: "190000000261000D0000006162006261620062616261620000",
		},
		{
			label:  "Required escapes",
			input:  `{"a":"ab\\\"\u0001\u0002\u0003\u0004\u0005\u0006\u0007\b\t\n\u000b\f\r\u000e\u000f\u0010\u0011\u0012\u0013\u0014\u0015\u0016\u0017\u0018\u0019\u001a\u001b\u001c\u001d\u001e\u001fab"}`,
			output: "320000000261002600000061625C220102030405060708090A0B0C0D0E0F101112131415161718191A1B1C1D1E1F61620000",
		},
		{
			label:  "invalid unicode escape",
			input:  `{"a" : "\u00zz"}`,
			errStr: "invalid unicode escape",
		},
		{
			label:  "invalid unicode escape sign",
			input:  `{"a" : "\u-062"}`,
			errStr: "invalid unicode escape",
		},
		{
			label:  "surrogate pair",
			input:  `{"a" : "\ud83d\ude00"}`,
			output: "0E000000026100020000003F0000",
		},
		// Int32
		{
			label:  "MinInt32",
			input:  `{"i" : -2147483648}`,
			output: "0C0000001069000000008000",
		},
		{
			label:  "MaxInt32",
			input:  `{"i" : 2147483647}`,
			output: "0C000000106900FFFFFF7F00",
		},
		{
			label:  "-1",
			input:  `{"i" : -1}`,
			output: "0C000000106900FFFFFFFF00",
		},
		{
			label:  "0",
			input:  `{"i" : 0}`,
			output: "0C0000001069000000000000",
		},
		{
			label:  "1",
			input:  `{"i" : 1}`,
			output: "0C0000001069000100000000",
		},
		{
			label:  "bad int",
			input:  `{"d" : 1234abc}`,
			errStr: "unexpected character 'a'",
		},
		// Int64
		{
			label:  "MinInt64",
			input:  `{"a" : -9223372036854775808}`,
			output: "10000000126100000000000000008000",
		},
		{
			label:  "MaxInt64",
			input:  `{"a" : 9223372036854775807}`,
			output: "10000000126100FFFFFFFFFFFFFF7F00",
		},
		// Float
		{
			label:  "+1.0",
			input:  `{"d" : 1.0}`,
			output: "10000000016400000000000000F03F00",
		},
		{
			label:  "-1.0",
			input:  `{"d" : -1.0}`,
			output: "10000000016400000000000000F0BF00",
		},
		{
			label:  "bad float",
			input:  `{"d" : -1.0a0}`,
			errStr: "unexpected character 'a'",
		},
		{
			label:  "leading dot",
			input:  `{"d" : .5}`,
			errStr: "unexpected character '.'",
		},
		// Multi-key
		{
			label:  "multikey",
			input:  `{"a":true, "b":false}`,
			output: "0d000000086100010862000000",
		},
		{
			label:  "multi-array",
			input:  `{"a":["b","c"]}`,
			output: "1f000000046100170000000230000200000062000231000200000063000000",
		},
		// Truncation
		{
			label:  "truncated key",
			input:  `{"a`,
			errStr: "unexpected EOF",
		},
		{
			label:  "truncated string",
			input:  `{"a":"hello`,
			errStr: "unexpected EOF",
		},
		{
			label:  "truncated integer",
			input:  `{"a":123`,
			errStr: "unexpected EOF",
		},
		{
			label:  "truncated float",
			input:  `{"a":123.45`,
			errStr: "unexpected EOF",
		},
		{
			label:  "truncated true",
			input:  `{"b" : t`,
			errStr: "expecting true",
		},
		{
			label:  "truncated array",
			input:  `{"a" : [`,
			errStr: "unexpected EOF",
		},
		{
			label:  "truncated object",
			input:  `{`,
			errStr: "unexpected EOF",
		},
		// structural errors
		{
			label:  "first value key not string",
			input:  `{ 123:456 }`,
			errStr: "unexpected character '1'",
		},
		{
			label:  "first value missing colon",
			input:  `{ "a" 457 }`,
			errStr: "unexpected character '4'",
		},
		{
			label:  "third value not delimited",
			input:  `{ "a": 457, "b": 789 "c":123 }`,
			errStr: "misplaced string",
		},
		{
			label:  "third array value not delimited",
			input:  `{ "a": [ "hello", "world" 123 ] }`,
			errStr: "unexpected value",
		},
		{
			label:  "missing value",
			input:  `{"a":}`,
			errStr: "unexpected character '}'",
		},
		// Not a document
		{
			label:  "top-level array",
			input:  `[1, 2]`,
			errStr: "object expected, got array",
		},
	}

	testWithToBSON(t, cases)
}

func TestExtJSON(t *testing.T) {
	t.Parallel()

	cases := []unmarshalTestCase{
		{
			label:  "$oid",
			input:  `{"a" : {"$oid" : "56e1fc72e0c917e9c4714161"}}`,
			output: "1400000007610056E1FC72E0C917E9C471416100",
		},
		{
			label:  "$oid too short",
			input:  `{"a" : {"$oid" : "56e1fc72e0c917e9c47141"}}`,
			errStr: "24 hex characters",
		},
		{
			label:  "$symbol",
			input:  `{"a": {"$symbol": ""}}`,
			output: "0D0000000E6100010000000000",
		},
		{
			label:  "$numberInt",
			input:  `{"i" : {"$numberInt": "0"}}`,
			output: "0C0000001069000000000000",
		},
		{
			label:  "$numberLong",
			input:  `{"a" : {"$numberLong" : "-9223372036854775808"}}`,
			output: "10000000126100000000000000008000",
		},
		{
			label:  "$numberDouble",
			output: "1000000001640081E97DF41022B14300",
			input:  `{"d" : {"$numberDouble": "1.23456789012345677E+18"}}`,
		},
		{
			label:  "$numberDouble NaN",
			output: "10000000016400000000000000F87F00",
			input:  `{"d": {"$numberDouble": "NaN"}}`,
		},
		{
			label:  "$numberDouble Inf",
			output: "10000000016400000000000000F07F00",
			input:  `{"d": {"$numberDouble": "Infinity"}}`,
		},
		{
			label:  "$numberDouble -Inf",
			output: "10000000016400000000000000F0FF00",
			input:  `{"d": {"$numberDouble": "-Infinity"}}`,
		},
		{
			label:  "$numberDecimal",
			input:  `{"d" : {"$numberDecimal" : "0.1000000000000000000000000000000000"}}`,
			output: "18000000136400000000000A5BC138938D44C64D31FC2F00",
		},
		{
			label:  "$binary",
			input:  `{"x" : { "$binary" : {"base64" : "c//SZESzTGmQ6OfR38A11A==", "subType" : "03"}}}`,
			output: "1D000000057800100000000373FFD26444B34C6990E8E7D1DFC035D400",
		},
		{
			label:  "$binary, single type digit",
			input:  `{"x" : { "$binary" : {"base64" : "c//SZESzTGmQ6OfR38A11A==", "subType" : "3"}}}`,
			output: "1D000000057800100000000373FFD26444B34C6990E8E7D1DFC035D400",
		},
		{
			label:  "$binary, keys reversed",
			input:  `{"x" : { "$binary" : {"subType" : "03", "base64" : "c//SZESzTGmQ6OfR38A11A=="}}}`,
			output: "1D000000057800100000000373FFD26444B34C6990E8E7D1DFC035D400",
		},
		{
			label:  "$maxKey",
			input:  `{"a" : {"$maxKey" : 1}}`,
			output: "080000007F610000",
		},
		{
			label:  "$minKey",
			input:  `{"a" : {"$minKey" : 1}}`,
			output: "08000000FF610000",
		},
		{
			label:  "$undefined",
			input:  `{"a" : {"$undefined" : true}}`,
			output: "0800000006610000",
		},
		{
			label:  "$regex query operator stays a document",
			input:  `{"a" : {"$regex" : "^x"}}`,
			output: "1C000000036100140000000224726567657800030000005E78000000",
		},
	}

	testWithToBSON(t, cases)
}

// TestAgainstGoDriver compares BSON output with the reference output of the
// MongoDB Go driver.
func TestAgainstGoDriver(t *testing.T) {
	t.Parallel()

	inputs := []string{
		`{}`,
		`{"a": 1, "b": "foo", "c": [true, false, null]}`,
		`{"nested": {"deeper": {"x": -42, "y": [1, [2, [3]]]}}}`,
		`{"big": 123456789012345, "neg": -2147483649}`,
		`{"f": 1.5, "g": 0.25, "h": 100.125}`,
		`{"e": 1e2}`,
		`"just a string"`,
		`[1, 2, 3]`,
		`{"id": {"$oid": "56e1fc72e0c917e9c4714161"}, "n": {"$numberLong": "7"}}`,
		`{"when": {"$date": {"$numberLong": "1356351330501"}}}`,
		`{"when": {"$date": "2012-12-24T12:15:30.501Z"}}`,
		`{"dec": {"$numberDecimal": "1.5"}}`,
		`{"ts": {"$timestamp": {"t": 123456789, "i": 42}}}`,
		`{"re": {"$regularExpression": {"pattern": "abc", "options": "i"}}}`,
	}

	for _, in := range inputs {
		in := in
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			text := objectify([]byte(in))
			got, err := convertWithBJSON(text)
			if err != nil {
				t.Fatalf("bjson error: %v\ntext: %s", err, string(text))
			}
			driverGot, err := convertWithGoDriver(text)
			if err != nil {
				t.Logf("skipping, mongo go driver error: %v\ntext: %s", err, string(text))
				return
			}
			if !bytes.Equal(got, driverGot) {
				t.Fatalf("bjson doesn't match Go driver:\nbjson:  %v\nDriver: %v", hex.EncodeToString(got), hex.EncodeToString(driverGot))
			}
		})
	}
}

func TestFromBSON(t *testing.T) {
	t.Parallel()

	oid, err := primitive.ObjectIDFromHex("56e1fc72e0c917e9c4714161")
	if err != nil {
		t.Fatal(err)
	}
	raw, err := bson.Marshal(bson.D{
		{Key: "a", Value: int32(1)},
		{Key: "b", Value: "x"},
		{Key: "c", Value: bson.A{true, nil, 2.5}},
		{Key: "d", Value: int64(1 << 40)},
		{Key: "s", Value: int64(7)},
		{Key: "o", Value: oid},
		{Key: "t", Value: primitive.DateTime(1000)},
		{Key: "bin", Value: primitive.Binary{Subtype: 0, Data: []byte("hi")}},
		{Key: "min", Value: primitive.MinKey{}},
	})
	if err != nil {
		t.Fatal(err)
	}

	d := newTestDoc()
	v, err := d.FromBSON(raw)
	if err != nil {
		t.Fatalf("FromBSON: %v", err)
	}
	got := mustSerialize(t, d, v)
	expect := `{"a":1,"b":"x","c":[true,null,2.5],"d":1099511627776,"s":7,"o":{"$oid":"56e1fc72e0c917e9c4714161"},` +
		`"t":{"$date":1000},"bin":{"$binary":{"base64":"aGk=","subType":"00"}},"min":{"$minKey":1}}`
	if got != expect {
		t.Fatalf("FromBSON mismatch:\nGot:    %s\nExpect: %s", got, expect)
	}

	back, err := d.ToBSON(nil, v)
	if err != nil {
		t.Fatalf("ToBSON: %v", err)
	}
	if !bytes.Equal(back, raw) {
		t.Fatalf("round trip mismatch:\nGot:    %v\nExpect: %v", hex.EncodeToString(back), hex.EncodeToString(raw))
	}
}

func TestFromBSONInvalid(t *testing.T) {
	t.Parallel()

	d := newTestDoc()
	used := d.Arena().Used()
	_, err := d.FromBSON([]byte{0x05, 0x00, 0x00})
	if err == nil {
		t.Fatal("expected error but got nil")
	}
	if d.Arena().Used() != used {
		t.Errorf("arena grew from %d to %d after a failed conversion", used, d.Arena().Used())
	}
}

func TestToBSONTypeMismatch(t *testing.T) {
	t.Parallel()

	d := newTestDoc()
	v := mustParse(t, d, `42`)
	_, err := d.ToBSON(nil, v)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
}
