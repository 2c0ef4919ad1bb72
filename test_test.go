// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

type unmarshalTestCase struct {
	label  string
	input  string
	output string
	errStr string
}

// testWithToBSON parses each input and converts it to BSON, comparing the
// result to the hex encoded output.
func testWithToBSON(t *testing.T, cases []unmarshalTestCase) {
	t.Helper()

	for _, c := range cases {
		c := c
		t.Run(c.label, func(t *testing.T) {
			t.Parallel()

			buf, err := convertWithBJSON([]byte(c.input))
			if c.errStr != "" {
				var got string
				if err != nil {
					got = err.Error()
				}
				if !strings.Contains(got, c.errStr) {
					t.Errorf("expected error with '%s', but got %v", c.errStr, got)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				} else {
					c.output = strings.ToLower(c.output)
					expect, err := hex.DecodeString(c.output)
					if err != nil {
						t.Fatalf("error decoding test output: %v", err)
					}
					if !bytes.Equal(expect, buf) {
						t.Fatalf("ToBSON doesn't match expected:\nGot:    %v\nExpect: %v", hex.EncodeToString(buf), c.output)
					}
				}
			}
		})
	}
}

func newTestDoc() *Doc {
	return NewDoc(Config{ArenaSize: 4096})
}

func convertWithBJSON(input []byte) ([]byte, error) {
	d := newTestDoc()
	v, err := d.Parse(input, 3)
	if err != nil {
		return nil, err
	}
	return d.ToBSON(make([]byte, 0, 256), v)
}

func convertWithGoDriver(input []byte) ([]byte, error) {
	var got bson.Raw
	err := bson.UnmarshalExtJSON(input, false, &got)
	return got, err
}

// mustParse parses s or fails the test.
func mustParse(t *testing.T, d *Doc, s string) Offset {
	t.Helper()
	v, err := d.ParseString(s)
	if err != nil {
		t.Fatalf("error parsing %q: %v", s, err)
	}
	return v
}

// mustSerialize serializes v compactly or fails the test.
func mustSerialize(t *testing.T, d *Doc, v Offset) string {
	t.Helper()
	s, err := d.SerializeString(v, 0)
	if err != nil {
		t.Fatalf("error serializing: %v", err)
	}
	return s
}

// objectify wraps a text that is not an object as the value of key "a",
// after any byte order mark and leading spaces.
func objectify(input []byte) []byte {
	start := bomLength(input)
	start += len(input[start:]) - len(bytes.TrimLeft(input[start:], " "))
	if start == len(input) || input[start] == '{' {
		return input
	}
	out := append([]byte(nil), input[:start]...)
	out = append(out, `{"a":`...)
	out = append(out, input[start:]...)
	return append(out, '}')
}

// bomLength returns the length of the byte order mark input starts with.
func bomLength(input []byte) int {
	// Longest first: the UTF-32LE mark starts with the UTF-16LE one.
	for _, bom := range [][]byte{utf32BEBOM, utf32LEBOM, utf8BOM, utf16BEBOM, utf16LEBOM} {
		if bytes.HasPrefix(input, bom) {
			return len(bom)
		}
	}
	return 0
}
