// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestSerializePretty(t *testing.T) {
	t.Parallel()

	cases := []struct {
		label  string
		input  string
		pretty int
		output string
	}{
		{"compact", `{ "a" : [ 1, {"b": []} ] }`, 0, `{"a":[1,{"b":[]}]}`},
		{"array per line", `[1,{"a":2}]`, 1, "[\n\t1,\n\t{\"a\":2}\n]"},
		{"object is compact at 1", `{"a":[1]}`, 1, `{"a":[1]}`},
		{"empty array at 1", `[]`, 1, `[]`},
		{"indented", `{"a":[1,2],"b":{}}`, 2, "{\n\t\"a\": [\n\t\t1,\n\t\t2\n\t],\n\t\"b\": {}\n}"},
		{"indented scalar", `"x"`, 2, `"x"`},
		{"escapes", `"q\"\\\t\r\b\f\u0001"`, 0, `"q\"\\\t\r\b\f\u0001"`},
	}
	for _, c := range cases {
		c := c
		t.Run(c.label, func(t *testing.T) {
			t.Parallel()
			d := newTestDoc()
			v := mustParse(t, d, c.input)
			got, err := d.SerializeString(v, c.pretty)
			if err != nil {
				t.Fatal(err)
			}
			if got != c.output {
				t.Errorf("expected %q, got %q", c.output, got)
			}
		})
	}
}

func TestSerializeInferredPretty(t *testing.T) {
	t.Parallel()

	d := newTestDoc()
	v := mustParse(t, d, "{\"a\":1},\n{\"b\":2}")
	got, err := d.SerializeString(v, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got != "[\n\t{\"a\":1},\n\t{\"b\":2}\n]" {
		t.Errorf("unexpected layout %q", got)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{
		`{"a":[1,2.50,{"b":null}],"c":"d\"e","f":true,"g":123456789012345,"h":3.14159265}`,
		`[[],{},[[]],{"x":{}}]`,
	}
	for _, in := range inputs {
		for pretty := 0; pretty <= 2; pretty++ {
			d := newTestDoc()
			v := mustParse(t, d, in)
			s, err := d.SerializeString(v, pretty)
			if err != nil {
				t.Fatal(err)
			}
			w, err := d.ParseString(s)
			if err != nil {
				t.Fatalf("reparse of %q: %v", s, err)
			}
			if !d.Equal(v, w) {
				t.Errorf("pretty %d round trip changed %s into %s", pretty, in, s)
			}
		}
	}
}

func TestUnprettyIsIdempotent(t *testing.T) {
	t.Parallel()

	unpretty := func(t *testing.T, text string) string {
		t.Helper()
		d := newTestDoc()
		return mustSerialize(t, d, mustParse(t, d, text))
	}

	cases := []struct {
		label   string
		input   string
		pretty  int
		compact string
	}{
		{"object", `{"a":{"b":[1,2]},"c":"d","e":null}`, 2, `{"a":{"b":[1,2]},"c":"d","e":null}`},
		{"nested arrays", `[[1,[2,[]]],[],{"x":[true]}]`, 2, `[[1,[2,[]]],[],{"x":[true]}]`},
		{"array per line", `[1,{"a":2},"s"]`, 1, `[1,{"a":2},"s"]`},
		{"implicit array", "1\n\"x\"\n{\"a\":1}", 0, `[1,"x",{"a":1}]`},
		{"comma separated values", "{\"a\":1},\n{\"b\":2}", 1, `[{"a":1},{"b":2}]`},
	}
	for _, c := range cases {
		c := c
		t.Run(c.label, func(t *testing.T) {
			t.Parallel()
			d := newTestDoc()
			text, err := d.SerializeString(mustParse(t, d, c.input), c.pretty)
			if err != nil {
				t.Fatal(err)
			}
			once := unpretty(t, text)
			if once != c.compact {
				t.Errorf("expected %s, got %s", c.compact, once)
			}
			if twice := unpretty(t, once); twice != once {
				t.Errorf("second pass changed %s into %s", once, twice)
			}
		})
	}

	// bare lines written to a file read back as the same lines
	dir := t.TempDir()
	d := newTestDoc()
	first := filepath.Join(dir, "first.json")
	if err := d.SerializeFile(first, mustParse(t, d, "1\n[2]\n{\"a\":3}"), 0); err != nil {
		t.Fatal(err)
	}
	text, err := os.ReadFile(first)
	if err != nil {
		t.Fatal(err)
	}
	second := filepath.Join(dir, "second.json")
	if err = d.SerializeFile(second, mustParse(t, d, string(text)), 0); err != nil {
		t.Fatal(err)
	}
	again, err := os.ReadFile(second)
	if err != nil {
		t.Fatal(err)
	}
	if string(again) != string(text) || string(text) != "1\n[2]\n{\"a\":3}\n" {
		t.Errorf("expected stable bare lines, got %q then %q", text, again)
	}
}

func TestSerializeFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cases := []struct {
		label  string
		input  string
		pretty int
		output string
	}{
		{"bare lines", `[1,"x",{"a":1}]`, 0, "1\n\"x\"\n{\"a\":1}\n"},
		{"object", `{"a":1}`, 0, "{\"a\":1}\n"},
		{"array per line", `[1,2]`, 1, "[\n\t1,\n\t2\n]\n"},
	}
	for i, c := range cases {
		d := newTestDoc()
		v := mustParse(t, d, c.input)
		path := filepath.Join(dir, c.label+".json")
		if err := d.SerializeFile(path, v, c.pretty); err != nil {
			t.Fatal(err)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != c.output {
			t.Errorf("case %d: expected %q, got %q", i, c.output, b)
		}

		// The file reads back as the same value.
		w, err := d.Parse(b, 3)
		if err != nil {
			t.Fatal(err)
		}
		if !d.Equal(v, w) {
			t.Errorf("case %d: file did not read back", i)
		}
	}
}

func TestSerializeSpecialValues(t *testing.T) {
	t.Parallel()

	d := newTestDoc()
	arr, _ := d.NewArray()
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 2.5} {
		v, err := d.NewDouble(f, 1)
		if err != nil {
			t.Fatal(err)
		}
		if err = d.AddArrayValue(arr, v, nil); err != nil {
			t.Fatal(err)
		}
	}
	if got := mustSerialize(t, d, arr); got != `[null,null,null,2.5]` {
		t.Errorf("unexpected %s", got)
	}

	_, err := d.SerializeString(Nil, 0)
	var se *SerializeError
	if !errors.As(err, &se) {
		t.Errorf("expected SerializeError for Nil, got %v", err)
	}
}
