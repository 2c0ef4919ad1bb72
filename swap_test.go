// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const swapInput = `{"a":[1,2.50,"x",{"b":null}],"big":123456789012345,"pi":3.14159265,"t":true,"e":{}}`

func TestCopyTree(t *testing.T) {
	t.Parallel()

	src, dst := newTestDoc(), newTestDoc()
	v := mustParse(t, src, swapInput)
	c, err := CopyTree(dst, src, v)
	if err != nil {
		t.Fatal(err)
	}
	if !CompareTree(src, v, dst, c) {
		t.Fatalf("copy differs: %s", mustSerialize(t, dst, c))
	}
	if got := mustSerialize(t, dst, c); got != swapInput {
		t.Errorf("copy serializes as %s", got)
	}

	// The copy shares nothing with its source.
	n, _ := src.NewInt(7)
	if err = src.SetKeyValue(src.GetArrayValue(src.GetKeyValue(v, "a"), 3), n, "b"); err != nil {
		t.Fatal(err)
	}
	if got := mustSerialize(t, dst, c); got != swapInput {
		t.Errorf("copy changed with its source: %s", got)
	}

	same, err := CopyTree(src, src, v)
	if err != nil {
		t.Fatal(err)
	}
	if same == v || !src.Equal(same, v) {
		t.Error("copy within a document failed")
	}
}

func TestToNative(t *testing.T) {
	t.Parallel()

	d := newTestDoc()
	v := mustParse(t, d, `{"a":[1,2.5,0.1],"s":"x","t":true,"n":null,"big":123456789012345,"e":{},"pi":3.14159265}`)
	got, err := d.ToNative(v)
	if err != nil {
		t.Fatal(err)
	}
	expect := bson.D{
		{Key: "a", Value: bson.A{int32(1), 2.5, 0.1}},
		{Key: "s", Value: "x"},
		{Key: "t", Value: true},
		{Key: "n", Value: nil},
		{Key: "big", Value: int64(123456789012345)},
		{Key: "e", Value: bson.D{}},
		{Key: "pi", Value: 3.14159265},
	}
	if diff := cmp.Diff(expect, got); diff != "" {
		t.Errorf("ToNative mismatch (-want +got):\n%s", diff)
	}
}

func TestFromNative(t *testing.T) {
	t.Parallel()

	oid, err := primitive.ObjectIDFromHex("57e193d7a9cc81b4027498b5")
	if err != nil {
		t.Fatal(err)
	}
	dec, err := primitive.ParseDecimal128("1.25")
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		label  string
		input  interface{}
		output string
	}{
		{"map keys sorted", bson.M{"b": 1, "a": []interface{}{"x", 2.5, nil}}, `{"a":["x",2.5,null],"b":1}`},
		{"ordered doc", bson.D{{Key: "z", Value: int32(1)}, {Key: "y", Value: bson.A{true}}}, `{"z":1,"y":[true]}`},
		{"int64", int64(123456789012345), `123456789012345`},
		{"float32", float32(0.1), `0.1`},
		{"float64", 3.14159265, `3.14159265`},
		{"object id", oid, `{"$oid":"57e193d7a9cc81b4027498b5"}`},
		{"datetime", primitive.DateTime(1356351330501), `{"$date":1356351330501}`},
		{"decimal", dec, `{"$numberDecimal":"1.25"}`},
		{"timestamp", primitive.Timestamp{T: 42, I: 1}, `{"$timestamp":{"t":42,"i":1}}`},
		{"undefined", primitive.Undefined{}, `null`},
	}
	for _, c := range cases {
		c := c
		t.Run(c.label, func(t *testing.T) {
			t.Parallel()
			d := newTestDoc()
			v, err := d.FromNative(c.input)
			if err != nil {
				t.Fatal(err)
			}
			if got := mustSerialize(t, d, v); got != c.output {
				t.Errorf("expected %s, got %s", c.output, got)
			}
		})
	}

	d := newTestDoc()
	if _, err := d.FromNative(struct{}{}); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestNativeRoundTrip(t *testing.T) {
	t.Parallel()

	d := newTestDoc()
	v := mustParse(t, d, swapInput)
	x, err := d.ToNative(v)
	if err != nil {
		t.Fatal(err)
	}
	w, err := d.FromNative(x)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Equal(v, w) {
		t.Errorf("round trip gave %s", mustSerialize(t, d, w))
	}
}
