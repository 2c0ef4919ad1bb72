// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

import (
	"encoding/binary"
	"errors"
	"strconv"
	"strings"
	"testing"
)

func TestBlobRoundTrip(t *testing.T) {
	t.Parallel()

	d := newTestDoc()
	// garbage before the value is not carried into the blob
	mustParse(t, d, `["unrelated","values",1,2,3]`)
	v := mustParse(t, d, swapInput)

	blob, err := d.Externalize(v)
	if err != nil {
		t.Fatal(err)
	}
	if len(blob) >= blobHeaderSize+d.Arena().Used() {
		t.Errorf("blob of %d bytes is not compacted", len(blob))
	}

	in, root, err := Internalize(blob, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if !CompareTree(d, v, in, root) {
		t.Fatalf("internalized tree differs: %s", mustSerialize(t, in, root))
	}
	// Internalized documents are writable.
	n, _ := in.NewInt(1)
	if err := in.SetKeyValue(root, n, "new"); err != nil {
		t.Fatal(err)
	}

	ro, root, err := View(blob, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if !ro.Arena().ReadOnly() {
		t.Error("view is writable")
	}
	if got := mustSerialize(t, ro, root); got != swapInput {
		t.Errorf("view serializes as %s", got)
	}
}

func TestBlobSharedSubtrees(t *testing.T) {
	t.Parallel()

	d := newTestDoc()
	elems := make([]string, 300)
	for i := range elems {
		elems[i] = strconv.Itoa(i)
	}
	arr := mustParse(t, d, "["+strings.Join(elems, ",")+"]")
	obj, err := d.NewObject()
	if err != nil {
		t.Fatal(err)
	}
	// every member shares the element list of arr
	for _, k := range []string{"a", "b", "c", "d"} {
		if err := d.SetKeyValue(obj, arr, k); err != nil {
			t.Fatal(err)
		}
	}
	want := mustSerialize(t, d, obj)

	blob, err := d.Externalize(obj)
	if err != nil {
		t.Fatalf("externalizing %d arena bytes: %v", d.Arena().Used(), err)
	}
	in, root, err := Internalize(blob, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if !CompareTree(d, obj, in, root) {
		t.Fatal("internalized tree differs")
	}
	if got := mustSerialize(t, in, root); got != want {
		t.Errorf("internalized tree serializes as %s", got)
	}
}

func TestBlobKeepsPretty(t *testing.T) {
	t.Parallel()

	d := newTestDoc()
	v := mustParse(t, d, "{\"a\":1},\n{\"b\":2}")
	blob, err := d.Externalize(v)
	if err != nil {
		t.Fatal(err)
	}
	in, _, err := Internalize(blob, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if in.Pretty() != 1 {
		t.Errorf("pretty %d, want 1", in.Pretty())
	}
}

func TestBadBlob(t *testing.T) {
	t.Parallel()

	d := newTestDoc()
	v := mustParse(t, d, `[1,"two"]`)
	good, err := d.Externalize(v)
	if err != nil {
		t.Fatal(err)
	}
	root := int(binary.LittleEndian.Uint32(good[8:12]))
	first := int(binary.LittleEndian.Uint32(good[blobHeaderSize+root:]))

	corrupt := func(f func(b []byte)) []byte {
		b := append([]byte(nil), good...)
		f(b)
		return b
	}
	cases := []struct {
		label string
		blob  []byte
	}{
		{"short", good[:10]},
		{"magic", corrupt(func(b []byte) { b[0] = 'X' })},
		{"version", corrupt(func(b []byte) { b[4] = 9 })},
		{"length", corrupt(func(b []byte) { binary.LittleEndian.PutUint32(b[12:16], 1<<20) })},
		{"root", corrupt(func(b []byte) { binary.LittleEndian.PutUint32(b[8:12], 1<<16) })},
		{"type", corrupt(func(b []byte) { b[blobHeaderSize+root+valType] = 99 })},
		{"cycle", corrupt(func(b []byte) {
			binary.LittleEndian.PutUint32(b[blobHeaderSize+first+valNext:], uint32(first))
		})},
		{"arena magic", corrupt(func(b []byte) { b[blobHeaderSize+4] = 0 })},
	}
	for _, c := range cases {
		if _, _, err := Internalize(c.blob, Config{}); !errors.Is(err, ErrBadBlob) {
			t.Errorf("%s: Internalize gave %v", c.label, err)
		}
		if _, _, err := View(c.blob, Config{}); !errors.Is(err, ErrBadBlob) {
			t.Errorf("%s: View gave %v", c.label, err)
		}
	}
}
