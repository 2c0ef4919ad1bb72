// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

import "testing"

func TestEqual(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b  string
		equal bool
	}{
		{`{"a":1,"b":[1,2]}`, `{"b":[1,2],"a":1}`, true},
		{`[1,2]`, `[2,1]`, false},
		{`[1,2]`, `[1,2,3]`, false},
		{`{"a":1}`, `{"a":1,"b":null}`, false},
		{`{"a":1}`, `{"b":1}`, false},
		{`1`, `1.0`, true},
		{`1.5`, `1.50`, true},
		{`3.14159265`, `3.14159265`, true},
		{`123456789012345`, `123456789012345`, true},
		{`123456789012345`, `123456789012346`, false},
		{`1`, `"1"`, false},
		{`"abc"`, `"abc"`, true},
		{`"abc"`, `"ABC"`, false},
		{`true`, `true`, true},
		{`true`, `false`, false},
		{`null`, `null`, true},
		{`null`, `0`, false},
		{`[]`, `{}`, false},
		{`{"a":{"b":[{}]}}`, `{"a":{"b":[{}]}}`, true},
	}
	for _, c := range cases {
		d := newTestDoc()
		a, b := mustParse(t, d, c.a), mustParse(t, d, c.b)
		if got := d.Equal(a, b); got != c.equal {
			t.Errorf("Equal(%s, %s) = %v", c.a, c.b, got)
		}
		if got := d.Equal(b, a); got != c.equal {
			t.Errorf("Equal(%s, %s) = %v", c.b, c.a, got)
		}
	}
}

func TestCompareAcrossDocs(t *testing.T) {
	t.Parallel()

	d1, d2 := newTestDoc(), newTestDoc()
	// offsets differ between the two arenas
	mustParse(t, d2, `"padding"`)
	a := mustParse(t, d1, `{"k":[1,"two",{"x":null}]}`)
	b := mustParse(t, d2, `{"k":[1,"two",{"x":null}]}`)
	if !CompareTree(d1, a, d2, b) {
		t.Error("equal trees in different documents compared unequal")
	}
	if CompareTree(d1, a, d2, Nil) || !CompareTree(d1, Nil, d2, Nil) {
		t.Error("Nil handling")
	}
}

func TestCompareCaseInsensitive(t *testing.T) {
	t.Parallel()

	d := newTestDoc()
	a, _ := d.NewString("Hello", true)
	b, _ := d.NewString("hELLO", false)
	if !CompareValues(d, a, d, b) || !CompareValues(d, b, d, a) {
		t.Error("flagged string should compare case insensitively")
	}
	c, _ := d.NewString("hELLO", false)
	e, _ := d.NewString("Hello", false)
	if CompareValues(d, c, d, e) {
		t.Error("unflagged strings compared case insensitively")
	}
}

func TestCompareNumberWidths(t *testing.T) {
	t.Parallel()

	d := newTestDoc()
	i, _ := d.NewInt(5)
	big, _ := d.NewBigint(5)
	dbl, _ := d.NewDouble(5, 0)
	flt, _ := d.NewFloat(0.1, 1)
	dbl2, _ := d.NewDouble(0.1, 1)
	if !CompareValues(d, i, d, big) || !CompareValues(d, i, d, dbl) {
		t.Error("integers should equal same-valued numbers")
	}
	if !CompareValues(d, flt, d, dbl2) {
		t.Error("float should compare in single precision with a double")
	}
}
