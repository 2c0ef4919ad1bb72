// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package scalar

import (
	"errors"
	"math"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input string
		kind  Kind
		text  string
	}{
		{"42", Int, "42"},
		{" -7 ", Int, "-7"},
		{"123456789012345", Bigint, "123456789012345"},
		{"3.25", Double, "3.25"},
		{"1.5e2", Double, "150"},
		{"2.125e1", Double, "21.25"},
		{"abc", String, "abc"},
		{"", String, ""},
	}
	for _, c := range cases {
		v := Parse(c.input)
		if v.Kind() != c.kind || v.String() != c.text {
			t.Errorf("Parse(%q) = %s %q, want %s %q", c.input, v.Kind(), v.String(), c.kind, c.text)
		}
	}
}

func TestConvert(t *testing.T) {
	t.Parallel()

	cases := []struct {
		label string
		input Value
		kind  Kind
		text  string
	}{
		{"double to int", NewDouble(3.75, 2), Int, "3"},
		{"int to double", NewInt(3), Double, "3"},
		{"string to bigint", NewString("12abc"), Bigint, "0"},
		{"numeric string to double", NewString("2.50"), Double, "2.50"},
		{"bool to string", NewBool(true), String, "true"},
		{"zero to bool", NewInt(0), Bool, "false"},
		{"string false to bool", NewString("FALSE"), Bool, "false"},
		{"null stays null", Value{}, Int, ""},
	}
	for _, c := range cases {
		got := c.input.Convert(c.kind)
		if c.input.IsNull() {
			if !got.IsNull() {
				t.Errorf("%s: got %s", c.label, got.Kind())
			}
			continue
		}
		if got.Kind() != c.kind || got.String() != c.text {
			t.Errorf("%s: got %s %q, want %s %q", c.label, got.Kind(), got.String(), c.kind, c.text)
		}
	}
}

func TestCompute(t *testing.T) {
	t.Parallel()

	cases := []struct {
		label    string
		op       Op
		start    Value
		operands []Value
		kind     Kind
		text     string
	}{
		{"add ints", OpAdd, NewInt(1), []Value{NewInt(2), NewInt(3)}, Int, "6"},
		{"add widens to bigint", OpAdd, NewInt(math.MaxInt32), []Value{NewInt(1)}, Bigint, "2147483648"},
		{"add widens to double", OpAdd, NewInt(1), []Value{NewDouble(2.5, 1)}, Double, "3.5"},
		{"add keeps widest precision", OpAdd, NewDouble(1.25, 2), []Value{NewDouble(1.5, 1)}, Double, "2.75"},
		{"add overflow", OpAdd, NewBigint(math.MaxInt64), []Value{NewInt(1)}, Double, "9223372036854775808"},
		{"mult", OpMult, NewInt(2), []Value{NewInt(3), NewInt(4)}, Int, "24"},
		{"mult overflow", OpMult, NewBigint(1 << 62), []Value{NewInt(4)}, Double, "18446744073709551616"},
		{"max", OpMax, NewInt(2), []Value{NewInt(9), NewInt(4)}, Int, "9"},
		{"min", OpMin, NewInt(2), []Value{NewDouble(-1.5, 1)}, Double, "-1.5"},
		{"max strings", OpMax, NewString("apple"), []Value{NewString("pear")}, String, "pear"},
		{"min strings ci", OpMin, NewStringCI("b"), []Value{NewString("A")}, String, "A"},
		{"div", OpDiv, NewInt(7), []Value{NewInt(2)}, Double, "3.50"},
		{"concat", OpCnc, NewString("a"), []Value{NewString(", "), NewInt(2)}, String, "a, 2"},
		{"null start takes operand", OpAdd, Value{}, []Value{NewInt(5)}, Int, "5"},
		{"null start concat", OpCnc, Value{}, []Value{NewInt(5)}, String, "5"},
		{"null operand skipped", OpAdd, NewInt(5), []Value{{}, NewInt(1)}, Int, "6"},
		{"numeric string", OpAdd, NewInt(1), []Value{NewString("2")}, Int, "3"},
		{"bool as int", OpAdd, NewInt(1), []Value{NewBool(true)}, Int, "2"},
	}
	for _, c := range cases {
		c := c
		t.Run(c.label, func(t *testing.T) {
			t.Parallel()
			v := c.start
			if err := v.Compute(c.op, c.operands...); err != nil {
				t.Fatal(err)
			}
			if v.Kind() != c.kind || v.String() != c.text {
				t.Errorf("got %s %q, want %s %q", v.Kind(), v.String(), c.kind, c.text)
			}
		})
	}
}

func TestComputeDivideByZero(t *testing.T) {
	t.Parallel()

	v := NewInt(3)
	err := v.Compute(OpDiv, NewInt(0))
	if !errors.Is(err, ErrDivideByZero) {
		t.Fatalf("expected division by zero, got %v", err)
	}
	if v.Kind() != Int || v.Bigint() != 3 {
		t.Errorf("value changed on error: %s %s", v.Kind(), v)
	}
}

func TestAccessors(t *testing.T) {
	t.Parallel()

	v := NewDouble(2.75, 2)
	if v.Bigint() != 2 || v.Float() != 2.75 || !v.Bool() || v.Prec() != 2 {
		t.Errorf("double accessors: %d %f %v %d", v.Bigint(), v.Float(), v.Bool(), v.Prec())
	}
	s := NewString("12")
	if s.Bigint() != 12 || s.Float() != 12 {
		t.Errorf("string accessors: %d %f", s.Bigint(), s.Float())
	}
	v.Set(NewString("x"))
	if v.Kind() != String {
		t.Errorf("Set gave %s", v.Kind())
	}
	v.Reset()
	if !v.IsNull() || v.String() != "" {
		t.Error("Reset did not give null")
	}
	if NewInteger(1<<40).Kind() != Bigint || NewInteger(7).Kind() != Int {
		t.Error("NewInteger picked the wrong width")
	}
}
