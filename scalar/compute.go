// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package scalar

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strings"
)

// Op is an arithmetic or string operation applied by Compute.
type Op uint8

// Operations.
const (
	OpAdd Op = iota
	OpMult
	OpMax
	OpMin
	OpDiv
	OpCnc
)

var opNames = [...]string{"add", "mult", "max", "min", "div", "concat"}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// ErrDivideByZero is returned by Compute when dividing by zero.
var ErrDivideByZero = errors.New("division by zero")

// divPrec is the least number of decimals of a quotient.
const divPrec = 2

// Compute folds the operands into v with op, left to right.  Null operands
// are skipped and a null v takes the value of the first operand.  Numbers
// widen from int to bigint to double as wider operands or overflows are
// seen.  Concatenation gives a string, as do Max and Min when both sides
// are strings.  On error v is left unchanged.
func (v *Value) Compute(op Op, operands ...Value) error {
	r := *v
	for _, x := range operands {
		if x.kind == Null {
			continue
		}
		if r.kind == Null {
			if op == OpCnc {
				r = NewString(x.String())
			} else if x.kind == String && (op == OpMax || op == OpMin) {
				r = x
			} else {
				r = x.numeric()
			}
			continue
		}
		var err error
		if r, err = compute(op, r, x); err != nil {
			return err
		}
	}
	*v = r
	return nil
}

func compute(op Op, a, b Value) (Value, error) {
	switch op {
	case OpCnc:
		return Value{kind: String, s: a.String() + b.String(), ci: a.ci}, nil
	case OpMax, OpMin:
		if a.kind == String && b.kind == String {
			c := compareStrings(a.s, b.s, a.ci || b.ci)
			if (op == OpMax && c < 0) || (op == OpMin && c > 0) {
				return b, nil
			}
			return a, nil
		}
	}

	a, b = a.numeric(), b.numeric()
	if op == OpDiv {
		f := b.Float()
		if f == 0 {
			return Value{}, ErrDivideByZero
		}
		return NewDouble(a.Float()/f, maxInt(a.prec, b.prec, divPrec)), nil
	}
	if a.kind == Double || b.kind == Double {
		return computeDouble(op, a.Float(), b.Float(), maxInt(a.prec, b.prec))
	}

	x, y := a.i, b.i
	var n int64
	switch op {
	case OpAdd:
		n = x + y
		if (x >= 0) == (y >= 0) && (n >= 0) != (x >= 0) {
			return computeDouble(op, float64(x), float64(y), 0)
		}
	case OpMult:
		hi, lo := bits.Mul64(abs(x), abs(y))
		if hi != 0 || lo > math.MaxInt64 {
			return computeDouble(op, float64(x), float64(y), 0)
		}
		n = x * y
	case OpMax:
		n = x
		if y > x {
			n = y
		}
	case OpMin:
		n = x
		if y < x {
			n = y
		}
	default:
		return Value{}, fmt.Errorf("unsupported operation %s", op)
	}
	if a.kind == Bigint || b.kind == Bigint || !fitsInt32(n) {
		return NewBigint(n), nil
	}
	return NewInt(int32(n)), nil
}

func computeDouble(op Op, x, y float64, prec int) (Value, error) {
	var f float64
	switch op {
	case OpAdd:
		f = x + y
	case OpMult:
		f = x * y
	case OpMax:
		f = math.Max(x, y)
	case OpMin:
		f = math.Min(x, y)
	default:
		return Value{}, fmt.Errorf("unsupported operation %s", op)
	}
	return NewDouble(f, prec), nil
}

func compareStrings(a, b string, ci bool) int {
	if ci {
		a, b = strings.ToLower(a), strings.ToLower(b)
	}
	return strings.Compare(a, b)
}

func abs(n int64) uint64 {
	if n < 0 {
		return uint64(-n)
	}
	return uint64(n)
}

func maxInt(n int, more ...int) int {
	for _, m := range more {
		if m > n {
			n = m
		}
	}
	return n
}
