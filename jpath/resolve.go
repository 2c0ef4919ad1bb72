// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package jpath

import (
	"strconv"

	"github.com/xdg-go/bjson"
	"github.com/xdg-go/bjson/scalar"
)

// Resolve returns the value p selects in the tree rooted at root, or
// bjson.Nil if there is none.  Aggregates give a new value allocated in d,
// as does an expand, which gives an array of the expanded rows.
func (p *Path) Resolve(d *bjson.Doc, root bjson.Offset) (bjson.Offset, error) {
	return p.resolve(d, root, 0, nil)
}

// Rows returns one value per element of the array expanded by p, or the
// single value p selects when it does not expand.
func (p *Path) Rows(d *bjson.Doc, root bjson.Offset) ([]bjson.Offset, error) {
	rows := []bjson.Offset{}
	v, err := p.resolve(d, root, 0, &rows)
	if err != nil {
		return nil, err
	}
	if p.expand < 0 && v != bjson.Nil {
		rows = append(rows, v)
	}
	return rows, nil
}

// Value returns the scalar p selects.  Arrays and objects give their value
// text.  Unless target is scalar.Null the result is converted to target.
func (p *Path) Value(d *bjson.Doc, root bjson.Offset, target scalar.Kind) (scalar.Value, error) {
	v, err := p.Resolve(d, root)
	if err != nil {
		return scalar.Value{}, err
	}
	x := ToScalar(d, v)
	if target != scalar.Null {
		x = x.Convert(target)
	}
	return x, nil
}

func (p *Path) resolve(d *bjson.Doc, row bjson.Offset, i int, rows *[]bjson.Offset) (bjson.Offset, error) {
	val := row
	for i < len(p.nodes) {
		if row = d.Deref(row); row == bjson.Nil {
			return bjson.Nil, nil
		}
		n := &p.nodes[i]
		switch n.Op {
		case OpCount:
			size := 1
			if d.Type(row) == bjson.TypeArray {
				size = d.GetArraySize(row, false)
			}
			return d.NewInt(int32(size))
		case OpJSON:
			return row, nil
		}

		switch d.Type(row) {
		case bjson.TypeObject:
			if n.Op != OpKey {
				// an array was expected: use the object itself
				if n.Op == OpFirst || n.Op == OpAppend {
					val = row
					i++
					continue
				}
				return bjson.Nil, p.errorf("unexpected object")
			}
			val = d.GetKeyValue(row, n.Key)
		case bjson.TypeArray:
			switch n.Op {
			case OpKey:
				// unwrap an unexpected array as its first element
				row = d.GetArrayValue(row, 0)
				continue
			case OpIndex:
				val = d.GetArrayValue(row, n.Rank)
			case OpFirst, OpAppend:
				val = d.GetArrayValue(row, 0)
			case OpExpand:
				return p.expandArray(d, row, i, rows)
			default:
				x, err := p.calculate(d, row, i)
				if err != nil {
					return bjson.Nil, err
				}
				return FromScalar(d, x)
			}
		default:
			return bjson.Nil, nil
		}
		row = val
		i++
	}
	return val, nil
}

// expandArray resolves the rest of the path on every element of arr.  The
// results go to rows if given, else to a new array.
func (p *Path) expandArray(d *bjson.Doc, arr bjson.Offset, i int, rows *[]bjson.Offset) (bjson.Offset, error) {
	var out []bjson.Offset
	for e := d.FirstValue(arr); e != bjson.Nil; e = d.Next(e) {
		v := e
		if i+1 < len(p.nodes) {
			var err error
			if v, err = p.resolve(d, e, i+1, nil); err != nil {
				return bjson.Nil, err
			}
		}
		if v != bjson.Nil {
			out = append(out, v)
		}
	}
	if rows != nil {
		*rows = append(*rows, out...)
		return bjson.Nil, nil
	}
	res, err := d.NewArray()
	if err != nil {
		return bjson.Nil, err
	}
	for _, v := range out {
		c, err := d.DupVal(v)
		if err != nil {
			return bjson.Nil, err
		}
		if err = d.AddArrayValue(res, c, nil); err != nil {
			return bjson.Nil, err
		}
	}
	return res, nil
}

// calculate reduces arr with the aggregate of node i.  Null elements are
// skipped, except by a concatenation when the document has a JSON null text.
// Elements that are documents are first resolved with the rest of the path.
func (p *Path) calculate(d *bjson.Doc, arr bjson.Offset, i int) (scalar.Value, error) {
	n := &p.nodes[i]
	nullText := d.Config().JSONNull

	var acc scalar.Value
	nv := 0
	for e := d.FirstValue(arr); e != bjson.Nil; e = d.Next(e) {
		var x scalar.Value
		switch {
		case d.IsValueNull(e):
			if n.Op != OpConcat || nullText == "" {
				continue
			}
			x = scalar.NewString(nullText)
		case i+1 < len(p.nodes) && d.IsJSON(e):
			v, err := p.resolve(d, e, i+1, nil)
			if err != nil {
				return scalar.Value{}, err
			}
			x = ToScalar(d, v)
		default:
			x = ToScalar(d, e)
		}

		if x.IsNull() {
			// nested path found nothing
			continue
		}
		if nv++; nv == 1 {
			if n.Op == OpConcat {
				x = x.Convert(scalar.String)
			}
			acc = x
			continue
		}

		var err error
		switch n.Op {
		case OpConcat:
			if n.Sep != "" {
				err = acc.Compute(scalar.OpCnc, scalar.NewString(n.Sep), x)
			} else {
				err = acc.Compute(scalar.OpCnc, x)
			}
		case OpSum, OpAverage:
			err = acc.Compute(scalar.OpAdd, x)
		case OpProduct:
			err = acc.Compute(scalar.OpMult, x)
		case OpMax:
			err = acc.Compute(scalar.OpMax, x)
		case OpMin:
			err = acc.Compute(scalar.OpMin, x)
		}
		if err != nil {
			return scalar.Value{}, p.errorf("%s: %v", n.Op, err)
		}
	}

	if n.Op == OpAverage && nv > 0 {
		if err := acc.Compute(scalar.OpDiv, scalar.NewInt(int32(nv))); err != nil {
			return scalar.Value{}, p.errorf("%s: %v", n.Op, err)
		}
	}
	return acc, nil
}

// ToScalar returns value v of d as a scalar.  Floats keep their decimals,
// strings their case flag, and arrays and objects give their value text.
func ToScalar(d *bjson.Doc, v bjson.Offset) scalar.Value {
	v = d.Deref(v)
	switch d.Type(v) {
	case bjson.TypeString:
		s, _ := d.GetString(v)
		if d.Prec(v) != 0 {
			return scalar.NewStringCI(s)
		}
		return scalar.NewString(s)
	case bjson.TypeInt:
		return scalar.NewInt(d.GetInteger(v))
	case bjson.TypeBigint:
		return scalar.NewBigint(d.GetBigint(v))
	case bjson.TypeFloat:
		// read the decimal text back so widening adds no digits
		s, _ := d.GetString(v)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			f = d.GetDouble(v)
		}
		return scalar.NewDouble(f, d.Prec(v))
	case bjson.TypeDouble:
		return scalar.NewDouble(d.GetDouble(v), d.Prec(v))
	case bjson.TypeBool:
		return scalar.NewBool(d.Bool(v))
	case bjson.TypeArray, bjson.TypeObject:
		return scalar.NewString(d.GetValueText(v))
	}
	return scalar.Value{}
}

// FromScalar allocates a value of d holding x.
func FromScalar(d *bjson.Doc, x scalar.Value) (bjson.Offset, error) {
	switch x.Kind() {
	case scalar.Bool:
		return d.NewBool(x.Bool())
	case scalar.Int:
		return d.NewInt(int32(x.Bigint()))
	case scalar.Bigint:
		return d.NewBigint(x.Bigint())
	case scalar.Double:
		return d.NewFloat(x.Float(), x.Prec())
	case scalar.String:
		return d.NewString(x.String(), x.IsCI())
	}
	return d.NewNull()
}
