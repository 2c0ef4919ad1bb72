// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

import "strings"

// Equal reports whether values v1 and v2 of d are deeply equal.
func (d *Doc) Equal(v1, v2 Offset) bool { return CompareTree(d, v1, d, v2) }

// CompareTree reports whether value v1 of d1 and value v2 of d2 are deeply
// equal.  Arrays must hold equal elements in the same order.  Objects must
// have the same number of members and every key of the first must map to an
// equal value in the second, in any order.  Scalars are compared with
// CompareValues.
func CompareTree(d1 *Doc, v1 Offset, d2 *Doc, v2 Offset) bool {
	v1, v2 = d1.Deref(v1), d2.Deref(v2)
	if v1 == Nil || v2 == Nil {
		return v1 == Nil && v2 == Nil
	}
	t1, t2 := d1.Type(v1), d2.Type(v2)
	switch t1 {
	case TypeArray:
		if t2 != TypeArray || d1.GetArraySize(v1, false) != d2.GetArraySize(v2, false) {
			return false
		}
		e2 := d2.firstVal(v2)
		for e1 := d1.firstVal(v1); e1 != Nil; e1 = d1.Next(e1) {
			if !CompareTree(d1, e1, d2, e2) {
				return false
			}
			e2 = d2.Next(e2)
		}
		return true
	case TypeObject:
		if t2 != TypeObject || d1.GetObjectSize(v1, false) != d2.GetObjectSize(v2, false) {
			return false
		}
		for p := d1.firstPair(v1); p != Nil; p = d1.nextPair(p) {
			if !CompareTree(d1, d1.PairValue(p), d2, d2.GetKeyValue(v2, d1.PairKey(p))) {
				return false
			}
		}
		return true
	}
	return CompareValues(d1, v1, d2, v2)
}

// CompareValues reports whether scalars v1 of d1 and v2 of d2 are equal.
// Strings compare case insensitively if either is flagged so.  Integers of
// both widths compare with each other, as do numbers of any width once one of
// them is a float.
func CompareValues(d1 *Doc, v1 Offset, d2 *Doc, v2 Offset) bool {
	v1, v2 = d1.Deref(v1), d2.Deref(v2)
	if v1 == Nil || v2 == Nil {
		return v1 == Nil && v2 == Nil
	}
	t1, t2 := d1.Type(v1), d2.Type(v2)
	switch {
	case t1 == TypeArray || t1 == TypeObject:
		return t1 == t2 && CompareTree(d1, v1, d2, v2)
	case t1 == TypeString:
		if t2 != TypeString {
			return false
		}
		s1, s2 := d1.strBytes(Offset(d1.payload(v1))), d2.strBytes(Offset(d2.payload(v2)))
		if d1.Prec(v1) != 0 || d2.Prec(v2) != 0 {
			return strings.EqualFold(string(s1), string(s2))
		}
		return string(s1) == string(s2)
	case isInteger(t1) && isInteger(t2):
		return d1.GetBigint(v1) == d2.GetBigint(v2)
	case t1.IsNumeric() && t2.IsNumeric():
		if t1 == TypeFloat || t2 == TypeFloat {
			return float32(d1.GetDouble(v1)) == float32(d2.GetDouble(v2))
		}
		return d1.GetDouble(v1) == d2.GetDouble(v2)
	case t1 == TypeBool:
		return t2 == TypeBool && d1.Bool(v1) == d2.Bool(v2)
	case t1 == TypeNull:
		return t2 == TypeNull
	}
	return false
}

func isInteger(t Type) bool { return t == TypeInt || t == TypeBigint }
