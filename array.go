// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

// NewArray allocates an empty array.
func (d *Doc) NewArray() (Offset, error) { return d.NewVal(TypeArray) }

// FirstValue returns the first element of array arr, or Nil.
func (d *Doc) FirstValue(arr Offset) Offset {
	if d.Type(arr) != TypeArray {
		return Nil
	}
	return Offset(d.payload(arr))
}

func (d *Doc) firstVal(arr Offset) Offset { return Offset(d.payload(arr)) }

// link appends v after last in arr, or as the first element if last is Nil,
// and returns v.  It is used while building lists front to back.
func (d *Doc) link(arr, last, v Offset) Offset {
	if last == Nil {
		d.setPayload(arr, uint32(v))
	} else {
		d.setNext(last, v)
	}
	d.changed()
	return v
}

// elements returns the members of arr in order, cached until the next change
// to any list of d.
func (d *Doc) elements(arr Offset) []Offset {
	if vals, ok := d.index[arr]; ok {
		return vals
	}
	var vals []Offset
	for v := d.firstVal(arr); v != Nil; v = d.Next(v) {
		vals = append(vals, v)
	}
	if d.index == nil {
		d.index = make(map[Offset][]Offset)
	}
	d.index[arr] = vals
	return vals
}

// GetArraySize returns the number of elements of arr, not counting nulls if
// skipNulls is set.
func (d *Doc) GetArraySize(arr Offset, skipNulls bool) int {
	if d.Type(arr) != TypeArray {
		return 0
	}
	if !skipNulls {
		return len(d.elements(arr))
	}
	n := 0
	for v := d.firstVal(arr); v != Nil; v = d.Next(v) {
		if d.Type(v) != TypeNull {
			n++
		}
	}
	return n
}

// GetArrayValue returns element n of arr, or Nil.  A negative n counts from
// the end of the array.
func (d *Doc) GetArrayValue(arr Offset, n int) Offset {
	if d.Type(arr) != TypeArray {
		return Nil
	}
	vals := d.elements(arr)
	if n < 0 {
		n += len(vals)
	}
	if n < 0 || n >= len(vals) {
		return Nil
	}
	return vals[n]
}

// AddArrayValue links v into arr before element *x, or at the end if x is nil
// or past the end.  A Nil v adds a null.  The node v itself becomes a member,
// so it must not already belong to another list.
func (d *Doc) AddArrayValue(arr, v Offset, x *int) error {
	if d.Type(arr) != TypeArray {
		return typeError("array", d.Type(arr))
	}
	if err := d.writable(); err != nil {
		return err
	}
	if v == Nil {
		var err error
		if v, err = d.NewNull(); err != nil {
			return err
		}
	}
	var last Offset
	i := 0
	for e := d.firstVal(arr); e != Nil; e = d.Next(e) {
		if x != nil && i == *x {
			break
		}
		last = e
		i++
	}
	if last == Nil {
		d.setNext(v, d.firstVal(arr))
		d.setPayload(arr, uint32(v))
	} else {
		d.setNext(v, d.Next(last))
		d.setNext(last, v)
	}
	d.changed()
	return nil
}

// SetArrayValue overwrites element n of arr with a copy of v.  If the array is
// shorter it is first padded with nulls.
func (d *Doc) SetArrayValue(arr, v Offset, n int) error {
	if d.Type(arr) != TypeArray {
		return typeError("array", d.Type(arr))
	}
	if err := d.writable(); err != nil {
		return err
	}
	if n < 0 {
		n += d.GetArraySize(arr, false)
		if n < 0 {
			n = 0
		}
	}
	size := d.GetArraySize(arr, false)
	for i := size; i < n; i++ {
		if err := d.AddArrayValue(arr, Nil, nil); err != nil {
			return err
		}
	}
	if n < size {
		return d.SetValueVal(d.GetArrayValue(arr, n), v)
	}
	nv, err := d.NewNull()
	if err != nil {
		return err
	}
	if err = d.SetValueVal(nv, v); err != nil {
		return err
	}
	return d.AddArrayValue(arr, nv, nil)
}

// DeleteValue unlinks element n of arr and reports whether it existed.
func (d *Doc) DeleteValue(arr Offset, n int) (bool, error) {
	if d.Type(arr) != TypeArray {
		return false, typeError("array", d.Type(arr))
	}
	if err := d.writable(); err != nil {
		return false, err
	}
	if n < 0 {
		n += d.GetArraySize(arr, false)
	}
	var prev Offset
	i := 0
	for e := d.firstVal(arr); e != Nil; e = d.Next(e) {
		if i == n {
			if prev == Nil {
				d.setPayload(arr, uint32(d.Next(e)))
			} else {
				d.setNext(prev, d.Next(e))
			}
			d.changed()
			return true, nil
		}
		prev = e
		i++
	}
	return false, nil
}

// MergeArray appends copies of the elements of other to arr.  An empty arr
// adopts the element list of other.
func (d *Doc) MergeArray(arr, other Offset) error {
	if d.Type(arr) != TypeArray {
		return typeError("array", d.Type(arr))
	}
	if d.Type(other) != TypeArray {
		return typeError("array", d.Type(other))
	}
	if err := d.writable(); err != nil {
		return err
	}
	if d.firstVal(arr) == Nil {
		d.setPayload(arr, d.payload(other))
		d.changed()
		return nil
	}
	// collect first: other may be arr itself
	vals := append([]Offset(nil), d.elements(other)...)
	for _, v := range vals {
		dup, err := d.DupVal(v)
		if err != nil {
			return err
		}
		if err = d.AddArrayValue(arr, dup, nil); err != nil {
			return err
		}
	}
	return nil
}

// MergeValues merges v2 into v1, which must both be arrays or both objects.
func (d *Doc) MergeValues(v1, v2 Offset) error {
	v1, v2 = d.Deref(v1), d.Deref(v2)
	switch {
	case d.Type(v1) == TypeObject && d.Type(v2) == TypeObject:
		return d.MergeObject(v1, v2)
	case d.Type(v1) == TypeArray && d.Type(v2) == TypeArray:
		return d.MergeArray(v1, v2)
	}
	return typeError(d.Type(v1).String(), d.Type(v2))
}

// IsArrayNull reports whether arr is empty or holds only nulls.
func (d *Doc) IsArrayNull(arr Offset) bool {
	for v := d.FirstValue(arr); v != Nil; v = d.Next(v) {
		if d.Type(v) != TypeNull {
			return false
		}
	}
	return true
}

// IsValueNull reports whether v is null, or an array or object holding only
// nulls.
func (d *Doc) IsValueNull(v Offset) bool {
	v = d.Deref(v)
	switch d.Type(v) {
	case TypeArray:
		return d.IsArrayNull(v)
	case TypeObject:
		return d.IsObjectNull(v)
	case TypeString:
		return false
	}
	return d.IsNull(v)
}

// Size returns the number of members of an array or object, and 1 for any
// other value.
func (d *Doc) Size(v Offset, skipNulls bool) int {
	v = d.Deref(v)
	switch d.Type(v) {
	case TypeArray:
		return d.GetArraySize(v, skipNulls)
	case TypeObject:
		return d.GetObjectSize(v, skipNulls)
	case TypeUnknown:
		return 0
	}
	return 1
}
