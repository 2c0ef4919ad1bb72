// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

// NewObject allocates an empty object.
func (d *Doc) NewObject() (Offset, error) { return d.NewVal(TypeObject) }

// NewPair allocates an object member with the given key and a null value.
func (d *Doc) NewPair(key string) (Offset, error) {
	k, err := d.newStr(key)
	if err != nil {
		return Nil, err
	}
	p, err := d.a.Alloc(pairSize)
	if err != nil {
		return Nil, err
	}
	d.a.putU32(int(p), uint32(k))
	d.setType(d.PairValue(p), TypeNull)
	return p, nil
}

// FirstPair returns the first member of object obj, or Nil.
func (d *Doc) FirstPair(obj Offset) Offset {
	if d.Type(obj) != TypeObject {
		return Nil
	}
	return Offset(d.payload(obj))
}

// NextPair returns the member following p, or Nil.
func (d *Doc) NextPair(p Offset) Offset { return d.Next(d.PairValue(p)) }

// PairValue returns the value embedded in member p.
func (d *Doc) PairValue(p Offset) Offset { return p + 4 }

// PairKey returns the key of member p.
func (d *Doc) PairKey(p Offset) string { return d.str(d.pairKey(p)) }

func (d *Doc) firstPair(obj Offset) Offset { return Offset(d.payload(obj)) }

func (d *Doc) nextPair(p Offset) Offset { return d.Next(p + 4) }

func (d *Doc) pairKey(p Offset) Offset { return Offset(d.a.u32(int(p))) }

func (d *Doc) keyIs(p Offset, key string) bool { return string(d.strBytes(d.pairKey(p))) == key }

// GetKeyValue returns the value stored under key in obj, or Nil.  With
// duplicate keys the first one wins.
func (d *Doc) GetKeyValue(obj Offset, key string) Offset {
	if d.Type(obj) != TypeObject {
		return Nil
	}
	for p := d.firstPair(obj); p != Nil; p = d.nextPair(p) {
		if d.keyIs(p, key) {
			return d.PairValue(p)
		}
	}
	return Nil
}

// SetKeyValue stores a copy of value v under key in obj, replacing the first
// member with that key or appending a new member.  A Nil v stores a null.
func (d *Doc) SetKeyValue(obj, v Offset, key string) error {
	if d.Type(obj) != TypeObject {
		return typeError("object", d.Type(obj))
	}
	if err := d.writable(); err != nil {
		return err
	}
	var last Offset
	for p := d.firstPair(obj); p != Nil; p = d.nextPair(p) {
		if d.keyIs(p, key) {
			return d.SetValueVal(d.PairValue(p), v)
		}
		last = p
	}
	p, err := d.NewPair(key)
	if err != nil {
		return err
	}
	if last == Nil {
		d.setPayload(obj, uint32(p))
	} else {
		d.setNext(d.PairValue(last), p)
	}
	return d.SetValueVal(d.PairValue(p), v)
}

// DeleteKey unlinks the first member of obj with the given key and reports
// whether one was found.
func (d *Doc) DeleteKey(obj Offset, key string) (bool, error) {
	if d.Type(obj) != TypeObject {
		return false, typeError("object", d.Type(obj))
	}
	if err := d.writable(); err != nil {
		return false, err
	}
	var prev Offset
	for p := d.firstPair(obj); p != Nil; p = d.nextPair(p) {
		if d.keyIs(p, key) {
			if prev == Nil {
				d.setPayload(obj, uint32(d.nextPair(p)))
			} else {
				d.setNext(d.PairValue(prev), d.nextPair(p))
			}
			d.changed()
			return true, nil
		}
		prev = p
	}
	return false, nil
}

// MergeObject sets every member of other into obj, so the values of other
// replace those of obj on key collision.  An empty obj adopts the member list
// of other.
func (d *Doc) MergeObject(obj, other Offset) error {
	if d.Type(obj) != TypeObject {
		return typeError("object", d.Type(obj))
	}
	if d.Type(other) != TypeObject {
		return typeError("object", d.Type(other))
	}
	if err := d.writable(); err != nil {
		return err
	}
	if d.firstPair(obj) == Nil {
		d.setPayload(obj, d.payload(other))
		return nil
	}
	for p := d.firstPair(other); p != Nil; p = d.nextPair(p) {
		if err := d.SetKeyValue(obj, d.PairValue(p), d.PairKey(p)); err != nil {
			return err
		}
	}
	return nil
}

// IsObjectNull reports whether obj is empty or holds only nulls.
func (d *Doc) IsObjectNull(obj Offset) bool {
	for p := d.FirstPair(obj); p != Nil; p = d.nextPair(p) {
		if !d.IsNull(d.PairValue(p)) {
			return false
		}
	}
	return true
}

// GetObjectSize returns the number of members of obj, not counting null
// values if skipNulls is set.
func (d *Doc) GetObjectSize(obj Offset, skipNulls bool) int {
	n := 0
	for p := d.FirstPair(obj); p != Nil; p = d.nextPair(p) {
		if !skipNulls || !d.IsNull(d.PairValue(p)) {
			n++
		}
	}
	return n
}

// GetKeyList returns a new array holding the keys of obj as strings.
func (d *Doc) GetKeyList(obj Offset) (Offset, error) {
	if d.Type(obj) != TypeObject {
		return Nil, typeError("object", d.Type(obj))
	}
	arr, err := d.NewArray()
	if err != nil {
		return Nil, err
	}
	var last Offset
	for p := d.firstPair(obj); p != Nil; p = d.nextPair(p) {
		k, err := d.NewString(d.PairKey(p), false)
		if err != nil {
			return Nil, err
		}
		last = d.link(arr, last, k)
	}
	return arr, nil
}

// GetObjectValList returns a new array holding copies of the values of obj.
func (d *Doc) GetObjectValList(obj Offset) (Offset, error) {
	if d.Type(obj) != TypeObject {
		return Nil, typeError("object", d.Type(obj))
	}
	arr, err := d.NewArray()
	if err != nil {
		return Nil, err
	}
	var last Offset
	for p := d.firstPair(obj); p != Nil; p = d.nextPair(p) {
		v, err := d.DupVal(d.PairValue(p))
		if err != nil {
			return Nil, err
		}
		last = d.link(arr, last, v)
	}
	return arr, nil
}
