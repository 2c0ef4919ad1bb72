// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Blob layout:
//
//	[0:4]   magic "BJSB"
//	[4:6]   version
//	[6]     pretty style of the source document
//	[7]     reserved
//	[8:12]  root offset
//	[12:16] arena length
//	[16:]   arena bytes, header included
const (
	blobHeaderSize = 16
	blobMagic      = 0x42534a42 // "BJSB"
	blobVersion    = 1
)

// ErrBadBlob is wrapped by errors describing a malformed blob.
var ErrBadBlob = errors.New("bad blob")

// Externalize returns value v as a relocatable blob: a compact copy of the
// tree in an arena of its own, preceded by a small header.  Every reference
// in the blob is an offset, so it may be written out, memory mapped or sent
// elsewhere as is.
func (d *Doc) Externalize(v Offset) ([]byte, error) {
	if d.Deref(v) == Nil {
		return nil, errors.New("cannot externalize an absent value")
	}
	// Shared subtrees are copied once per reference, so the copy may
	// outgrow the source arena.
	cfg := d.cfg
	cfg.ArenaSize = d.a.Used()
	if cfg.MaxArenaSize < cfg.ArenaSize {
		cfg.MaxArenaSize = cfg.ArenaSize
	}
	tmp := NewDoc(cfg)
	root, err := CopyTree(tmp, d, v)
	if err != nil {
		return nil, err
	}
	body := tmp.a.Bytes()
	blob := make([]byte, blobHeaderSize+len(body))
	binary.LittleEndian.PutUint32(blob[0:4], blobMagic)
	binary.LittleEndian.PutUint16(blob[4:6], blobVersion)
	blob[6] = byte(d.pretty)
	binary.LittleEndian.PutUint32(blob[8:12], uint32(root))
	binary.LittleEndian.PutUint32(blob[12:16], uint32(len(body)))
	copy(blob[blobHeaderSize:], body)
	return blob, nil
}

// Internalize returns a new writable document holding a copy of blob, and the
// offset of its root.  The blob is validated first, so a corrupt blob yields
// an error rather than a tree with dangling offsets.
func Internalize(blob []byte, cfg Config) (*Doc, Offset, error) {
	body, root, pretty, err := splitBlob(blob)
	if err != nil {
		return nil, Nil, err
	}
	cfg = cfg.withDefaults()
	size := len(body)
	if size < cfg.ArenaSize {
		size = cfg.ArenaSize
	}
	buf := make([]byte, size)
	copy(buf, body)
	a, err := newArenaFrom(buf, false)
	if err != nil {
		return nil, Nil, fmt.Errorf("%w: %v", ErrBadBlob, err)
	}
	if cfg.MaxArenaSize > a.max {
		a.max = cfg.MaxArenaSize
	}
	d := &Doc{a: a, cfg: cfg, pretty: pretty}
	if err = d.validate(root); err != nil {
		return nil, Nil, err
	}
	return d, root, nil
}

// View returns a read-only document over blob without copying it, for blobs
// read from memory mapped files.  Every mutation of the document returns
// ErrReadOnly.  blob must not change while the document is in use.
func View(blob []byte, cfg Config) (*Doc, Offset, error) {
	body, root, pretty, err := splitBlob(blob)
	if err != nil {
		return nil, Nil, err
	}
	a, err := newArenaFrom(body, true)
	if err != nil {
		return nil, Nil, fmt.Errorf("%w: %v", ErrBadBlob, err)
	}
	d := &Doc{a: a, cfg: cfg.withDefaults(), pretty: pretty}
	if err = d.validate(root); err != nil {
		return nil, Nil, err
	}
	return d, root, nil
}

func splitBlob(blob []byte) ([]byte, Offset, int, error) {
	if len(blob) < blobHeaderSize {
		return nil, Nil, 0, fmt.Errorf("%w: %d bytes is shorter than the header", ErrBadBlob, len(blob))
	}
	if m := binary.LittleEndian.Uint32(blob[0:4]); m != blobMagic {
		return nil, Nil, 0, fmt.Errorf("%w: magic %#x", ErrBadBlob, m)
	}
	if v := binary.LittleEndian.Uint16(blob[4:6]); v != blobVersion {
		return nil, Nil, 0, fmt.Errorf("%w: unsupported version %d", ErrBadBlob, v)
	}
	root := Offset(binary.LittleEndian.Uint32(blob[8:12]))
	n := int(binary.LittleEndian.Uint32(blob[12:16]))
	if n > len(blob)-blobHeaderSize {
		return nil, Nil, 0, fmt.Errorf("%w: arena length %d exceeds blob", ErrBadBlob, n)
	}
	return blob[blobHeaderSize : blobHeaderSize+n], root, int(blob[6]), nil
}

// validate checks that every offset reachable from root lies inside the
// allocated part of the arena and every node has a known type.
func (d *Doc) validate(root Offset) error {
	budget := d.a.nextFree() / 4
	return d.validateNode(root, 0, &budget)
}

func (d *Doc) validateNode(v Offset, depth int, budget *int) error {
	if *budget--; *budget < 0 {
		return fmt.Errorf("%w: node list cycle", ErrBadBlob)
	}
	if depth > d.cfg.MaxDepth {
		return fmt.Errorf("%w: nesting deeper than %d", ErrBadBlob, d.cfg.MaxDepth)
	}
	if !d.a.valid(v, valSize) {
		return fmt.Errorf("%w: value offset %d out of range", ErrBadBlob, v)
	}
	switch t := d.Type(v); t {
	case TypeNull, TypeBool, TypeInt, TypeFloat:
	case TypeBigint, TypeDouble:
		if !d.a.valid(Offset(d.payload(v)), 8) {
			return fmt.Errorf("%w: %s payload offset %d out of range", ErrBadBlob, t, d.payload(v))
		}
	case TypeString:
		return d.validateStr(Offset(d.payload(v)))
	case TypeJVal:
		return d.validateNode(Offset(d.payload(v)), depth+1, budget)
	case TypeArray:
		for e := d.firstVal(v); e != Nil; e = d.Next(e) {
			if err := d.validateNode(e, depth+1, budget); err != nil {
				return err
			}
		}
	case TypeObject:
		for p := d.firstPair(v); p != Nil; p = d.nextPair(p) {
			if !d.a.valid(p, pairSize) {
				return fmt.Errorf("%w: pair offset %d out of range", ErrBadBlob, p)
			}
			if err := d.validateStr(d.pairKey(p)); err != nil {
				return err
			}
			if err := d.validateNode(d.PairValue(p), depth+1, budget); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unknown node type %d at %d", ErrBadBlob, t, v)
	}
	return nil
}

func (d *Doc) validateStr(p Offset) error {
	if !d.a.valid(p, 4) || !d.a.valid(p, 4+int(d.a.u32(int(p)))+1) {
		return fmt.Errorf("%w: string offset %d out of range", ErrBadBlob, p)
	}
	return nil
}
