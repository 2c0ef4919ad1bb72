// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Offset is the position of a node relative to the start of its arena.  The
// zero Offset is never handed out by an arena and means "absent".
type Offset uint32

// Nil is the absent Offset.
const Nil Offset = 0

// arenaHeaderSize is the size of the pool header stored at the start of every
// arena: the next free offset followed by a magic word.
const arenaHeaderSize = 8

const arenaMagic = 0x4e534a42 // "BJSN"

// maxArenaBytes is the largest arena whose offsets fit in an Offset.
var maxArenaBytes uint64 = math.MaxUint32 &^ 3

// clampArena limits an arena size to maxArenaBytes.
func clampArena(n int) int {
	if n > 0 && uint64(n) > maxArenaBytes {
		return int(maxArenaBytes)
	}
	return n
}

// Arena is a bump allocator over one contiguous byte slice.  All node
// references inside an arena are offsets, so the slice may be reallocated or
// written out as a whole without invalidating the tree it holds.
//
// An Arena is not safe for concurrent use.
type Arena struct {
	buf      []byte
	max      int
	gen      uint64
	readOnly bool
}

// Mark is a checkpoint returned by Arena.Mark.
type Mark uint32

// NewArena returns an arena with size bytes of initial capacity.  The arena
// grows on demand up to max bytes; if max is not larger than size the arena
// has a fixed size.  Both are limited to 4 GiB, the span of an Offset.
func NewArena(size, max int) *Arena {
	size, max = clampArena(size), clampArena(max)
	if size < arenaHeaderSize+64 {
		size = arenaHeaderSize + 64
	}
	if max < size {
		max = size
	}
	a := &Arena{buf: make([]byte, size), max: max}
	a.putU32(4, arenaMagic)
	a.setNextFree(arenaHeaderSize)
	return a
}

// newArenaFrom wraps buf, which must start with an arena header, as an arena.
// A read-only arena rejects every allocation.
func newArenaFrom(buf []byte, readOnly bool) (*Arena, error) {
	if len(buf) < arenaHeaderSize {
		return nil, fmt.Errorf("arena too small: %d bytes", len(buf))
	}
	if binary.LittleEndian.Uint32(buf[4:8]) != arenaMagic {
		return nil, fmt.Errorf("bad arena magic %#x", binary.LittleEndian.Uint32(buf[4:8]))
	}
	next := int(binary.LittleEndian.Uint32(buf[0:4]))
	if next < arenaHeaderSize || next > len(buf) {
		return nil, fmt.Errorf("arena next free offset %d out of range", next)
	}
	return &Arena{buf: buf, max: len(buf), readOnly: readOnly}, nil
}

// Alloc reserves size bytes, rounded up to a multiple of 4, and returns the
// offset of the zeroed block.  It returns an error wrapping ErrOutOfMemory if
// the request does not fit and the arena cannot grow.  A failed allocation
// leaves the arena unchanged.
func (a *Arena) Alloc(size int) (Offset, error) {
	if a.readOnly {
		return Nil, ErrReadOnly
	}
	if size < 0 {
		return Nil, fmt.Errorf("negative allocation size %d", size)
	}
	size = (size + 3) &^ 3
	next := a.nextFree()
	if size > len(a.buf)-next && !a.grow(next+size) {
		return Nil, fmt.Errorf("%w: request of %d (used=%d free=%d)",
			ErrOutOfMemory, size, next, len(a.buf)-next)
	}
	block := a.buf[next : next+size]
	for i := range block {
		block[i] = 0
	}
	a.setNextFree(next + size)
	return Offset(next), nil
}

func (a *Arena) grow(need int) bool {
	if need > a.max {
		return false
	}
	n := len(a.buf) * 2
	for n < need {
		n *= 2
	}
	if n > a.max {
		n = a.max
	}
	buf := make([]byte, n)
	copy(buf, a.buf[:a.nextFree()])
	a.buf = buf
	return true
}

// Mark returns a checkpoint of the current allocation position.
func (a *Arena) Mark() Mark { return Mark(a.nextFree()) }

// Restore discards everything allocated since m was taken.
func (a *Arena) Restore(m Mark) {
	if a.readOnly || int(m) < arenaHeaderSize || int(m) > a.nextFree() {
		return
	}
	a.setNextFree(int(m))
}

// Reset discards every allocation and starts a new generation.
func (a *Arena) Reset() {
	if a.readOnly {
		return
	}
	a.setNextFree(arenaHeaderSize)
	a.gen++
}

// Generation counts calls to Reset.
func (a *Arena) Generation() uint64 { return a.gen }

// Used returns the number of bytes allocated, header included.
func (a *Arena) Used() int { return a.nextFree() }

// Free returns the bytes remaining before the arena must grow.
func (a *Arena) Free() int { return len(a.buf) - a.nextFree() }

// Size returns the current capacity of the arena.
func (a *Arena) Size() int { return len(a.buf) }

// ReadOnly reports whether the arena rejects allocations.
func (a *Arena) ReadOnly() bool { return a.readOnly }

// Bytes returns the allocated part of the arena.  The slice aliases the
// arena and is invalidated by the next allocation that grows it.
func (a *Arena) Bytes() []byte { return a.buf[:a.nextFree()] }

func (a *Arena) nextFree() int { return int(binary.LittleEndian.Uint32(a.buf[0:4])) }

func (a *Arena) setNextFree(n int) { binary.LittleEndian.PutUint32(a.buf[0:4], uint32(n)) }

func (a *Arena) valid(off Offset, size int) bool {
	return off != Nil && int(off) >= arenaHeaderSize && int(off)+size <= a.nextFree()
}

func (a *Arena) u32(off int) uint32 { return binary.LittleEndian.Uint32(a.buf[off : off+4]) }

func (a *Arena) putU32(off int, v uint32) { binary.LittleEndian.PutUint32(a.buf[off:off+4], v) }

func (a *Arena) u64(off int) uint64 { return binary.LittleEndian.Uint64(a.buf[off : off+8]) }

func (a *Arena) putU64(off int, v uint64) { binary.LittleEndian.PutUint64(a.buf[off:off+8], v) }
