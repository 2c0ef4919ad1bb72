// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package bfile stores documents as files of relocatable blobs, one record
// per document, and reads them back through a read-only memory mapping.
//
// A file starts with an 8 byte header:
//
//	[0:4] magic "BJSF"
//	[4]   version
//	[5]   codec
//	[6:8] reserved
//
// followed by records of [length uint64][payload].  Without a codec the
// payload is the blob itself, so documents are read in place with no copy
// or decoding.
package bfile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xdg-go/bjson"
	"github.com/xdg-go/bjson/internal/mmap"
)

const (
	headerSize  = 8
	fileMagic   = "BJSF"
	fileVersion = 1
	lengthSize  = 8
)

// ErrBadFile is wrapped by errors describing a malformed blob file.
var ErrBadFile = errors.New("bad blob file")

// Writer appends documents to a blob file.
type Writer struct {
	w     *bufio.Writer
	c     io.Closer
	path  string
	codec Codec
	n     int
}

// NewWriter writes a file header for codec to w and returns a writer for
// the records that follow.
func NewWriter(w io.Writer, codec Codec) (*Writer, error) {
	if codec > CodecZstd {
		return nil, fmt.Errorf("unknown codec %d", uint8(codec))
	}
	bw := bufio.NewWriter(w)
	var hdr [headerSize]byte
	copy(hdr[:4], fileMagic)
	hdr[4] = fileVersion
	hdr[5] = byte(codec)
	if _, err := bw.Write(hdr[:]); err != nil {
		return nil, err
	}
	return &Writer{w: bw, codec: codec}, nil
}

// Create creates or truncates the file at path and returns a writer for it.
func Create(path string, codec Codec) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &bjson.IOError{Op: "create", Path: path, Err: err}
	}
	w, err := NewWriter(f, codec)
	if err != nil {
		f.Close()
		return nil, &bjson.IOError{Op: "write", Path: path, Err: err}
	}
	w.c = f
	w.path = path
	return w, nil
}

// Write appends value v of d as one record.
func (w *Writer) Write(d *bjson.Doc, v bjson.Offset) error {
	blob, err := d.Externalize(v)
	if err != nil {
		return err
	}
	return w.WriteBlob(blob)
}

// WriteBlob appends a blob made by Externalize as one record.
func (w *Writer) WriteBlob(blob []byte) error {
	rec, err := w.codec.pack(blob)
	if err != nil {
		return err
	}
	var n [lengthSize]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(rec)))
	if _, err = w.w.Write(n[:]); err == nil {
		_, err = w.w.Write(rec)
	}
	if err != nil {
		return w.ioError("write", err)
	}
	w.n++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int { return w.n }

// Close flushes buffered records, and closes the file if the writer was
// made by Create.
func (w *Writer) Close() error {
	err := w.w.Flush()
	if w.c != nil {
		if cerr := w.c.Close(); err == nil {
			err = cerr
		}
		w.c = nil
	}
	if err != nil {
		return w.ioError("close", err)
	}
	return nil
}

func (w *Writer) ioError(op string, err error) error {
	if w.path == "" {
		return err
	}
	return &bjson.IOError{Op: op, Path: w.path, Err: err}
}

// File is a blob file mapped into memory.
type File struct {
	m       *mmap.Mapping
	path    string
	codec   Codec
	cfg     bjson.Config
	records [][2]int
}

// Open maps the blob file at path and indexes its records.  Documents read
// from it get cfg.
func Open(path string, cfg bjson.Config) (*File, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, &bjson.IOError{Op: "map", Path: path, Err: err}
	}
	f := &File{m: m, path: path, cfg: cfg}
	if err = f.index(); err != nil {
		m.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

func (f *File) index() error {
	data := f.m.Bytes()
	if len(data) < headerSize || string(data[:4]) != fileMagic {
		return fmt.Errorf("%w: missing header", ErrBadFile)
	}
	if data[4] != fileVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrBadFile, data[4])
	}
	f.codec = Codec(data[5])
	if f.codec > CodecZstd {
		return fmt.Errorf("%w: unknown codec %d", ErrBadFile, data[5])
	}
	for pos := headerSize; pos < len(data); {
		if len(data)-pos < lengthSize {
			return fmt.Errorf("%w: truncated record length at %d", ErrBadFile, pos)
		}
		n := binary.LittleEndian.Uint64(data[pos:])
		pos += lengthSize
		if n > uint64(len(data)-pos) {
			return fmt.Errorf("%w: record %d of %d bytes exceeds file", ErrBadFile, len(f.records), n)
		}
		f.records = append(f.records, [2]int{pos, pos + int(n)})
		pos += int(n)
	}
	return nil
}

// Len returns the number of records.
func (f *File) Len() int { return len(f.records) }

// Codec returns the codec of the records.
func (f *File) Codec() Codec { return f.codec }

// Blob returns the blob of record i.  For an uncompressed file the blob is
// part of the mapping and is valid until Close.
func (f *File) Blob(i int) ([]byte, error) {
	if i < 0 || i >= len(f.records) {
		return nil, fmt.Errorf("record %d out of range [0, %d)", i, len(f.records))
	}
	data := f.m.Bytes()
	if data == nil {
		return nil, mmap.ErrClosed
	}
	r := f.records[i]
	limit := f.cfg.MaxArenaSize
	if limit <= 0 {
		limit = bjson.DefaultConfig().MaxArenaSize
	}
	return f.codec.unpack(data[r[0]:r[1]], limit)
}

// Doc returns a read-only document over record i and its root.  Every
// mutation of it returns bjson.ErrReadOnly; copy it with bjson.CopyTree or
// Load to modify it.
func (f *File) Doc(i int) (*bjson.Doc, bjson.Offset, error) {
	blob, err := f.Blob(i)
	if err != nil {
		return nil, bjson.Nil, err
	}
	return bjson.View(blob, f.cfg)
}

// Load returns a writable copy of record i and its root.
func (f *File) Load(i int) (*bjson.Doc, bjson.Offset, error) {
	blob, err := f.Blob(i)
	if err != nil {
		return nil, bjson.Nil, err
	}
	return bjson.Internalize(blob, f.cfg)
}

// Close unmaps the file.  Documents returned by Doc must not be used after.
func (f *File) Close() error {
	if err := f.m.Close(); err != nil {
		return &bjson.IOError{Op: "unmap", Path: f.path, Err: err}
	}
	return nil
}
