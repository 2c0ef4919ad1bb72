// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory is returned when an arena cannot satisfy an allocation.
	ErrOutOfMemory = errors.New("not enough memory")
	// ErrTypeMismatch is returned when an operation receives a node of the
	// wrong type, such as merging an array into an object.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrReadOnly is returned when modifying a document whose arena is
	// read-only, such as one mapped from a file.
	ErrReadOnly = errors.New("read-only document")
)

// ParseError records JSON parsing errors.  It includes a small excerpt of the
// input text at the point of error.
type ParseError struct {
	Offset int
	msg    string
}

func (pe *ParseError) Error() string { return pe.msg }

// nearWidth is the size of the input excerpt quoted in parse errors.
const nearWidth = 24

func newParseError(s []byte, i int, msg string) *ParseError {
	if i > len(s) {
		i = len(s)
	}
	end := i + nearWidth
	if end > len(s) {
		end = len(s)
	}
	return &ParseError{
		Offset: i,
		msg:    fmt.Sprintf("parse error: %s near '%s' at offset %d", msg, s[i:end], i),
	}
}

// IOError records a failed file operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string { return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err) }

func (e *IOError) Unwrap() error { return e.Err }

func typeError(what string, got Type) error {
	return fmt.Errorf("%w: %s expected, got %s", ErrTypeMismatch, what, got)
}
