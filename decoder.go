// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16BEBOM = []byte{0xFE, 0xFF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf32BEBOM = []byte{0x00, 0x00, 0xFE, 0xFF}
	utf32LEBOM = []byte{0xFF, 0xFE, 0x00, 0x00}
)

// Decoder reads successive JSON values from a buffered input stream and
// parses each into a document.  Values may be separated by optional white
// space or may be the elements of one well-formed JSON array.
type Decoder struct {
	arrayFinished bool
	arrayStarted  bool
	json          *bufio.Reader
	maxDepth      int
	buf           []byte
}

// NewDecoder returns a new decoder.  If a UTF-8 byte-order-mark (BOM) exists,
// it will be stripped.  Because only UTF-8 is supported, other BOMs are errors.
// This function consumes leading white space and checks if the first character
// is '['.  If so, the input is expected to be a single JSON array and the
// stream will consist of its elements.  Any read error (including io.EOF) will
// be returned.
func NewDecoder(json *bufio.Reader) (*Decoder, error) {
	err := handleBOM(json)
	if err != nil {
		return nil, err
	}

	d := &Decoder{
		json:     json,
		maxDepth: DefaultConfig().MaxDepth,
	}

	ch, err := d.readAfterWS()
	if err != nil {
		// Before a value is read, EOF is valid.
		if err == io.EOF {
			return nil, err
		}
		return nil, newReadError(err)
	}

	switch ch {
	case '[':
		d.arrayStarted = true
	default:
		err = d.json.UnreadByte()
		if err != nil {
			return nil, err
		}
	}

	return d, nil
}

// MaxDepth sets the maximum allowed nesting depth of a value.  The default is
// 200.
func (d *Decoder) MaxDepth(n int) {
	d.maxDepth = n
}

// Decode parses the next value of the stream into doc and returns its root.
// It returns io.EOF if no values remain in the stream.
func (d *Decoder) Decode(doc *Doc) (Offset, error) {
	if d.arrayFinished {
		return Nil, io.EOF
	}

	ch, err := d.readAfterWS()
	if err != nil {
		// Before reading a new value, EOF is valid.
		if err == io.EOF {
			return Nil, err
		}
		return Nil, newReadError(err)
	}

	switch ch {
	case ']':
		if d.arrayStarted {
			d.arrayFinished = true
			return Nil, io.EOF
		}
		return Nil, d.parseError(ch, "unexpected end of array")
	case ',':
		return Nil, d.parseError(ch, "unexpected value-separator")
	}
	if err = d.json.UnreadByte(); err != nil {
		return Nil, err
	}

	d.buf, err = d.scanValue(d.buf[:0])
	if err != nil {
		return Nil, err
	}

	// In array mode, consume the separator or the closing bracket.
	if d.arrayStarted {
		ch, err := d.readAfterWS()
		if err != nil {
			return Nil, newReadError(err)
		}

		switch ch {
		case ',':
			// nothing
		case ']':
			d.arrayFinished = true
		default:
			return Nil, d.parseError(ch, "expecting value-separator or end of array")
		}
	}

	saved := doc.cfg.MaxDepth
	doc.cfg.MaxDepth = d.maxDepth
	defer func() { doc.cfg.MaxDepth = saved }()
	return doc.Parse(d.buf, 2)
}

// scanValue appends the bytes of the next complete value to buf.  It tracks
// strings and nesting only; the grammar is checked by Parse.
func (d *Decoder) scanValue(buf []byte) ([]byte, error) {
	depth := 0
	inString := false
	escaped := false
	for {
		ch, err := d.json.ReadByte()
		if err != nil {
			if err == io.EOF && depth == 0 && !inString && len(buf) > 0 {
				return buf, nil
			}
			return nil, newReadError(err)
		}
		if inString {
			buf = append(buf, ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
				if depth == 0 {
					return buf, nil
				}
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
			if depth > d.maxDepth {
				return nil, d.parseError(ch, "maximum depth exceeded")
			}
		case '}', ']':
			if depth == 0 {
				// end of a top-level scalar inside an array
				return buf, d.json.UnreadByte()
			}
			depth--
			if depth == 0 {
				return append(buf, ch), nil
			}
		case ' ', '\t', '\n', '\r', ',':
			if depth == 0 {
				return buf, d.json.UnreadByte()
			}
		}
		buf = append(buf, ch)
	}
}

func (d *Decoder) readAfterWS() (byte, error) {
	var ch byte
	var err error
	for {
		ch, err = d.json.ReadByte()
		if err != nil {
			return 0, err
		}
		switch ch {
		case ' ', '\t', '\n', '\r':
		default:
			return ch, nil
		}
	}
}

func (d *Decoder) parseError(ch byte, msg string) error {
	after, _ := d.json.Peek(20)
	return fmt.Errorf("parse error: %s on char '%s', followed by '%s...'", msg, string(ch), after)
}

// Unmarshal parses the single JSON value in into doc and returns its root.
// Like Decoder, it returns io.EOF if the input is empty.
func Unmarshal(doc *Doc, in []byte) (Offset, error) {
	dec, err := NewDecoder(bufio.NewReader(bytes.NewReader(in)))
	if err != nil {
		return Nil, err
	}
	return dec.Decode(doc)
}

// detect/discard/error on BOM. Inability to peek is a NOP and
// will be handled by the normal parser
func handleBOM(r *bufio.Reader) error {
	// Peek 2 byte BOMs
	preamble, err := r.Peek(2)
	if err != nil {
		return nil
	}
	if bytes.Equal(preamble, utf16BEBOM) || bytes.Equal(preamble, utf16LEBOM) {
		return fmt.Errorf("error: detected unsupported UTF-16 BOM")
	}

	// Peek 3 byte BOM; UTF-8 is supported, so discard them if found.
	preamble, err = r.Peek(3)
	if err != nil {
		return nil
	}
	if bytes.Equal(preamble, utf8BOM) {
		_, _ = r.Discard(3)
	}

	// Peek 4 byte BOMs
	preamble, err = r.Peek(4)
	if err != nil {
		return nil
	}
	if bytes.Equal(preamble, utf32BEBOM) || bytes.Equal(preamble, utf32LEBOM) {
		return fmt.Errorf("error: detected unsupported UTF-32 BOM")
	}

	return nil
}

// newReadError is used when we expect to be able to read and fail.  If the
// error is EOF, we convert it to UnexpectedEOF because we aren't between
// top-level values.
func newReadError(err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("error reading json: %w", err)
}
