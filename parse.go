// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bjson

import (
	"errors"
	"fmt"
	"strconv"
)

// maxDecimals bounds the decimal count kept for a parsed number.
const maxDecimals = 32

// Object parser states.
const (
	objStart = iota
	objComma
	objKey
	objValue
)

// Array parser states.
const (
	arrExpectValue = iota
	arrComma
	arrValue
)

type parser struct {
	d        *Doc
	s        []byte
	i        int
	depth    int
	maxDepth int
	pretty   int
	pty      [3]bool
	comma    bool
	filler   int
	bare     bool
}

// Parse parses JSON text into d and returns its root value.  pretty gives the
// expected layout of the text: 0 for values separated by new lines, 1 for
// values separated by commas, 2 for a single value, or 3 to detect it.  When
// detecting, the inferred layout is available from Pretty afterwards.
//
// A text holding several top-level values is returned as an array of them.
// On error nothing allocated by the call is kept.
func (d *Doc) Parse(text []byte, pretty int) (Offset, error) {
	if pretty < 0 || pretty > 3 {
		pretty = 3
	}
	p := &parser{
		d:        d,
		s:        text,
		maxDepth: d.cfg.MaxDepth,
		pretty:   pretty,
		pty:      [3]bool{true, true, true},
	}
	mark := d.Mark()
	root, err := p.parseTop(mark)
	if err != nil {
		d.Restore(mark)
		return Nil, err
	}
	if pretty == 3 {
		d.pretty = p.pretty
	} else {
		d.pretty = pretty
	}
	return root, nil
}

// ParseString parses s, detecting its layout.
func (d *Doc) ParseString(s string) (Offset, error) { return d.Parse([]byte(s), 3) }

func (p *parser) errorf(format string, args ...interface{}) error {
	return newParseError(p.s, p.i, fmt.Sprintf(format, args...))
}

func (p *parser) parseTop(mark Mark) (Offset, error) {
	s := p.s
	if len(s) == 0 {
		return Nil, &ParseError{msg: "parse error: void JSON text"}
	}
	if len(s) > 1 && s[0] == '[' && (s[1] == '\n' || (s[1] == '\r' && len(s) > 2 && s[2] == '\n')) {
		p.pty[0] = false
	}

	var root Offset
	var err error
	for p.i < len(s) {
		switch ch := s[p.i]; ch {
		case ' ', '\t', '\n', '\r':
			p.i++
		case '(':
			p.filler++
			p.i++
		case ',':
			if root != Nil && (p.pretty == 1 || p.pretty == 3) {
				p.comma = true
				p.pty[0], p.pty[2] = false, false
				p.i++
				continue
			}
			return Nil, p.errorf("unexpected ',' (pretty=%d)", p.pretty)
		default:
			if ch == ')' && p.filler > 0 {
				p.filler--
				p.i++
				continue
			}
			if root != Nil {
				return p.parseAsArray(mark)
			}
			if root, err = p.d.NewNull(); err != nil {
				return Nil, err
			}
			if err = p.parseValue(root); err != nil {
				return Nil, err
			}
		}
	}
	if root == Nil {
		return Nil, p.errorf("invalid JSON text")
	}
	if p.pretty == 3 {
		for i, b := range p.pty {
			if b {
				p.pretty = i
				break
			}
		}
	}
	return root, nil
}

// parseAsArray starts over, reading the whole text as the elements of an
// implicit array.
func (p *parser) parseAsArray(mark Mark) (Offset, error) {
	var sep bool
	switch {
	case p.pty[0] && (p.pretty == 0 || p.pretty == 3):
		sep = false
	case p.comma && (p.pretty == 1 || p.pretty == 3):
		sep = true
	default:
		return Nil, p.errorf("more than one item in text")
	}
	p.d.Restore(mark)
	p.i, p.filler, p.bare = 0, 0, true

	arr, err := p.d.NewArray()
	if err != nil {
		return Nil, err
	}
	var last Offset
	level := arrExpectValue
	for p.i < len(p.s) {
		switch ch := p.s[p.i]; ch {
		case ' ', '\t', '\n', '\r':
			p.i++
		case '(':
			p.filler++
			p.i++
		case ',':
			if !sep || level != arrValue {
				return Nil, p.errorf("unexpected ','")
			}
			level = arrComma
			p.i++
		default:
			if ch == ')' && p.filler > 0 {
				p.filler--
				p.i++
				continue
			}
			if sep && level == arrValue {
				return Nil, p.errorf("unexpected value")
			}
			v, err := p.d.NewNull()
			if err != nil {
				return Nil, err
			}
			if err = p.parseValue(v); err != nil {
				return Nil, err
			}
			last = p.d.link(arr, last, v)
			level = arrValue
		}
	}
	if sep {
		p.pretty = 1
	} else {
		p.pretty = 0
	}
	return arr, nil
}

// skipWS advances past white space and filler, noting new lines.
func (p *parser) skipWS() {
	for p.i < len(p.s) {
		switch p.s[p.i] {
		case '\n':
			if !p.bare || p.depth > 0 {
				p.pty[0], p.pty[1] = false, false
			}
		case ' ', '\t', '\r':
		case '(':
			p.filler++
		default:
			return
		}
		p.i++
	}
}

// parseValue parses the value at the current position into node v.
func (p *parser) parseValue(v Offset) error {
	p.skipWS()
	if p.i >= len(p.s) {
		return p.errorf("unexpected EOF, expecting value")
	}
	d := p.d
	switch ch := p.s[p.i]; ch {
	case '[':
		p.i++
		return p.parseArray(v)
	case '{':
		p.i++
		return p.parseObject(v)
	case '"':
		p.i++
		str, err := p.parseString()
		if err != nil {
			return err
		}
		return d.SetString(v, str, false)
	case 't':
		if err := p.literal("true"); err != nil {
			return err
		}
		return d.SetBool(v, true)
	case 'f':
		if err := p.literal("false"); err != nil {
			return err
		}
		return d.SetBool(v, false)
	case 'n':
		if err := p.literal("null"); err != nil {
			return err
		}
		return d.SetNull(v)
	default:
		if ch == '-' || (ch >= '0' && ch <= '9') {
			return p.parseNumber(v)
		}
		return p.errorf("unexpected character '%c'", ch)
	}
}

func (p *parser) literal(lit string) error {
	if len(p.s)-p.i < len(lit) || string(p.s[p.i:p.i+len(lit)]) != lit {
		return p.errorf("expecting %s", lit)
	}
	p.i += len(lit)
	return nil
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > p.maxDepth {
		return p.errorf("maximum depth exceeded")
	}
	return nil
}

func (p *parser) parseArray(v Offset) error {
	if err := p.enter(); err != nil {
		return err
	}
	defer func() { p.depth-- }()

	d := p.d
	if err := d.SetValueVal(v, Nil); err != nil {
		return err
	}
	d.setType(v, TypeArray)

	var last Offset
	level := arrExpectValue
	for p.i < len(p.s) {
		switch ch := p.s[p.i]; ch {
		case ',':
			if level != arrValue {
				return p.errorf("unexpected ','")
			}
			level = arrComma
			p.i++
		case ']':
			if level == arrComma {
				return p.errorf("unexpected ',]'")
			}
			p.i++
			return nil
		case '\n':
			p.pty[0], p.pty[1] = false, false
			p.i++
		case ' ', '\t', '\r':
			p.i++
		default:
			if ch == ')' && p.filler > 0 {
				p.filler--
				p.i++
				continue
			}
			if level == arrValue {
				return p.errorf("unexpected value")
			}
			e, err := d.NewNull()
			if err != nil {
				return err
			}
			if err = p.parseValue(e); err != nil {
				return err
			}
			last = d.link(v, last, e)
			level = arrValue
		}
	}
	return p.errorf("unexpected EOF in array")
}

func (p *parser) parseObject(v Offset) error {
	if err := p.enter(); err != nil {
		return err
	}
	defer func() { p.depth-- }()

	d := p.d
	if err := d.SetValueVal(v, Nil); err != nil {
		return err
	}
	d.setType(v, TypeObject)

	var last Offset
	level := objStart
	for p.i < len(p.s) {
		switch ch := p.s[p.i]; ch {
		case '"':
			if level != objStart && level != objComma {
				return p.errorf("misplaced string")
			}
			p.i++
			key, err := p.parseString()
			if err != nil {
				return err
			}
			pair, err := d.NewPair(key)
			if err != nil {
				return err
			}
			if last == Nil {
				d.setPayload(v, uint32(pair))
			} else {
				d.setNext(d.PairValue(last), pair)
			}
			last = pair
			level = objKey
		case ':':
			if level != objKey {
				return p.errorf("unexpected ':'")
			}
			p.i++
			if err := p.parseValue(d.PairValue(last)); err != nil {
				return err
			}
			level = objValue
		case ',':
			if level != objValue {
				return p.errorf("unexpected ','")
			}
			level = objComma
			p.i++
		case '}':
			if level != objStart && level != objValue {
				return p.errorf("unexpected '}'")
			}
			p.i++
			return nil
		case '\n':
			p.pty[0], p.pty[1] = false, false
			p.i++
		case ' ', '\t', '\r':
			p.i++
		default:
			if ch == ')' && p.filler > 0 {
				p.filler--
				p.i++
				continue
			}
			return p.errorf("unexpected character '%c'", ch)
		}
	}
	return p.errorf("unexpected EOF in object")
}

// parseString unescapes a string whose opening quote was consumed.
func (p *parser) parseString() (string, error) {
	start := p.i
	s := p.s
	// fast path: no escapes
	for j := start; j < len(s); j++ {
		if s[j] == '"' {
			p.i = j + 1
			return string(s[start:j]), nil
		}
		if s[j] == '\\' {
			break
		}
	}

	out := make([]byte, 0, 32)
	for p.i < len(s) {
		ch := s[p.i]
		switch ch {
		case '"':
			p.i++
			return string(out), nil
		case '\\':
			p.i++
			if p.i >= len(s) {
				return "", p.errorf("unexpected EOF in string")
			}
			switch s[p.i] {
			case 't':
				out = append(out, '\t')
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case 'u':
				r, err := p.hex4(p.i + 1)
				if err != nil {
					return "", err
				}
				p.i += 4
				if r >= 0xD800 && r <= 0xDBFF {
					// a surrogate pair encodes a code point above 0xFFFF
					if p.i+6 < len(s) && s[p.i+1] == '\\' && s[p.i+2] == 'u' {
						if lo, err := p.hex4(p.i + 3); err == nil && lo >= 0xDC00 && lo <= 0xDFFF {
							p.i += 6
						}
					}
					out = append(out, '?')
				} else if r >= 0xDC00 && r <= 0xDFFF {
					out = append(out, '?')
				} else {
					out = appendUTF8(out, r)
				}
			default:
				out = append(out, s[p.i])
			}
			p.i++
		default:
			out = append(out, ch)
			p.i++
		}
	}
	return "", p.errorf("unexpected EOF in string")
}

func (p *parser) hex4(at int) (uint32, error) {
	if at+4 > len(p.s) {
		return 0, p.errorf("unexpected EOF in unicode escape")
	}
	n, err := strconv.ParseUint(string(p.s[at:at+4]), 16, 32)
	if err != nil {
		return 0, p.errorf("invalid unicode escape")
	}
	return uint32(n), nil
}

// appendUTF8 encodes a code point below 0x10000 in one to three bytes.
func appendUTF8(out []byte, r uint32) []byte {
	switch {
	case r < 0x80:
		return append(out, byte(r))
	case r < 0x800:
		return append(out, byte(0xC0|r>>6), byte(0x80|r&0x3F))
	case r < 0x10000:
		return append(out, byte(0xE0|r>>12), byte(0x80|(r>>6)&0x3F), byte(0x80|r&0x3F))
	}
	return append(out, '?')
}

func (p *parser) parseNumber(v Offset) error {
	s := p.s
	start := p.i
	var nd, expStart int
	var hasDot, hasE, expSign, foundDigit bool

LOOP:
	for ; p.i < len(s); p.i++ {
		switch ch := s[p.i]; ch {
		case '.':
			if !foundDigit || hasDot || hasE {
				return p.errorf("invalid number")
			}
			hasDot = true
		case 'e', 'E':
			if !foundDigit || hasE {
				return p.errorf("invalid number")
			}
			hasE = true
			foundDigit = false
			expStart = p.i + 1
		case '+':
			if !hasE || foundDigit || expSign {
				return p.errorf("invalid number")
			}
			expSign = true
		case '-':
			if foundDigit || (p.i > start && !hasE) || expSign {
				return p.errorf("invalid number")
			}
			expSign = hasE
		default:
			if ch < '0' || ch > '9' {
				break LOOP
			}
			if hasDot && !hasE {
				nd++
			}
			foundDigit = true
		}
	}
	if !foundDigit {
		return p.errorf("invalid number, no digit found")
	}
	text := string(s[start:p.i])

	if hasDot || hasE {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return p.errorf("invalid number: value out of range")
		}
		if hasE {
			exp, _ := strconv.Atoi(string(s[expStart:p.i]))
			nd -= exp
			if nd < 0 {
				nd = 0
			}
		}
		if nd > maxDecimals {
			nd = maxDecimals
		}
		return p.d.SetFloat(v, f, nd)
	}

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		if !errors.Is(err, strconv.ErrRange) {
			return p.errorf("invalid number")
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return p.errorf("invalid number: value out of range")
		}
		return p.d.setDouble(v, f, 0)
	}
	return p.d.SetBigint(v, n)
}
