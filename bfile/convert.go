// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bfile

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/xdg-go/bjson"
)

// Convert reads JSON values from r and writes each as one record to w.  The
// values may follow each other separated by white space, or be the elements
// of one array.  It returns the number of records written.
func Convert(w *Writer, r io.Reader, cfg bjson.Config) (int, error) {
	dec, err := bjson.NewDecoder(bufio.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, err
	}
	if cfg.MaxDepth > 0 {
		dec.MaxDepth(cfg.MaxDepth)
	}

	d := bjson.NewDoc(cfg)
	n := 0
	for {
		d.Reset()
		v, err := dec.Decode(d)
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err = w.Write(d, v); err != nil {
			return n, err
		}
		n++
	}
}

// FileToBlob converts the JSON file at in to a blob file at out, one record
// per value, and returns the number of records.
func FileToBlob(in, out string, cfg bjson.Config, codec Codec) (int, error) {
	f, err := os.Open(in)
	if err != nil {
		return 0, &bjson.IOError{Op: "open", Path: in, Err: err}
	}
	defer f.Close()

	w, err := Create(out, codec)
	if err != nil {
		return 0, err
	}
	n, err := Convert(w, f, cfg)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return n, err
}
