// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bfile

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xdg-go/bjson"
)

var testDocs = []string{
	`{"a":1,"b":[true,null,"x"]}`,
	`[1.5,-2,{"c":"déjà vu"}]`,
	`"just a string"`,
	`{"repeat":["aaaaaaaaaaaaaaaa","aaaaaaaaaaaaaaaa","aaaaaaaaaaaaaaaa","aaaaaaaaaaaaaaaa"]}`,
}

func testConfig() bjson.Config {
	return bjson.Config{ArenaSize: 4096}
}

func writeDocs(t *testing.T, codec Codec) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docs.bjs")
	w, err := Create(path, codec)
	require.NoError(t, err)
	for _, s := range testDocs {
		d := bjson.NewDoc(testConfig())
		v, err := d.ParseString(s)
		require.NoError(t, err)
		require.NoError(t, w.Write(d, v))
	}
	assert.Equal(t, len(testDocs), w.Count())
	require.NoError(t, w.Close())
	return path
}

func serialize(t *testing.T, d *bjson.Doc, v bjson.Offset) string {
	t.Helper()
	s, err := d.SerializeString(v, 0)
	require.NoError(t, err)
	return s
}

func TestRoundTrip(t *testing.T) {
	for _, codec := range []Codec{CodecNone, CodecLZ4, CodecZstd} {
		codec := codec
		t.Run(codec.String(), func(t *testing.T) {
			t.Parallel()
			f, err := Open(writeDocs(t, codec), testConfig())
			require.NoError(t, err)
			defer f.Close()

			assert.Equal(t, codec, f.Codec())
			require.Equal(t, len(testDocs), f.Len())
			for i, want := range testDocs {
				d, v, err := f.Doc(i)
				require.NoError(t, err)
				assert.Equal(t, want, serialize(t, d, v))

				d, v, err = f.Load(i)
				require.NoError(t, err)
				assert.Equal(t, want, serialize(t, d, v))
			}
			_, err = f.Blob(len(testDocs))
			assert.Error(t, err)
		})
	}
}

func TestMappedDocIsReadOnly(t *testing.T) {
	f, err := Open(writeDocs(t, CodecNone), testConfig())
	require.NoError(t, err)
	defer f.Close()

	d, v, err := f.Doc(0)
	require.NoError(t, err)
	_, err = d.DeleteKey(v, "a")
	assert.ErrorIs(t, err, bjson.ErrReadOnly)

	// a loaded copy can be changed
	d, v, err = f.Load(0)
	require.NoError(t, err)
	ok, err := d.DeleteKey(v, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"b":[true,null,"x"]}`, serialize(t, d, v))
}

func TestCompressionSavesSpace(t *testing.T) {
	d := bjson.NewDoc(testConfig())
	v, err := d.ParseString(`{"k":"` + strings.Repeat("abcd", 500) + `"}`)
	require.NoError(t, err)
	blob, err := d.Externalize(v)
	require.NoError(t, err)

	for _, codec := range []Codec{CodecLZ4, CodecZstd} {
		rec, err := codec.pack(blob)
		require.NoError(t, err)
		assert.Less(t, len(rec), len(blob), codec.String())
		back, err := codec.unpack(rec, 1<<20)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(blob, back), codec.String())
	}
}

func TestIncompressibleStoredRaw(t *testing.T) {
	blob := []byte{0x01, 0x7f, 0x33}
	for _, codec := range []Codec{CodecLZ4, CodecZstd} {
		rec, err := codec.pack(blob)
		require.NoError(t, err)
		require.Len(t, rec, frameHeaderSize+len(blob))
		assert.Equal(t, []byte{0, 0, 0, 0}, rec[4:8])
		back, err := codec.unpack(rec, 1<<20)
		require.NoError(t, err)
		assert.Equal(t, blob, back)
	}
}

func TestBadFiles(t *testing.T) {
	dir := t.TempDir()
	good, err := os.ReadFile(writeDocs(t, CodecNone))
	require.NoError(t, err)

	cases := []struct {
		label  string
		data   []byte
		errStr string
	}{
		{"empty", nil, "missing header"},
		{"bad magic", []byte("XXXX\x01\x00\x00\x00"), "missing header"},
		{"bad version", []byte("BJSF\x09\x00\x00\x00"), "unsupported version"},
		{"bad codec", []byte("BJSF\x01\x07\x00\x00"), "unknown codec"},
		{"truncated length", []byte("BJSF\x01\x00\x00\x00\x05\x00"), "truncated record length"},
		{"truncated record", good[:len(good)-3], "exceeds file"},
	}
	for _, c := range cases {
		path := filepath.Join(dir, strings.ReplaceAll(c.label, " ", "_"))
		require.NoError(t, os.WriteFile(path, c.data, 0o600))
		_, err := Open(path, testConfig())
		require.Error(t, err, c.label)
		assert.ErrorIs(t, err, ErrBadFile, c.label)
		assert.Contains(t, err.Error(), c.errStr, c.label)
	}

	_, err = Open(filepath.Join(dir, "missing"), testConfig())
	var ioErr *bjson.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "map", ioErr.Op)
}

func TestCorruptBlob(t *testing.T) {
	path := writeDocs(t, CodecNone)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// clobber the blob magic of the first record
	data[headerSize+lengthSize] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o600))

	f, err := Open(path, testConfig())
	require.NoError(t, err)
	defer f.Close()
	_, _, err = f.Doc(0)
	assert.ErrorIs(t, err, bjson.ErrBadBlob)
	_, _, err = f.Doc(1)
	assert.NoError(t, err)
}

func TestOversizedRecord(t *testing.T) {
	for _, codec := range []Codec{CodecLZ4, CodecZstd} {
		rec, err := codec.pack([]byte(strings.Repeat("abcd", 100)))
		require.NoError(t, err)
		binary.LittleEndian.PutUint32(rec[0:4], 0xfffffff0)
		_, err = codec.unpack(rec, 1<<20)
		assert.ErrorIs(t, err, ErrBadFile, codec.String())
		assert.Contains(t, err.Error(), "exceeds limit", codec.String())
	}

	path := writeDocs(t, CodecZstd)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(data[headerSize+lengthSize:], 0xfffffff0)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	f, err := Open(path, testConfig())
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Blob(0)
	assert.ErrorIs(t, err, ErrBadFile)
	_, err = f.Blob(1)
	assert.NoError(t, err)
}

func TestParseCodec(t *testing.T) {
	for _, name := range []string{"none", "lz4", "zstd"} {
		c, err := ParseCodec(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.String())
	}
	c, err := ParseCodec("")
	require.NoError(t, err)
	assert.Equal(t, CodecNone, c)
	_, err = ParseCodec("gzip")
	assert.Error(t, err)
}
