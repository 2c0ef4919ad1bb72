// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package bfile

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec is the compression applied to every record of a file.
type Codec uint8

const (
	// CodecNone stores blobs as is.  Only such files can be read in place.
	CodecNone Codec = iota
	// CodecLZ4 compresses blobs with LZ4 blocks.
	CodecLZ4
	// CodecZstd compresses blobs with zstd.
	CodecZstd
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	}
	return fmt.Sprintf("codec(%d)", uint8(c))
}

// ParseCodec returns the codec named s: "none", "lz4" or "zstd".  An empty
// name is "none".
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return CodecNone, nil
	case "lz4":
		return CodecLZ4, nil
	case "zstd":
		return CodecZstd, nil
	}
	return 0, fmt.Errorf("unknown codec %q", s)
}

// A compressed record is [raw length uint32][packed length uint32][data].  A
// packed length of zero means data is stored raw because compression did not
// save enough.
const frameHeaderSize = 8

// maxRatio is the largest packed/raw size ratio worth storing.
const maxRatio = 0.9

var (
	zstdEncoders sync.Pool
	zstdDecoders sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoders.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoders.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// pack returns the record payload for blob.
func (c Codec) pack(blob []byte) ([]byte, error) {
	if c == CodecNone {
		return blob, nil
	}

	var packed []byte
	switch c {
	case CodecLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(blob)))
		n, err := lz4.CompressBlock(blob, buf, nil)
		if err != nil {
			return nil, err
		}
		packed = buf[:n]
	case CodecZstd:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(blob, nil)
		zstdEncoders.Put(enc)
	default:
		return nil, fmt.Errorf("unknown codec %d", uint8(c))
	}

	stored := len(packed) == 0 || float64(len(packed)) > float64(len(blob))*maxRatio
	if stored {
		packed = blob
	}
	out := make([]byte, frameHeaderSize+len(packed))
	binary.LittleEndian.PutUint32(out[0:4], uint32(len(blob)))
	if !stored {
		binary.LittleEndian.PutUint32(out[4:8], uint32(len(packed)))
	}
	copy(out[frameHeaderSize:], packed)
	return out, nil
}

// unpack returns the blob held by a record payload.  A stored payload is
// returned without copying.  A blob longer than limit is rejected before
// anything is allocated for it.
func (c Codec) unpack(rec []byte, limit int) ([]byte, error) {
	if c == CodecNone {
		return rec, nil
	}
	if len(rec) < frameHeaderSize {
		return nil, fmt.Errorf("%w: record of %d bytes is too small", ErrBadFile, len(rec))
	}
	raw := int(binary.LittleEndian.Uint32(rec[0:4]))
	packed := int(binary.LittleEndian.Uint32(rec[4:8]))
	data := rec[frameHeaderSize:]
	if raw > limit {
		return nil, fmt.Errorf("%w: record length %d exceeds limit %d", ErrBadFile, raw, limit)
	}
	if packed == 0 {
		if raw != len(data) {
			return nil, fmt.Errorf("%w: stored record length %d, want %d", ErrBadFile, len(data), raw)
		}
		return data, nil
	}
	if packed != len(data) {
		return nil, fmt.Errorf("%w: packed record length %d, want %d", ErrBadFile, len(data), packed)
	}

	blob := make([]byte, raw)
	switch c {
	case CodecLZ4:
		n, err := lz4.UncompressBlock(data, blob)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFile, err)
		}
		if n != raw {
			return nil, fmt.Errorf("%w: decompressed %d bytes, want %d", ErrBadFile, n, raw)
		}
	case CodecZstd:
		dec := getZstdDecoder()
		out, err := dec.DecodeAll(data, blob[:0])
		zstdDecoders.Put(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadFile, err)
		}
		if len(out) != raw {
			return nil, fmt.Errorf("%w: decompressed %d bytes, want %d", ErrBadFile, len(out), raw)
		}
		blob = out
	default:
		return nil, fmt.Errorf("%w: unknown codec %d", ErrBadFile, uint8(c))
	}
	return blob, nil
}
