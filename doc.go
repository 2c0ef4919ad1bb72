// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package bjson is an in-memory JSON document engine whose trees live in a
// single relocatable arena.  Every reference between nodes is an offset from
// the start of the arena, so a whole document can be grown, copied, written
// to a file or memory mapped back without any fix-up.
//
// Documents
//
// A Doc pairs an Arena with a Config.  Values are addressed by Offset; the
// zero Offset, Nil, means "absent".  Arrays and objects are singly linked
// lists of member nodes, kept in insertion order.  Lookups that find nothing
// return Nil or false and are not errors.
//
// Parsing and serializing
//
// Parse reads RFC 8259 JSON with a few relaxations: parenthesized filler is
// skipped, several top-level values are gathered into an implicit array, and
// the layout of the text (its "pretty" style) is detected and remembered so
// Serialize can reproduce it.  Numbers keep the count of decimals they were
// written with.
//
// Interoperability
//
// ToBSON and FromBSON convert between trees and BSON documents, mapping
// MongoDB Extended JSON v2 wrappers such as {"$oid": ...} to and from the BSON
// types they describe
// (https://docs.mongodb.com/manual/reference/mongodb-extended-json/index.html).
// ToNative and FromNative convert to and from bson.D and bson.A trees.
// Externalize and Internalize turn a tree into a standalone blob and back.
//
// Testing
//
// BSON output is compared against reference output from the MongoDB Go
// driver.
package bjson
