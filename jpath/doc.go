// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package jpath evaluates path expressions such as "$.a[2].b" against
// documents of package bjson.
//
// A path is compiled once with Compile, or through a Cache, and applied to
// any number of documents.  Reading follows two conventions: when a key is
// applied to an array, the array is read as its first element, and when an
// index is applied to an object through an empty bracket, the object itself
// is used.  Bracket operators reduce an array to one value:
//
//	$.items[+].price    sum of the prices
//	$.items[!].price    average
//	$.items[#]          number of items
//	$.tags[", "]        tags joined with ", "
//	$.items[*].name     one row per item, see Path.Rows
//
// Writing creates the missing objects and arrays along the path.  Locate
// and LocateAll search a tree for a value and return the paths where it is
// found.
package jpath
