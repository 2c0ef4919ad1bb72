// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package udf exposes document functions the way a database host calls
// them: arguments arrive as typed raw values with attribute names, and each
// call returns a Result carrying a value, a null flag, an error flag and
// any warnings.
//
// Functions never return Go errors.  Malformed input gives a null error
// result with a warning.  Functions that modify a document return it
// unchanged when they fail, and skip bad paths with a warning when they
// take several.
//
// String arguments holding valid JSON are parsed:
//
//	s, _ := udf.NewSession(bjson.DefaultConfig())
//	r := s.GetString(udf.String(`{"a":[1,2,3]}`), udf.String("$.a[+]"))
//	// r.Text == "6"
package udf
