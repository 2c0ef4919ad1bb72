// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Command bjson parses, queries, edits and converts JSON documents.
//
// Settings come from flags, from BJSON_ environment variables and from a
// bjson.yaml file in the working directory or in $HOME/.config/bjson, in
// that order of precedence.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "bjson: %v\n", err)
		os.Exit(1)
	}
}
