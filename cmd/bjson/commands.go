// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xdg-go/bjson/udf"
)

func newParseCmd(a *app, name string, pretty int) *cobra.Command {
	return &cobra.Command{
		Use:   name + " [FILE]",
		Short: fmt.Sprintf("Check a document and print it in layout %d", pretty),
		Long: `Parse a JSON document and print it again.  A file holding one value
per line is read as an array of those values.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.docArg(firstArg(args))
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("pretty") {
				a.pretty = pretty
			}
			return a.emit("parse", a.session.Value(doc))
		},
	}
}

func newGetCmd(a *app) *cobra.Command {
	var text bool
	cmd := &cobra.Command{
		Use:   "get PATH [FILE]",
		Short: "Print the item at a path",
		Long: `Print the item found at PATH.  Array steps may hold an index or a
function applied to the elements: + sum, x product, > max, < min,
! average, # count, * expand, or a quoted separator to concatenate.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			doc, err := a.docArg(secondArg(args))
			if err != nil {
				return err
			}
			if text {
				return a.emit("get", a.session.GetString(doc, udf.String(args[0])))
			}
			return a.emit("get", a.session.GetItem(doc, udf.String(args[0])))
		},
	}
	cmd.Flags().BoolVar(&text, "text", false, "print the value text instead of JSON")
	return cmd
}

func newSetCmd(a *app) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "set FILE PATH VALUE [PATH VALUE]...",
		Short: "Write values at paths",
		Long: `Write each VALUE at its PATH and print the document.  A VALUE that
is valid JSON is parsed, any other VALUE is a string.  Missing objects and
arrays along a path are created.`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) < 3 || len(args)%2 == 0 {
				return fmt.Errorf("expecting a file and pairs of path and value, got %d arguments", len(args))
			}
			return nil
		},
		RunE: func(_ *cobra.Command, args []string) error {
			var fn func(...udf.Arg) udf.Result
			switch mode {
			case "set":
				fn = a.session.SetItem
			case "insert":
				fn = a.session.InsertItem
			case "update":
				fn = a.session.UpdateItem
			default:
				return fmt.Errorf("unknown mode %q", mode)
			}
			doc, err := a.docArg(args[0])
			if err != nil {
				return err
			}
			fargs := []udf.Arg{doc}
			for i := 1; i+1 < len(args); i += 2 {
				fargs = append(fargs, udf.String(args[i+1]), udf.String(args[i]))
			}
			return a.emit(mode, fn(fargs...))
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "set", "set, insert (missing paths only) or update (existing paths only)")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete FILE PATH...",
		Short: "Delete the items at paths",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			doc, err := a.docArg(args[0])
			if err != nil {
				return err
			}
			fargs := []udf.Arg{doc}
			for _, p := range args[1:] {
				fargs = append(fargs, udf.String(p))
			}
			return a.emit("delete", a.session.DeleteItem(fargs...))
		},
	}
}

func newMergeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "merge FILE1 FILE2",
		Short: "Merge two arrays or two objects",
		Long: `Append the elements of the second array to the first, or set the
members of the second object into the first.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			d1, err := a.docArg(args[0])
			if err != nil {
				return err
			}
			d2, err := a.docArg(args[1])
			if err != nil {
				return err
			}
			return a.emit("merge", a.session.ItemMerge(d1, d2))
		},
	}
}

func newLocateCmd(a *app) *cobra.Command {
	var (
		all   bool
		k     int
		depth int
	)
	cmd := &cobra.Command{
		Use:   "locate FILE VALUE",
		Short: "Print the path of a value",
		Long: `Print the path of an occurrence of VALUE in the document, or with
--all the array of the paths of every occurrence.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			doc, err := a.docArg(args[0])
			if err != nil {
				return err
			}
			if all {
				return a.emit("locate", a.session.LocateAll(doc, udf.String(args[1]), udf.Int(int64(depth))))
			}
			return a.emit("locate", a.session.Locate(doc, udf.String(args[1]), udf.Int(int64(k))))
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "print the paths of every occurrence")
	cmd.Flags().IntVarP(&k, "occurrence", "k", 1, "which occurrence to print")
	cmd.Flags().IntVar(&depth, "depth", 10, "nesting levels searched with --all")
	return cmd
}

func firstArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func secondArg(args []string) string {
	if len(args) > 1 {
		return args[1]
	}
	return ""
}
