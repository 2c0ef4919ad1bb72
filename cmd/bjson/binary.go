// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/xdg-go/bjson"
	"github.com/xdg-go/bjson/bfile"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

const blobExt = ".bjs"

// blobName returns the blob file name for JSON file in, in dir or next to in.
func blobName(in, dir string) string {
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)) + blobExt
	if dir == "" {
		dir = filepath.Dir(in)
	}
	return filepath.Join(dir, base)
}

func newToBinCmd(a *app) *cobra.Command {
	var (
		outDir string
		codec  string
		jobs   int
	)
	cmd := &cobra.Command{
		Use:   "tobin FILE...",
		Short: "Convert JSON files to blob files",
		Long: `Convert each JSON file to a blob file with one record per value,
named after it with a .bjs extension.  Files are converted concurrently.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bfile.ParseCodec(codec)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			g, ctx := errgroup.WithContext(ctx)
			if jobs > 0 {
				g.SetLimit(jobs)
			}
			outs := make([]string, len(args))
			for i, in := range args {
				i, in := i, in
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					out := blobName(in, outDir)
					n, err := bfile.FileToBlob(in, out, a.cfg, c)
					if err != nil {
						return err
					}
					a.log.WithFields(logrus.Fields{"in": in, "out": out, "records": n}).Info("converted")
					outs[i] = out
					return nil
				})
			}
			if err = g.Wait(); err != nil {
				return err
			}
			for _, out := range outs {
				if _, err = fmt.Fprintln(a.out, out); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "directory of the blob files (default next to each input)")
	cmd.Flags().StringVar(&codec, "codec", "none", "record compression: none, lz4 or zstd")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.GOMAXPROCS(0), "files converted at once")
	return cmd
}

func newFromBinCmd(a *app) *cobra.Command {
	var record int
	cmd := &cobra.Command{
		Use:   "frombin FILE",
		Short: "Print the records of a blob file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			f, err := bfile.Open(args[0], a.cfg)
			if err != nil {
				return err
			}
			defer f.Close()

			from, to := 0, f.Len()
			if record >= 0 {
				if record >= f.Len() {
					return fmt.Errorf("%s has %d records", args[0], f.Len())
				}
				from, to = record, record+1
			}
			a.log.WithFields(logrus.Fields{"file": args[0], "records": f.Len(), "codec": f.Codec()}).Debug("opened")
			for i := from; i < to; i++ {
				d, v, err := f.Doc(i)
				if err != nil {
					return fmt.Errorf("record %d: %w", i, err)
				}
				text, err := d.SerializeString(v, a.pretty)
				if err != nil {
					return err
				}
				if _, err = fmt.Fprintln(a.out, text); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&record, "record", "r", -1, "print only this record")
	return cmd
}

func newToBSONCmd(a *app) *cobra.Command {
	var (
		out string
		ext bool
	)
	cmd := &cobra.Command{
		Use:   "tobson [FILE]",
		Short: "Convert a JSON object to a BSON document",
		Long: `Convert a JSON object to a BSON document.  Extended JSON wrappers
such as {"$oid": "..."} or {"$date": ...} become the BSON types they
describe.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := a.readInput(firstArg(args))
			if err != nil {
				return err
			}
			d := bjson.NewDoc(a.cfg)
			v, err := d.Parse(data, 3)
			if err != nil {
				return err
			}
			raw, err := d.ToBSON(nil, v)
			if err != nil {
				return err
			}
			if ext {
				raw = append([]byte(bson.Raw(raw).String()), '\n')
			}
			if out == "" {
				_, err = a.out.Write(raw)
				return err
			}
			if err = os.WriteFile(out, raw, 0o644); err != nil {
				return &bjson.IOError{Op: "write", Path: out, Err: err}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default standard output)")
	cmd.Flags().BoolVar(&ext, "ext", false, "print MongoDB extended JSON instead of BSON bytes")
	return cmd
}

func newFromBSONCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "frombson [FILE]",
		Short: "Convert a BSON document to JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if name := firstArg(args); name == "" || name == "-" {
				raw, err = io.ReadAll(a.in)
			} else {
				raw, err = os.ReadFile(name)
			}
			if err != nil {
				return err
			}
			d := bjson.NewDoc(a.cfg)
			v, err := d.FromBSON(raw)
			if err != nil {
				return err
			}
			text, err := d.SerializeString(v, a.pretty)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, text)
			return err
		},
	}
}
