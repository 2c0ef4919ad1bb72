// Copyright 2020 by David A. Golden. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/xdg-go/bjson"
	"github.com/xdg-go/bjson/udf"
	"sigs.k8s.io/yaml"
)

// app holds the state shared by the subcommands of one run.
type app struct {
	v   *viper.Viper
	cfg bjson.Config
	log *logrus.Logger

	cfgFile     string
	logLevel    string
	yaml        bool
	pretty      int
	metricsFile string

	in  io.Reader
	out io.Writer

	reg     *prometheus.Registry
	session *udf.Session
}

// flags bound to configuration keys
var configFlags = []struct {
	key, flag, usage string
}{
	{"arena_size", "arena-size", "initial arena size in bytes"},
	{"max_arena_size", "max-arena-size", "largest arena size in bytes"},
	{"max_depth", "max-depth", "deepest nesting accepted by the parser"},
	{"default_prec", "default-prec", "decimals of floats without a precision of their own"},
	{"json_null", "json-null", "text standing in for nulls in concatenations"},
	{"index_base", "index-base", "number of the first array element in paths, 0 or 1"},
	{"group_size", "group-size", "most rows accepted by an aggregate"},
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: logrus.New()}

	root := &cobra.Command{
		Use:           "bjson",
		Short:         "Parse, query, edit and convert JSON documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.in = cmd.InOrStdin()
			a.out = cmd.OutOrStdout()
			a.log.SetOutput(cmd.ErrOrStderr())
			return a.setup()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.writeMetrics()
		},
	}

	def := bjson.DefaultConfig()
	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "configuration file (default bjson.yaml)")
	pf.StringVar(&a.logLevel, "log-level", "warning", "log level: debug, info, warning or error")
	pf.BoolVar(&a.yaml, "yaml", false, "read input documents as YAML")
	pf.IntVar(&a.pretty, "pretty", 0, "output layout: 0 compact, 1 one array element per line, 2 indented")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "write function metrics to this file on exit")
	pf.Int(configFlags[0].flag, def.ArenaSize, configFlags[0].usage)
	pf.Int(configFlags[1].flag, def.MaxArenaSize, configFlags[1].usage)
	pf.Int(configFlags[2].flag, def.MaxDepth, configFlags[2].usage)
	pf.Int(configFlags[3].flag, def.DefaultPrec, configFlags[3].usage)
	pf.String(configFlags[4].flag, def.JSONNull, configFlags[4].usage)
	pf.Int(configFlags[5].flag, def.IndexBase, configFlags[5].usage)
	pf.Int(configFlags[6].flag, def.GroupSize, configFlags[6].usage)
	a.bindFlags(pf)

	root.AddCommand(
		newParseCmd(a, "parse", 0),
		newParseCmd(a, "pretty", 2),
		newGetCmd(a),
		newSetCmd(a),
		newDeleteCmd(a),
		newMergeCmd(a),
		newLocateCmd(a),
		newToBinCmd(a),
		newFromBinCmd(a),
		newToBSONCmd(a),
		newFromBSONCmd(a),
	)
	return root
}

func (a *app) bindFlags(pf *pflag.FlagSet) {
	for _, f := range configFlags {
		// Lookup cannot fail for flags defined above.
		_ = a.v.BindPFlag(f.key, pf.Lookup(f.flag))
	}
	_ = a.v.BindPFlag("log_level", pf.Lookup("log-level"))
}

// setup loads the configuration and builds the logger and the session.
func (a *app) setup() error {
	v := a.v
	v.SetEnvPrefix("BJSON")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		v.SetConfigName("bjson")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "bjson"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("reading configuration: %w", err)
		}
	}

	level, err := logrus.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return err
	}
	a.log.SetLevel(level)
	a.log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if f := v.ConfigFileUsed(); f != "" {
		a.log.WithField("file", f).Debug("configuration loaded")
	}

	a.cfg = bjson.DefaultConfig()
	if err = v.Unmarshal(&a.cfg); err != nil {
		return fmt.Errorf("decoding configuration: %w", err)
	}
	if a.cfg.IndexBase != 0 && a.cfg.IndexBase != 1 {
		return fmt.Errorf("index base must be 0 or 1, not %d", a.cfg.IndexBase)
	}

	a.reg = prometheus.NewRegistry()
	m, err := udf.NewMetrics(a.reg)
	if err != nil {
		return err
	}
	a.session, err = udf.NewSession(a.cfg, udf.WithLogger(a.log), udf.WithMetrics(m))
	return err
}

func (a *app) writeMetrics() error {
	if a.metricsFile == "" || a.reg == nil {
		return nil
	}
	return prometheus.WriteToTextfile(a.metricsFile, a.reg)
}

// readInput returns the content of the named file, or of the standard input
// for "-" or an empty name, converted from YAML if requested.
func (a *app) readInput(name string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if name == "" || name == "-" {
		name = "standard input"
		data, err = io.ReadAll(a.in)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, err
	}
	if a.yaml {
		if data, err = yaml.YAMLToJSON(data); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return data, nil
}

// docArg returns the named input as a function argument that must parse.
func (a *app) docArg(name string) (udf.Arg, error) {
	data, err := a.readInput(name)
	if err != nil {
		return udf.Arg{}, err
	}
	return udf.String(string(data)).Named("json_doc"), nil
}

// emit prints a function result.
func (a *app) emit(name string, r udf.Result) error {
	if r.Error {
		return resultError(name, r)
	}
	text := r.Text
	switch {
	case r.Null:
		text = "null"
	case r.Type == udf.IntResult:
		text = strconv.FormatInt(r.Int, 10)
	case r.Type == udf.RealResult:
		text = strconv.FormatFloat(r.Real, 'f', -1, 64)
	case r.Type == udf.JSONResult && a.pretty > 0 && r.Doc != nil:
		var err error
		if text, err = r.Doc.SerializeString(r.Value, a.pretty); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(a.out, text)
	return err
}

func resultError(name string, r udf.Result) error {
	if len(r.Warnings) == 0 {
		return fmt.Errorf("%s failed", name)
	}
	return fmt.Errorf("%s: %s", name, strings.Join(r.Warnings, "; "))
}
