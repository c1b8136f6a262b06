// cmd/titlecat/main.go
// Copyright(c) 2022-2025 titlestore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// titlecat opens assets through a configured title container and copies
// them to standard output.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/apenwarr/fixconsole"
	"github.com/goforj/godump"
	"github.com/mmp/titlestore/config"
	"github.com/mmp/titlestore/log"
	"github.com/mmp/titlestore/title"
)

var (
	configFile = flag.String("config", "", "JSON configuration file (TITLESTORE_* environment variables override it)")
	logLevel   = flag.String("loglevel", "", "logging level: debug, info, warn, error")
	logDir     = flag.String("logdir", "", "log file directory; if unset, logs go to stderr")
	decode     = flag.Bool("decode", false, "decompress .zst assets")
	exists     = flag.Bool("exists", false, "only report whether each asset exists")
	dump       = flag.Bool("dump", false, "print the effective configuration and exit")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: titlecat [flags] asset...\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if err := fixconsole.FixConsoleIfNeeded(); err != nil {
		fmt.Printf("FixConsole: %v\n", err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "titlecat: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logDir != "" {
		cfg.LogDir = *logDir
	}

	if *dump {
		godump.Fdump(os.Stdout, cfg.Redacted())
		return
	}
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	var lg *log.Logger
	if cfg.LogDir != "" {
		lg = log.New(cfg.LogLevel, cfg.LogDir)
	} else {
		lg = log.NewWriter(os.Stderr, cfg.LogLevel)
	}

	c, err := cfg.NewContainer(context.Background(), lg)
	if err != nil {
		lg.Errorf("%v", err)
		os.Exit(1)
	}
	defer c.Close()

	status := 0
	for _, name := range flag.Args() {
		if *exists {
			fmt.Printf("%s\t%v\n", name, c.Exists(name))
			continue
		}
		if err := cat(c, name); err != nil {
			fmt.Fprintf(os.Stderr, "titlecat: %v\n", err)
			if errors.Is(err, title.ErrInvalidName) {
				status = 2
			} else if status == 0 {
				status = 1
			}
		}
	}
	if status != 0 {
		c.Close()
		os.Exit(status)
	}
}

func cat(c *title.Container, name string) error {
	var r io.ReadCloser
	var err error
	if *decode {
		r, err = c.Load(name)
	} else {
		r, err = c.OpenStream(name)
	}
	if err != nil {
		return err
	}
	defer r.Close()

	_, err = io.Copy(os.Stdout, r)
	return err
}
