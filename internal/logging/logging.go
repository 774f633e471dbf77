// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package logging points the standard logger at stderr and, when a log file
// is configured, at a size-rotated file as well.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the rotated log file. An empty File keeps stderr only.
type Options struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Setup configures the standard logger for a binary called name.
// The returned closer releases the log file and is safe to call when
// no file was configured.
func Setup(name string, opts Options) io.Closer {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if opts.File == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotator))
	log.Printf("%s: logging to %s (max %d MB, %d backups)", name, opts.File, opts.MaxSizeMB, opts.MaxBackups)
	return rotator
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
