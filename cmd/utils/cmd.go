// Copyright 2014 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

// Fatalf formats a message to standard error and exits the program.
// The message is also printed to standard output if standard error
// is redirected to a different file.
func Fatalf(format string, args ...interface{}) {
	w := io.MultiWriter(os.Stdout, os.Stderr)
	if runtime.GOOS == "windows" {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		}
	}
	fmt.Fprintf(w, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}

// UseColor reports whether terminal output should be colored.
func UseColor(ctx *cli.Context) bool {
	if ctx.Bool(NoColorFlag.Name) || os.Getenv("TERM") == "dumb" {
		return false
	}
	return isatty.IsTerminal(os.Stderr.Fd())
}

// SetupLogging installs the root logger configured by the logging flags.
func SetupLogging(ctx *cli.Context) error {
	var handler slog.Handler
	if ctx.Bool(LogJSONFlag.Name) {
		handler = log.JSONHandler(os.Stderr)
	} else {
		useColor := UseColor(ctx)
		var output io.Writer = os.Stderr
		if useColor {
			output = colorable.NewColorableStderr()
		}
		handler = log.NewTerminalHandler(output, useColor)
	}
	glogger := log.NewGlogHandler(handler)
	glogger.Verbosity(log.FromLegacyLevel(ctx.Int(VerbosityFlag.Name)))
	if vmodule := ctx.String(VmoduleFlag.Name); vmodule != "" {
		if err := glogger.Vmodule(vmodule); err != nil {
			return fmt.Errorf("invalid --%s: %w", VmoduleFlag.Name, err)
		}
	}
	log.SetDefault(log.NewLogger(glogger))
	return nil
}
