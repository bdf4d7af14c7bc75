// Mgmt
// Copyright (C) 2013-2024+ James Shubin and the project contributors
// Written by James Shubin <james@shubin.ca> and the project contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package util

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"syscall"

	"github.com/purpleidea/fsconverge/util/errwrap"
)

// SimpleCmdOpts is a list of extra things to pass into the SimpleCmdOutput
// function.
type SimpleCmdOpts struct {
	// Debug represents if we're running in debug mode or not.
	Debug bool

	// Logf is a logger which should be used.
	Logf func(format string, v ...interface{})
}

// SimpleCmdOutput is a simple wrapper for us to run commands how we usually
// want to when we're interested in what they print. It returns the stdout of
// the command. The stderr is passed to the logger if we're in debug mode, and
// otherwise it's only included in the error if the command fails.
func SimpleCmdOutput(ctx context.Context, name string, args []string, opts *SimpleCmdOpts) (string, error) {
	logf := func(format string, v ...interface{}) {
		if opts == nil || opts.Logf == nil {
			return
		}
		opts.Logf(format, v...)
	}
	debug := opts != nil && opts.Debug

	cmd := exec.CommandContext(ctx, name, args...)

	// ignore signals sent to parent process (we're in our own group)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if debug {
		lw := &LogWriter{
			Prefix: name + ": ",
			Logf:   logf,
		}
		cmd.Stderr = &teeWriter{buf: &stderr, w: lw}
	}

	if debug {
		logf("running: %s", strings.Join(cmd.Args, " "))
	}
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return "", errwrap.Wrapf(err, "cmd failed in some bad way")
		}
		if s := strings.TrimSpace(stderr.String()); s != "" {
			return "", errwrap.Wrapf(err, "cmd error: %s", s)
		}
		return "", errwrap.Wrapf(err, "cmd error")
	}

	return stdout.String(), nil
}

// teeWriter copies everything it gets into a buffer and into a second writer.
type teeWriter struct {
	buf *bytes.Buffer
	w   *LogWriter
}

// Write satisfies the io.Writer interface.
func (obj *teeWriter) Write(p []byte) (int, error) {
	obj.w.Write(p) // never errors
	return obj.buf.Write(p)
}
