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

//go:build linux && !noselinux

package seclabel

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/purpleidea/fsconverge/util"
	"github.com/purpleidea/fsconverge/util/errwrap"

	goselinux "github.com/opencontainers/selinux/go-selinux"
)

// MatchPathConProgram is the helper that is run to lookup default contexts.
const MatchPathConProgram = "matchpathcon"

// SELinux is the labeler which manipulates SELinux file contexts.
type SELinux struct {
	// Debug turns on the output of the default context lookup helper.
	Debug bool

	// Logf is a logger which should be used.
	Logf func(format string, v ...interface{})
}

// New returns the best labeler available on this host. If SELinux isn't
// enabled in the kernel, then this returns the Stub.
func New(debug bool, logf func(format string, v ...interface{})) Labeler {
	if !goselinux.GetEnabled() {
		return &Stub{}
	}
	return &SELinux{
		Debug: debug,
		Logf:  logf,
	}
}

// Enabled returns true if SELinux is enabled.
func (obj *SELinux) Enabled() bool {
	return goselinux.GetEnabled()
}

// FileContext returns the current context of the path without following any
// symlink.
func (obj *SELinux) FileContext(path string) (Context, error) {
	label, err := goselinux.LfileLabel(path)
	if err != nil {
		return Context{}, errwrap.Wrapf(err, "can't get context of %s", path)
	}
	return ParseContext(label)
}

// DefaultContext returns the context that the loaded policy assigns to the path
// for a file of that mode. This needs the mode since the policy may distinguish
// between a regular file, a directory and a symlink.
func (obj *SELinux) DefaultContext(path string, mode os.FileMode) (Context, error) {
	args := []string{"-n"}
	if t := matchPathConType(mode); t != 0 {
		args = append(args, "-m", matchPathConTypes[t])
	}
	args = append(args, path)

	opts := &util.SimpleCmdOpts{
		Debug: obj.Debug,
		Logf: func(format string, v ...interface{}) {
			obj.logf("matchpathcon: "+format, v...)
		},
	}
	out, err := util.SimpleCmdOutput(context.TODO(), MatchPathConProgram, args, opts)
	if err != nil {
		return Context{}, errwrap.Wrapf(err, "can't lookup default context of %s", path)
	}
	label := strings.TrimSpace(out)
	if label == "" || label == "<<none>>" {
		return Context{}, fmt.Errorf("no default context for %s", path)
	}
	return ParseContext(label)
}

// SetFileContext applies the context in a single step. It does not follow any
// symlink.
func (obj *SELinux) SetFileContext(path string, c Context) error {
	label := c.String()
	// validates the string form against the library parser before we try
	if _, err := goselinux.NewContext(label); err != nil {
		return errwrap.Wrapf(ErrInvalidContext, "%s: %v", label, err)
	}
	if err := goselinux.LsetFileLabel(path, label); err != nil {
		return errwrap.Wrapf(err, "can't set context of %s to %s", path, label)
	}
	return nil
}

func (obj *SELinux) logf(format string, v ...interface{}) {
	if obj.Logf == nil {
		return
	}
	obj.Logf(format, v...)
}

var matchPathConTypes = map[os.FileMode]string{
	os.ModeDir:     "dir",
	os.ModeSymlink: "lnk_file",
}

// matchPathConType returns the single type bit that matchpathcon needs to know
// about, or zero for a regular file.
func matchPathConType(mode os.FileMode) os.FileMode {
	switch {
	case mode&os.ModeDir != 0:
		return os.ModeDir
	case mode&os.ModeSymlink != 0:
		return os.ModeSymlink
	}
	return 0
}
