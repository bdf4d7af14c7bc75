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

// Package seclabel manages mandatory access control security labels on files.
// The only supported subsystem is SELinux. When it's not available, either
// because it's compiled out with the noselinux build tag, because we're not on
// linux, or because the kernel has it disabled, a Stub labeler is used which
// reports that labels are unsupported and turns every operation into a no-op.
package seclabel

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrInvalidContext is returned when a context is malformed.
var ErrInvalidContext = errors.New("invalid context")

const (
	// Default is the sentinel value for a context component which means that
	// the system default for that path should be used.
	Default = "_default"

	// DefaultLevel is the level used when none is requested. It only matters
	// on systems with MLS (range) tracking enabled.
	DefaultLevel = "s0"
)

// Labeler is the capability interface for reading and writing file labels.
type Labeler interface {
	// Enabled returns true if security labels are supported and active. If
	// this returns false, then none of the other methods should be called.
	Enabled() bool

	// FileContext returns the current context of the path. It doesn't
	// follow symlinks.
	FileContext(path string) (Context, error)

	// DefaultContext returns the context that the policy says a path of
	// this type should have.
	DefaultContext(path string, mode os.FileMode) (Context, error)

	// SetFileContext sets the full context on the path in a single step. It
	// doesn't follow symlinks.
	SetFileContext(path string, context Context) error
}

// Context is a security context tuple. A three component context has an empty
// Level. In a desired context, an empty component means "leave as is", and a
// value of Default means "use the system default".
type Context struct {
	User  string `yaml:"user"`
	Role  string `yaml:"role"`
	Type  string `yaml:"type"`
	Level string `yaml:"level"`
}

// ParseContext parses a label string such as system_u:object_r:etc_t:s0 into a
// Context. The level may itself contain colons, as in s0-s0:c0.c1023, so only
// the first three separators are significant.
func ParseContext(s string) (Context, error) {
	split := strings.SplitN(s, ":", 4)
	if len(split) < 3 {
		return Context{}, fmt.Errorf("%w: %s", ErrInvalidContext, s)
	}
	c := Context{
		User: split[0],
		Role: split[1],
		Type: split[2],
	}
	if len(split) == 4 {
		c.Level = split[3]
	}
	if c.User == "" || c.Role == "" || c.Type == "" {
		return Context{}, fmt.Errorf("%w: %s", ErrInvalidContext, s)
	}
	return c, nil
}

// String returns the label string form of the context.
func (obj Context) String() string {
	s := obj.User + ":" + obj.Role + ":" + obj.Type
	if obj.Level != "" {
		s += ":" + obj.Level
	}
	return s
}

// IsZero returns true if no component is requested.
func (obj Context) IsZero() bool {
	return obj == Context{}
}

// HasDefault returns true if any component is the Default sentinel.
func (obj Context) HasDefault() bool {
	return obj.User == Default || obj.Role == Default || obj.Type == Default || obj.Level == Default
}

// ResolveDefaults replaces each component which is the Default sentinel with
// the matching component from def.
func (obj Context) ResolveDefaults(def Context) Context {
	c := obj
	if c.User == Default {
		c.User = def.User
	}
	if c.Role == Default {
		c.Role = def.Role
	}
	if c.Type == Default {
		c.Type = def.Type
	}
	if c.Level == Default {
		c.Level = def.Level
	}
	return c
}

// Merge lays the non-empty components of desired over current. The result has
// the same shape as current: if current has no level, because the system isn't
// tracking ranges, then the desired level is ignored.
func Merge(current, desired Context) Context {
	c := current
	if desired.User != "" {
		c.User = desired.User
	}
	if desired.Role != "" {
		c.Role = desired.Role
	}
	if desired.Type != "" {
		c.Type = desired.Type
	}
	if current.Level != "" && desired.Level != "" {
		c.Level = desired.Level
	}
	return c
}

// Stub is the labeler used when no security label subsystem is available. It
// is not an error to use it, every operation just does nothing.
type Stub struct{}

// Enabled always returns false.
func (obj *Stub) Enabled() bool { return false }

// FileContext returns an empty context.
func (obj *Stub) FileContext(path string) (Context, error) { return Context{}, nil }

// DefaultContext returns an empty context.
func (obj *Stub) DefaultContext(path string, mode os.FileMode) (Context, error) {
	return Context{}, nil
}

// SetFileContext does nothing.
func (obj *Stub) SetFileContext(path string, context Context) error { return nil }
