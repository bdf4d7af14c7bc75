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

// Package engine contains the core types for converging file system objects,
// such as the kinds of objects, the legal transitions between them, the error
// classes, and the interface that a converging resource implements.
package engine

import (
	"context"
	"fmt"

	"github.com/purpleidea/fsconverge/seclabel"
	"github.com/purpleidea/fsconverge/util/errwrap"
)

// Init is the structure of values and references which is passed into all
// resources on initialization. None of these are available in Validate, or
// before Init runs.
type Init struct {
	// Program is the name of the program.
	Program string

	// Fs is the file system which is converged.
	Fs Fs

	// Labeler reads and writes security labels. When labels aren't
	// supported this is a stub which reports that it's not enabled.
	Labeler seclabel.Labeler

	// Called from within Watch:

	// Event sends an event notifying the caller of a possible state change.
	// It's normally followed by another run of Converge.
	Event func()

	// Debug signals whether we are running in debugging mode. In this case,
	// we might want to log additional messages.
	Debug bool

	// Logf is a logging facility which will correctly namespace any
	// messages which you wish to pass on. You should use this instead of
	// the log package directly for production quality resources.
	Logf func(format string, v ...interface{})
}

// Validate checks that everything a resource needs was passed in.
func (obj *Init) Validate() error {
	if obj.Fs == nil {
		return fmt.Errorf("the Fs is nil")
	}
	if obj.Labeler == nil {
		return fmt.Errorf("the Labeler is nil")
	}
	if obj.Logf == nil {
		return fmt.Errorf("the Logf is nil")
	}
	return nil
}

// Result is what a successful convergence reports.
type Result struct {
	// Changed is true if anything was changed, or would have been changed
	// if we were not running in check mode.
	Changed bool `yaml:"changed"`

	// Status is what is at the path after we're done.
	Status `yaml:",inline"`
}

// Res is the interface of something that can be converged.
type Res interface {
	fmt.Stringer // String() string

	// Default returns a struct with sane defaults for this resource.
	Default() Res

	// Validate determines if the struct has been defined in a valid state.
	Validate() error

	// Init initializes the resource and passes in some external information.
	Init(*Init) error

	// Cleanup is run to clean up after the resource is done.
	Cleanup() error

	// Watch monitors for state changes until the context is cancelled. If
	// it detects any, it calls the Event function from Init.
	Watch(ctx context.Context) error

	// Converge determines if the state of the resource is correct and if
	// asked to with the `apply` variable, applies the requested state. It
	// returns whether something changed, or would have changed.
	Converge(apply bool) (*Result, error)
}

// Validate validates a resource. This is the main entry point for running all
// the validation steps on a resource.
func Validate(res Res) error {
	if res == nil {
		return fmt.Errorf("the Res is nil")
	}
	if err := res.Validate(); err != nil {
		return errwrap.Wrapf(err, "the Res did not validate")
	}
	return nil
}
