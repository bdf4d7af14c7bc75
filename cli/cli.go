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

// Package cli handles all of the core command line parsing. It's the first
// entry point after the real main function, and it imports and runs our core
// "lib".
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	cliUtil "github.com/purpleidea/fsconverge/cli/util"
	"github.com/purpleidea/fsconverge/engine"
	"github.com/purpleidea/fsconverge/lib"
	"github.com/purpleidea/fsconverge/util/errwrap"

	"github.com/alexflint/go-arg"
)

// CLI is the entry point for using fsconverge normally from the CLI.
func CLI(ctx context.Context, data *cliUtil.Data) error {
	// test for sanity
	if data == nil {
		return fmt.Errorf("this CLI was not run correctly")
	}
	if data.Program == "" || data.Version == "" {
		return fmt.Errorf("program was not compiled correctly")
	}
	if data.Flags.Logf == nil {
		return fmt.Errorf("the Logf function must be specified")
	}
	if len(data.Args) == 0 {
		return fmt.Errorf("the program name is missing from the args")
	}

	args := Args{}
	args.version = data.Version // copy this in
	args.description = data.Tagline

	config := arg.Config{
		Program: data.Program,
	}
	parser, err := arg.NewParser(config, &args)
	if err != nil {
		// programming error
		return errwrap.Wrapf(err, "cli config error")
	}
	err = parser.Parse(data.Args[1:]) // args[0] is the program name
	if err == arg.ErrHelp {
		parser.WriteHelp(args.stdout())
		return nil
	}
	if err == arg.ErrVersion {
		fmt.Fprintf(args.stdout(), "%s\n", data.Version) // byon: bring your own newline
		return nil
	}
	if err != nil {
		return cliUtil.CliParseError(err) // consistent errors
	}

	if ok, err := args.Run(ctx, data); err != nil {
		return err
	} else if ok { // did we activate one of the commands?
		return nil
	}

	// print help if no subcommands are set
	parser.WriteHelp(args.stdout())

	return nil
}

// Args is the CLI parsing structure and type of the parsed result. This
// particular struct is the top-most one.
type Args struct {
	FileCmd *FileArgs `arg:"subcommand:file" help:"converge a single path"`

	YamlCmd *YamlArgs `arg:"subcommand:yaml" help:"converge a batch of paths from a yaml file"`

	// version is a private handle for our version string.
	version string `arg:"-"` // ignored from parsing

	// description is a private handle for our description string.
	description string `arg:"-"` // ignored from parsing

	// output is where results and help go, and it's stdout when nil.
	output io.Writer `arg:"-"` // ignored from parsing
}

// Version returns the version string. Implementing this signature is part of
// the API for the cli library.
func (obj *Args) Version() string {
	return obj.version
}

// Description returns a description string. Implementing this signature is part
// of the API for the cli library.
func (obj *Args) Description() string {
	return obj.description
}

func (obj *Args) stdout() io.Writer {
	if obj.output == nil {
		return os.Stdout
	}
	return obj.output
}

// Run executes the correct subcommand. It errors if there's ever an error. It
// returns true if we did activate one of the subcommands. It returns false if
// we did not. This information is used so that the top-level parser can return
// usage or help information if no subcommand activates.
func (obj *Args) Run(ctx context.Context, data *cliUtil.Data) (bool, error) {
	var config *lib.Config
	var res []engine.Res
	var err error
	var name string

	if cmd := obj.FileCmd; cmd != nil {
		name = cliUtil.LookupSubcommand(obj, cmd) // "file"
		config = &cmd.Config
		res, err = cmd.Resources()
	}
	if cmd := obj.YamlCmd; cmd != nil {
		name = cliUtil.LookupSubcommand(obj, cmd) // "yaml"
		config = &cmd.Config
		res, err = cmd.Resources()
	}
	if config == nil {
		return false, nil // nobody activated
	}
	if err != nil {
		return false, err
	}

	debug := data.Flags.Debug || config.Debug
	config.Debug = debug
	cliUtil.Hello(data.Program, data.Version, cliUtil.Flags{Debug: debug})
	Logf := func(format string, v ...interface{}) {
		data.Flags.Logf("main: "+format, v...)
	}
	if debug {
		Logf("running: %s", name)
		defer Logf("goodbye!")
	}

	main := &lib.Main{
		Config:    config, // pass in all the parsed data
		Program:   data.Program,
		Version:   data.Version,
		Resources: res,
		Output:    obj.output,
		Logf:      data.Flags.Logf, // no prefix
	}
	if err := main.Run(ctx); err != nil {
		return false, err
	}
	return true, nil
}
