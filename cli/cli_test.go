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

//go:build !root

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	cliUtil "github.com/purpleidea/fsconverge/cli/util"

	"github.com/alexflint/go-arg"
	"github.com/stretchr/testify/assert"
)

func testData(t *testing.T, args ...string) *cliUtil.Data {
	return &cliUtil.Data{
		Program: "fsconverge",
		Version: "0.0.0-test",
		Tagline: "test",
		Flags: cliUtil.Flags{
			Debug: testing.Verbose(),
			Logf: func(format string, v ...interface{}) {
				t.Logf("cli: "+format, v...)
			},
		},
		Args: append([]string{"fsconverge"}, args...),
	}
}

// run parses the args like the CLI does, but captures the result documents.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	data := testData(t, args...)
	buf := &bytes.Buffer{}
	obj := &Args{
		version: data.Version,
		output:  buf,
	}
	parser, err := arg.NewParser(arg.Config{Program: data.Program}, obj)
	if err != nil {
		t.Fatalf("parser error: %+v", err)
	}
	if err := parser.Parse(data.Args[1:]); err != nil {
		return "", err
	}
	ok, err := obj.Run(context.Background(), data)
	if err == nil && !ok {
		t.Errorf("no subcommand ran")
	}
	return buf.String(), err
}

func TestCLISanity(t *testing.T) {
	assert.Error(t, CLI(context.Background(), nil))

	data := testData(t)
	data.Version = ""
	assert.Error(t, CLI(context.Background(), data))

	data = testData(t)
	data.Flags.Logf = nil
	assert.Error(t, CLI(context.Background(), data))
}

func TestCLIFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "d")

	out, err := run(t, "file", "--path", p, "--state", "directory", "--mode", "0750")
	assert.NoError(t, err)
	assert.Contains(t, out, "changed: true")
	assert.Contains(t, out, "state: directory")

	fi, err := os.Lstat(p)
	if assert.NoError(t, err) {
		assert.True(t, fi.IsDir())
		assert.Equal(t, os.FileMode(0750), fi.Mode().Perm())
	}

	out, err = run(t, "file", "--path", p, "--state", "directory", "--mode", "0750")
	assert.NoError(t, err)
	assert.Contains(t, out, "changed: false")
}

func TestCLIFileNoop(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "d")

	out, err := run(t, "file", "--noop", "--path", p, "--state", "directory")
	assert.NoError(t, err)
	assert.Contains(t, out, "changed: true")

	_, err = os.Lstat(p)
	assert.True(t, os.IsNotExist(err), "check mode must not mutate")
}

func TestCLIFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, "file", "--path", "relative/path")
	assert.Error(t, err)

	_, err = run(t, "file", "--path", filepath.Join(dir, "l"), "--state", "link")
	assert.Error(t, err, "link without src")

	_, err = run(t, "file", "--path", filepath.Join(dir, "f"), "--state", "bogus")
	assert.Error(t, err)

	// converge failure: files can't be created
	out, err := run(t, "file", "--path", filepath.Join(dir, "f"))
	assert.Error(t, err)
	assert.Contains(t, out, "failed: true")

	err = CLI(context.Background(), testData(t, "file", "--nope"))
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "cli parse error")
	}
}

func TestCLIYaml(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "input.yaml")
	str := `
graph: test
resources:
  file:
  - path: ` + filepath.Join(dir, "d") + `
    state: directory
  - path: ` + filepath.Join(dir, "l") + `
    state: link
    src: ` + filepath.Join(dir, "d") + `
  - path: ` + filepath.Join(dir, "missing") + `
    state: absent
`
	if err := os.WriteFile(input, []byte(str), 0644); err != nil {
		t.Fatalf("could not write input: %+v", err)
	}

	out, err := run(t, "yaml", input)
	assert.NoError(t, err)
	assert.Contains(t, out, "state: link")
	assert.Contains(t, out, "src: "+filepath.Join(dir, "d"))

	target, err := os.Readlink(filepath.Join(dir, "l"))
	if assert.NoError(t, err) {
		assert.Equal(t, filepath.Join(dir, "d"), target)
	}

	_, err = run(t, "yaml", filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)

	// one invalid entry doesn't stop the rest of the batch
	mixed := filepath.Join(dir, "mixed.yaml")
	str = `
graph: mixed
resources:
  file:
  - path: relative/path
    state: directory
  - path: ` + filepath.Join(dir, "e") + `
    state: directory
`
	if err := os.WriteFile(mixed, []byte(str), 0644); err != nil {
		t.Fatalf("could not write input: %+v", err)
	}
	out, err = run(t, "yaml", mixed)
	assert.Error(t, err)
	assert.Contains(t, out, "failed: true")
	fi, err := os.Lstat(filepath.Join(dir, "e"))
	if assert.NoError(t, err) {
		assert.True(t, fi.IsDir())
	}
}

func TestCLINoSubcommand(t *testing.T) {
	// prints the help and exits cleanly
	assert.NoError(t, CLI(context.Background(), testData(t)))
	assert.NoError(t, CLI(context.Background(), testData(t, "--help")))
	assert.NoError(t, CLI(context.Background(), testData(t, "--version")))
}
