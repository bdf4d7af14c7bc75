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

package resources

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"testing"

	"github.com/purpleidea/fsconverge/engine"
	"github.com/purpleidea/fsconverge/seclabel"
	"github.com/purpleidea/fsconverge/util"

	"github.com/davecgh/go-spew/spew"
	"github.com/kylelemons/godebug/pretty"
	"gopkg.in/yaml.v2"
)

// Step is used for the timeline in tests.
type Step interface {
	Action() error
	Expect() error
}

type manualStep struct {
	action func() error
	expect func() error
}

func (obj *manualStep) Action() error {
	return obj.action()
}
func (obj *manualStep) Expect() error {
	return obj.expect()
}

// NewManualStep creates a new manual step with an action and an expect test.
func NewManualStep(action, expect func() error) Step {
	return &manualStep{
		action: action,
		expect: expect,
	}
}

func noop() error { return nil }

// fixture steps that build the initial state
func mkdirStep(p string) Step {
	return NewManualStep(func() error { return os.MkdirAll(p, 0755) }, noop)
}
func fileStep(p string, mode os.FileMode) Step {
	return NewManualStep(func() error {
		if err := os.WriteFile(p, []byte("hello\n"), mode); err != nil {
			return err
		}
		return os.Chmod(p, mode) // umask
	}, noop)
}
func linkStep(target, p string) Step {
	return NewManualStep(func() error { return os.Symlink(target, p) }, noop)
}

// convergeStep runs the resource and checks the changed result.
func convergeStep(res *FileRes, apply, changed bool) Step {
	var result *engine.Result
	var err error
	return NewManualStep(func() error {
		result, err = res.Converge(apply)
		return err
	}, func() error {
		if result.Changed != changed {
			return fmt.Errorf("expected changed: %t, got: %t, result: %s", changed, result.Changed, spew.Sdump(result))
		}
		return nil
	})
}

// failStep runs the resource and expects an error of the class. The status
// must be present exactly when the path exists.
func failStep(res *FileRes, class engine.Error, exists bool) Step {
	var err error
	return NewManualStep(func() error {
		_, err = res.Converge(true)
		return nil
	}, func() error {
		if err == nil {
			return fmt.Errorf("expected an error")
		}
		if !errors.Is(err, class) {
			return fmt.Errorf("expected %v, got: %+v", class, err)
		}
		fe, ok := err.(*engine.FileError)
		if !ok {
			return fmt.Errorf("expected a FileError, got: %T", err)
		}
		if exists != (fe.Status != nil) {
			return fmt.Errorf("unexpected status: %s", spew.Sdump(fe))
		}
		return nil
	})
}

// expectation steps that check the result
func kindStep(p string, kind engine.Kind) Step {
	return NewManualStep(noop, func() error {
		k, err := engine.Classify(util.NewOsFs(), p)
		if err != nil {
			return err
		}
		if k != kind {
			return fmt.Errorf("expected %s to be a %s, got: %s", p, kind, k)
		}
		return nil
	})
}
func modeStep(p string, mode os.FileMode) Step {
	return NewManualStep(noop, func() error {
		fi, err := os.Stat(p)
		if err != nil {
			return err
		}
		if m := fi.Mode().Perm(); m != mode {
			return fmt.Errorf("expected %s to have mode %#o, got: %#o", p, mode, m)
		}
		return nil
	})
}
func targetStep(p, target string) Step {
	return NewManualStep(noop, func() error {
		s, err := os.Readlink(p)
		if err != nil {
			return err
		}
		if s != target {
			return fmt.Errorf("expected %s to point to %s, got: %s", p, target, s)
		}
		return nil
	})
}
func ownerStep(p, owner string) Step {
	return NewManualStep(noop, func() error {
		status, err := engine.Inspect(util.NewOsFs(), nil, p)
		if err != nil {
			return err
		}
		if status.Owner != owner {
			return fmt.Errorf("expected %s to be owned by %s, got: %s", p, owner, status.Owner)
		}
		return nil
	})
}

func TestFileConverge(t *testing.T) {
	type test struct { // an individual test
		name     string
		res      *FileRes
		timeline []Step
	}
	testCases := []test{}

	root := t.TempDir()
	dir := func() string { // one empty dir per test
		d := filepath.Join(root, fmt.Sprintf("%d", len(testCases)))
		if err := os.Mkdir(d, 0755); err != nil {
			t.Fatalf("could not mkdir: %+v", err)
		}
		return d
	}
	newRes := func(p, state string) *FileRes {
		res := (&FileRes{}).Default().(*FileRes)
		res.Path = p
		res.State = state
		return res
	}

	userObj, err := user.Current()
	if err != nil {
		t.Fatalf("could not lookup current user: %+v", err)
	}

	{
		d := dir()
		p := filepath.Join(d, "a", "b")
		res := newRes(p, "directory")
		res.Mode = "0750"
		res.Owner = userObj.Username
		testCases = append(testCases, test{
			name: "absent to directory",
			res:  res,
			timeline: []Step{
				convergeStep(res, true, true),
				kindStep(p, engine.KindDirectory),
				modeStep(p, 0750),
				ownerStep(p, userObj.Username),
				convergeStep(res, true, false), // idempotent
			},
		})
	}
	{
		d := dir()
		p := filepath.Join(d, "f")
		res := newRes(p, "file")
		testCases = append(testCases, test{
			name: "absent to file",
			res:  res,
			timeline: []Step{
				failStep(res, engine.ErrUnsupportedCreate, false),
				kindStep(p, engine.KindAbsent),
			},
		})
	}
	{
		d := dir()
		p := filepath.Join(d, "f")
		res := newRes(p, "file")
		res.Mode = "0644"
		testCases = append(testCases, test{
			name: "existing file with the same mode",
			res:  res,
			timeline: []Step{
				fileStep(p, 0644),
				convergeStep(res, true, false),
				modeStep(p, 0644),
			},
		})
	}
	{
		d := dir()
		p := filepath.Join(d, "f")
		res := newRes(p, "file")
		res.Mode = "0600"
		testCases = append(testCases, test{
			name: "mode round trip",
			res:  res,
			timeline: []Step{
				fileStep(p, 0644),
				convergeStep(res, false, true), // check only
				modeStep(p, 0644),
				convergeStep(res, true, true),
				modeStep(p, 0600),
				convergeStep(res, true, false),
			},
		})
	}
	{
		d := dir()
		p := filepath.Join(d, "f")
		res := newRes(p, "directory")
		testCases = append(testCases, test{
			name: "file to directory",
			res:  res,
			timeline: []Step{
				fileStep(p, 0640),
				failStep(res, engine.ErrIllegalTransition, true),
				kindStep(p, engine.KindFile),
				modeStep(p, 0640),
			},
		})
	}
	{
		d := dir()
		p := filepath.Join(d, "l")
		res := newRes(p, "file")
		testCases = append(testCases, test{
			name: "link to file",
			res:  res,
			timeline: []Step{
				fileStep(filepath.Join(d, "f"), 0644),
				linkStep(filepath.Join(d, "f"), p),
				failStep(res, engine.ErrIllegalTransition, true),
				kindStep(p, engine.KindLink),
			},
		})
	}
	{
		d := dir()
		p := filepath.Join(d, "d")
		res := newRes(p, "link")
		res.Src = "/"
		testCases = append(testCases, test{
			name: "directory to link",
			res:  res,
			timeline: []Step{
				mkdirStep(p),
				failStep(res, engine.ErrIllegalTransition, true),
				kindStep(p, engine.KindDirectory),
			},
		})
	}
	{
		d := dir()
		p := filepath.Join(d, "d")
		outside := filepath.Join(d, "outside")
		res := newRes(p, "absent")
		testCases = append(testCases, test{
			name: "directory to absent",
			res:  res,
			timeline: []Step{
				mkdirStep(filepath.Join(p, "x", "y")),
				fileStep(filepath.Join(p, "x", "y", "z"), 0644),
				mkdirStep(outside),
				fileStep(filepath.Join(outside, "keep"), 0644),
				linkStep(outside, filepath.Join(p, "x", "link")),
				convergeStep(res, false, true), // check only
				kindStep(p, engine.KindDirectory),
				convergeStep(res, true, true),
				kindStep(p, engine.KindAbsent),
				kindStep(filepath.Join(outside, "keep"), engine.KindFile),
				convergeStep(res, true, false),
			},
		})
	}
	{
		d := dir()
		p := filepath.Join(d, "l")
		target := filepath.Join(d, "t")
		res := newRes(p, "absent")
		testCases = append(testCases, test{
			name: "link to directory to absent",
			res:  res,
			timeline: []Step{
				mkdirStep(filepath.Join(target, "sub")),
				linkStep(target, p),
				convergeStep(res, true, true),
				kindStep(p, engine.KindAbsent),
				kindStep(filepath.Join(target, "sub"), engine.KindDirectory),
			},
		})
	}
	{
		d := dir()
		p := filepath.Join(d, "nothing")
		res := newRes(p, "absent")
		testCases = append(testCases, test{
			name: "absent to absent",
			res:  res,
			timeline: []Step{
				convergeStep(res, true, false),
				kindStep(p, engine.KindAbsent),
			},
		})
	}
	{
		d := dir()
		p := filepath.Join(d, "l")
		src := filepath.Join(d, "foo")
		res := newRes(p, "link")
		res.Src = src
		testCases = append(testCases, test{
			name: "absent to link",
			res:  res,
			timeline: []Step{
				fileStep(src, 0644),
				convergeStep(res, false, true), // check only
				kindStep(p, engine.KindAbsent),
				convergeStep(res, true, true),
				kindStep(p, engine.KindLink),
				targetStep(p, src),
				convergeStep(res, true, false),
			},
		})
	}
	{
		d := dir()
		p := filepath.Join(d, "l")
		res := newRes(p, "link")
		res.Src = filepath.Join(d, "nope")
		testCases = append(testCases, test{
			name: "link to a missing src",
			res:  res,
			timeline: []Step{
				failStep(res, engine.ErrInvalidRequest, false),
				kindStep(p, engine.KindAbsent),
			},
		})
	}
	{
		d := dir()
		p := filepath.Join(d, "l")
		src := filepath.Join(d, "dangling")
		res := newRes(p, "link")
		res.Src = src
		res.Mode = "0644"
		testCases = append(testCases, test{
			name: "link to a dangling src",
			res:  res,
			timeline: []Step{
				linkStep(filepath.Join(d, "nowhere"), src),
				failStep(res, engine.ErrInvalidRequest, false),
				kindStep(p, engine.KindAbsent),
				failStep(res, engine.ErrInvalidRequest, false), // still nothing done
				kindStep(p, engine.KindAbsent),
			},
		})
	}
	{
		d := dir()
		f := filepath.Join(d, "f")
		p := filepath.Join(f, "child")
		res := newRes(p, "absent")
		testCases = append(testCases, test{
			name: "absent below a file",
			res:  res,
			timeline: []Step{
				fileStep(f, 0644),
				convergeStep(res, true, false),
				kindStep(f, engine.KindFile),
			},
		})
	}
	{
		d := dir()
		f := filepath.Join(d, "f")
		p := filepath.Join(f, "child")
		res := newRes(p, "directory")
		testCases = append(testCases, test{
			name: "directory below a file",
			res:  res,
			timeline: []Step{
				fileStep(f, 0644),
				failStep(res, engine.ErrSyscallFailure, false),
				kindStep(f, engine.KindFile),
			},
		})
	}
	{
		d := dir()
		p := filepath.Join(d, "l")
		a := filepath.Join(d, "a")
		b := filepath.Join(d, "b")
		res := newRes(p, "link")
		res.Src = b
		testCases = append(testCases, test{
			name: "link retarget",
			res:  res,
			timeline: []Step{
				fileStep(a, 0644),
				fileStep(b, 0644),
				linkStep(a, p),
				convergeStep(res, false, true), // check only
				targetStep(p, a),
				convergeStep(res, true, true),
				targetStep(p, b),
				convergeStep(res, true, false),
			},
		})
	}
	{
		d := dir()
		p := filepath.Join(d, "l")
		res := newRes(p, "link")
		res.Src = filepath.Join(d, "a")
		testCases = append(testCases, test{
			name: "relative link target matches",
			res:  res,
			timeline: []Step{
				fileStep(filepath.Join(d, "a"), 0644),
				linkStep("a", p),
				convergeStep(res, true, false),
				targetStep(p, "a"),
			},
		})
	}
	{
		d := dir()
		p := filepath.Join(d, "l")
		src := filepath.Join(d, "a")
		res := newRes(p, "link")
		res.Src = src
		res.Mode = "0600"
		testCases = append(testCases, test{
			name: "link mode applies to the destination",
			res:  res,
			timeline: []Step{
				fileStep(src, 0644),
				convergeStep(res, true, true),
				modeStep(src, 0600),
				kindStep(p, engine.KindLink),
				convergeStep(res, true, false),
			},
		})
	}
	{
		d := dir()
		p := filepath.Join(d, "f")
		res := newRes(p, "file")
		res.Owner = "no-such-user-here"
		testCases = append(testCases, test{
			name: "unknown owner",
			res:  res,
			timeline: []Step{
				fileStep(p, 0644),
				failStep(res, engine.ErrLookupFailure, true),
			},
		})
	}
	{
		d := dir()
		p := filepath.Join(d, "f")
		res := newRes(p, "file")
		res.SEType = "etc_t"
		res.SEUser = seclabel.Default
		testCases = append(testCases, test{
			name: "labels are skipped when unsupported",
			res:  res,
			timeline: []Step{
				fileStep(p, 0644),
				convergeStep(res, true, false),
			},
		})
	}

	names := map[string]struct{}{}
	for index, tc := range testCases { // run all the tests
		if tc.name == "" {
			t.Errorf("test #%d: not named", index)
			continue
		}
		if _, exists := names[tc.name]; exists {
			t.Errorf("test #%d: duplicate sub test name of: %s", index, tc.name)
			continue
		}
		names[tc.name] = struct{}{}

		res, timeline := tc.res, tc.timeline
		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			if err := res.Validate(); err != nil {
				t.Errorf("test #%d: FAIL", index)
				t.Errorf("test #%d: could not validate: %+v", index, err)
				return
			}

			logf := func(format string, v ...interface{}) {
				t.Logf(fmt.Sprintf("test #%d: ", index)+format, v...)
			}
			init := &engine.Init{
				Program: "test",
				Fs:      util.NewOsFs(),
				Labeler: &seclabel.Stub{},
				Event:   func() {},
				Debug:   testing.Verbose(),
				Logf:    logf,
			}
			if err := res.Init(init); err != nil {
				t.Errorf("test #%d: FAIL", index)
				t.Errorf("test #%d: could not init: %+v", index, err)
				return
			}
			defer res.Cleanup()

			for ix, step := range timeline {
				if err := step.Action(); err != nil {
					t.Errorf("test #%d: FAIL", index)
					t.Errorf("test #%d: step(%d) action failed: %+v", index, ix, err)
					return
				}
				if err := step.Expect(); err != nil {
					t.Errorf("test #%d: FAIL", index)
					t.Errorf("test #%d: step(%d) expect failed: %+v", index, ix, err)
					return
				}
			}
		})
	}
}

// TestFileScenario converges a new directory with an owner. A real change of
// owner needs root, so without it we use our own user.
func TestFileScenario(t *testing.T) {
	owner := ""
	if userObj, err := user.Current(); err == nil {
		owner = userObj.Username
	}
	if os.Geteuid() == 0 {
		if _, err := user.Lookup("nobody"); err == nil {
			owner = "nobody"
		}
	}
	if owner == "" {
		t.Skip("no user to test with")
	}

	p := filepath.Join(t.TempDir(), "scenario")
	res := (&FileRes{}).Default().(*FileRes)
	res.Path = p
	res.State = "directory"
	res.Mode = "0755"
	res.Owner = owner

	init := &engine.Init{
		Fs:      util.NewOsFs(),
		Labeler: &seclabel.Stub{},
		Logf: func(format string, v ...interface{}) {
			t.Logf("test: "+format, v...)
		},
	}
	if err := res.Init(init); err != nil {
		t.Errorf("could not init: %+v", err)
		return
	}
	result, err := res.Converge(true)
	if err != nil {
		t.Errorf("could not converge: %+v", err)
		return
	}
	exp := &engine.Result{
		Changed: true,
		Status: engine.Status{
			Path:  p,
			State: engine.KindDirectory,
			Owner: owner,
			Group: result.Group, // whatever our group is
			Mode:  "0755",
		},
	}
	if diff := pretty.Compare(exp, result); diff != "" {
		t.Errorf("result diff: (-want +got)\n%s", diff)
	}
}

func TestFileValidate(t *testing.T) {
	testCases := []struct {
		name string
		res  *FileRes
		fail bool
	}{
		{"file", &FileRes{Path: "/tmp/f", State: "file"}, false},
		{"home", &FileRes{Path: "~/f", State: "directory"}, false},
		{"empty path", &FileRes{Path: "", State: "file"}, true},
		{"relative path", &FileRes{Path: "tmp/f", State: "file"}, true},
		{"bad state", &FileRes{Path: "/tmp/f", State: "hard"}, true},
		{"empty state", &FileRes{Path: "/tmp/f", State: ""}, true},
		{"link", &FileRes{Path: "/tmp/l", State: "link", Src: "/etc/foo"}, false},
		{"link without src", &FileRes{Path: "/tmp/l", State: "link"}, true},
		{"link relative src", &FileRes{Path: "/tmp/l", State: "link", Src: "foo"}, true},
		{"src without link", &FileRes{Path: "/tmp/f", State: "file", Src: "/etc/foo"}, true},
		{"mode", &FileRes{Path: "/tmp/f", State: "file", Mode: "0755"}, false},
		{"bad mode", &FileRes{Path: "/tmp/f", State: "file", Mode: "u+x"}, true},
	}
	for index, tc := range testCases {
		t.Run(fmt.Sprintf("test #%d (%s)", index, tc.name), func(t *testing.T) {
			err := tc.res.Validate()
			if !tc.fail && err != nil {
				t.Errorf("test #%d: unexpected error: %+v", index, err)
			}
			if tc.fail && err == nil {
				t.Errorf("test #%d: expected an error", index)
			}
			if tc.fail && err != nil && !errors.Is(err, engine.ErrInvalidRequest) {
				t.Errorf("test #%d: unexpected error class: %+v", index, err)
			}
		})
	}
}

func TestFileYAML(t *testing.T) {
	str := `
path: /tmp/whatever
mode: "0640"
setype: etc_t
`
	res := &FileRes{}
	if err := yaml.Unmarshal([]byte(str), res); err != nil {
		t.Errorf("could not unmarshal: %+v", err)
		return
	}
	exp := &FileRes{
		Path:    "/tmp/whatever",
		State:   FileStateFile,
		Mode:    "0640",
		SEType:  "etc_t",
		SELevel: seclabel.DefaultLevel,
	}
	if diff := pretty.Compare(exp, res); diff != "" {
		t.Errorf("diff: (-want +got)\n%s", diff)
	}
	if err := res.Validate(); err != nil {
		t.Errorf("could not validate: %+v", err)
	}
}
