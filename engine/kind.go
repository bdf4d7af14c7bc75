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

package engine

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// FileInfo is the file info that our file system returns.
type FileInfo = os.FileInfo

// Kind is the kind of a file system object at a path.
type Kind int

const (
	// KindAbsent means that nothing exists at the path.
	KindAbsent Kind = iota
	// KindFile is a regular file, or any other non-directory object which
	// isn't a symlink.
	KindFile
	// KindDirectory is a real directory and never a symlink to one.
	KindDirectory
	// KindLink is a symlink, whether it dangles or not.
	KindLink
)

// String returns the name of the kind as used in requests and results.
func (obj Kind) String() string {
	switch obj {
	case KindAbsent:
		return "absent"
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	case KindLink:
		return "link"
	}
	return fmt.Sprintf("Kind(%d)", int(obj))
}

// MarshalYAML returns the name of the kind.
func (obj Kind) MarshalYAML() (interface{}, error) {
	return obj.String(), nil
}

// UnmarshalYAML parses the name of the kind.
func (obj *Kind) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	k, err := ParseKind(s)
	if err != nil {
		return err
	}
	*obj = k
	return nil
}

// ParseKind returns the kind for one of the names absent, file, directory or
// link.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "absent":
		return KindAbsent, nil
	case "file":
		return KindFile, nil
	case "directory":
		return KindDirectory, nil
	case "link":
		return KindLink, nil
	}
	return KindAbsent, Errorf(ErrInvalidRequest, nil, "invalid state: %s", s)
}

// KindOf returns the kind of object that the file info describes.
func KindOf(fi FileInfo) Kind {
	mode := fi.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		return KindLink
	case mode.IsDir():
		return KindDirectory
	}
	return KindFile
}

// IsNotExist returns true if the error means that nothing can be at the path.
// This includes a path with a regular file where a parent directory should be.
func IsNotExist(err error) bool {
	return os.IsNotExist(err) || errors.Is(err, syscall.ENOTDIR)
}

// Classify looks at what is at the path without following a final symlink. A
// dangling symlink is a KindLink. Only a path that can't exist is absent, any
// other error, such as a permission problem, is returned.
func Classify(fs Fs, name string) (Kind, error) {
	fi, err := Lstat(fs, name)
	if IsNotExist(err) {
		return KindAbsent, nil
	}
	if err != nil {
		if _, ok := err.(*OpError); ok {
			return KindAbsent, err
		}
		return KindAbsent, Errorf(ErrSyscallFailure, err, "can't stat %s", name)
	}
	return KindOf(fi), nil
}
