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
	"os"
	"path/filepath"

	"github.com/purpleidea/fsconverge/util"

	"github.com/spf13/afero"
)

// RemoveTree removes whatever is at the path. A real directory is removed
// depth first, and the first entry that can't be removed stops everything and
// is named in the error. A symlink is always just unlinked, even if it points
// to a directory. Removing the root directory is refused, and so is anything
// that isn't a clean absolute path. If nothing is there, this is a no-op.
func RemoveTree(fs Fs, name string) error {
	if name == "" || !filepath.IsAbs(name) || filepath.Clean(name) != name {
		return Errorf(ErrInvalidRequest, nil, "refusing to remove unclean path: %s", name)
	}
	if util.IsRoot(name) {
		return Errorf(ErrInvalidRequest, nil, "refusing to remove the root directory")
	}
	return removeTree(fs, name)
}

func removeTree(fs Fs, name string) error {
	fi, err := Lstat(fs, name)
	if IsNotExist(err) {
		return nil
	}
	if err != nil {
		return Errorf(ErrSyscallFailure, err, "can't stat %s", name)
	}

	if KindOf(fi) == KindDirectory {
		entries, err := afero.ReadDir(fs, name) // sorted by name
		if err != nil {
			return Errorf(ErrSyscallFailure, err, "can't read directory %s", name)
		}
		for _, x := range entries {
			if err := removeTree(fs, filepath.Join(name, x.Name())); err != nil {
				return err // already names the entry
			}
		}
	}

	if err := fs.Remove(name); err != nil && !os.IsNotExist(err) {
		return Errorf(ErrSyscallFailure, err, "can't remove %s", name)
	}
	return nil
}
