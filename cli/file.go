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

package cli

import (
	"github.com/purpleidea/fsconverge/engine"
	"github.com/purpleidea/fsconverge/engine/resources"
	"github.com/purpleidea/fsconverge/lib"
)

// FileArgs is the CLI parsing structure and type of the parsed result. This
// particular one is a single file resource built from the flags.
type FileArgs struct {
	lib.Config // embedded config (can't be a pointer) https://github.com/alexflint/go-arg/issues/240

	resources.FileRes // embedded resource, which has the flags for each field
}

// Resources returns the single resource that the flags describe.
func (obj *FileArgs) Resources() ([]engine.Res, error) {
	res := &resources.FileRes{}
	*res = obj.FileRes // copy
	if err := engine.Validate(res); err != nil {
		return nil, err
	}
	return []engine.Res{res}, nil
}
