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
	"github.com/purpleidea/fsconverge/lib"
	"github.com/purpleidea/fsconverge/util"
	"github.com/purpleidea/fsconverge/util/errwrap"
	"github.com/purpleidea/fsconverge/yamlgraph"
)

// YamlArgs is the yaml CLI parsing structure and type of the parsed result.
type YamlArgs struct {
	lib.Config // embedded config (can't be a pointer) https://github.com/alexflint/go-arg/issues/240

	// Input is the path to the yaml file with the batch of resources.
	Input string `arg:"positional,required" help:"yaml file to converge"`
}

// Resources returns the resources in the yaml file. Every invalid resource is
// reported together.
func (obj *YamlArgs) Resources() ([]engine.Res, error) {
	p, err := util.ExpandHome(obj.Input)
	if err != nil {
		return nil, errwrap.Wrapf(err, "can't expand %s", obj.Input)
	}
	config, err := yamlgraph.ParseFile(util.NewOsFs(), p)
	if err != nil {
		return nil, err
	}
	return config.Res()
}
