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

// Package yamlgraph provides the facilities for loading a batch of requests
// from a yaml file.
package yamlgraph

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/purpleidea/fsconverge/engine"
	"github.com/purpleidea/fsconverge/engine/resources"
	"github.com/purpleidea/fsconverge/util/errwrap"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

// Resources is the data structure of the set of resources.
type Resources struct {
	// in alphabetical order
	File []*resources.FileRes `yaml:"file"`
}

// GraphConfig is the data structure that describes a single batch to run.
type GraphConfig struct {
	Graph     string    `yaml:"graph"`
	Resources Resources `yaml:"resources"`
	Comment   string    `yaml:"comment"`
}

// Parse parses a data stream into the graph structure.
func (c *GraphConfig) Parse(data []byte) error {
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return err
	}
	if c.Graph == "" {
		return errors.New("graph config: invalid graph")
	}
	return nil
}

// ParseFile reads the file and parses it.
func ParseFile(fs afero.Fs, name string) (*GraphConfig, error) {
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		return nil, errwrap.Wrapf(err, "can't read %s", name)
	}
	c := &GraphConfig{}
	if err := c.Parse(data); err != nil {
		return nil, errwrap.Wrapf(err, "can't parse %s", name)
	}
	return c, nil
}

// Res returns the list of resources in the order they appear, grouped by kind.
// Two resources of the same kind may not manage the same path, and every such
// problem is returned at once. The resources aren't validated here, since an
// invalid one is reported as a failure of its own when the batch runs.
func (c *GraphConfig) Res() ([]engine.Res, error) {
	var resourceList []engine.Res
	var reterr error
	lookup := make(map[string]map[string]struct{})

	// use reflection to avoid duplicating code... better options welcome!
	value := reflect.Indirect(reflect.ValueOf(c.Resources))
	vtype := value.Type()
	for i := 0; i < vtype.NumField(); i++ { // number of fields in struct
		name := vtype.Field(i).Name // string of field name
		field := value.FieldByName(name)
		iface := field.Interface() // interface type of value
		slice := reflect.ValueOf(iface)
		kind := strings.ToLower(name)
		for j := 0; j < slice.Len(); j++ { // loop through resources of same kind
			x := slice.Index(j).Interface()
			res, ok := x.(engine.Res) // convert to Res type
			if !ok || reflect.ValueOf(x).IsNil() {
				return nil, fmt.Errorf("config: can't convert: %v of type: %T to Res", x, x)
			}
			if _, exists := lookup[kind]; !exists {
				lookup[kind] = make(map[string]struct{})
			}
			if _, exists := lookup[kind][res.String()]; exists {
				reterr = errwrap.Append(reterr, fmt.Errorf("%s #%d: duplicate %s", kind, j, res))
				continue
			}
			lookup[kind][res.String()] = struct{}{}
			resourceList = append(resourceList, res)
		}
	}
	if reterr != nil {
		return nil, reterr
	}
	return resourceList, nil
}
