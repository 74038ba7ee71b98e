// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package catalog holds the static table catalogue (spec.md §6) and the
// Loader interface the executor uses to pull column buffers out of
// whatever storage collaborator the caller wires in. Storage itself is
// explicitly out of scope (spec.md §1); this package only describes the
// shape of the collaborator.
package catalog

import "github.com/ikabadzhov/ssbexec/errkit"

// Columns is the static table→column-count map spec.md §6 requires.
var Columns = map[string]int{
	"lineorder": 17,
	"part":      9,
	"supplier":  7,
	"customer":  8,
	"ddate":     17,
}

// ColumnCount returns the total logical column count of table, and
// whether the table is known to the catalogue.
func ColumnCount(table string) (int, bool) {
	n, ok := Columns[table]
	return n, ok
}

// Loader is the external collaborator that materializes column data.
// Implementations own the actual storage; the executor only calls Load
// with the columns the plan inspector determined are demanded.
type Loader interface {
	// Load returns the raw int32 buffer for table's colIndex, and its
	// length. The executor computes min/max immediately after load.
	Load(table string, colIndex int) ([]int32, error)
}

// LoadAll calls loader.Load once per entry in columns, wrapping any
// failure in errkit.ErrLoaderFailed with opID and table attributed per
// spec.md §7.
func LoadAll(opID int, loader Loader, table string, columns []int) (map[int][]int32, error) {
	out := make(map[int][]int32, len(columns))
	for _, col := range columns {
		buf, err := loader.Load(table, col)
		if err != nil {
			return nil, errkit.ErrLoaderFailed.New(opID, table, col, err)
		}
		out[col] = buf
	}
	return out, nil
}
