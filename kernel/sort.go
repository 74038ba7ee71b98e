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

package kernel

import (
	"sort"

	"github.com/ikabadzhov/ssbexec/column"
	"github.com/ikabadzhov/ssbexec/errkit"
	"github.com/ikabadzhov/ssbexec/plan"
)

// Sort implements the multi-key sort kernel (SPEC_FULL.md): it permutes
// tbl's live rows into ascending/descending key order, one key at a time
// in keys order, and compacts the result (dead rows are dropped, matching
// Compact's output contract). Accumulator columns compare their uint64
// values; plain columns compare their int32 values.
func Sort(opID int, tbl *column.Table, keys []plan.SortKey) (*column.Table, error) {
	if len(keys) == 0 {
		return nil, errkit.ErrWrongOperandCount.New(opID, "Sort", 1, 0)
	}

	cols := make([]*column.Column, len(keys))
	for i, k := range keys {
		col, _, ok := tbl.Column(k.Column)
		if !ok {
			return nil, errkit.ErrUnknownColumn.New(opID, tbl.Name, k.Column)
		}
		cols[i] = col
	}

	live := make([]int, 0, tbl.RowCount)
	for i, l := range tbl.Mask {
		if l {
			live = append(live, i)
		}
	}

	sort.SliceStable(live, func(x, y int) bool {
		a, b := live[x], live[y]
		for i, k := range keys {
			col := cols[i]
			var equal, less bool
			if col.Kind == column.KindAccum {
				av, bv := col.Accum[a], col.Accum[b]
				equal, less = av == bv, av < bv
			} else {
				av, bv := col.Data[a], col.Data[b]
				equal, less = av == bv, av < bv
			}
			if equal {
				continue
			}
			if k.Ascending {
				return less
			}
			return !less
		}
		return false
	})

	newCols := make([]*column.Column, len(tbl.Columns))
	for slot, col := range tbl.Columns {
		switch col.Kind {
		case column.KindAccum:
			buf := make([]uint64, len(live))
			for j, i := range live {
				buf[j] = col.Accum[i]
			}
			newCols[slot] = column.NewAccumColumn(buf)
		default:
			buf := make([]int32, len(live))
			for j, i := range live {
				buf[j] = col.Data[i]
			}
			newCols[slot] = column.NewInt32Column(buf)
			newCols[slot].Min, newCols[slot].Max = col.Min, col.Max
		}
	}

	colIndices := make(map[int]int, len(tbl.ColumnIndices))
	for k, v := range tbl.ColumnIndices {
		colIndices[k] = v
	}

	out := column.NewTable(tbl.Name, newCols, len(live), colIndices)
	out.GroupByColumn = tbl.GroupByColumn
	return out, nil
}
