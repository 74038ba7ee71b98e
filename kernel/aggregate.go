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
	"sync/atomic"

	"github.com/ikabadzhov/ssbexec/column"
	"github.com/ikabadzhov/ssbexec/errkit"
	"github.com/ikabadzhov/ssbexec/plan"
)

// ScalarSum implements spec.md §4.4's no-GROUP-BY branch: it reduces sumCol
// over tbl's live rows into a single-row, single-column accumulator table.
func ScalarSum(opID int, tbl *column.Table, sumCol int) (*column.Table, error) {
	col, _, ok := tbl.Column(sumCol)
	if !ok {
		return nil, errkit.ErrUnknownColumn.New(opID, tbl.Name, sumCol)
	}

	var total uint64
	for i, live := range tbl.Mask {
		if live {
			total += uint64(col.Data[i])
		}
	}

	out := column.NewAccumColumn([]uint64{total})
	return column.NewTable(tbl.Name, []*column.Column{out}, 1, map[int]int{0: 0}), nil
}

// GroupBy implements spec.md §4.4's GROUP BY branch: a perfect
// direct-addressing hash over the grouping columns' own [min, max] hints.
// R, the product of per-column ranges, must not exceed maxGroupSpace or
// ErrGroupSpaceTooLarge is returned instead of attempting the allocation.
func GroupBy(opID int, tbl *column.Table, group []int, sumCol int, maxGroupSpace int) (*column.Table, error) {
	if len(group) == 0 {
		return nil, errkit.ErrWrongOperandCount.New(opID, "GROUP BY", 1, 0)
	}

	groupCols := make([]*column.Column, len(group))
	strides := make([]int, len(group))
	r := 1
	for j, colID := range group {
		col, _, ok := tbl.Column(colID)
		if !ok {
			return nil, errkit.ErrUnknownColumn.New(opID, tbl.Name, colID)
		}
		size, ok := col.Range()
		if !ok {
			return nil, errkit.ErrAllocationFailed.New(opID, 0, "group-by column has an invalid min/max hint")
		}
		groupCols[j] = col
		strides[j] = r
		// R = Π_j (max_j - min_j + 1), checked after every factor so an
		// early dimension with a huge range reports before a later
		// multiplication can overflow.
		if size != 0 && r > maxGroupSpace/size {
			return nil, errkit.ErrGroupSpaceTooLarge.New(opID, r*size, maxGroupSpace)
		}
		r *= size
	}

	sum, _, ok := tbl.Column(sumCol)
	if !ok {
		return nil, errkit.ErrUnknownColumn.New(opID, tbl.Name, sumCol)
	}

	resFlags := make([]bool, r)
	accum := make([]uint64, r)
	keyBufs := make([][]int32, len(group))
	for j := range keyBufs {
		keyBufs[j] = make([]int32, r)
	}

	for i, live := range tbl.Mask {
		if !live {
			continue
		}
		h := 0
		for j, col := range groupCols {
			h += int(col.Data[i]-col.Min) * strides[j]
		}
		resFlags[h] = true
		for j, col := range groupCols {
			keyBufs[j][h] = col.Data[i]
		}
		atomic.AddUint64(&accum[h], uint64(sum.Data[i]))
	}

	outCols := make([]*column.Column, 0, len(group)+1)
	colIndices := make(map[int]int, len(group)+1)
	for j := range group {
		c := column.NewInt32Column(keyBufs[j])
		c.Min, c.Max = groupCols[j].Min, groupCols[j].Max
		colIndices[j] = len(outCols)
		outCols = append(outCols, c)
	}
	accumCol := column.NewAccumColumn(accum)
	colIndices[len(group)] = len(outCols)
	outCols = append(outCols, accumCol)

	out := column.NewTable(tbl.Name, outCols, r, colIndices)
	out.Mask = resFlags
	return out, nil
}
