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
	"github.com/ikabadzhov/ssbexec/column"
	"github.com/ikabadzhov/ssbexec/errkit"
	"github.com/ikabadzhov/ssbexec/plan"
)

// ResolveJoinKeys parses a Join's equi-join condition (col = col) into the
// fact table's raw logical column id and the dimension table's raw
// logical column id. The condition is expressed against the join's
// concatenated schema — fact columns 0..factColumnCount-1, then the
// dimension's own columns offset by factColumnCount (spec.md §4.3,
// mirrored by FullJoin's own `newGroupID := factColumnCount +
// *dim.GroupByColumn`) — so the dimension-side operand is translated back
// to the dimension's own raw id by subtracting factColumnCount before
// either table is consulted. Callers must do this translation before
// calling FilterJoin/FullJoin, which look columns up against each table's
// own (un-offset) column_indices.
func ResolveJoinKeys(opID int, cond plan.Expr, factColumnCount int) (factColID, dimColID int, err error) {
	if cond.Kind != plan.ExprOp || cond.Op != "=" && cond.Op != "==" {
		return 0, 0, errkit.ErrUnsupportedExpr.New(opID, "join condition must be an equality comparison")
	}
	if len(cond.Operands) != 2 {
		return 0, 0, errkit.ErrWrongOperandCount.New(opID, cond.Op, 2, len(cond.Operands))
	}
	left, right := cond.Operands[0], cond.Operands[1]
	if left.Kind != plan.ExprColumn || right.Kind != plan.ExprColumn {
		return 0, 0, errkit.ErrUnsupportedExpr.New(opID, "join condition operands must be columns")
	}
	return left.Input, right.Input - factColumnCount, nil
}

// FilterJoin implements spec.md §4.3's filter-join: it builds a dense
// Boolean hash table over dim's key column by direct addressing and prunes
// fact's selection mask. No data from dim survives; dim is not mutated.
// factColID and dimColID are raw logical ids into fact's and dim's own
// column_indices respectively (see ResolveJoinKeys).
func FilterJoin(opID int, fact, dim *column.Table, factColID, dimColID int) error {
	factKey, _, ok := fact.Column(factColID)
	if !ok {
		return errkit.ErrUnknownColumn.New(opID, fact.Name, factColID)
	}
	dimKey, _, ok := dim.Column(dimColID)
	if !ok {
		return errkit.ErrUnknownColumn.New(opID, dim.Name, dimColID)
	}

	size, ok := dimKey.Range()
	if !ok {
		return errkit.ErrAllocationFailed.New(opID, 0, "dimension key has an invalid min/max hint")
	}
	hashTable := make([]bool, size)
	for i, live := range dim.Mask {
		if live {
			hashTable[dimKey.Data[i]-dimKey.Min] = true
		}
	}

	for i, live := range fact.Mask {
		if !live {
			continue
		}
		k := factKey.Data[i]
		if k < dimKey.Min || k > dimKey.Max || !hashTable[k-dimKey.Min] {
			fact.Mask[i] = false
		}
	}
	return nil
}

// FullJoin implements spec.md §4.3's full-join: it builds a dense table of
// (present, group_key) slots over dim's key column, then rewrites fact's
// foreign-key column in-place to dim's group-by value, clearing the live
// bit of any fact row whose key has no match. column_indices is updated so
// the foreign-key's old logical id is replaced by dim's group-by id,
// offset by factColumnCount (the fact table's total logical column count,
// per spec.md §4.3: "offset by the fact's logical column count").
// factColID and dimColID are raw logical ids into fact's and dim's own
// column_indices respectively (see ResolveJoinKeys).
func FullJoin(opID int, fact, dim *column.Table, factColID, dimColID int, factColumnCount int) error {
	if dim.GroupByColumn == nil {
		return errkit.ErrUnsupportedExpr.New(opID, "full-join requires the dimension's group_by_column to be set")
	}
	groupCol, _, ok := dim.Column(*dim.GroupByColumn)
	if !ok {
		return errkit.ErrUnknownColumn.New(opID, dim.Name, *dim.GroupByColumn)
	}
	dimKey, _, ok := dim.Column(dimColID)
	if !ok {
		return errkit.ErrUnknownColumn.New(opID, dim.Name, dimColID)
	}
	factSlot, slot, ok := fact.Column(factColID)
	if !ok {
		return errkit.ErrUnknownColumn.New(opID, fact.Name, factColID)
	}

	size, ok := dimKey.Range()
	if !ok {
		return errkit.ErrAllocationFailed.New(opID, 0, "dimension key has an invalid min/max hint")
	}
	present := make([]bool, size)
	groupKey := make([]int32, size)
	for i, live := range dim.Mask {
		if !live {
			continue
		}
		b := dimKey.Data[i] - dimKey.Min
		present[b] = true
		groupKey[b] = groupCol.Data[i]
	}

	for i, live := range fact.Mask {
		if !live {
			continue
		}
		k := factSlot.Data[i]
		if k < dimKey.Min || k > dimKey.Max || !present[k-dimKey.Min] {
			fact.Mask[i] = false
			continue
		}
		factSlot.Data[i] = groupKey[k-dimKey.Min]
	}
	factSlot.Min, factSlot.Max = groupCol.Min, groupCol.Max

	newGroupID := factColumnCount + *dim.GroupByColumn
	delete(fact.ColumnIndices, factColID)
	fact.ColumnIndices[newGroupID] = slot
	return nil
}
