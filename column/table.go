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

package column

import "fmt"

// Table is an ordered array of columns sharing one row count, one
// selection mask, and a map from the logical column ids the plan
// references to the physical slot that currently holds that column's
// data.
type Table struct {
	Name string

	Columns []*Column
	// RowCount is the length every live column's buffer must share.
	RowCount int
	// Mask is true at position i iff row i is currently live. Kernels
	// must not read or write positions where Mask[i] is false, except
	// the selection kernel, which evaluates its predicate at every
	// position and composes the result into Mask.
	Mask []bool
	// ColumnIndices maps a logical column id, as referenced by the plan,
	// to the physical slot in Columns. It holds exactly one entry per
	// column present in the output schema.
	ColumnIndices map[int]int

	// GroupByColumn, if non-nil, is the logical id of the column a
	// downstream join should propagate in place of this table's own key,
	// steering the join-direction choice (spec.md §4.3).
	GroupByColumn *int
}

// NewTable builds a table with an all-live mask of the given row count.
// colIndices maps logical id -> physical slot in cols; callers are
// responsible for colIndices containing exactly one entry per column in
// cols.
func NewTable(name string, cols []*Column, rowCount int, colIndices map[int]int) *Table {
	mask := make([]bool, rowCount)
	for i := range mask {
		mask[i] = true
	}
	return &Table{
		Name:          name,
		Columns:       cols,
		RowCount:      rowCount,
		Mask:          mask,
		ColumnIndices: colIndices,
	}
}

// Live reports whether row i is currently selected.
func (t *Table) Live(i int) bool {
	return t.Mask[i]
}

// LiveCount returns the number of rows currently selected.
func (t *Table) LiveCount() int {
	n := 0
	for _, v := range t.Mask {
		if v {
			n++
		}
	}
	return n
}

// Column returns the physical column holding logical id, and its slot
// index, or ok=false if the table has no such column.
func (t *Table) Column(logicalID int) (col *Column, slot int, ok bool) {
	slot, ok = t.ColumnIndices[logicalID]
	if !ok {
		return nil, 0, false
	}
	return t.Columns[slot], slot, true
}

// CheckInvariants validates spec.md §3's per-operator invariants: every
// live column shares the table's row count, and every physical column has
// a ColumnIndices entry. The tests call it; the executor does not. A
// violation here is a bug in a kernel, not a problem with user input.
func (t *Table) CheckInvariants() error {
	for _, col := range t.Columns {
		if col.Len() != t.RowCount {
			return fmt.Errorf("table %q: column has length %d, want %d", t.Name, col.Len(), t.RowCount)
		}
	}
	if len(t.Mask) != t.RowCount {
		return fmt.Errorf("table %q: mask has length %d, want %d", t.Name, len(t.Mask), t.RowCount)
	}

	seen := make(map[int]bool, len(t.Columns))
	for logicalID, slot := range t.ColumnIndices {
		if slot < 0 || slot >= len(t.Columns) {
			return fmt.Errorf("table %q: column_indices[%d] = %d out of range", t.Name, logicalID, slot)
		}
		if seen[slot] {
			return fmt.Errorf("table %q: physical slot %d is aliased by two logical ids", t.Name, slot)
		}
		seen[slot] = true
	}
	if len(seen) != len(t.Columns) {
		return fmt.Errorf("table %q: column_indices covers %d of %d physical columns", t.Name, len(seen), len(t.Columns))
	}
	return nil
}

// Compact builds a new table containing only the live rows of t, with an
// all-true mask over the (now dense) result. The sort kernel produces
// the same dense shape with its own copy loop; the executor returns its
// final table uncompacted.
func (t *Table) Compact() *Table {
	liveIdx := make([]int, 0, t.RowCount)
	for i, live := range t.Mask {
		if live {
			liveIdx = append(liveIdx, i)
		}
	}

	newCols := make([]*Column, len(t.Columns))
	for slot, col := range t.Columns {
		switch col.Kind {
		case KindAccum:
			buf := make([]uint64, len(liveIdx))
			for j, i := range liveIdx {
				buf[j] = col.Accum[i]
			}
			newCols[slot] = NewAccumColumn(buf)
		default:
			buf := make([]int32, len(liveIdx))
			for j, i := range liveIdx {
				buf[j] = col.Data[i]
			}
			newCols[slot] = NewInt32Column(buf)
			newCols[slot].Min, newCols[slot].Max = col.Min, col.Max
		}
	}

	colIndices := make(map[int]int, len(t.ColumnIndices))
	for k, v := range t.ColumnIndices {
		colIndices[k] = v
	}

	out := NewTable(t.Name, newCols, len(liveIdx), colIndices)
	out.GroupByColumn = t.GroupByColumn
	return out
}
