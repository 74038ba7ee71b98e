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

// Project builds a new table from tbl by evaluating exprs (spec.md §4.2).
// Every expr produces exactly one output column: a bare column reference
// transfers ownership (or clones, if the source slot was already claimed
// by an earlier expr); a literal fills a fresh constant buffer; a binary
// arithmetic expression computes a fresh buffer under tbl's live mask.
// The returned table replaces tbl's column array wholesale: column_indices
// becomes the identity map, and tbl's own GroupByColumn is relocated to
// its new slot if one of exprs is a bare reference to it.
func Project(opID int, tbl *column.Table, exprs []plan.Expr) (*column.Table, error) {
	newCols := make([]*column.Column, len(exprs))
	claimed := make(map[int]bool, len(tbl.Columns))
	colIndices := make(map[int]int, len(exprs))

	var newGroupBy *int

	for i, e := range exprs {
		col, err := projectOne(opID, tbl, e, claimed)
		if err != nil {
			return nil, err
		}
		newCols[i] = col
		colIndices[i] = i

		if e.Kind == plan.ExprColumn && tbl.GroupByColumn != nil && e.Input == *tbl.GroupByColumn {
			slot := i
			newGroupBy = &slot
		}
	}

	out := column.NewTable(tbl.Name, newCols, tbl.RowCount, colIndices)
	out.Mask = tbl.Mask
	out.GroupByColumn = newGroupBy
	return out, nil
}

func projectOne(opID int, tbl *column.Table, e plan.Expr, claimed map[int]bool) (*column.Column, error) {
	switch e.Kind {
	case plan.ExprColumn:
		src, slot, ok := tbl.Column(e.Input)
		if !ok {
			return nil, errkit.ErrUnknownColumn.New(opID, tbl.Name, e.Input)
		}
		if claimed[slot] {
			return src.Clone(), nil
		}
		claimed[slot] = true
		src.HasOwnership = true
		return src, nil

	case plan.ExprLiteral:
		buf := make([]int32, tbl.RowCount)
		v := int32(e.Value)
		for i := range buf {
			buf[i] = v
		}
		col := column.NewInt32Column(buf)
		col.Min, col.Max = v, v
		return col, nil

	case plan.ExprOp:
		return projectArithmetic(opID, tbl, e, claimed)

	default:
		return nil, errkit.ErrUnsupportedExpr.New(opID, "unknown projection expression kind")
	}
}

func projectArithmetic(opID int, tbl *column.Table, e plan.Expr, claimed map[int]bool) (*column.Column, error) {
	if len(e.Operands) != 2 {
		return nil, errkit.ErrWrongOperandCount.New(opID, e.Op, 2, len(e.Operands))
	}

	left, leftIsCol, leftMin, leftMax, err := resolveOperand(opID, tbl, e.Operands[0])
	if err != nil {
		return nil, err
	}
	right, rightIsCol, rightMin, rightMax, err := resolveOperand(opID, tbl, e.Operands[1])
	if err != nil {
		return nil, err
	}

	buf := make([]int32, tbl.RowCount)
	for i, live := range tbl.Mask {
		if !live {
			continue
		}
		a, b := left(i), right(i)
		switch e.Op {
		case "+":
			buf[i] = a + b
		case "-":
			buf[i] = a - b
		case "*":
			buf[i] = a * b
		case "/":
			if b == 0 {
				return nil, errkit.ErrDivideByZero.New(opID)
			}
			buf[i] = a / b
		default:
			return nil, errkit.ErrUnsupportedExpr.New(opID, e.Op)
		}
	}

	col := column.NewInt32Column(buf)
	switch {
	case leftIsCol && rightIsCol:
		col.Min = minInt32(leftMin, rightMin)
		col.Max = maxInt32(leftMax, rightMax)
	case leftIsCol:
		col.Min, col.Max = leftMin, leftMax
	default:
		col.Min, col.Max = rightMin, rightMax
	}
	return col, nil
}

// resolveOperand returns the operand's per-row values (either the
// underlying column's buffer or a literal's value repeated once per
// access) along with whether it was a column and its min/max hint.
func resolveOperand(opID int, tbl *column.Table, e plan.Expr) (values func(i int) int32, isCol bool, min, max int32, err error) {
	switch e.Kind {
	case plan.ExprColumn:
		col, _, ok := tbl.Column(e.Input)
		if !ok {
			return nil, false, 0, 0, errkit.ErrUnknownColumn.New(opID, tbl.Name, e.Input)
		}
		return func(i int) int32 { return col.Data[i] }, true, col.Min, col.Max, nil
	case plan.ExprLiteral:
		v := int32(e.Value)
		return func(int) int32 { return v }, false, v, v, nil
	default:
		return nil, false, 0, 0, errkit.ErrUnsupportedExpr.New(opID, "arithmetic operand must be a column or literal")
	}
}

func minInt32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func maxInt32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}
