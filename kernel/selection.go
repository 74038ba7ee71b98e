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

// Package kernel holds the pure, data-parallel functions the executor
// dispatches plan operators to: selection, projection/arithmetic, the two
// join variants, scalar and group-by aggregation, and multi-key sort.
// Every kernel is a map/reduce loop over row indices with no
// inter-iteration dependency except the group-by accumulator add
// (spec.md §5); none of them know about the plan DAG, only the operator
// id they're told to blame errors on.
package kernel

import (
	"github.com/ikabadzhov/ssbexec/column"
	"github.com/ikabadzhov/ssbexec/errkit"
	"github.com/ikabadzhov/ssbexec/plan"
)

// Connective is the logical composition a selection predicate applies
// against the mask it is writing into (spec.md §4.1).
type Connective int

const (
	// None initializes the mask: F[i] <- c.
	None Connective = iota
	// And composes conjunctively: F[i] <- F[i] && c.
	And
	// Or composes disjunctively: F[i] <- F[i] || c.
	Or
)

func connectiveOf(op string) (Connective, bool) {
	switch op {
	case "AND":
		return And, true
	case "OR":
		return Or, true
	default:
		return None, false
	}
}

func compose(cur, c bool, parent Connective) bool {
	switch parent {
	case And:
		return cur && c
	case Or:
		return cur || c
	default:
		return c
	}
}

func compareOp(opID int, op string, a, b int32) (bool, error) {
	switch op {
	case "=", "==":
		return a == b, nil
	case "<>", "!=":
		return a != b, nil
	case "<":
		return a < b, nil
	case "<=", "≤":
		return a <= b, nil
	case ">":
		return a > b, nil
	case ">=", "≥":
		return a >= b, nil
	default:
		return false, errkit.ErrUnsupportedExpr.New(opID, op)
	}
}

// ApplySelection evaluates cond against tbl and writes the result into
// tbl.Mask, as though cond were the first predicate of the whole filter
// tree (parent connective None). opID is attributed to any error so
// callers get spec.md §7's "operator id and table name where available".
func ApplySelection(opID int, tbl *column.Table, cond plan.Expr) error {
	return applyExpr(opID, tbl, cond, None)
}

// ApplySelectionWith evaluates cond against tbl, composing the result
// into tbl.Mask with the given parent connective (spec.md §4.1). It lets
// callers chain a predicate onto an already-live mask instead of
// re-initializing it, and is how ApplySelection itself is defined.
func ApplySelectionWith(opID int, tbl *column.Table, cond plan.Expr, parent Connective) error {
	return applyExpr(opID, tbl, cond, parent)
}

func applyExpr(opID int, tbl *column.Table, e plan.Expr, parent Connective) error {
	if e.Kind != plan.ExprOp {
		return errkit.ErrUnsupportedExpr.New(opID, "filter condition must be an operator expression")
	}

	if c, ok := connectiveOf(e.Op); ok {
		if len(e.Operands) == 0 {
			return errkit.ErrWrongOperandCount.New(opID, e.Op, 1, 0)
		}
		for i, operand := range e.Operands {
			childParent := parent
			if i > 0 {
				childParent = c
			}
			if err := applyExpr(opID, tbl, operand, childParent); err != nil {
				return err
			}
		}
		return nil
	}

	if e.Op == "SEARCH" {
		return applySearch(opID, tbl, e, parent)
	}

	return applyComparison(opID, tbl, e, parent)
}

func applyComparison(opID int, tbl *column.Table, e plan.Expr, parent Connective) error {
	if len(e.Operands) != 2 {
		return errkit.ErrWrongOperandCount.New(opID, e.Op, 2, len(e.Operands))
	}
	left := e.Operands[0]
	if left.Kind != plan.ExprColumn {
		return errkit.ErrUnsupportedExpr.New(opID, "comparison left operand must be a column")
	}
	colA, _, ok := tbl.Column(left.Input)
	if !ok {
		return errkit.ErrUnknownColumn.New(opID, tbl.Name, left.Input)
	}

	right := e.Operands[1]
	switch right.Kind {
	case plan.ExprColumn:
		colB, _, ok := tbl.Column(right.Input)
		if !ok {
			return errkit.ErrUnknownColumn.New(opID, tbl.Name, right.Input)
		}
		return selectColumnColumn(opID, tbl.Mask, colA.Data, colB.Data, e.Op, parent)
	case plan.ExprLiteral:
		return selectColumnScalar(opID, tbl.Mask, colA.Data, e.Op, int32(right.Value), parent)
	default:
		return errkit.ErrUnsupportedExpr.New(opID, "comparison right operand must be a column or literal")
	}
}

func selectColumnColumn(opID int, mask []bool, a, b []int32, op string, parent Connective) error {
	for i := range mask {
		c, err := compareOp(opID, op, a[i], b[i])
		if err != nil {
			return err
		}
		mask[i] = compose(mask[i], c, parent)
	}
	return nil
}

func selectColumnScalar(opID int, mask []bool, a []int32, op string, k int32, parent Connective) error {
	for i := range mask {
		c, err := compareOp(opID, op, a[i], k)
		if err != nil {
			return err
		}
		mask[i] = compose(mask[i], c, parent)
	}
	return nil
}

// applySearch desugars SEARCH(col, rangeSet) into a scratch mask per
// spec.md §4.1, then composes the scratch mask into tbl.Mask with parent.
func applySearch(opID int, tbl *column.Table, e plan.Expr, parent Connective) error {
	if len(e.Operands) != 2 {
		return errkit.ErrWrongOperandCount.New(opID, "SEARCH", 2, len(e.Operands))
	}
	colExpr, litExpr := e.Operands[0], e.Operands[1]
	if colExpr.Kind != plan.ExprColumn || litExpr.Kind != plan.ExprLiteral {
		return errkit.ErrUnsupportedExpr.New(opID, "SEARCH(column, literal rangeSet)")
	}
	col, _, ok := tbl.Column(colExpr.Input)
	if !ok {
		return errkit.ErrUnknownColumn.New(opID, tbl.Name, colExpr.Input)
	}

	scratch := make([]bool, len(tbl.Mask))
	switch len(litExpr.RangeSet) {
	case 1:
		r := litExpr.RangeSet[0]
		if r.Hi == nil {
			return errkit.ErrUnsupportedSearch.New(opID, 1)
		}
		if err := selectColumnScalar(opID, scratch, col.Data, ">=", int32(r.Lo), None); err != nil {
			return err
		}
		if err := selectColumnScalar(opID, scratch, col.Data, "<=", int32(*r.Hi), And); err != nil {
			return err
		}
	case 2:
		r0, r1 := litExpr.RangeSet[0], litExpr.RangeSet[1]
		if r0.Hi != nil || r1.Hi != nil {
			return errkit.ErrUnsupportedSearch.New(opID, 2)
		}
		if err := selectColumnScalar(opID, scratch, col.Data, "=", int32(r0.Lo), None); err != nil {
			return err
		}
		if err := selectColumnScalar(opID, scratch, col.Data, "=", int32(r1.Lo), Or); err != nil {
			return err
		}
	default:
		return errkit.ErrUnsupportedSearch.New(opID, len(litExpr.RangeSet))
	}

	for i := range tbl.Mask {
		tbl.Mask[i] = compose(tbl.Mask[i], scratch[i], parent)
	}
	return nil
}
