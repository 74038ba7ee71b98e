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

package plan

import (
	"sort"

	"github.com/ikabadzhov/ssbexec/errkit"
)

// FactTable is the one table that is always the probe side of a join
// (spec.md §4.3) and whose table-scan the scheduler delays.
const FactTable = "lineorder"

// schemaEntry traces one logical column id of an operator's output back
// to the raw (table, column) pair it ultimately reads from storage. Ok is
// false once the id names a value computed by a Project expression
// (literal or arithmetic) rather than a bare pass-through of stored data:
// such a value is already materialized in memory, so no further storage
// load is implied by referencing it.
type schemaEntry struct {
	table string
	col   int
	ok    bool
}

// Info is the result of the plan inspector's pre-pass (spec.md §4.5): for
// every table, the set of raw columns any operator actually references
// and the id of the last operator that touches it; for every table that
// contributes a GROUP BY key, which raw column that is; and a valid
// scheduling order over the whole plan DAG.
type Info struct {
	// LoadedColumns lists, per table, the raw column indices any
	// operator's condition or expression references, sorted ascending.
	LoadedColumns map[string][]int
	// TableLastUsed gives, per table, the id of the last operator that
	// references one of its columns (directly or through a pass-through
	// chain of unary operators and joins).
	TableLastUsed map[string]int
	// GroupByColumn gives, per table, the raw column id an Aggregate
	// groups by, when that column traces back to this table.
	GroupByColumn map[string]int
	// DAGOrder is a valid topological order over Rels in which the
	// FactTable's TableScan is passed over, at most twice, while another
	// node is ready (spec.md §4.5 point 2).
	DAGOrder []int
}

// Inspect runs the plan inspector's pre-pass. catalog maps table name to
// its total raw column count (spec.md §6).
func Inspect(p Plan, catalog map[string]int) (Info, error) {
	info := Info{
		LoadedColumns: map[string][]int{},
		TableLastUsed: map[string]int{},
		GroupByColumn: map[string]int{},
	}

	demand := map[string]map[int]bool{}
	markUsed := func(id int, e schemaEntry) {
		if !e.ok {
			return
		}
		if demand[e.table] == nil {
			demand[e.table] = map[int]bool{}
		}
		demand[e.table][e.col] = true
		info.TableLastUsed[e.table] = id
	}

	schemas := make([][]schemaEntry, len(p.Rels))

	// walkExpr records every raw column an expression touches, tracing
	// through the operator's own input schema.
	var walkExpr func(id int, in []schemaEntry, e Expr)
	walkExpr = func(id int, in []schemaEntry, e Expr) {
		switch e.Kind {
		case ExprColumn:
			if e.Input >= 0 && e.Input < len(in) {
				markUsed(id, in[e.Input])
			} else {
				markUsed(id, schemaEntry{})
			}
		case ExprLiteral:
			// nothing to trace
		case ExprOp:
			for _, operand := range e.Operands {
				walkExpr(id, in, operand)
			}
		}
	}

	for id, n := range p.Rels {
		if n.ID != id {
			return Info{}, errkit.ErrUnsupportedOperator.New(id, "RelNode.ID does not match its position in Rels")
		}

		switch n.Kind {
		case TableScan:
			var out []schemaEntry
			for _, table := range n.Tables {
				count, ok := catalog[table]
				if !ok {
					return Info{}, errkit.ErrUnknownColumn.New(id, table, -1)
				}
				for col := 0; col < count; col++ {
					out = append(out, schemaEntry{table: table, col: col, ok: true})
				}
				// A scan makes every column traceable downstream, but
				// does not by itself demand any of them — demand comes
				// only from operators that actually reference a column
				// (markUsed, below). It does count as a use of the
				// table, though later operators will normally push
				// TableLastUsed further out.
				info.TableLastUsed[table] = id
			}
			schemas[id] = out

		case Filter:
			in := schemas[n.Predecessor()]
			walkExpr(id, in, n.Condition)
			schemas[id] = in

		case Project:
			in := schemas[n.Predecessor()]
			out := make([]schemaEntry, len(n.Exprs))
			for i, e := range n.Exprs {
				walkExpr(id, in, e)
				if e.Kind == ExprColumn && e.Input >= 0 && e.Input < len(in) {
					out[i] = in[e.Input]
				} else {
					out[i] = schemaEntry{}
				}
			}
			schemas[id] = out

		case Aggregate:
			in := schemas[n.Predecessor()]
			for _, g := range n.Group {
				if g >= 0 && g < len(in) {
					e := in[g]
					markUsed(id, e)
					if e.ok {
						if _, already := info.GroupByColumn[e.table]; !already {
							info.GroupByColumn[e.table] = e.col
						}
					}
				}
			}
			for _, agg := range n.Aggs {
				for _, operand := range agg.Operands {
					if operand >= 0 && operand < len(in) {
						markUsed(id, in[operand])
					}
				}
			}
			// Scalar or grouped aggregation both collapse the schema to
			// group columns followed by one accumulator per Agg; none
			// of these slots trace back to a single raw column.
			out := make([]schemaEntry, len(n.Group)+len(n.Aggs))
			schemas[id] = out

		case Join:
			if len(n.Inputs) != 2 {
				return Info{}, errkit.ErrWrongOperandCount.New(id, "Join.Inputs", 2, len(n.Inputs))
			}
			left := schemas[n.Inputs[0]]
			right := schemas[n.Inputs[1]]
			walkExpr(id, append(append([]schemaEntry{}, left...), right...), n.Condition)
			out := make([]schemaEntry, 0, len(left)+len(right))
			out = append(out, left...)
			out = append(out, right...)
			schemas[id] = out

		case Sort:
			in := schemas[n.Predecessor()]
			for _, k := range n.SortKeys {
				if k.Column >= 0 && k.Column < len(in) {
					markUsed(id, in[k.Column])
				}
			}
			schemas[id] = in

		default:
			return Info{}, errkit.ErrUnsupportedOperator.New(id, n.Kind.String())
		}
	}

	for table, cols := range demand {
		list := make([]int, 0, len(cols))
		for c := range cols {
			list = append(list, c)
		}
		sort.Ints(list)
		info.LoadedColumns[table] = list
	}

	order, err := schedule(p)
	if err != nil {
		return Info{}, err
	}
	info.DAGOrder = order

	return info, nil
}

// schedule computes a topological order over the plan DAG. Whenever the
// FactTable's table-scan is ready together with other nodes, another node
// is picked instead; this delay is applied at most twice, after which the
// lowest ready id is picked (spec.md §4.5 point 2).
func schedule(p Plan) ([]int, error) {
	n := len(p.Rels)
	indegree := make([]int, n)
	dependents := make([][]int, n)

	factScan := -1
	for id, rel := range p.Rels {
		switch rel.Kind {
		case TableScan:
			for _, t := range rel.Tables {
				if t == FactTable {
					factScan = id
				}
			}
		case Join:
			if len(rel.Inputs) != 2 {
				return nil, errkit.ErrWrongOperandCount.New(id, "Join.Inputs", 2, len(rel.Inputs))
			}
			indegree[id] = 2
			dependents[rel.Inputs[0]] = append(dependents[rel.Inputs[0]], id)
			dependents[rel.Inputs[1]] = append(dependents[rel.Inputs[1]], id)
		default:
			if id == 0 {
				return nil, errkit.ErrUnsupportedOperator.New(id, "unary operator has no predecessor")
			}
			indegree[id] = 1
			dependents[id-1] = append(dependents[id-1], id)
		}
	}

	scheduled := make([]bool, n)
	order := make([]int, 0, n)
	skips := 0

	for len(order) < n {
		var ready []int
		for id := 0; id < n; id++ {
			if !scheduled[id] && indegree[id] == 0 {
				ready = append(ready, id)
			}
		}
		if len(ready) == 0 {
			stuck := 0
			for id := 0; id < n; id++ {
				if !scheduled[id] {
					stuck = id
					break
				}
			}
			return nil, errkit.ErrCyclicPlan.New(stuck)
		}

		pick := ready[0]
		if len(ready) > 1 && containsInt(ready, factScan) && skips < 2 {
			for _, id := range ready {
				if id != factScan {
					pick = id
					break
				}
			}
			skips++
		}

		order = append(order, pick)
		scheduled[pick] = true
		for _, dep := range dependents[pick] {
			indegree[dep]--
		}
	}

	return order, nil
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
