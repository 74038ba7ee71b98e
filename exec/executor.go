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

// Package exec walks a scheduled plan and dispatches each operator to the
// kernel library, managing table lifetimes and the join-direction choice
// (spec.md §4.6). It is the only package that knows about both plan and
// kernel together.
package exec

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"

	"github.com/ikabadzhov/ssbexec/catalog"
	"github.com/ikabadzhov/ssbexec/column"
	"github.com/ikabadzhov/ssbexec/errkit"
	"github.com/ikabadzhov/ssbexec/kernel"
	"github.com/ikabadzhov/ssbexec/plan"
)

// Config controls resource limits and observability the executor applies
// uniformly across a query, mirroring the teacher's Engine Config.
type Config struct {
	// MaxGroupBySpace bounds the group-by hash domain R (spec.md §4.4);
	// exceeding it is a resource error, not an allocation attempt.
	MaxGroupBySpace int
	// Logger receives one structured entry per dispatched operator. A nil
	// Logger falls back to logrus.StandardLogger().
	Logger *logrus.Logger
	// Tracer is used to open one span per dispatched operator, named
	// "exec."+kind. A nil Tracer falls back to opentracing.GlobalTracer().
	Tracer opentracing.Tracer
}

func (c Config) logger() *logrus.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logrus.StandardLogger()
}

func (c Config) tracer() opentracing.Tracer {
	if c.Tracer != nil {
		return c.Tracer
	}
	return opentracing.GlobalTracer()
}

// Executor runs a plan to completion against a Loader.
type Executor struct {
	Catalog map[string]int
	Loader  catalog.Loader
	Config  Config
}

// New builds an Executor over the given catalogue and loader.
func New(cat map[string]int, loader catalog.Loader, cfg Config) *Executor {
	if cfg.MaxGroupBySpace <= 0 {
		cfg.MaxGroupBySpace = 1 << 26
	}
	return &Executor{Catalog: cat, Loader: loader, Config: cfg}
}

// runState tracks, per plan operator id, the table that operator produced,
// and which tables are still needed by a future operator.
type runState struct {
	outputs map[int]*column.Table
	info    plan.Info
}

// Execute runs p to completion and returns the table of the last
// operator in the schedule, per spec.md §4.6's two phases. Dead rows are
// not removed; the table's Mask marks which rows are live.
func (ex *Executor) Execute(ctx context.Context, p plan.Plan) (*column.Table, error) {
	queryID := uuid.New().String()
	log := ex.Config.logger().WithField("query_id", queryID)

	info, err := plan.Inspect(p, ex.Catalog)
	if err != nil {
		log.WithError(err).Error("plan inspection failed")
		return nil, err
	}

	state := &runState{outputs: make(map[int]*column.Table, len(p.Rels)), info: info}

	// Phase 1: materialize every table-scan's demanded columns.
	for _, n := range p.Rels {
		if n.Kind != plan.TableScan {
			continue
		}
		if err := ex.loadScan(ctx, log, state, n); err != nil {
			return nil, err
		}
	}

	// Phase 2: dispatch every non-scan operator in scheduled order.
	var last *column.Table
	for _, id := range info.DAGOrder {
		n := p.Rels[id]
		if n.Kind == plan.TableScan {
			last = state.outputs[id]
			continue
		}
		out, err := ex.dispatch(ctx, log, state, n)
		if err != nil {
			return nil, err
		}
		state.outputs[id] = out
		last = out
		ex.releaseExhaustedTables(state, n)
	}

	return last, nil
}

func (ex *Executor) loadScan(ctx context.Context, log *logrus.Entry, state *runState, n plan.RelNode) error {
	span, _ := opentracing.StartSpanFromContextWithTracer(ctx, ex.Config.tracer(), "exec."+n.Kind.String())
	defer span.Finish()
	start := time.Now()

	table := n.Tables[0]
	cols := state.info.LoadedColumns[table]
	raw, err := catalog.LoadAll(n.ID, ex.Loader, table, cols)
	if err != nil {
		log.WithError(err).WithField("table", table).Error("load failed")
		return err
	}

	columns := make([]*column.Column, len(cols))
	colIndices := make(map[int]int, len(cols))
	for i, c := range cols {
		columns[i] = column.NewInt32Column(raw[c])
		colIndices[c] = i
	}
	rowCount := 0
	if len(columns) > 0 {
		rowCount = columns[0].Len()
	}
	tbl := column.NewTable(table, columns, rowCount, colIndices)
	if gb, ok := state.info.GroupByColumn[table]; ok {
		v := gb
		tbl.GroupByColumn = &v
	}
	state.outputs[n.ID] = tbl

	log.WithFields(logrus.Fields{
		"operator": n.ID,
		"kind":     n.Kind.String(),
		"table":    table,
		"rows":     rowCount,
		"duration": time.Since(start),
	}).Info("loaded table")
	return nil
}

func (ex *Executor) dispatch(ctx context.Context, log *logrus.Entry, state *runState, n plan.RelNode) (*column.Table, error) {
	span, _ := opentracing.StartSpanFromContextWithTracer(ctx, ex.Config.tracer(), "exec."+n.Kind.String())
	defer span.Finish()
	start := time.Now()

	var out *column.Table
	var err error

	switch n.Kind {
	case plan.Filter:
		in := state.outputs[n.Predecessor()]
		err = kernel.ApplySelection(n.ID, in, n.Condition)
		out = in

	case plan.Project:
		in := state.outputs[n.Predecessor()]
		out, err = kernel.Project(n.ID, in, n.Exprs)

	case plan.Sort:
		in := state.outputs[n.Predecessor()]
		out, err = kernel.Sort(n.ID, in, n.SortKeys)

	case plan.Aggregate:
		in := state.outputs[n.Predecessor()]
		if len(n.Group) == 0 {
			out, err = kernel.ScalarSum(n.ID, in, n.Aggs[0].Operands[0])
		} else {
			out, err = kernel.GroupBy(n.ID, in, n.Group, n.Aggs[0].Operands[0], ex.Config.MaxGroupBySpace)
		}

	case plan.Join:
		out, err = ex.dispatchJoin(state, n)

	default:
		err = errkit.ErrUnsupportedOperator.New(n.ID, n.Kind.String())
	}

	if err != nil {
		log.WithError(err).WithField("operator", n.ID).Error("operator failed")
		return nil, err
	}

	rows := 0
	if out != nil {
		rows = out.RowCount
	}
	log.WithFields(logrus.Fields{
		"operator": n.ID,
		"kind":     n.Kind.String(),
		"rows":     rows,
		"duration": time.Since(start),
	}).Info("dispatched operator")
	return out, nil
}

// dispatchJoin picks the join direction per spec.md §4.3: filter-join when
// the dimension table's lifetime ends at this operator, full-join
// otherwise. The left input must be the fact table.
func (ex *Executor) dispatchJoin(state *runState, n plan.RelNode) (*column.Table, error) {
	left := state.outputs[n.Inputs[0]]
	right := state.outputs[n.Inputs[1]]
	if left.Name != plan.FactTable {
		return nil, errkit.ErrJoinNotFactTable.New(n.ID, left.Name, plan.FactTable)
	}

	factColumnCount, _ := catalog.ColumnCount(left.Name)
	factColID, dimColID, err := kernel.ResolveJoinKeys(n.ID, n.Condition, factColumnCount)
	if err != nil {
		return nil, err
	}

	if state.info.TableLastUsed[right.Name] == n.ID {
		if err := kernel.FilterJoin(n.ID, left, right, factColID, dimColID); err != nil {
			return nil, err
		}
		return left, nil
	}

	if err := kernel.FullJoin(n.ID, left, right, factColID, dimColID, factColumnCount); err != nil {
		return nil, err
	}
	return left, nil
}

// releaseExhaustedTables drops the reference to any table whose
// table_last_used operator id has just completed, letting its buffers be
// garbage collected per spec.md §5's resource policy.
func (ex *Executor) releaseExhaustedTables(state *runState, n plan.RelNode) {
	for table, lastUsed := range state.info.TableLastUsed {
		if lastUsed != n.ID {
			continue
		}
		for id, tbl := range state.outputs {
			if tbl != nil && tbl.Name == table && id != n.ID {
				state.outputs[id] = nil
			}
		}
	}
}
