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

package plan_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ikabadzhov/ssbexec/plan"
)

var catalog = map[string]int{
	"lineorder": 17,
	"part":      9,
	"supplier":  7,
	"customer":  8,
	"ddate":     17,
}

// TestSchedule reproduces spec.md §8 S6: scan(lineorder)=0, scan(ddate)=1,
// scan(part)=2, join(0,1)=3, join(3,2)=4. A valid order delays lineorder's
// scan past both other scans: [1, 2, 0, 3, 4].
func TestSchedule(t *testing.T) {
	require := require.New(t)

	p := plan.Plan{Rels: []plan.RelNode{
		{ID: 0, Kind: plan.TableScan, Tables: []string{"lineorder"}},
		{ID: 1, Kind: plan.TableScan, Tables: []string{"ddate"}},
		{ID: 2, Kind: plan.TableScan, Tables: []string{"part"}},
		{ID: 3, Kind: plan.Join, Inputs: []int{0, 1}, Condition: plan.Op("=", plan.Column(5), plan.Column(17))},
		{ID: 4, Kind: plan.Join, Inputs: []int{3, 2}, Condition: plan.Op("=", plan.Column(0), plan.Column(0))},
	}}

	info, err := plan.Inspect(p, catalog)
	require.NoError(err)
	require.Equal([]int{1, 2, 0, 3, 4}, info.DAGOrder)
}

// TestScheduleRespectsDependencies checks the general property (spec.md
// §8 property 7): every operator appears after all of its inputs.
func TestScheduleRespectsDependencies(t *testing.T) {
	require := require.New(t)

	p := plan.Plan{Rels: []plan.RelNode{
		{ID: 0, Kind: plan.TableScan, Tables: []string{"lineorder"}},
		{ID: 1, Kind: plan.TableScan, Tables: []string{"ddate"}},
		{ID: 2, Kind: plan.TableScan, Tables: []string{"part"}},
		{ID: 3, Kind: plan.Join, Inputs: []int{0, 1}, Condition: plan.Op("=", plan.Column(5), plan.Column(17))},
		{ID: 4, Kind: plan.Join, Inputs: []int{3, 2}, Condition: plan.Op("=", plan.Column(0), plan.Column(0))},
	}}

	info, err := plan.Inspect(p, catalog)
	require.NoError(err)

	position := make(map[int]int, len(info.DAGOrder))
	for i, id := range info.DAGOrder {
		position[id] = i
	}

	for _, n := range p.Rels {
		switch n.Kind {
		case plan.Join:
			require.Less(position[n.Inputs[0]], position[n.ID])
			require.Less(position[n.Inputs[1]], position[n.ID])
		case plan.TableScan:
		default:
			require.Less(position[n.Predecessor()], position[n.ID])
		}
	}
}

// TestLoadedColumnsAndLastUse exercises spec.md §4.5 point 1 against S1's
// shape: a scan, a filter over two columns, and a scalar SUM over two
// others.
func TestLoadedColumnsAndLastUse(t *testing.T) {
	require := require.New(t)

	const orderdate, quantity, extendedprice, discount = 5, 8, 9, 11

	p := plan.Plan{Rels: []plan.RelNode{
		{ID: 0, Kind: plan.TableScan, Tables: []string{"lineorder"}},
		{ID: 1, Kind: plan.Filter, Condition: plan.Op("AND",
			plan.Op(">=", plan.Column(orderdate), plan.Literal(19930101)),
			plan.Op("<=", plan.Column(orderdate), plan.Literal(19940101)),
			plan.Op("<", plan.Column(quantity), plan.Literal(25)),
		)},
		{ID: 2, Kind: plan.Aggregate, Aggs: []plan.Agg{
			{Agg: "SUM", Operands: []int{extendedprice, discount}},
		}},
	}}

	info, err := plan.Inspect(p, catalog)
	require.NoError(err)
	require.ElementsMatch([]int{orderdate, quantity, extendedprice, discount}, info.LoadedColumns["lineorder"])
	require.Equal(2, info.TableLastUsed["lineorder"])
	require.Equal([]int{0, 1, 2}, info.DAGOrder)
}

// TestGroupByColumnTracesToDimension exercises a full-join style plan:
// the Aggregate's group column is expressed against the join's
// concatenated schema and must trace back to ddate's raw year column.
func TestGroupByColumnTracesToDimension(t *testing.T) {
	require := require.New(t)

	const yearCol = 4 // ddate's raw column for year

	p := plan.Plan{Rels: []plan.RelNode{
		{ID: 0, Kind: plan.TableScan, Tables: []string{"lineorder"}},
		{ID: 1, Kind: plan.TableScan, Tables: []string{"ddate"}},
		{ID: 2, Kind: plan.Join, Inputs: []int{0, 1}, Condition: plan.Op("=", plan.Column(5), plan.Column(17))},
		{ID: 3, Kind: plan.Aggregate, Group: []int{17 + yearCol}, Aggs: []plan.Agg{{Agg: "SUM", Operands: []int{9}}}},
	}}

	info, err := plan.Inspect(p, catalog)
	require.NoError(err)
	require.Equal(yearCol, info.GroupByColumn["ddate"])
}

func TestInspectRejectsCyclicPlan(t *testing.T) {
	require := require.New(t)

	// Two joins pointing at each other: 0 depends on 1, 1 depends on 0.
	p := plan.Plan{Rels: []plan.RelNode{
		{ID: 0, Kind: plan.Join, Inputs: []int{1, 1}},
		{ID: 1, Kind: plan.Join, Inputs: []int{0, 0}},
	}}

	_, err := plan.Inspect(p, catalog)
	require.Error(err)
}
