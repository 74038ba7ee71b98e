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

package kernel_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ikabadzhov/ssbexec/column"
	"github.com/ikabadzhov/ssbexec/kernel"
	"github.com/ikabadzhov/ssbexec/plan"
)

const factColumnCount = 17

// TestResolveJoinKeys checks that the dimension-side operand of a join
// condition, expressed in the join's concatenated schema (fact columns
// 0..factColumnCount-1, then the dimension's own columns offset by
// factColumnCount), is translated back to the dimension's raw id.
func TestResolveJoinKeys(t *testing.T) {
	require := require.New(t)

	cond := plan.Op("=", plan.Column(5), plan.Column(factColumnCount+0))
	factColID, dimColID, err := kernel.ResolveJoinKeys(0, cond, factColumnCount)
	require.NoError(err)
	require.Equal(5, factColID)
	require.Equal(0, dimColID)
}

// TestFilterJoinCorrectness is spec.md §8 property 3 / S3: a fact row
// survives iff the dimension row with a matching key was live. FilterJoin
// takes each table's own raw column id directly, so the dim key here is
// dim's raw id 0, not the concatenated-schema id 17 a Join condition
// would carry.
func TestFilterJoinCorrectness(t *testing.T) {
	require := require.New(t)

	datekey := column.NewInt32Column([]int32{1, 2, 3})
	dim := column.NewTable("ddate", []*column.Column{datekey}, 3, map[int]int{0: 0})
	dim.Mask = []bool{true, false, true}

	orderdate := column.NewInt32Column([]int32{1, 2, 3, 1})
	fact := column.NewTable("lineorder", []*column.Column{orderdate}, 4, map[int]int{5: 0})

	require.NoError(kernel.FilterJoin(0, fact, dim, 5, 0))
	require.Equal([]bool{true, false, true, true}, fact.Mask)
}

// TestFullJoinPropagatesYear is spec.md §8 property 4 / S4.
func TestFullJoinPropagatesYear(t *testing.T) {
	require := require.New(t)

	datekey := column.NewInt32Column([]int32{1, 2, 3})
	year := column.NewInt32Column([]int32{1992, 1993, 1993})
	dim := column.NewTable("ddate", []*column.Column{datekey, year}, 3, map[int]int{0: 0, 4: 1})
	groupBy := 4
	dim.GroupByColumn = &groupBy

	orderdate := column.NewInt32Column([]int32{3, 1, 2})
	fact := column.NewTable("lineorder", []*column.Column{orderdate}, 3, map[int]int{5: 0})

	require.NoError(kernel.FullJoin(0, fact, dim, 5, 0, factColumnCount))

	require.Equal([]int32{1993, 1992, 1993}, orderdate.Data)
	require.Equal([]bool{true, true, true}, fact.Mask)

	_, _, hasOld := fact.Column(5)
	require.False(hasOld)

	newID := factColumnCount + 4
	col, _, ok := fact.Column(newID)
	require.True(ok)
	require.Same(orderdate, col)
}

func TestFullJoinClearsUnmatchedRows(t *testing.T) {
	require := require.New(t)

	datekey := column.NewInt32Column([]int32{1, 2})
	year := column.NewInt32Column([]int32{1992, 1993})
	dim := column.NewTable("ddate", []*column.Column{datekey, year}, 2, map[int]int{0: 0, 4: 1})
	groupBy := 4
	dim.GroupByColumn = &groupBy

	orderdate := column.NewInt32Column([]int32{1, 9}) // 9 has no match
	fact := column.NewTable("lineorder", []*column.Column{orderdate}, 2, map[int]int{5: 0})

	require.NoError(kernel.FullJoin(0, fact, dim, 5, 0, factColumnCount))
	require.Equal([]bool{true, false}, fact.Mask)
}
