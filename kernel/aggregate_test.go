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
)

const defaultMaxGroupSpace = 1 << 20

// TestScalarSumS1 reproduces spec.md §8 S1's aggregate half: after the
// filter leaves rows 0 and 2 live, SUM(extendedprice*discount) = 350.
func TestScalarSumS1(t *testing.T) {
	require := require.New(t)

	product := column.NewInt32Column([]int32{200, 9999, 150})
	tbl := column.NewTable("lineorder", []*column.Column{product}, 3, map[int]int{0: 0})
	tbl.Mask = []bool{true, false, true}

	out, err := kernel.ScalarSum(0, tbl, 0)
	require.NoError(err)
	require.Equal(1, out.RowCount)
	col, _, _ := out.Column(0)
	require.Equal(column.KindAccum, col.Kind)
	require.Equal(uint64(350), col.Accum[0])
}

// TestScalarSumPartitionIndependence is spec.md §8 property 6: SUM over any
// partition of the live rows equals SUM over the whole.
func TestScalarSumPartitionIndependence(t *testing.T) {
	require := require.New(t)

	values := []int32{5, 7, 3, 4, 11, 2}
	whole := column.NewInt32Column(values)
	wholeTbl := column.NewTable("t", []*column.Column{whole}, len(values), map[int]int{0: 0})
	wholeOut, err := kernel.ScalarSum(0, wholeTbl, 0)
	require.NoError(err)

	firstHalf := column.NewInt32Column(values)
	firstTbl := column.NewTable("t", []*column.Column{firstHalf}, len(values), map[int]int{0: 0})
	firstTbl.Mask = []bool{true, true, true, false, false, false}
	firstOut, err := kernel.ScalarSum(0, firstTbl, 0)
	require.NoError(err)

	secondHalf := column.NewInt32Column(values)
	secondTbl := column.NewTable("t", []*column.Column{secondHalf}, len(values), map[int]int{0: 0})
	secondTbl.Mask = []bool{false, false, false, true, true, true}
	secondOut, err := kernel.ScalarSum(0, secondTbl, 0)
	require.NoError(err)

	wcol, _, _ := wholeOut.Column(0)
	fcol, _, _ := firstOut.Column(0)
	scol, _, _ := secondOut.Column(0)
	require.Equal(wcol.Accum[0], fcol.Accum[0]+scol.Accum[0])
}

// TestGroupByS2 reproduces spec.md §8 S2.
func TestGroupByS2(t *testing.T) {
	require := require.New(t)

	a := column.NewInt32Column([]int32{1, 2, 1, 2})
	b := column.NewInt32Column([]int32{10, 20, 10, 30})
	v := column.NewInt32Column([]int32{5, 7, 3, 4})
	tbl := column.NewTable("t", []*column.Column{a, b, v}, 4, map[int]int{0: 0, 1: 1, 2: 2})

	out, err := kernel.GroupBy(0, tbl, []int{0, 1}, 2, defaultMaxGroupSpace)
	require.NoError(err)

	colA, _, _ := out.Column(0)
	colB, _, _ := out.Column(1)
	colV, _, _ := out.Column(2)

	got := map[[2]int32]uint64{}
	for i, live := range out.Mask {
		if live {
			got[[2]int32{colA.Data[i], colB.Data[i]}] = colV.Accum[i]
		}
	}
	require.Equal(map[[2]int32]uint64{
		{1, 10}: 8,
		{2, 20}: 7,
		{2, 30}: 4,
	}, got)
}

// TestGroupByBijectivity is spec.md §8 property 5: distinct tuples map to
// distinct buckets, and occupied buckets equal the distinct live tuples.
func TestGroupByBijectivity(t *testing.T) {
	require := require.New(t)

	a := column.NewInt32Column([]int32{0, 1, 2, 0, 1, 2})
	v := column.NewInt32Column([]int32{1, 1, 1, 1, 1, 1})
	tbl := column.NewTable("t", []*column.Column{a, v}, 6, map[int]int{0: 0, 1: 1})

	out, err := kernel.GroupBy(0, tbl, []int{0}, 1, defaultMaxGroupSpace)
	require.NoError(err)
	require.Equal(3, out.RowCount) // range of a is [0,2] -> R=3

	live := 0
	for _, l := range out.Mask {
		if l {
			live++
		}
	}
	require.Equal(3, live)

	colA, _, _ := out.Column(0)
	colV, _, _ := out.Column(1)
	for i, l := range out.Mask {
		if l {
			require.Equal(uint64(2), colV.Accum[i]) // two rows per distinct a value
			require.True(colA.Data[i] == 0 || colA.Data[i] == 1 || colA.Data[i] == 2)
		}
	}
}

func TestGroupByRejectsOversizedSpace(t *testing.T) {
	require := require.New(t)

	a := column.NewInt32Column([]int32{0, 1000000})
	v := column.NewInt32Column([]int32{1, 1})
	tbl := column.NewTable("t", []*column.Column{a, v}, 2, map[int]int{0: 0, 1: 1})

	_, err := kernel.GroupBy(0, tbl, []int{0}, 1, 1000)
	require.Error(err)
}
