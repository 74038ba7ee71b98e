// Copyright 2020-2022 Dolthub, Inc.
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

package main

import (
	"context"
	"fmt"

	"github.com/ikabadzhov/ssbexec/catalog"
	"github.com/ikabadzhov/ssbexec/exec"
	"github.com/ikabadzhov/ssbexec/plan"
)

// This is a minimal example of wiring the executor to an in-memory table:
// a three-row lineorder fact table, filtered by date/discount/quantity and
// reduced by SUM(extendedprice*discount) (spec.md §8 S1).
//
// > go run ./cmd/ssbexec
// 350

const (
	loOrderdate     = 5
	loQuantity      = 8
	loExtendedprice = 9
	loDiscount      = 11
)

type memoryLoader map[int][]int32

func (m memoryLoader) Load(table string, col int) ([]int32, error) {
	if table != "lineorder" {
		return nil, fmt.Errorf("no data for table %q", table)
	}
	return m[col], nil
}

func main() {
	loader := memoryLoader{
		loOrderdate:     {19930115, 19940301, 19930601},
		loQuantity:      {10, 30, 5},
		loExtendedprice: {100, 200, 50},
		loDiscount:      {2, 2, 3},
	}

	query := plan.Plan{Rels: []plan.RelNode{
		{ID: 0, Kind: plan.TableScan, Tables: []string{"lineorder"}},
		{ID: 1, Kind: plan.Filter, Condition: plan.Op("AND",
			plan.Op(">=", plan.Column(loOrderdate), plan.Literal(19930101)),
			plan.Op("<=", plan.Column(loOrderdate), plan.Literal(19940101)),
			plan.Op("AND",
				plan.Op(">=", plan.Column(loDiscount), plan.Literal(1)),
				plan.Op("AND",
					plan.Op("<=", plan.Column(loDiscount), plan.Literal(3)),
					plan.Op("<", plan.Column(loQuantity), plan.Literal(25)),
				),
			),
		)},
		{ID: 2, Kind: plan.Project, Exprs: []plan.Expr{
			plan.Op("*", plan.Column(loExtendedprice), plan.Column(loDiscount)),
		}},
		{ID: 3, Kind: plan.Aggregate, Aggs: []plan.Agg{{Agg: "SUM", Operands: []int{0}}}},
	}}

	executor := exec.New(catalog.Columns, loader, exec.Config{})
	result, err := executor.Execute(context.Background(), query)
	if err != nil {
		panic(err)
	}

	for i, live := range result.Mask {
		if !live {
			continue
		}
		for _, col := range result.Columns {
			fmt.Println(col.Accum[i])
		}
	}
}
