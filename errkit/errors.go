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

// Package errkit declares the typed error kinds spec.md §7 describes,
// shared by the catalog, plan, kernel and exec packages so that no
// package has to import the executor's own package just to report a
// plan or resource error.
package errkit

import "gopkg.in/src-d/go-errors.v1"

// Plan errors: the plan itself is malformed or unsupported. The query is
// aborted before any kernel runs, or at the operator that discovered the
// problem.
var (
	// ErrUnsupportedOperator is returned when a RelNode variant the executor
	// does not know how to dispatch is encountered.
	ErrUnsupportedOperator = errors.NewKind("operator %d: unsupported operator %q")

	// ErrUnsupportedExpr is returned when an Expr variant or operator string
	// cannot be evaluated.
	ErrUnsupportedExpr = errors.NewKind("operator %d: unsupported expression %q")

	// ErrWrongOperandCount is returned when an Expr carries the wrong number
	// of operands for its op.
	ErrWrongOperandCount = errors.NewKind("operator %d: %q expects %d operands, got %d")

	// ErrUnknownColumn is returned when a plan references a (table, column)
	// pair the plan inspector never registered as demanded.
	ErrUnknownColumn = errors.NewKind("operator %d: table %q has no column %d")

	// ErrJoinNotFactTable is returned when a Join's left input is not the
	// lineorder table (spec: joins are only defined fact-probe / dimension-build).
	ErrJoinNotFactTable = errors.NewKind("operator %d: join left input %q is not the fact table %q")

	// ErrUnsupportedSearch is returned when a SEARCH rangeSet has a
	// cardinality this executor does not implement (only 1 or 2 are defined).
	ErrUnsupportedSearch = errors.NewKind("operator %d: SEARCH with %d ranges is not supported")

	// ErrDivideByZero is returned when a projection's division operand
	// evaluates to zero for some live row.
	ErrDivideByZero = errors.NewKind("operator %d: division by zero in projected expression")

	// ErrCyclicPlan is returned when the plan DAG cannot be topologically
	// ordered because it contains a cycle.
	ErrCyclicPlan = errors.NewKind("plan contains a cycle reachable from operator %d")
)

// Resource errors: the query is well-formed but cannot run within the
// configured memory bound.
var (
	// ErrGroupSpaceTooLarge is returned when a group-by's product-of-ranges
	// hash domain exceeds Config.MaxGroupBySpace.
	ErrGroupSpaceTooLarge = errors.NewKind("operator %d: group-by domain %d exceeds configured limit %d")

	// ErrAllocationFailed wraps any buffer allocation failure the kernels
	// detect (e.g. a negative or overflowing length).
	ErrAllocationFailed = errors.NewKind("operator %d: failed to allocate buffer of length %d: %s")
)

// Loader errors: the external column-storage collaborator could not
// satisfy a request.
var (
	// ErrLoaderFailed wraps any error returned by the Loader collaborator.
	ErrLoaderFailed = errors.NewKind("operator %d: failed to load table %q column %d: %s")
)

// Internal invariant violations: these indicate a bug in the executor or
// kernels, not a problem with user input. They are never expected to be
// reachable from any externally supplied plan; the test suite's job is to
// make sure of that.
var (
	// ErrColumnLengthMismatch fires when two columns of the same table
	// disagree on length outside the aggregate-result exception.
	ErrColumnLengthMismatch = errors.NewKind("internal: table %q column %d has length %d, want %d")

	// ErrDuplicateOwnership fires when a buffer would be released by more
	// than one column.
	ErrDuplicateOwnership = errors.NewKind("internal: buffer for table %q would be released twice")

	// ErrMissingColumnIndex fires when column_indices lacks an entry the
	// output schema requires.
	ErrMissingColumnIndex = errors.NewKind("internal: table %q is missing a column_indices entry for logical column %d")
)
