//nolint:testpackage // requires internal access to unexported helpers
package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupByAgg(t *testing.T) {
	mem := checkedAllocator(t)
	tbl := mustNew(t, mem, []string{"k", "v", "f"},
		strs(mem, "a", "b", "a", nil, "b", "a"),
		ints(mem, 1, 2, 3, 4, nil, 5),
		floats(mem, 0.5, 1.5, 2.5, 3.5, 4.5, 5.5),
	)
	defer tbl.Release()

	grouped, err := tbl.GroupBy("k")
	require.NoError(t, err)
	assert.Equal(t, 2, grouped.NumGroups())

	out, err := grouped.Agg(
		Agg{Kind: AggSum, Column: "v"},
		Agg{Kind: AggCount, Column: "v", As: "v_count"},
		Agg{Kind: AggMin, Column: "v", As: "v_min"},
		Agg{Kind: AggMax, Column: "v", As: "v_max"},
		Agg{Kind: AggMean, Column: "v", As: "v_mean"},
		Agg{Kind: AggStd, Column: "v", As: "v_std"},
		Agg{Kind: AggFirst, Column: "v", As: "v_first"},
		Agg{Kind: AggLast, Column: "v", As: "v_last"},
		Agg{Kind: AggSum, Column: "f", As: "f_sum"},
	)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []any{"a", "b"}, values(t, out, "k"), "groups follow first appearance")
	assert.Equal(t, []any{9, 2}, values(t, out, "v"))
	assert.Equal(t, []any{3, 1}, values(t, out, "v_count"))
	assert.Equal(t, []any{1, 2}, values(t, out, "v_min"))
	assert.Equal(t, []any{5, 2}, values(t, out, "v_max"))
	assert.Equal(t, []any{3.0, 2.0}, values(t, out, "v_mean"))
	assert.Equal(t, []any{2.0, nil}, values(t, out, "v_std"), "single-value groups have no sample std")
	assert.Equal(t, []any{1, 2}, values(t, out, "v_first"))
	assert.Equal(t, []any{5, 2}, values(t, out, "v_last"))
	assert.Equal(t, []any{8.5, 6.0}, values(t, out, "f_sum"))
}

func TestGroupByMultipleKeys(t *testing.T) {
	mem := checkedAllocator(t)
	tbl := mustNew(t, mem, []string{"a", "b", "v"},
		ints(mem, 1, 1, 2, 1),
		strs(mem, "x", "y", "x", "x"),
		ints(mem, 10, 20, 30, 40),
	)
	defer tbl.Release()

	grouped, err := tbl.GroupBy("a", "b")
	require.NoError(t, err)

	out, err := grouped.Agg(Agg{Kind: AggSum, Column: "v"})
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, []any{1, 1, 2}, values(t, out, "a"))
	assert.Equal(t, []any{"x", "y", "x"}, values(t, out, "b"))
	assert.Equal(t, []any{50, 20, 30}, values(t, out, "v"))
}

func TestSignedZeroKeys(t *testing.T) {
	mem := checkedAllocator(t)
	negZero := math.Copysign(0, -1)
	tbl := mustNew(t, mem, []string{"k", "v"},
		floats(mem, 0.0, negZero, 1.5),
		ints(mem, 1, 2, 3),
	)
	defer tbl.Release()

	grouped, err := tbl.GroupBy("k")
	require.NoError(t, err)
	assert.Equal(t, 2, grouped.NumGroups())

	right := mustNew(t, mem, []string{"k", "name"}, floats(mem, negZero), strs(mem, "zero"))
	defer right.Release()

	out, err := tbl.Join(right, []string{"k"}, InnerJoin)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []any{1, 2}, values(t, out, "v"))
}

func TestGroupByErrors(t *testing.T) {
	mem := checkedAllocator(t)
	tbl := mustNew(t, mem, []string{"k", "s"}, ints(mem, 1, 2), strs(mem, "x", "y"))
	defer tbl.Release()

	_, err := tbl.GroupBy()
	require.Error(t, err)

	_, err = tbl.GroupBy("missing")
	require.ErrorIs(t, err, ErrColumnNotFound)

	grouped, err := tbl.GroupBy("k")
	require.NoError(t, err)

	_, err = grouped.Agg(Agg{Kind: AggSum, Column: "s"})
	require.ErrorIs(t, err, ErrUnsupportedType)

	_, err = grouped.Agg(Agg{Kind: AggCount, Column: "s", As: "k"})
	require.ErrorContains(t, err, "duplicate column")

	strOut, err := grouped.Agg(Agg{Kind: AggFirst, Column: "s"})
	require.NoError(t, err)
	defer strOut.Release()
	assert.Equal(t, []any{"x", "y"}, values(t, strOut, "s"))
}

func TestParseAggKind(t *testing.T) {
	for kind, name := range aggNames {
		parsed, err := ParseAggKind(name)
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
		assert.Equal(t, name, kind.String())
	}

	_, err := ParseAggKind("median")
	assert.Error(t, err)
}

func TestJoin(t *testing.T) {
	mem := checkedAllocator(t)
	left := mustNew(t, mem, []string{"id", "name"},
		ints(mem, 1, 2, 3, nil),
		strs(mem, "l1", "l2", "l3", "lnull"),
	)
	defer left.Release()
	right := mustNew(t, mem, []string{"id", "name", "amount"},
		ints(mem, 1, 1, 3, 4),
		strs(mem, "r1", "r1b", "r3", "r4"),
		floats(mem, 10.0, 11.0, 30.0, 40.0),
	)
	defer right.Release()

	t.Run("left", func(t *testing.T) {
		out, err := left.Join(right, []string{"id"}, LeftJoin)
		require.NoError(t, err)
		defer out.Release()

		assert.Equal(t, []string{"id", "name", "name_right", "amount"}, out.ColumnNames())
		assert.Equal(t, []any{1, 1, 2, 3, nil}, values(t, out, "id"))
		assert.Equal(t, []any{"r1", "r1b", nil, "r3", nil}, values(t, out, "name_right"))
		assert.Equal(t, []any{10.0, 11.0, nil, 30.0, nil}, values(t, out, "amount"))
	})

	t.Run("inner", func(t *testing.T) {
		out, err := left.Join(right, []string{"id"}, InnerJoin)
		require.NoError(t, err)
		defer out.Release()

		assert.Equal(t, []any{"l1", "l1", "l3"}, values(t, out, "name"))
	})

	t.Run("mismatched key types", func(t *testing.T) {
		other := mustNew(t, mem, []string{"id"}, strs(mem, "1"))
		defer other.Release()

		_, err := left.Join(other, []string{"id"}, LeftJoin)
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("parse kind", func(t *testing.T) {
		kind, err := ParseJoinKind("inner")
		require.NoError(t, err)
		assert.Equal(t, InnerJoin, kind)
		assert.Equal(t, "left", LeftJoin.String())

		_, err = ParseJoinKind("outer")
		assert.Error(t, err)
	})
}

func TestSortBy(t *testing.T) {
	mem := checkedAllocator(t)
	tbl := mustNew(t, mem, []string{"k", "tag"},
		ints(mem, 3, 1, nil, 1, 2),
		strs(mem, "a", "b", "c", "d", "e"),
	)
	defer tbl.Release()

	sorted, err := tbl.SortBy("k")
	require.NoError(t, err)
	defer sorted.Release()

	assert.Equal(t, []any{1, 1, 2, 3, nil}, values(t, sorted, "k"))
	assert.Equal(t, []any{"b", "d", "e", "a", "c"}, values(t, sorted, "tag"), "ties keep input order")

	byTag, err := tbl.SortBy("tag")
	require.NoError(t, err)
	defer byTag.Release()
	assert.Equal(t, []any{3, 1, nil, 1, 2}, values(t, byTag, "k"))
}

func TestAsOfJoin(t *testing.T) {
	mem := checkedAllocator(t)
	left := mustNew(t, mem, []string{"time", "ticker"},
		ints(mem, 5, 10, 1, 7),
		strs(mem, "A", "A", "A", "B"),
	)
	defer left.Release()
	right := mustNew(t, mem, []string{"time", "ticker", "bid"},
		ints(mem, 2, 8, 4, 6),
		strs(mem, "A", "A", "B", "B"),
		floats(mem, 1.0, 2.0, 3.0, 4.0),
	)
	defer right.Release()

	t.Run("by key", func(t *testing.T) {
		out, err := left.AsOfJoin(right, "time", "ticker")
		require.NoError(t, err)
		defer out.Release()

		assert.Equal(t, []string{"time", "ticker", "bid"}, out.ColumnNames())
		assert.Equal(t, []any{5, 10, 1, 7}, values(t, out, "time"), "left order is kept")
		assert.Equal(t, []any{1.0, 2.0, nil, 4.0}, values(t, out, "bid"))
	})

	t.Run("without by", func(t *testing.T) {
		out, err := left.AsOfJoin(right, "time")
		require.NoError(t, err)
		defer out.Release()

		assert.Equal(t, []string{"time", "ticker", "ticker_right", "bid"}, out.ColumnNames())
		assert.Equal(t, []any{3.0, 2.0, nil, 4.0}, values(t, out, "bid"))
		assert.Equal(t, []any{"B", "A", nil, "B"}, values(t, out, "ticker_right"))
	})

	t.Run("non-integer on column", func(t *testing.T) {
		_, err := left.AsOfJoin(right, "ticker")
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})
}
