// Package testutil provides shared test fixtures: generated datasets, benchmark files and
// leak-checked allocators.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/paveg/tablebench/internal/datagen"
	"github.com/paveg/tablebench/internal/dataset"
)

// SmallFixtures are generator options small enough for unit tests.
func SmallFixtures(rows int64) datagen.Options {
	return datagen.Options{Rows: rows, Animals: 20, Adjectives: 30, Users: 10}
}

// FixtureTag is the dataset tag of fixtures generated with rows rows.
func FixtureTag(rows int64) string {
	return "no-nulls-" + dataset.FormatRows(rows)
}

// GenerateFixtures writes a fixture set into a new temporary directory and returns its
// prefix with a cleanup removing it. Meant for TestMain, where no testing.TB exists.
func GenerateFixtures(options datagen.Options) (string, func(), error) {
	dir, err := os.MkdirTemp("", "tablebench-fixtures-")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	gen, err := datagen.New(dir, options, nil)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	if _, err := gen.Run(context.Background()); err != nil {
		cleanup()
		return "", nil, err
	}
	return dir, cleanup, nil
}

// RunWithFixtures is a TestMain body: it generates fixtures, stores the prefix in *prefix,
// runs the tests and exits.
func RunWithFixtures(m *testing.M, options datagen.Options, prefix *string) {
	dir, cleanup, err := GenerateFixtures(options)
	if err != nil {
		panic(err)
	}
	*prefix = dir

	code := m.Run()
	cleanup()
	os.Exit(code)
}

// CheckedAllocator returns an allocator that fails tb when buffers are still allocated
// at the end of the test.
func CheckedAllocator(tb testing.TB) *memory.CheckedAllocator {
	tb.Helper()
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	tb.Cleanup(func() { mem.AssertSize(tb, 0) })
	return mem
}

// WriteFile writes content to name in a fresh temporary directory and returns the path.
func WriteFile(tb testing.TB, name, content string) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	require.NoError(tb, os.WriteFile(path, []byte(content), 0o600))
	return path
}
