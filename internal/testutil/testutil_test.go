package testutil_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/tablebench/internal/dataset"
	"github.com/paveg/tablebench/internal/testutil"
)

func TestGenerateFixtures(t *testing.T) {
	prefix, cleanup, err := testutil.GenerateFixtures(testutil.SmallFixtures(1000))
	require.NoError(t, err)

	tag := testutil.FixtureTag(1000)
	assert.Equal(t, "no-nulls-1k", tag)
	_, err = os.Stat(dataset.Path(prefix, dataset.FileFor("relation", tag)))
	require.NoError(t, err)

	cleanup()
	_, err = os.Stat(prefix)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFile(t *testing.T) {
	path := testutil.WriteFile(t, "bench.yaml", "kind: sort\n")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "kind: sort\n", string(data))
}

func TestCheckedAllocator(t *testing.T) {
	mem := testutil.CheckedAllocator(t)
	buf := mem.Allocate(64)
	assert.Equal(t, 64, mem.CurrentAlloc())
	mem.Free(buf)
}
