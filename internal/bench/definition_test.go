package bench_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/tablebench/internal/bench"
)

func TestParseFileSpec(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		expectedError string
	}{
		{
			name: "valid",
			content: `name: sort-${tag}
kind: sort
tables:
  relation: relation-${tag}.parquet
params:
  keys: [animal_id]
`,
		},
		{name: "empty", content: "", expectedError: "empty"},
		{name: "missing name", content: "kind: sort\n", expectedError: "name is required"},
		{name: "missing kind", content: "name: x\n", expectedError: "kind is required"},
		{name: "unknown field", content: "name: x\nkind: y\nlayout: wide\n", expectedError: "field layout not found"},
		{name: "empty table file", content: "name: x\nkind: y\ntables:\n  rel: \"\"\n", expectedError: `table "rel" has no file`},
		{name: "not yaml", content: "name: [\n", expectedError: "yaml"},
		{
			name:    "quoted tag in flow mapping",
			content: "name: x\nkind: y\ntables: {relation: \"relation-${tag}.parquet\"}\n",
		},
		{
			// The placeholder braces are flow indicators.
			name:          "unquoted tag in flow mapping",
			content:       "name: x\nkind: y\ntables: {relation: relation-${tag}.parquet}\n",
			expectedError: "did not find expected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bench.ParseFileSpec([]byte(tt.content))
			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}

func TestFileSpecWithTag(t *testing.T) {
	spec, err := bench.ParseFileSpec([]byte(`name: sort-${tag}
kind: sort
tables:
  relation: relation-${tag}.parquet
  animals: animals.parquet
`))
	require.NoError(t, err)

	tagged := spec.WithTag("no-nulls-1m")
	assert.Equal(t, "sort-no-nulls-1m", tagged.Name)

	file, err := tagged.Table("relation")
	require.NoError(t, err)
	assert.Equal(t, "relation-no-nulls-1m.parquet", file)

	file, err = tagged.Table("animals")
	require.NoError(t, err)
	assert.Equal(t, "animals.parquet", file)

	_, err = tagged.Table("missing")
	require.Error(t, err)

	original, _ := spec.Table("relation")
	assert.Equal(t, "relation-${tag}.parquet", original, "WithTag copies the table map")
}

func TestFileSpecDecodeParams(t *testing.T) {
	type params struct {
		Keys  []string `yaml:"keys"`
		Limit int      `yaml:"limit"`
	}

	spec, err := bench.ParseFileSpec([]byte("name: x\nkind: y\nparams:\n  keys: [a, b]\n  limit: 5\n"))
	require.NoError(t, err)

	var p params
	require.NoError(t, spec.DecodeParams(&p))
	assert.Equal(t, params{Keys: []string{"a", "b"}, Limit: 5}, p)

	noParams, err := bench.ParseFileSpec([]byte("name: x\nkind: y\n"))
	require.NoError(t, err)
	var empty params
	require.NoError(t, noParams.DecodeParams(&empty))
	assert.Zero(t, empty)

	unknown, err := bench.ParseFileSpec([]byte("name: x\nkind: y\nparams:\n  keyz: [a]\n"))
	require.NoError(t, err)
	err = unknown.DecodeParams(&p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keyz")
}

func TestRegistry(t *testing.T) {
	reg := bench.NewRegistry()
	factory := func(context.Context, bench.Env, bench.FileSpec) (*bench.Definition, error) { return nil, nil }

	require.NoError(t, reg.Register("sort", factory))
	require.NoError(t, reg.Register("asof", factory))
	require.Error(t, reg.Register("sort", factory))
	assert.Panics(t, func() { reg.MustRegister("asof", factory) })

	_, ok := reg.Lookup("sort")
	assert.True(t, ok)
	_, ok = reg.Lookup("where")
	assert.False(t, ok)

	assert.Equal(t, []string{"asof", "sort"}, reg.Kinds())
}

func TestEnvDatasetPath(t *testing.T) {
	env := bench.Env{OutputPrefixPath: "/bench"}
	assert.Equal(t, "/bench/data/animals.parquet", env.DatasetPath("animals.parquet"))
}
