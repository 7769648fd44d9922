package cli_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paveg/tablebench/internal/cli"
	"github.com/paveg/tablebench/internal/dataset"
)

func TestExecuteDatagen(t *testing.T) {
	t.Run("writes fixtures", func(t *testing.T) {
		prefix := t.TempDir()
		var stdout, stderr bytes.Buffer

		code := cli.ExecuteDatagen(context.Background(),
			[]string{"--rows", "2k", "--nulls", "--workers", "2", "--animals", "5", "--adjectives", "5", prefix}, &stdout, &stderr)
		require.Equal(t, cli.ExitOK, code, stderr.String())

		paths := strings.Fields(stdout.String())
		assert.Equal(t, []string{
			dataset.Path(prefix, "animals.parquet"),
			dataset.Path(prefix, "adjectives.parquet"),
			dataset.Path(prefix, "relation-no-nulls-2k.parquet"),
			dataset.Path(prefix, "relation-2k.parquet"),
			dataset.Path(prefix, "workqueue-no-nulls-2k.parquet"),
			dataset.Path(prefix, "auditqueue-no-nulls-20.parquet"),
		}, paths)
		assert.Contains(t, stderr.String(), "wrote dataset")
	})

	t.Run("usage", func(t *testing.T) {
		tests := []struct {
			name     string
			args     []string
			expected string
		}{
			{name: "no prefix", args: nil, expected: "expected <output_prefix_path>"},
			{name: "bad rows", args: []string{"--rows", "lots", t.TempDir()}, expected: "invalid row count"},
			{name: "negative workers", args: []string{"--workers", "-1", t.TempDir()}, expected: "Workers must not be negative"},
			{name: "bad null percent", args: []string{"--null-percent", "150", t.TempDir()}, expected: "NullPercent"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var stdout, stderr bytes.Buffer
				code := cli.ExecuteDatagen(context.Background(), tt.args, &stdout, &stderr)
				assert.Equal(t, cli.ExitFailure, code)
				assert.Contains(t, stderr.String(), tt.expected)
				assert.Contains(t, filepath.ToSlash(stderr.String()), "Usage:")
			})
		}
	})
}
