package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/paveg/tablebench/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestBenchError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *errors.BenchError
		expected string
	}{
		{
			name: "Error with bench",
			err: &errors.BenchError{
				Kind:    errors.KindResource,
				Op:      "open",
				Bench:   "sort-100m",
				Message: "dataset does not exist",
			},
			expected: "resource open failed for 'sort-100m': dataset does not exist",
		},
		{
			name: "Error without bench",
			err: &errors.BenchError{
				Kind:    errors.KindUsage,
				Op:      "parse",
				Message: "too few arguments",
			},
			expected: "usage parse failed: too few arguments",
		},
		{
			name: "Error with cause",
			err: &errors.BenchError{
				Kind:    errors.KindRun,
				Op:      "run",
				Bench:   "join",
				Message: "benchmark operation failed",
				Cause:   stderrors.New("boom"),
			},
			expected: "run run failed for 'join': benchmark operation failed: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestBenchError_Unwrap(t *testing.T) {
	cause := stderrors.New("underlying error")
	err := errors.NewRunError("where", cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.ErrorIs(t, err, cause)
}

func TestBenchError_Is(t *testing.T) {
	resource := errors.NewResourceError("open", "by", "missing", nil)
	wrapped := fmt.Errorf("loading: %w", resource)

	assert.ErrorIs(t, wrapped, errors.ErrResource)
	assert.NotErrorIs(t, wrapped, errors.ErrDefinition)
	assert.ErrorIs(t, errors.NewDefinitionError("x", "bad", nil), errors.ErrDefinition)
	assert.ErrorIs(t, errors.NewUsageError("bad"), errors.ErrUsage)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, errors.KindRun, errors.KindOf(fmt.Errorf("outer: %w", errors.NewRunError("a", nil))))
	assert.Equal(t, errors.Kind(0), errors.KindOf(stderrors.New("plain")))
	assert.Equal(t, errors.Kind(0), errors.KindOf(nil))
	assert.Equal(t, "definition", errors.KindDefinition.String())
}
