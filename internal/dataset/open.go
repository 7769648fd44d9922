package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	berrors "github.com/paveg/tablebench/internal/errors"
	"github.com/paveg/tablebench/internal/table"
)

// DefaultBatchSize is the number of rows decoded per batch.
const DefaultBatchSize = 64 * 1024

// Options controls how a dataset is read.
type Options struct {
	// Columns restricts the read to the named columns; empty reads all.
	Columns []string
	// Limit keeps only the first Limit rows when positive.
	Limit int
	// Parallel decodes columns concurrently.
	Parallel bool
}

// Option mutates Options.
type Option func(*Options)

// WithColumns projects the read onto the named columns.
func WithColumns(columns ...string) Option {
	return func(o *Options) { o.Columns = columns }
}

// WithLimit keeps the first n rows.
func WithLimit(n int) Option {
	return func(o *Options) { o.Limit = n }
}

// WithParallel toggles concurrent column decoding.
func WithParallel(parallel bool) Option {
	return func(o *Options) { o.Parallel = parallel }
}

// Open reads a parquet file into a table. A missing or unreadable file is a resource error.
//
// Pages are decoded with a private Go allocator and the columns are then copied into mem,
// so mem accounts for the table's buffers only. Some decoders keep scratch buffers that
// are never freed back to the allocator that created them.
func Open(ctx context.Context, path string, mem memory.Allocator, opts ...Option) (*table.Table, error) {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	if _, err := os.Stat(path); err != nil {
		msg := "dataset is not readable"
		if errors.Is(err, fs.ErrNotExist) {
			msg = "dataset does not exist"
		}
		return nil, berrors.NewResourceError("open", path, msg, err)
	}

	decodeMem := memory.NewGoAllocator()
	rdr, err := file.OpenParquetFile(path, false, file.WithReadProps(parquet.NewReaderProperties(decodeMem)))
	if err != nil {
		return nil, berrors.NewResourceError("open", path, "creating parquet file reader", err)
	}
	defer rdr.Close()

	props := pqarrow.ArrowReadProperties{Parallel: options.Parallel, BatchSize: DefaultBatchSize}
	arrowReader, err := pqarrow.NewFileReader(rdr, props, decodeMem)
	if err != nil {
		return nil, berrors.NewResourceError("open", path, "creating arrow file reader", err)
	}

	indices, err := columnIndices(rdr, options.Columns)
	if err != nil {
		return nil, berrors.NewResourceError("open", path, "projecting columns", err)
	}
	rowGroups := make([]int, rdr.NumRowGroups())
	for i := range rowGroups {
		rowGroups[i] = i
	}

	arrowTable, err := arrowReader.ReadRowGroups(ctx, indices, rowGroups)
	if err != nil {
		return nil, berrors.NewResourceError("open", path, "reading table", err)
	}
	defer arrowTable.Release()

	tbl, err := table.CopyFromArrow(arrowTable, mem)
	if err != nil {
		return nil, fmt.Errorf("converting %s: %w", path, err)
	}

	if options.Limit > 0 && options.Limit < tbl.NumRows() {
		head := tbl.Head(options.Limit)
		tbl.Release()
		tbl = head
	}
	return tbl, nil
}

func columnIndices(rdr *file.Reader, columns []string) ([]int, error) {
	schema := rdr.MetaData().Schema
	if len(columns) == 0 {
		indices := make([]int, schema.NumColumns())
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	indices := make([]int, len(columns))
	for i, name := range columns {
		idx := schema.ColumnIndexByName(name)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q", table.ErrColumnNotFound, name)
		}
		indices[i] = idx
	}
	return indices, nil
}
