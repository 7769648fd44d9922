package probe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/dustin/go-humanize"

	berrors "github.com/paveg/tablebench/internal/errors"
	"github.com/paveg/tablebench/internal/version"
)

// InfoHeader is the header of a process-info file.
var InfoHeader = []string{"Type", "Key", "Value"}

// InfoRow is one Type,Key,Value entry of a process-info file.
type InfoRow struct {
	Type  string
	Key   string
	Value string
}

// InfoPath returns the process-info file for this probe's process under dir.
func (p *Probe) InfoPath(dir string) string {
	return filepath.Join(dir, p.id+".csv")
}

// Snapshot describes the build, runtime, host and memory of the running process.
func (p *Probe) Snapshot() []InfoRow {
	build := version.Info()
	rows := []InfoRow{
		{"build", "version", build.Version},
		{"build", "release", strconv.FormatBool(version.IsRelease())},
		{"build", "git_commit", build.GitCommit},
		{"build", "arrow_version", build.ArrowVersion},
		{"runtime", "go_version", build.GoVersion},
		{"runtime", "goos", runtime.GOOS},
		{"runtime", "goarch", runtime.GOARCH},
		{"runtime", "num_cpu", strconv.Itoa(runtime.NumCPU())},
		{"runtime", "gomaxprocs", strconv.Itoa(runtime.GOMAXPROCS(0))},
		{"host", "pid", strconv.Itoa(os.Getpid())},
	}
	if hostname, err := os.Hostname(); err == nil {
		rows = append(rows, InfoRow{"host", "hostname", hostname})
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	rows = append(rows,
		InfoRow{"memory", "heap_alloc", humanize.IBytes(stats.HeapAlloc)},
		InfoRow{"memory", "heap_sys", humanize.IBytes(stats.HeapSys)},
		InfoRow{"memory", "sys", humanize.IBytes(stats.Sys)},
		InfoRow{"memory", "num_gc", strconv.FormatUint(uint64(stats.NumGC), 10)},
	)
	return append(rows, p.extra...)
}

// EnsureInfo writes the process-info file under dir unless this process already wrote it
// or the file exists. It reports whether a file was created.
func (p *Probe) EnsureInfo(dir string) (bool, error) {
	path := p.InfoPath(dir)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.written[path] {
		return false, nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		p.written[path] = true
		return false, nil
	}
	if err != nil {
		return false, berrors.NewResourceError("write", path, "creating process info file", err)
	}

	if err := writeInfo(f, p.Snapshot()); err != nil {
		_ = f.Close()
		return false, berrors.NewResourceError("write", path, "writing process info", err)
	}
	if err := f.Close(); err != nil {
		return false, berrors.NewResourceError("write", path, "closing process info file", err)
	}
	p.written[path] = true
	return true, nil
}

func writeInfo(f *os.File, rows []InfoRow) error {
	w := csv.NewWriter(f)
	if err := w.Write(InfoHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write([]string{row.Type, row.Key, row.Value}); err != nil {
			return fmt.Errorf("row %s/%s: %w", row.Type, row.Key, err)
		}
	}
	w.Flush()
	return w.Error()
}
