// Package rawindex implements the append-only builder for the four-file
// on-disk computed-index format: row-coordinate and column-coordinate
// streams plus the item-id and feature-label tables that make them
// addressable. It records a bag of (row, col) presence pairs; duplicates
// are permitted and collapsed later, during CSR construction.
package rawindex

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"github.com/baysets/baysets/internal/errors"
	"github.com/baysets/baysets/internal/ids"
)

const (
	xcoFile = "index.xco"
	ycoFile = "index.yco"
	idsFile = "index.ids"
	ftsFile = "index.fts"

	lockFile = ".baysets.lock"
)

// Builder appends presence pairs to the four coordinate/label streams for a
// single index directory. It is not safe for concurrent use from multiple
// goroutines; a Builder takes an exclusive advisory lock over its directory
// so two writers never interleave.
type Builder struct {
	dir    string
	lock   *flock.Flock
	xco    *bufio.Writer
	yco    *bufio.Writer
	xcoF   *os.File
	ycoF   *os.File
	rows   *ids.Table[int64]
	cols   *ids.Table[string]
	pairs  int
	closed bool
	logger *slog.Logger
}

// Open creates (or truncates) the coordinate streams under dir and takes an
// exclusive advisory lock over the directory for the duration of the build.
// If another process holds the lock, Open fails fast with ErrCodeBuildLocked
// rather than blocking indefinitely.
func Open(dir string, logger *slog.Logger) (*Builder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.BuildError("create index directory", err)
	}

	lk := flock.New(filepath.Join(dir, lockFile))
	locked, err := lk.TryLock()
	if err != nil {
		return nil, errors.New(errors.ErrCodeBuildLocked, "failed to acquire build lock", err)
	}
	if !locked {
		return nil, errors.New(errors.ErrCodeBuildLocked,
			fmt.Sprintf("index directory %s is already being written by another process", dir), nil)
	}

	xcoF, err := os.Create(filepath.Join(dir, xcoFile))
	if err != nil {
		_ = lk.Unlock()
		return nil, errors.BuildError("create row-coordinate stream", err)
	}
	ycoF, err := os.Create(filepath.Join(dir, ycoFile))
	if err != nil {
		_ = xcoF.Close()
		_ = lk.Unlock()
		return nil, errors.BuildError("create column-coordinate stream", err)
	}

	return &Builder{
		dir:    dir,
		lock:   lk,
		xco:    bufio.NewWriter(xcoF),
		yco:    bufio.NewWriter(ycoF),
		xcoF:   xcoF,
		ycoF:   ycoF,
		rows:   ids.New[int64](),
		cols:   ids.New[string](),
		logger: logger,
	}, nil
}

// Add appends a presence pair for (itemID, featureLabel), assigning fresh
// row/column indices on first occurrence. Duplicate pairs are permitted;
// they are written to the streams as-is and collapsed during CSR
// construction (see internal/csr).
func (b *Builder) Add(itemID int64, featureLabel string) error {
	if b.closed {
		return errors.New(errors.ErrCodeBuildClosed, "add called after close", nil)
	}

	row, _ := b.rows.IndexOf(itemID)
	col, _ := b.cols.IndexOf(featureLabel)

	if _, err := fmt.Fprintln(b.xco, row); err != nil {
		return errors.BuildError("write row coordinate", err)
	}
	if _, err := fmt.Fprintln(b.yco, col); err != nil {
		return errors.BuildError("write column coordinate", err)
	}
	b.pairs++
	return nil
}

// Close flushes and finalizes the raw index: the coordinate streams are
// flushed, the .ids and .fts files are written from the accumulated
// tables, and the directory lock is released. Calls after the first return
// nil; the first always releases the lock, even on a write failure partway
// through.
func (b *Builder) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	defer func() { _ = b.lock.Unlock() }()

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(b.xco.Flush())
	record(b.xcoF.Close())
	record(b.yco.Flush())
	record(b.ycoF.Close())
	if firstErr != nil {
		return errors.BuildError("flush coordinate streams", firstErr)
	}

	if err := writeLines(filepath.Join(b.dir, idsFile), b.rows.Len(), func(i int) string {
		return strconv.FormatInt(b.rows.Key(i), 10)
	}); err != nil {
		return errors.BuildError("write id table", err)
	}

	if err := writeLines(filepath.Join(b.dir, ftsFile), b.cols.Len(), func(i int) string {
		return b.cols.Key(i)
	}); err != nil {
		return errors.BuildError("write feature-label table", err)
	}

	b.logger.Info("raw index closed",
		"dir", b.dir,
		"rows", b.rows.Len(),
		"cols", b.cols.Len(),
		"pairs", b.pairs,
		"closed_at", time.Now().Format(time.RFC3339))

	return nil
}

func writeLines(path string, n int, line func(int) string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	for i := 0; i < n; i++ {
		if _, err := fmt.Fprintln(w, line(i)); err != nil {
			return err
		}
	}
	return w.Flush()
}
