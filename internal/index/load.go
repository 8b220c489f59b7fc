// Package index ties together the identifier tables, CSR matrix, and
// hyperparameters into the read-only Computed index, and implements the
// four-file load path with the load error taxonomy from spec.md §7.
package index

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/baysets/baysets/internal/config"
	"github.com/baysets/baysets/internal/csr"
	"github.com/baysets/baysets/internal/errors"
	"github.com/baysets/baysets/internal/explain"
	"github.com/baysets/baysets/internal/ids"
	"github.com/baysets/baysets/internal/model"
	"github.com/baysets/baysets/internal/query"
)

const (
	xcoFile = "index.xco"
	ycoFile = "index.yco"
	idsFile = "index.ids"
	ftsFile = "index.fts"
)

// Computed is a sealed, read-only Bayesian-Sets index: the CSR matrix, the
// precomputed hyperparameters, and the identifier/feature tables that make
// rows and columns addressable. It is immutable after Load and safe to
// share by reference across any number of concurrent query handlers.
type Computed struct {
	Matrix *csr.Matrix
	Hyper  *model.Hyperparams
	Rows   *ids.Table[int64]
	Feats  *ids.Table[string]

	builtAt time.Time
}

// Stats summarizes a Computed index for the stats CLI command and
// preflight-style diagnostics.
type Stats struct {
	N                int
	M                int
	NNZ              int
	AverageRowDensity float64
	BuiltAt           time.Time
}

// Stats reports size and density summary statistics for the index.
func (c *Computed) Stats() Stats {
	var density float64
	if c.Matrix.N > 0 {
		density = float64(c.Matrix.NNZ()) / float64(c.Matrix.N)
	}
	return Stats{
		N:                 c.Matrix.N,
		M:                 c.Matrix.M,
		NNZ:               c.Matrix.NNZ(),
		AverageRowDensity: density,
		BuiltAt:           c.builtAt,
	}
}

// NewHandler builds a query handler over this computed index. Per the
// thread-safety contract in spec §4.4/§5, create a fresh handler per query
// (or per goroutine) rather than sharing one across concurrent callers.
func (c *Computed) NewHandler() *query.Handler {
	return query.NewHandler(c.Rows, c.Matrix, c.Hyper)
}

// Explain decomposes row's log-score into per-feature contributions for a
// query already prepared by a Handler, per spec.md §4.5.
func (c *Computed) Explain(prep *query.Prepared, row int, maxTerms int, mode config.AttributionMode) explain.Result {
	return explain.Explain(c.Matrix, c.Hyper, c.Feats, prep, row, maxTerms, mode)
}

// Load opens the four on-disk files under dir, validates them against the
// load error taxonomy in spec.md §7, builds the canonical CSR matrix, and
// precomputes hyperparameters with smoothing constant c.
func Load(ctx context.Context, dir string, smoothingC float64, parallelRowThreshold int) (*Computed, error) {
	idLines, err := readLines(filepath.Join(dir, idsFile))
	if err != nil {
		return nil, err
	}
	featLines, err := readLines(filepath.Join(dir, ftsFile))
	if err != nil {
		return nil, err
	}
	xcoLines, err := readLines(filepath.Join(dir, xcoFile))
	if err != nil {
		return nil, err
	}
	ycoLines, err := readLines(filepath.Join(dir, ycoFile))
	if err != nil {
		return nil, err
	}

	if len(xcoLines) != len(ycoLines) {
		return nil, errors.New(errors.ErrCodeRowColMismatch,
			fmt.Sprintf("row-coordinate stream has %d lines, column-coordinate stream has %d", len(xcoLines), len(ycoLines)), nil)
	}
	if len(featLines) == 0 && len(ycoLines) > 0 {
		return nil, errors.New(errors.ErrCodeEmptyLabels,
			"feature-label table is empty but the column-coordinate stream is not", nil)
	}

	rows := ids.New[int64]()
	seenRow := make(map[int64]bool, len(idLines))
	for i, line := range idLines {
		itemID, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, errors.New(errors.ErrCodeBadInteger,
				fmt.Sprintf("non-integer item id at line %d of %s: %q", i+1, idsFile, line), err)
		}
		if seenRow[itemID] {
			return nil, errors.New(errors.ErrCodeDuplicateID,
				fmt.Sprintf("duplicate item id %d in %s", itemID, idsFile), nil)
		}
		seenRow[itemID] = true
		rows.IndexOf(itemID)
	}

	feats := ids.New[string]()
	for _, label := range featLines {
		feats.IndexOf(label)
	}

	n := rows.Len()
	m := feats.Len()

	rowOf := make([]int32, len(xcoLines))
	colOf := make([]int32, len(ycoLines))
	for i, line := range xcoLines {
		v, err := strconv.ParseInt(line, 10, 32)
		if err != nil {
			return nil, errors.New(errors.ErrCodeBadInteger,
				fmt.Sprintf("non-integer row coordinate at line %d of %s: %q", i+1, xcoFile, line), err)
		}
		if v < 0 || int(v) >= n {
			return nil, errors.New(errors.ErrCodeRowColMismatch,
				fmt.Sprintf("row coordinate %d at line %d of %s is out of range [0,%d)", v, i+1, xcoFile, n), nil)
		}
		rowOf[i] = int32(v)
	}
	for i, line := range ycoLines {
		v, err := strconv.ParseInt(line, 10, 32)
		if err != nil {
			return nil, errors.New(errors.ErrCodeBadInteger,
				fmt.Sprintf("non-integer column coordinate at line %d of %s: %q", i+1, ycoFile, line), err)
		}
		if v < 0 || int(v) >= m {
			return nil, errors.New(errors.ErrCodeRowColMismatch,
				fmt.Sprintf("column coordinate %d at line %d of %s is out of range [0,%d)", v, i+1, ycoFile, m), nil)
		}
		colOf[i] = int32(v)
	}

	mat, err := csr.BuildFromPairs(ctx, rowOf, colOf, n, m, parallelRowThreshold)
	if err != nil {
		return nil, err
	}

	hyper := model.Precompute(mat, smoothingC)

	builtAt := time.Now()
	if info, statErr := os.Stat(filepath.Join(dir, idsFile)); statErr == nil {
		builtAt = info.ModTime()
	}

	return &Computed{Matrix: mat, Hyper: hyper, Rows: rows, Feats: feats, builtAt: builtAt}, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeFileMissing, fmt.Sprintf("missing index file %s", path), err)
		}
		return nil, errors.LoadError(fmt.Sprintf("open %s", path), err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.LoadError(fmt.Sprintf("read %s", path), err)
	}
	return lines, nil
}
