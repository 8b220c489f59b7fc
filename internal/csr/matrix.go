// Package csr builds and represents the read-only compressed-sparse-row
// matrix at the heart of the computed index: a binary N×M matrix over
// presence pairs, canonicalized (row-sorted, deduplicated) from the raw
// coordinate streams written by internal/rawindex.
package csr

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Matrix is an immutable binary CSR matrix. RowPtr has length N+1;
// ColIdx[RowPtr[i]:RowPtr[i+1]] lists the strictly-ascending columns
// present in row i.
type Matrix struct {
	RowPtr []int32
	ColIdx []int32
	N      int
	M      int
}

// NNZ returns the number of stored (nonzero) cells after deduplication.
func (m *Matrix) NNZ() int {
	if len(m.RowPtr) == 0 {
		return 0
	}
	return int(m.RowPtr[len(m.RowPtr)-1])
}

// Row returns the (read-only) slice of ascending column indices for row i.
func (m *Matrix) Row(i int) []int32 {
	return m.ColIdx[m.RowPtr[i]:m.RowPtr[i+1]]
}

// Has reports whether row i has a nonzero at column j. Row i is assumed
// sorted ascending, so this is a binary search.
func (m *Matrix) Has(i, j int) bool {
	row := m.Row(i)
	idx := sort.Search(len(row), func(k int) bool { return row[k] >= int32(j) })
	return idx < len(row) && row[idx] == int32(j)
}

// DefaultParallelRowThreshold is the default row count above which BuildFromPairs
// parallelizes the per-row sort/compact pass (spec step 3) across row
// blocks with errgroup, since each row's column slice is disjoint and
// therefore independent of every other row's.
const DefaultParallelRowThreshold = 50_000

// BuildFromPairs constructs a canonical CSR matrix from a bag of (row, col)
// presence pairs, following the four-step algorithm: per-row counts, a
// scatter pass using a prefix-sum cursor, a per-row sort+dedup pass, and a
// final compaction that recomputes row_ptr from the post-dedup lengths.
// Duplicate pairs are permitted in rowOf/colOf and are collapsed here.
// parallelThreshold controls when the sort+dedup pass (step 3) is split
// across goroutines instead of run serially; pass 0 to always run serially.
func BuildFromPairs(ctx context.Context, rowOf, colOf []int32, n, m int, parallelThreshold int) (*Matrix, error) {
	if len(rowOf) != len(colOf) {
		panic("csr: rowOf and colOf must have equal length")
	}

	// Step 1: per-row counts (pre-dedup).
	provisionalCount := make([]int32, n+1)
	for _, r := range rowOf {
		provisionalCount[r+1]++
	}
	for i := 0; i < n; i++ {
		provisionalCount[i+1] += provisionalCount[i]
	}
	provisionalPtr := provisionalCount // alias: now a prefix sum, i.e. the provisional row_ptr

	// Step 2: scatter into col_idx using a moving per-row cursor.
	nnz := len(rowOf)
	colIdx := make([]int32, nnz)
	cursor := make([]int32, n)
	copy(cursor, provisionalPtr[:n])
	for k := range rowOf {
		r := rowOf[k]
		pos := cursor[r]
		colIdx[pos] = colOf[k]
		cursor[r] = pos + 1
	}

	// Step 3: per-row sort + dedup, recording the compacted length per row.
	compactLen := make([]int32, n)
	sortAndDedupRows := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			start, end := provisionalPtr[i], provisionalPtr[i+1]
			row := colIdx[start:end]
			sort.Slice(row, func(a, b int) bool { return row[a] < row[b] })
			compactLen[i] = int32(dedupInPlace(row))
		}
	}

	if parallelThreshold > 0 && n > parallelThreshold {
		if err := parallelRowBlocks(ctx, n, sortAndDedupRows); err != nil {
			return nil, err
		}
	} else {
		sortAndDedupRows(0, n)
	}

	// Step 4: recompute row_ptr as the exact prefix sum of compacted
	// lengths and left-shift col_idx accordingly.
	rowPtr := make([]int32, n+1)
	for i := 0; i < n; i++ {
		rowPtr[i+1] = rowPtr[i] + compactLen[i]
	}
	finalColIdx := make([]int32, rowPtr[n])
	for i := 0; i < n; i++ {
		src := colIdx[provisionalPtr[i] : provisionalPtr[i]+compactLen[i]]
		copy(finalColIdx[rowPtr[i]:rowPtr[i+1]], src)
	}

	return &Matrix{RowPtr: rowPtr, ColIdx: finalColIdx, N: n, M: m}, nil
}

// dedupInPlace compacts a sorted slice in place, returning the number of
// distinct elements retained.
func dedupInPlace(sorted []int32) int {
	if len(sorted) == 0 {
		return 0
	}
	w := 1
	for r := 1; r < len(sorted); r++ {
		if sorted[r] != sorted[w-1] {
			sorted[w] = sorted[r]
			w++
		}
	}
	return w
}

// parallelRowBlocks splits [0, n) into a block per available CPU and runs
// fn(lo, hi) over each block concurrently via errgroup. Blocks are
// independent because each row's column slice is disjoint.
func parallelRowBlocks(ctx context.Context, n int, fn func(lo, hi int)) error {
	workers := errgroup.Group{}
	blocks := blockBounds(n)
	for _, blk := range blocks {
		lo, hi := blk[0], blk[1]
		workers.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			fn(lo, hi)
			return nil
		})
	}
	return workers.Wait()
}

func blockBounds(n int) [][2]int {
	const maxBlocks = 8
	blockSize := (n + maxBlocks - 1) / maxBlocks
	if blockSize == 0 {
		blockSize = 1
	}
	var blocks [][2]int
	for lo := 0; lo < n; lo += blockSize {
		hi := lo + blockSize
		if hi > n {
			hi = n
		}
		blocks = append(blocks, [2]int{lo, hi})
	}
	return blocks
}
