package ingest

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/baysets/baysets/internal/errors"
)

// FlatFileSource replays a newline-delimited "item_id feature_label" file
// as a PairSource, for offline builds or re-ingestion without a live
// database.
type FlatFileSource struct {
	f       *os.File
	scanner *bufio.Scanner
	line    int
}

// NewFlatFileSource opens path for a line-oriented replay. Each
// non-blank line (trimmed of surrounding whitespace) must be
// "<item_id> <feature_label>", split at the first space character; a tab
// is not a separator. feature_label may itself contain spaces.
func NewFlatFileSource(path string) (*FlatFileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.IngestError(fmt.Sprintf("open flat file %s", path), err)
	}
	return &FlatFileSource{f: f, scanner: bufio.NewScanner(f)}, nil
}

func (s *FlatFileSource) Next(ctx context.Context) (Pair, bool, error) {
	if err := ctx.Err(); err != nil {
		return Pair{}, false, err
	}

	for s.scanner.Scan() {
		s.line++
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.SplitN(line, " ", 2)
		if len(fields) != 2 {
			return Pair{}, false, errors.IngestError(
				fmt.Sprintf("malformed line %d in flat file: %q", s.line, line), nil)
		}

		itemID, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return Pair{}, false, errors.IngestError(
				fmt.Sprintf("non-integer item id at line %d: %q", s.line, fields[0]), err)
		}

		return Pair{ItemID: itemID, FeatureLabel: fields[1]}, true, nil
	}

	if err := s.scanner.Err(); err != nil {
		return Pair{}, false, errors.IngestError("read flat file", err)
	}
	return Pair{}, false, nil
}

func (s *FlatFileSource) Close() error {
	if err := s.f.Close(); err != nil {
		return errors.IngestError("close flat file", err)
	}
	return nil
}
