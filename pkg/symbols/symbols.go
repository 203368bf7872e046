package symbols

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrNotCSV is returned when a file name carries no ".csv" marker, so no
// ticker symbol can be cut out of it.
var ErrNotCSV = errors.New("file name has no .csv marker")

// csvMarker is searched as a plain substring, the data folder only ever
// holds exported Yahoo Finance files named like "^DAX.csv" or "KOSPI.KS.csv".
const csvMarker = ".csv"

// Extract derives a market index identifier from a file path.
//
// Index symbols start with a caret, so when the path contains one the
// identifier runs from the first "^" up to the first ".csv". Plain ticker
// files have no caret and the identifier is the base name up to ".csv".
// Paths may come from either Windows or Unix exports, both separators count.
func Extract(path string) (string, error) {
	stop := strings.Index(path, csvMarker)
	if stop < 0 {
		return "", fmt.Errorf("%q: %w", path, ErrNotCSV)
	}

	start := strings.Index(path, "^")
	if start < 0 {
		if sep := strings.LastIndexAny(path, `/\`); sep >= 0 {
			start = sep + 1
		} else {
			start = 0
		}
	}

	if start >= stop {
		return "", fmt.Errorf("%q: %w", path, ErrNotCSV)
	}

	return path[start:stop], nil
}

// Extractor lists a data directory and turns the file names into identifiers.
type Extractor struct {
	logger  *zap.Logger
	dataDir string
}

func NewExtractor(logger *zap.Logger, dataDir string) *Extractor {
	return &Extractor{
		logger:  logger,
		dataDir: dataDir,
	}
}

// ListDataFiles returns the paths of the files in the data directory, in
// enumeration order.
func (e *Extractor) ListDataFiles() ([]string, error) {
	entries, err := os.ReadDir(e.dataDir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, filepath.Join(e.dataDir, entry.Name()))
	}

	return files, nil
}

// Identifiers lists the data directory and extracts one identifier per
// qualifying file.
func (e *Extractor) Identifiers() ([]string, error) {
	files, err := e.ListDataFiles()
	if err != nil {
		return nil, err
	}
	return e.ExtractAll(files), nil
}

// FilterSources drops every path containing "sources". Those files are
// bookkeeping (where each export came from), not market data.
func FilterSources(paths []string) []string {
	kept := make([]string, 0, len(paths))
	for _, path := range paths {
		if strings.Contains(path, "sources") {
			continue
		}
		kept = append(kept, path)
	}
	return kept
}

// ExtractAll extracts identifiers from the given paths, preserving order and
// duplicates. "sources" paths are dropped before extraction. Files without a
// ".csv" marker are skipped and reported, they never turn into a malformed
// symbol that would go out in a request.
func (e *Extractor) ExtractAll(paths []string) []string {
	paths = FilterSources(paths)
	ids := make([]string, 0, len(paths))
	for _, path := range paths {
		id, err := Extract(path)
		if err != nil {
			e.logger.Warn("Skipping data file",
				zap.String("file", path),
				zap.Error(err))
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
