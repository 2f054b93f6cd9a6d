package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/jengzang/sumo-flow-backend/internal/fsutil"
	"github.com/jengzang/sumo-flow-backend/internal/models"
)

// Delimiter used by every open-data CSV
const Delimiter = ';'

const utf8BOM = "\ufeff"

// table is a raw CSV table with a header index
type table struct {
	header []string
	index  map[string]int
	rows   [][]string
}

func (t *table) col(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// openInput opens a required input, mapping absence to MissingInputError
func openInput(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &models.MissingInputError{Path: path, WrappedErr: err}
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}

func readTable(r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.Comma = Delimiter
	reader.LazyQuotes = true
	// short or long rows reach the per-row checks instead of failing the file
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &models.FormatError{Field: "header", Reason: "file is empty"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	t := &table{header: header, index: make(map[string]int, len(header))}
	for i, name := range header {
		t.index[strings.TrimSpace(name)] = i
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(t.rows)+1, err)
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func writeRows(w io.Writer, header []string, rows func(emit func([]string) error) error) error {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := rows(cw.Write); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func writeFile(path string, write func(io.Writer) error) error {
	return fsutil.WriteAtomic(path, write)
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
