// Package sheet reads submission tables from spreadsheet workbooks and
// delimited text files into records.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/record"
)

// ErrUnsupported is returned for files whose extension no reader handles.
var ErrUnsupported = errors.New("unsupported file type")

// ReadWorkbook reads every sheet of an .xlsx workbook as a table named
// after the sheet. Sheets without a header row are skipped.
func ReadWorkbook(path string) (*record.Tables, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	tables := record.NewTables()
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		if len(rows) == 0 {
			continue
		}
		tables.Set(name, toRecords(rows))
	}
	return tables, nil
}

// ReadTSVDir reads every <table>.tsv file in dir.
func ReadTSVDir(dir string) (*record.Tables, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.tsv"))
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)

	tables := record.NewTables()
	for _, path := range paths {
		records, err := readDelimited(path, '\t')
		if err != nil {
			return nil, err
		}
		tables.Set(strings.TrimSuffix(filepath.Base(path), ".tsv"), records)
	}
	return tables, nil
}

// ReadTables reads a workbook file or a directory of TSV files.
func ReadTables(path string) (*record.Tables, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return ReadTSVDir(path)
	}
	if isWorkbook(path) {
		return ReadWorkbook(path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
}

// ReadMetadata reads a sequencing metadata sheet: the first sheet of a
// workbook, or a TSV or CSV file.
func ReadMetadata(path string) ([]*record.Record, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case isWorkbook(path):
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		defer f.Close()
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil
		}
		rows, err := f.GetRows(sheets[0])
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
		}
		return toRecords(rows), nil
	case ext == ".tsv":
		return readDelimited(path, '\t')
	case ext == ".csv":
		return readDelimited(path, ',')
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
}

func isWorkbook(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

func readDelimited(path string, comma rune) ([]*record.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := ReadDelimited(f, comma)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}

// ReadDelimited reads a header line followed by data lines.
func ReadDelimited(r io.Reader, comma rune) ([]*record.Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return toRecords(rows), nil
}

// toRecords converts raw rows into records. The first row is the header;
// data rows are numbered as in the source, so the first data row is 2.
// Fully blank rows are skipped and every cell is trimmed.
func toRecords(rows [][]string) []*record.Record {
	if len(rows) == 0 {
		return nil
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = record.NormalizeHeader(h)
	}

	var records []*record.Record
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rec := record.New(i + 2)
		for j, field := range header {
			if field == "" {
				continue
			}
			value := ""
			if j < len(row) {
				value = strings.TrimSpace(row[j])
			}
			rec.Set(field, value)
		}
		records = append(records, rec)
	}
	return records
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
