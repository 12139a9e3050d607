package repository

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/okian/leadscore/internal/domain/lead"
)

// sheetName is the worksheet written by WriteScored and WriteUnscored.
const sheetName = "Leads"

// Read parses a lead table in format f.
func Read(r io.Reader, f Format) (lead.Unscored, error) {
	rows, err := readRows(r, f)
	if err != nil {
		return nil, err
	}
	return parseLeads(rows)
}

// ReadScored parses a lead table that carries a PredictedScore column, such
// as an export.
func ReadScored(r io.Reader, f Format) (lead.Scored, error) {
	rows, err := readRows(r, f)
	if err != nil {
		return nil, err
	}
	return parseScored(rows)
}

// WriteScored serializes rows with the full schema plus PredictedScore. An
// empty batch produces a header-only table.
func WriteScored(w io.Writer, f Format, rows lead.Scored) error {
	return writeRows(w, f, lead.ScoredColumns, scoredRecords(rows))
}

// WriteUnscored serializes rows with the reference dataset schema.
func WriteUnscored(w io.Writer, f Format, rows lead.Unscored) error {
	return writeRows(w, f, lead.Columns, unscoredRecords(rows))
}

func readRows(r io.Reader, f Format) ([][]string, error) {
	switch f {
	case FormatCSV:
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.TrimLeadingSpace = true
		rows, err := cr.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("%w: read csv: %v", ErrInvalidDataset, err)
		}
		return rows, nil
	case FormatXLSX:
		book, err := excelize.OpenReader(r)
		if err != nil {
			return nil, fmt.Errorf("%w: open xlsx: %v", ErrInvalidDataset, err)
		}
		defer func() { _ = book.Close() }()
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: no sheets", ErrInvalidDataset)
		}
		rows, err := book.GetRows(sheets[0], excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("%w: read rows: %v", ErrInvalidDataset, err)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

func writeRows(w io.Writer, f Format, columns []string, records []record) error {
	switch f {
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(columns); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		line := make([]string, len(columns))
		for _, rec := range records {
			for i, v := range rec {
				line[i] = formatCell(v)
			}
			if err := cw.Write(line); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return fmt.Errorf("flush csv: %w", err)
		}
		return nil
	case FormatXLSX:
		return writeXLSX(w, columns, records)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

func writeXLSX(w io.Writer, columns []string, records []record) error {
	book := excelize.NewFile()
	defer func() { _ = book.Close() }()

	if err := book.SetSheetName(book.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	head := make([]any, len(columns))
	for i, c := range columns {
		head[i] = c
	}
	if err := book.SetSheetRow(sheetName, "A1", &head); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		row := []any(rec)
		if err := book.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i+2, err)
		}
	}
	if err := book.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
