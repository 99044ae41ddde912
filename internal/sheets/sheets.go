// Package sheets reads stored spreadsheet bytes back as header-keyed row
// records. Workbooks (.xlsx, .xlsm) go through excelize; delimited files
// (.csv, .tsv) are presented as a single-sheet workbook named Sheet1.
package sheets

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnreadable marks bytes that cannot be parsed as any recognized tabular
// format. It is discovered only after the extension check has passed, so the
// caller must report it separately from plain input validation.
var ErrUnreadable = errors.New("file is not a readable spreadsheet")

const csvSheetName = "Sheet1"

// Row maps a header cell to a typed value. Blank cells are omitted.
type Row map[string]interface{}

type Workbook struct {
	sheetNames []string
	xlsx       *excelize.File
	csvRows    [][]string
}

// Open parses the raw bytes of a stored file. The extension decides the
// format; a mismatch between extension and actual content surfaces as
// ErrUnreadable.
func Open(reader io.Reader, ext string) (*Workbook, error) {
	switch strings.ToLower(ext) {
	case ".csv", ".tsv":
		delimiter := ','
		if strings.EqualFold(ext, ".tsv") {
			delimiter = '\t'
		}
		r := csv.NewReader(reader)
		r.Comma = delimiter
		r.FieldsPerRecord = -1
		records, err := r.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		return &Workbook{sheetNames: []string{csvSheetName}, csvRows: records}, nil
	case ".xlsx", ".xlsm":
		f, err := excelize.OpenReader(reader)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		return &Workbook{sheetNames: f.GetSheetList(), xlsx: f}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported extension %s", ErrUnreadable, ext)
	}
}

func (w *Workbook) Close() error {
	if w.xlsx != nil {
		return w.xlsx.Close()
	}
	return nil
}

// SheetNames returns sheets in file order.
func (w *Workbook) SheetNames() []string {
	return w.sheetNames
}

func (w *Workbook) HasSheet(name string) bool {
	for _, sheet := range w.sheetNames {
		if sheet == name {
			return true
		}
	}
	return false
}

// Dimension reports the occupied extent of a sheet: the number of non-empty
// rows (header included) and the widest row.
func (w *Workbook) Dimension(sheet string) (rows, cols int, err error) {
	raw, err := w.rawRows(sheet)
	if err != nil {
		return 0, 0, err
	}
	for _, row := range raw {
		if len(row) > cols {
			cols = len(row)
		}
	}
	return len(raw), cols, nil
}

// Rows converts a sheet to records. The first row is the header; every later
// row becomes one {header → value} record. Wholly empty rows are skipped,
// cells beyond the header width are dropped, and blank cells are omitted so
// presence in the record means the cell held a value.
func (w *Workbook) Rows(sheet string) ([]Row, error) {
	raw, err := w.rawRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return []Row{}, nil
	}

	headers := raw[0]
	records := make([]Row, 0, len(raw)-1)
	for _, cells := range raw[1:] {
		if isEmptyRow(cells) {
			continue
		}
		record := Row{}
		for i, cell := range cells {
			if i >= len(headers) {
				break
			}
			header := strings.TrimSpace(headers[i])
			if header == "" || cell == "" {
				continue
			}
			record[header] = CellValue(cell)
		}
		records = append(records, record)
	}
	return records, nil
}

func (w *Workbook) rawRows(sheet string) ([][]string, error) {
	if w.xlsx != nil {
		return w.xlsx.GetRows(sheet)
	}
	if sheet != csvSheetName {
		return nil, fmt.Errorf("sheet %s does not exist", sheet)
	}
	return w.csvRows, nil
}

func isEmptyRow(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// CellValue keeps the cell's native type: numbers become float64, true/false
// become bool, everything else stays text.
func CellValue(cell string) interface{} {
	if parsed, err := strconv.ParseFloat(cell, 64); err == nil && !math.IsNaN(parsed) && !math.IsInf(parsed, 0) {
		return parsed
	}
	switch strings.ToLower(cell) {
	case "true":
		return true
	case "false":
		return false
	}
	return cell
}
