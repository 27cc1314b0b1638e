// Package sheet reads and writes spec spreadsheets.
//
// Layout of the first sheet: a header row, then one spec per row with
// column A name, B value, C unit and D category. A and B are required.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vmcmoto/motoportal/app/models"
)

// ErrUnsupported is returned for a file extension other than .xlsx or .csv.
var ErrUnsupported = errors.New("sheet: only .xlsx and .csv files are supported")

// Header is the first row of templates and exports.
var Header = []string{"Spec name", "Value", "Unit", "Category"}

var sampleRows = [][]string{
	{"Engine displacement", "450", "cc", "engine"},
	{"Max power", "45", "hp", "engine"},
	{"Curb weight", "165", "kg", "dimensions"},
	{"Length", "2150", "mm", "dimensions"},
}

const sheetName = "Specs"

// Result is what ReadSpecs found.
type Result struct {
	Rows    []models.SpecRow
	Skipped int // data rows without a name or value
}

// ReadSpecs parses the spreadsheet in r. name selects the format by its
// extension.
func ReadSpecs(r io.Reader, name string) (Result, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		rows, err = readXLSX(r)
	case ".csv":
		rows, err = readCSV(r)
	default:
		return Result{}, ErrUnsupported
	}
	if err != nil {
		return Result{}, err
	}
	return parse(rows), nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("sheet: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("sheet: read %s: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("sheet: read csv: %w", err)
	}
	return rows, nil
}

// parse skips the header. Order is the row's index in the sheet, so the
// first data row gets 1.
func parse(rows [][]string) Result {
	var res Result
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		name, value := cell(row, 0), cell(row, 1)
		if name == "" && value == "" && cell(row, 2) == "" && cell(row, 3) == "" {
			continue
		}
		if name == "" || value == "" {
			res.Skipped++
			continue
		}
		category := cell(row, 3)
		if category == "" {
			category = models.DefaultSpecCategory
		}
		res.Rows = append(res.Rows, models.SpecRow{
			Name:     name,
			Value:    value,
			Unit:     cell(row, 2),
			Category: category,
			Order:    i,
		})
	}
	return res
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// WriteTemplate writes an .xlsx template with the header and sample rows.
func WriteTemplate(w io.Writer) error {
	return writeXLSX(w, sampleRows)
}

// WriteSpecs writes specs as .xlsx, or as .csv when name ends in .csv.
func WriteSpecs(w io.Writer, name string, specs []models.Spec) error {
	rows := make([][]string, len(specs))
	for i, sp := range specs {
		rows[i] = []string{sp.Name, sp.Value, sp.Unit, sp.GroupKey()}
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return writeCSV(w, rows)
	case ".xlsx", "":
		return writeXLSX(w, rows)
	default:
		return ErrUnsupported
	}
}

func writeXLSX(w io.Writer, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("sheet: rename sheet: %w", err)
	}
	for i, row := range append([][]string{Header}, rows...) {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		vals := make([]interface{}, len(row))
		for j, v := range row {
			vals[j] = v
		}
		if err := f.SetSheetRow(sheetName, cellRef, &vals); err != nil {
			return fmt.Errorf("sheet: write row %d: %w", i+1, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("sheet: style: %w", err)
	}
	if err := f.SetCellStyle(sheetName, "A1", "D1", bold); err != nil {
		return fmt.Errorf("sheet: style header: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", "A", 32); err != nil {
		return fmt.Errorf("sheet: column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("sheet: write workbook: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("sheet: write csv: %w", err)
	}
	return nil
}
