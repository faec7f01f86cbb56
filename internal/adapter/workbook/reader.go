// Package workbook imports blast vibration survey data from Excel workbooks.
package workbook

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
)

// Column headers of a survey sheet, matched case-insensitively.
const (
	DistanceHeader = "Distance (m)"
	ChargeHeader   = "Maximum charge weight per delay (kg)"
	PPVHeader      = "PPV"
)

// ReadSamples reads the survey rows of the named sheet, or the first sheet
// when sheet is empty. The first row must hold the column headers; other
// columns are ignored. Blank rows are skipped.
func ReadSamples(path, sheet string) ([]domain.Sample, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "workbook: open file")
	}

	s, err := pickSheet(f, sheet)
	if err != nil {
		return nil, err
	}
	if len(s.Rows) == 0 {
		return nil, eris.Errorf("workbook: sheet %q is empty", s.Name)
	}

	cols, err := locateColumns(rowToStrings(s.Rows[0]))
	if err != nil {
		return nil, err
	}

	samples := make([]domain.Sample, 0, len(s.Rows)-1)
	for i, row := range s.Rows[1:] {
		cells := rowToStrings(row)
		if isBlank(cells) {
			continue
		}
		line := i + 2 // 1-based, after the header
		var vals [3]float64
		for j, col := range cols {
			v, err := parseCell(cells, col)
			if err != nil {
				return nil, eris.Wrapf(err, "workbook: row %d", line)
			}
			vals[j] = v
		}
		samples = append(samples, domain.Sample{
			Distance:       vals[0],
			ChargePerDelay: vals[1],
			PPV:            vals[2],
		})
	}
	return samples, nil
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		s, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("workbook: sheet %q not found", name)
		}
		return s, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("workbook: file has no sheets")
	}
	return f.Sheets[0], nil
}

// locateColumns returns the indices of the distance, charge and PPV columns.
func locateColumns(header []string) ([3]int, error) {
	want := [3]string{DistanceHeader, ChargeHeader, PPVHeader}
	cols := [3]int{-1, -1, -1}
	for i, h := range header {
		h = strings.TrimSpace(h)
		for j, w := range want {
			if cols[j] < 0 && strings.EqualFold(h, w) {
				cols[j] = i
			}
		}
	}
	for j, c := range cols {
		if c < 0 {
			return cols, eris.Errorf("workbook: missing column %q", want[j])
		}
	}
	return cols, nil
}

func parseCell(cells []string, col int) (float64, error) {
	if col >= len(cells) {
		return 0, eris.Errorf("column %d is empty", col+1)
	}
	raw := strings.TrimSpace(cells[col])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Errorf("column %d: %q is not a number", col+1, raw)
	}
	return v, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
