// Package sheetscan scores the worksheets of a workbook and recommends
// the one most likely to hold the bill-of-materials data.
package sheetscan

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/lamii21/Etl/table"
)

// PNPatterns are the header substrings that mark part-number columns
// during sheet scoring. This set includes "partnumber", which the
// cleaning pipeline's set deliberately does not.
var PNPatterns = []string{"pn", "part number", "part_number", "yazaki pn", "yazaki_pn", "partnumber"}

const (
	columnNameCap = 10 // headers retained per sheet in the payload
	sampleRowCap  = 3  // preview rows retained per sheet
)

// Analyze scores every sheet of the workbook at path and names a
// recommended sheet. A sheet that fails to read is reported with its
// error set rather than aborting the whole analysis; the function only
// fails when the workbook itself cannot be opened.
func Analyze(path string) (*AnalysisResult, error) {
	f, err := table.OpenWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	names := f.GetSheetList()
	sheets := make([]SheetInfo, 0, len(names))
	for _, name := range names {
		sheets = append(sheets, analyzeSheet(f, name))
	}

	return &AnalysisResult{
		FilePath:         path,
		TotalSheets:      len(names),
		Sheets:           sheets,
		RecommendedSheet: bestSheet(sheets),
	}, nil
}

// analyzeSheet computes the statistics for a single sheet. Any read
// failure is captured into the Error field with zeroed stats.
func analyzeSheet(f *excelize.File, name string) SheetInfo {
	t, err := table.ReadSheet(f, name)
	if err != nil {
		return SheetInfo{
			Name:        name,
			ColumnNames: []string{},
			PNColumns:   []string{},
			SampleData:  []map[string]string{},
			Error:       err.Error(),
		}
	}

	rows := t.RowCount()
	cols := t.ColumnCount()

	density := 0.0
	if total := rows * cols; total > 0 {
		filled := total - t.MissingCount()
		density = math.Round(float64(filled)/float64(total)*1000) / 10
	}

	pnColumns := t.MatchColumns(PNPatterns)
	if pnColumns == nil {
		pnColumns = []string{}
	}

	columnNames := t.Headers()
	if len(columnNames) > columnNameCap {
		columnNames = columnNames[:columnNameCap]
	}

	sample := make([]map[string]string, 0, sampleRowCap)
	headers := t.Headers()
	for i := 0; i < rows && i < sampleRowCap; i++ {
		record := make(map[string]string, cols)
		for c, h := range headers {
			record[h] = t.Cell(i, c).String()
		}
		sample = append(sample, record)
	}

	isDataSheet := rows > 1 && cols > 1 && density > 10

	return SheetInfo{
		Name:        name,
		Rows:        rows,
		Columns:     cols,
		ColumnNames: columnNames,
		PNColumns:   pnColumns,
		DataDensity: density,
		IsDataSheet: isDataSheet,
		SampleData:  sample,
		Recommended: len(pnColumns) > 0 && isDataSheet,
	}
}

// bestSheet applies the four-tier recommendation fallback: recommended
// sheets by quality score, then data sheets by quality score, then the
// first readable sheet, then the first sheet outright. It always names
// some sheet for a non-empty workbook so callers can report a precise
// error instead of crashing.
func bestSheet(sheets []SheetInfo) string {
	if len(sheets) == 0 {
		return ""
	}
	if name, ok := highestScore(sheets, func(s *SheetInfo) bool {
		return s.Recommended && s.Error == ""
	}); ok {
		return name
	}
	if name, ok := highestScore(sheets, func(s *SheetInfo) bool {
		return s.IsDataSheet && s.Error == ""
	}); ok {
		return name
	}
	for _, s := range sheets {
		if s.Error == "" {
			return s.Name
		}
	}
	return sheets[0].Name
}

// highestScore returns the first sheet with the strictly highest
// quality score among those accepted by ok. Ties keep sheet order.
func highestScore(sheets []SheetInfo, ok func(*SheetInfo) bool) (string, bool) {
	best := -1
	for i := range sheets {
		if !ok(&sheets[i]) {
			continue
		}
		if best < 0 || sheets[i].QualityScore() > sheets[best].QualityScore() {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return sheets[best].Name, true
}

// SelectSheet validates that the named sheet exists in the workbook at
// path and returns its dimensions. A missing file and a missing sheet
// are distinct failures (table.ErrFileNotFound, table.ErrSheetNotFound).
func SelectSheet(path, sheetName string) (SheetStats, error) {
	t, err := table.LoadSheet(path, sheetName)
	if err != nil {
		return SheetStats{}, fmt.Errorf("select sheet: %w", err)
	}
	return SheetStats{
		Rows:        t.RowCount(),
		Columns:     t.ColumnCount(),
		ColumnNames: t.Headers(),
	}, nil
}
