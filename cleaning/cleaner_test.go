package cleaning

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamii21/Etl/table"
)

// only returns Options with every step disabled except those set.
func only(set func(*Options)) Options {
	var opts Options
	set(&opts)
	return opts
}

func TestCleanFullPipeline(t *testing.T) {
	tbl := table.New(" PN ", "Description")
	tbl.AppendRow(table.NewText("abc123 "), table.NewText("widget"))
	tbl.AppendRow(table.Missing, table.Missing)
	tbl.AppendRow(table.NewText("abc123 "), table.NewText("widget"))

	cleaned, report := Clean(tbl, DefaultOptions())

	assert.Equal(t, []string{"PN", "Description"}, cleaned.Headers())
	require.Equal(t, 1, cleaned.RowCount(), "empty row and duplicate removed")
	assert.Equal(t, "ABC123", cleaned.Cell(0, 0).String())

	assert.Equal(t, 3, report.Stats.OriginalRows)
	assert.Equal(t, 1, report.Stats.FinalRows)
	assert.Equal(t, 2, report.Stats.RowsRemoved())
	assert.Equal(t, 0, report.Stats.ColumnsRemoved())

	assert.Equal(t, []string{
		"Removed 1 empty rows",
		"Cleaned 1 column names",
		"Standardized 2 part numbers in PN",
		"Removed 1 duplicate rows",
	}, report.Stats.OperationsPerformed)

	assert.Contains(t, report.Stats.IssuesFound, "Found 1 completely empty rows")
	assert.Contains(t, report.Stats.IssuesFound, "Found 1 duplicate rows")
	assert.Equal(t, "100.0%", report.Summary.DataQualityImprovement, "capped at 100")
}

func TestCleanIsIdempotent(t *testing.T) {
	tbl := table.New(" PN ", "Description")
	tbl.AppendRow(table.NewText("abc123 "), table.NewText("widget"))
	tbl.AppendRow(table.NewText("xyz789"), table.NewText("gadget"))

	once, _ := Clean(tbl, DefaultOptions())
	twice, report := Clean(once, DefaultOptions())

	assert.Empty(t, report.Stats.OperationsPerformed, "second pass changes nothing")
	assert.Empty(t, report.Stats.IssuesFound)
	assert.Equal(t, "No issues found", report.Summary.DataQualityImprovement)
	assert.Equal(t, once.RowCount(), twice.RowCount())
	assert.Equal(t, once.Headers(), twice.Headers())
}

func TestCleanDoesNotMutateInput(t *testing.T) {
	tbl := table.New(" PN ")
	tbl.AppendRow(table.NewText("abc "))

	_, _ = Clean(tbl, DefaultOptions())

	assert.Equal(t, " PN ", tbl.Headers()[0])
	assert.Equal(t, "abc ", tbl.Cell(0, 0).String())
}

func TestRemoveEmptyColumns(t *testing.T) {
	tbl := table.New("PN", "Blank", "Qty")
	tbl.AppendRow(table.NewText("A1"), table.Missing, table.NewNumber(1))
	tbl.AppendRow(table.NewText("A2"), table.Missing, table.NewNumber(2))

	cleaned, report := Clean(tbl, only(func(o *Options) { o.RemoveEmptyColumns = true }))

	assert.Equal(t, []string{"PN", "Qty"}, cleaned.Headers())
	assert.Equal(t, 1, report.Stats.ColumnsRemoved())
	assert.Contains(t, report.Stats.OperationsPerformed, "Removed 1 empty columns")
}

func TestStandardizePartNumbers(t *testing.T) {
	tbl := table.New("PN")
	tbl.AppendRow(table.NewText(" x1 "))
	tbl.AppendRow(table.NewText("nan"))
	tbl.AppendRow(table.NewText(""))
	tbl.AppendRow(table.NewNumber(123))

	cleaned, report := Clean(tbl, only(func(o *Options) { o.StandardizePN = true }))

	require.Equal(t, 4, cleaned.RowCount())
	assert.Equal(t, table.NewText("X1"), cleaned.Cell(0, 0))
	assert.True(t, cleaned.Cell(1, 0).IsMissing(), `"nan" folds to missing`)
	assert.True(t, cleaned.Cell(2, 0).IsMissing(), "empty string folds to missing")
	assert.Equal(t, table.NewText("123"), cleaned.Cell(3, 0), "numbers become text part numbers")

	assert.Contains(t, report.Stats.OperationsPerformed, "Standardized 1 part numbers in PN")
}

func TestStandardizePartNumbersSkipsNonPNColumns(t *testing.T) {
	tbl := table.New("Description")
	tbl.AppendRow(table.NewText(" lower "))

	cleaned, report := Clean(tbl, only(func(o *Options) { o.StandardizePN = true }))

	assert.Equal(t, " lower ", cleaned.Cell(0, 0).String())
	assert.Empty(t, report.Stats.OperationsPerformed)
}

func TestPNColumnMatchedThroughUnclearedHeader(t *testing.T) {
	// Header matching trims and lowercases, so standardization applies
	// even when the clean-column-names step is disabled.
	tbl := table.New(" PN ")
	tbl.AppendRow(table.NewText("abc"))

	cleaned, _ := Clean(tbl, only(func(o *Options) { o.StandardizePN = true }))

	assert.Equal(t, " PN ", cleaned.Headers()[0])
	assert.Equal(t, "ABC", cleaned.Cell(0, 0).String())
}

func TestRemoveDuplicatesIsTypeAware(t *testing.T) {
	tbl := table.New("A")
	tbl.AppendRow(table.NewText("5"))
	tbl.AppendRow(table.NewNumber(5))
	tbl.AppendRow(table.NewText("5"))

	cleaned, report := Clean(tbl, only(func(o *Options) { o.RemoveDuplicates = true }))

	require.Equal(t, 2, cleaned.RowCount(), `text "5" and number 5 are distinct`)
	assert.Equal(t, table.CellText, cleaned.Cell(0, 0).Type)
	assert.Equal(t, table.CellNumber, cleaned.Cell(1, 0).Type)
	assert.Contains(t, report.Stats.OperationsPerformed, "Removed 1 duplicate rows")
}

func TestRemoveDuplicatesDisabled(t *testing.T) {
	tbl := table.New("PN", "Qty")
	tbl.AppendRow(table.NewText("A1"), table.NewNumber(1))
	tbl.AppendRow(table.NewText("A1"), table.NewNumber(1))

	opts := DefaultOptions()
	opts.RemoveDuplicates = false
	cleaned, report := Clean(tbl, opts)

	assert.Equal(t, 2, cleaned.RowCount(), "duplicates retained")
	for _, issue := range report.Stats.IssuesFound {
		assert.NotContains(t, issue, "duplicate")
	}
}

func TestCleanWhitespace(t *testing.T) {
	tbl := table.New("Note")
	tbl.AppendRow(table.NewText("  a   b  "))
	tbl.AppendRow(table.NewText("nan"))
	tbl.AppendRow(table.NewText("ok"))

	cleaned, report := Clean(tbl, only(func(o *Options) { o.CleanWhitespace = true }))

	assert.Equal(t, "a b", cleaned.Cell(0, 0).String())
	assert.True(t, cleaned.Cell(1, 0).IsMissing(), `literal "nan" folds to missing`)
	assert.Equal(t, "ok", cleaned.Cell(2, 0).String())

	assert.Contains(t, report.Stats.OperationsPerformed, "Cleaned whitespace in 1 columns")
	assert.Contains(t, report.Stats.IssuesFixed, "Fixed 1 whitespace issues")
}

func TestStandardizeTextCase(t *testing.T) {
	tbl := table.New("Status", "Description")
	tbl.AppendRow(table.NewText("ok"), table.NewText("lower stays"))
	tbl.AppendRow(table.NewText("GOOD"), table.NewText("untouched"))

	cleaned, report := Clean(tbl, only(func(o *Options) { o.StandardizeCase = true }))

	assert.Equal(t, "OK", cleaned.Cell(0, 0).String())
	assert.Equal(t, "GOOD", cleaned.Cell(1, 0).String())
	assert.Equal(t, "lower stays", cleaned.Cell(0, 1).String())

	assert.Contains(t, report.Stats.OperationsPerformed, "Standardized text case")
	assert.Contains(t, report.Stats.IssuesFixed, "Fixed 1 case issues")
}

func TestFixDataTypes(t *testing.T) {
	tbl := table.New("Price", "Notes")
	tbl.AppendRow(table.NewText("$1,200"), table.NewText("abc"))
	tbl.AppendRow(table.NewText("45%"), table.NewText("1"))
	tbl.AppendRow(table.NewText("3.5"), table.Missing)

	cleaned, report := Clean(tbl, only(func(o *Options) { o.FixDataTypes = true }))

	assert.Equal(t, table.NewNumber(1200), cleaned.Cell(0, 0))
	assert.Equal(t, table.NewNumber(45), cleaned.Cell(1, 0))
	assert.Equal(t, table.NewNumber(3.5), cleaned.Cell(2, 0))

	// One unparseable value keeps the whole column textual.
	assert.Equal(t, table.CellText, cleaned.Cell(0, 1).Type)
	assert.Equal(t, table.CellText, cleaned.Cell(1, 1).Type)

	assert.Contains(t, report.Stats.OperationsPerformed, "Fixed data types for 1 columns")
}

func TestHandleMissingValuesIsObservational(t *testing.T) {
	tbl := table.New("PN", "Qty")
	tbl.AppendRow(table.NewText("A1"), table.Missing)
	tbl.AppendRow(table.NewText("A2"), table.NewNumber(2))

	cleaned, report := Clean(tbl, only(func(o *Options) { o.HandleMissing = true }))

	assert.True(t, cleaned.Cell(0, 1).IsMissing(), "data untouched")
	assert.Contains(t, report.Stats.OperationsPerformed, "Analyzed 1 missing values")
	assert.Contains(t, report.Stats.IssuesFound, "Found 1 missing values across 1 columns")
	assert.Contains(t, report.Log, "Column 'Qty': 1 missing values (50.0%)")
}

func TestValidateDataMissingPNColumn(t *testing.T) {
	// "PartNumber" satisfies the sheet scorer's patterns but not the
	// cleaning pipeline's narrower set.
	tbl := table.New("PartNumber")
	tbl.AppendRow(table.NewText("A1"))

	_, report := Clean(tbl, only(func(o *Options) { o.ValidateData = true }))

	assert.Contains(t, report.Stats.IssuesFound, "No Part Number column found")
}

func TestValidateDataLongValues(t *testing.T) {
	tbl := table.New("PN", "Notes")
	tbl.AppendRow(table.NewText("A1"), table.NewText(strings.Repeat("x", 1001)))

	_, report := Clean(tbl, only(func(o *Options) { o.ValidateData = true }))

	assert.Contains(t, report.Stats.IssuesFound,
		"Column 'Notes' has extremely long values (max: 1001 chars)")
}

func TestValidateDataRules(t *testing.T) {
	tbl := table.New("PN", "Qty")
	tbl.AppendRow(table.NewText("A1"), table.NewNumber(3))
	tbl.AppendRow(table.NewText("A2"), table.NewNumber(-2))
	tbl.AppendRow(table.NewText("A3"), table.Missing)

	rule := "row.Qty == nil || row.Qty >= 0"
	_, report := Clean(tbl, only(func(o *Options) {
		o.ValidateData = true
		o.Rules = []string{rule}
	}))

	assert.Contains(t, report.Stats.IssuesFound, `Rule "row.Qty == nil || row.Qty >= 0" violated by 1 rows`)
}

func TestValidateDataRuleErrors(t *testing.T) {
	tbl := table.New("PN")
	tbl.AppendRow(table.NewText("A1"))

	_, report := Clean(tbl, only(func(o *Options) {
		o.ValidateData = true
		o.Rules = []string{"row.PN +"}
	}))

	require.Len(t, report.Stats.IssuesFound, 1)
	assert.Contains(t, report.Stats.IssuesFound[0], "compile rule")
}

func TestValidateDataRuleMustBeBool(t *testing.T) {
	tbl := table.New("PN")
	tbl.AppendRow(table.NewText("A1"))

	_, report := Clean(tbl, only(func(o *Options) {
		o.ValidateData = true
		o.Rules = []string{`row.PN`}
	}))

	require.Len(t, report.Stats.IssuesFound, 1)
	assert.Contains(t, report.Stats.IssuesFound[0], "expected bool")
}

func TestQualityImprovementEmptyInput(t *testing.T) {
	tbl := table.New("PN")

	_, report := Clean(tbl, DefaultOptions())

	assert.Equal(t, "0%", report.Summary.DataQualityImprovement)
	assert.Equal(t, 0, report.Stats.FinalRows)
}

func TestCleanNeverGrowsTheTable(t *testing.T) {
	tbl := table.New(" A ", "B", "Blank")
	tbl.AppendRow(table.NewText(" x "), table.NewNumber(1), table.Missing)
	tbl.AppendRow(table.Missing, table.Missing, table.Missing)
	tbl.AppendRow(table.NewText(" x "), table.NewNumber(1), table.Missing)

	cleaned, report := Clean(tbl, DefaultOptions())

	assert.LessOrEqual(t, cleaned.RowCount(), tbl.RowCount())
	assert.LessOrEqual(t, cleaned.ColumnCount(), tbl.ColumnCount())
	assert.Equal(t, report.Stats.FinalRows, cleaned.RowCount())
	assert.Equal(t, report.Stats.FinalColumns, cleaned.ColumnCount())
}

func TestDataReductionPercent(t *testing.T) {
	s := Stats{OriginalRows: 4, FinalRows: 3}
	assert.InDelta(t, 25.0, s.DataReductionPercent(), 1e-9)

	empty := Stats{}
	assert.Equal(t, 0.0, empty.DataReductionPercent())
}
