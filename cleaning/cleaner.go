// Package cleaning applies a configurable, ordered pipeline of
// cleaning steps to a table and reports everything it changed or
// found. Per-cell anomalies are absorbed into the report; the pipeline
// itself never fails on malformed content.
package cleaning

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lamii21/Etl/table"
)

// pnPatterns marks part-number columns for standardization and
// validation. Narrower than the sheet scorer's set: "partnumber" is
// absent here.
var pnPatterns = []string{"pn", "part number", "part_number", "yazaki pn", "yazaki_pn"}

// uppercasePatterns marks columns whose text values are forced to
// upper case by the standardize-case step.
var uppercasePatterns = []string{"pn", "part", "status", "state"}

const maxTextLength = 1000 // validation threshold for absurdly long values

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	edgeNonWord   = regexp.MustCompile(`^\W+|\W+$`)
	numericNoise  = strings.NewReplacer(",", "", "$", "", "%", "")
)

// Cleaner runs the cleaning pipeline and accumulates its report.
// A Cleaner is good for one Clean call at a time.
type Cleaner struct {
	stats Stats
	log   []string
	rules ruleEvaluator
}

// New creates a Cleaner.
func New() *Cleaner {
	return &Cleaner{}
}

// Clean runs the enabled steps in their fixed order on a copy of t and
// returns the cleaned table. The input table is never mutated. Call
// Report afterwards for the accumulated statistics.
func (c *Cleaner) Clean(t *table.Table, opts Options) *table.Table {
	c.stats = Stats{
		OriginalRows:        t.RowCount(),
		OriginalColumns:     t.ColumnCount(),
		OperationsPerformed: []string{},
		IssuesFound:         []string{},
		IssuesFixed:         []string{},
	}
	c.log = []string{}

	cleaned := t.Clone()

	if opts.RemoveEmptyRows {
		c.removeEmptyRows(cleaned)
	}
	if opts.RemoveEmptyColumns {
		c.removeEmptyColumns(cleaned)
	}
	if opts.CleanColumnNames {
		c.cleanColumnNames(cleaned)
	}
	if opts.StandardizePN {
		c.standardizePartNumbers(cleaned)
	}
	if opts.RemoveDuplicates {
		c.removeDuplicates(cleaned)
	}
	if opts.CleanWhitespace {
		c.cleanWhitespace(cleaned)
	}
	if opts.StandardizeCase {
		c.standardizeTextCase(cleaned)
	}
	if opts.FixDataTypes {
		c.fixDataTypes(cleaned)
	}
	if opts.HandleMissing {
		c.handleMissingValues(cleaned)
	}
	if opts.ValidateData {
		c.validateData(cleaned, opts.Rules)
	}

	c.stats.FinalRows = cleaned.RowCount()
	c.stats.FinalColumns = cleaned.ColumnCount()
	return cleaned
}

// Report returns the report for the most recent Clean call.
func (c *Cleaner) Report() Report {
	return Report{
		Stats: c.stats,
		Log:   c.log,
		Summary: Summary{
			TotalOperations:        len(c.stats.OperationsPerformed),
			IssuesFound:            len(c.stats.IssuesFound),
			IssuesFixed:            len(c.stats.IssuesFixed),
			DataQualityImprovement: qualityImprovement(&c.stats),
		},
	}
}

// Clean is the convenience form: one call, cleaned table plus report.
func Clean(t *table.Table, opts Options) (*table.Table, Report) {
	c := New()
	cleaned := c.Clean(t, opts)
	return cleaned, c.Report()
}

func (c *Cleaner) record(operation, found, fixed string) {
	if operation != "" {
		c.stats.OperationsPerformed = append(c.stats.OperationsPerformed, operation)
	}
	if found != "" {
		c.stats.IssuesFound = append(c.stats.IssuesFound, found)
	}
	if fixed != "" {
		c.stats.IssuesFixed = append(c.stats.IssuesFixed, fixed)
	}
}

// Step 1: drop rows where every cell is missing.
func (c *Cleaner) removeEmptyRows(t *table.Table) {
	removed := t.FilterRows(func(row int) bool { return !t.IsRowEmpty(row) })
	if removed > 0 {
		c.record(
			fmt.Sprintf("Removed %d empty rows", removed),
			fmt.Sprintf("Found %d completely empty rows", removed),
			fmt.Sprintf("Removed %d empty rows", removed),
		)
	}
}

// Step 2: drop columns where every cell is missing.
func (c *Cleaner) removeEmptyColumns(t *table.Table) {
	removed := t.RemoveColumns(func(_ int, col *table.Column) bool {
		for _, cell := range col.Cells {
			if !cell.IsMissing() {
				return false
			}
		}
		return true
	})
	if removed > 0 {
		c.record(
			fmt.Sprintf("Removed %d empty columns", removed),
			fmt.Sprintf("Found %d completely empty columns", removed),
			fmt.Sprintf("Removed %d empty columns", removed),
		)
	}
}

// Step 3: trim headers, collapse whitespace runs, strip non-word
// characters from both ends.
func (c *Cleaner) cleanColumnNames(t *table.Table) {
	changes := 0
	for i, name := range t.Headers() {
		clean := strings.TrimSpace(name)
		clean = whitespaceRun.ReplaceAllString(clean, " ")
		clean = edgeNonWord.ReplaceAllString(clean, "")
		if clean != name {
			t.SetHeader(i, clean)
			changes++
		}
	}
	if changes > 0 {
		c.record(
			fmt.Sprintf("Cleaned %d column names", changes),
			fmt.Sprintf("Found %d columns with formatting issues", changes),
			fmt.Sprintf("Standardized %d column names", changes),
		)
	}
}

// Step 4: in part-number columns, stringify, trim and uppercase every
// value; the literal "NAN" and the empty string fold to missing.
func (c *Cleaner) standardizePartNumbers(t *table.Table) {
	for i, name := range t.Headers() {
		if !table.MatchesAny(name, pnPatterns) {
			continue
		}
		changes := 0
		col := t.Column(i)
		for r, old := range col.Cells {
			if old.IsMissing() {
				continue
			}
			s := strings.ToUpper(strings.TrimSpace(old.String()))
			if s == "" || s == "NAN" {
				col.Cells[r] = table.Missing
				continue
			}
			col.Cells[r] = table.NewText(s)
			if old.String() != s {
				changes++
			}
		}
		if changes > 0 {
			c.record(
				fmt.Sprintf("Standardized %d part numbers in %s", changes, name),
				"",
				fmt.Sprintf("Cleaned %d part numbers", changes),
			)
		}
	}
}

// Step 5: drop rows that duplicate an earlier row across all columns,
// keeping the first occurrence.
func (c *Cleaner) removeDuplicates(t *table.Table) {
	seen := make(map[string]struct{}, t.RowCount())
	removed := t.FilterRows(func(row int) bool {
		key := rowKey(t, row)
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
		return true
	})
	if removed > 0 {
		c.record(
			fmt.Sprintf("Removed %d duplicate rows", removed),
			fmt.Sprintf("Found %d duplicate rows", removed),
			fmt.Sprintf("Removed %d duplicates", removed),
		)
	}
}

// rowKey builds a type-aware identity key for duplicate detection, so
// the number 5 and the text "5" never collide.
func rowKey(t *table.Table, row int) string {
	var b strings.Builder
	for c := 0; c < t.ColumnCount(); c++ {
		cell := t.Cell(row, c)
		b.WriteByte(byte('0' + cell.Type))
		b.WriteString(cell.String())
		b.WriteByte(0x1f)
	}
	return b.String()
}

// Step 6: in text columns, stringify, trim and collapse whitespace in
// every value; the literal "nan" folds to missing.
func (c *Cleaner) cleanWhitespace(t *table.Table) {
	changes := 0
	textColumns := 0
	for i := 0; i < t.ColumnCount(); i++ {
		col := t.Column(i)
		if !col.IsText() {
			continue
		}
		textColumns++
		for r, old := range col.Cells {
			if old.IsMissing() {
				continue
			}
			s := whitespaceRun.ReplaceAllString(strings.TrimSpace(old.String()), " ")
			if s == "nan" {
				col.Cells[r] = table.Missing
				// the stringified forms match ("nan"), so not a counted change
				continue
			}
			col.Cells[r] = table.NewText(s)
			if old.String() != s {
				changes++
			}
		}
	}
	if changes > 0 {
		c.record(
			fmt.Sprintf("Cleaned whitespace in %d columns", textColumns),
			"",
			fmt.Sprintf("Fixed %d whitespace issues", changes),
		)
	}
}

// Step 7: uppercase text values in columns whose header mentions part
// numbers or status.
func (c *Cleaner) standardizeTextCase(t *table.Table) {
	changes := 0
	for i, name := range t.Headers() {
		lower := strings.ToLower(name)
		matched := false
		for _, p := range uppercasePatterns {
			if strings.Contains(lower, p) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		col := t.Column(i)
		if !col.IsText() {
			continue
		}
		for r, old := range col.Cells {
			txt, ok := old.Text()
			if !ok {
				continue
			}
			upper := strings.ToUpper(txt)
			if upper != txt {
				col.Cells[r] = table.NewText(upper)
				changes++
			}
		}
	}
	if changes > 0 {
		c.record(
			"Standardized text case",
			"",
			fmt.Sprintf("Fixed %d case issues", changes),
		)
	}
}

// Step 8: convert text columns to numeric when every non-missing value
// parses after stripping ",", "$" and "%". Columns with any
// unparseable value are left untouched.
func (c *Cleaner) fixDataTypes(t *table.Table) {
	converted := 0
	for i := 0; i < t.ColumnCount(); i++ {
		col := t.Column(i)
		if !col.IsText() {
			continue
		}
		parsed := make([]table.Cell, len(col.Cells))
		ok := true
		for r, cell := range col.Cells {
			switch cell.Type {
			case table.CellMissing:
				parsed[r] = table.Missing
			case table.CellNumber:
				parsed[r] = cell
			default:
				f, err := strconv.ParseFloat(numericNoise.Replace(cell.String()), 64)
				if err != nil {
					ok = false
				} else {
					parsed[r] = table.NewNumber(f)
				}
			}
			if !ok {
				break
			}
		}
		if !ok {
			continue
		}
		col.Cells = parsed
		converted++
	}
	if converted > 0 {
		c.record(
			fmt.Sprintf("Fixed data types for %d columns", converted),
			"",
			fmt.Sprintf("Converted %d columns to proper types", converted),
		)
	}
}

// Step 9: observational only. Count missing cells per column and log
// the detail; the data is not touched.
func (c *Cleaner) handleMissingValues(t *table.Table) {
	rows := t.RowCount()
	total := 0
	columnsWithMissing := 0
	for i := 0; i < t.ColumnCount(); i++ {
		count := 0
		for _, cell := range t.Column(i).Cells {
			if cell.IsMissing() {
				count++
			}
		}
		if count == 0 {
			continue
		}
		total += count
		columnsWithMissing++
		percent := float64(count) / float64(rows) * 100
		c.log = append(c.log, fmt.Sprintf("Column '%s': %d missing values (%.1f%%)",
			t.Column(i).Name, count, percent))
	}
	if total > 0 {
		c.record(
			fmt.Sprintf("Analyzed %d missing values", total),
			fmt.Sprintf("Found %d missing values across %d columns", total, columnsWithMissing),
			"",
		)
	}
}

// Step 10: observational only. Flags a missing part-number column,
// absurdly long text values, and rows violating the optional
// validation rules.
func (c *Cleaner) validateData(t *table.Table, rules []string) {
	var issues []string

	if len(t.MatchColumns(pnPatterns)) == 0 {
		issues = append(issues, "No Part Number column found")
	}

	for i := 0; i < t.ColumnCount(); i++ {
		col := t.Column(i)
		if !col.IsText() {
			continue
		}
		maxLen := 0
		for _, cell := range col.Cells {
			if txt, ok := cell.Text(); ok {
				if n := utf8.RuneCountInString(txt); n > maxLen {
					maxLen = n
				}
			}
		}
		if maxLen > maxTextLength {
			issues = append(issues,
				fmt.Sprintf("Column '%s' has extremely long values (max: %d chars)", col.Name, maxLen))
		}
	}

	for _, rule := range rules {
		violations := 0
		var ruleErr error
		for row := 0; row < t.RowCount(); row++ {
			holds, err := c.rules.holds(rule, rowEnv(t, row))
			if err != nil {
				ruleErr = err
				break
			}
			if !holds {
				violations++
			}
		}
		if ruleErr != nil {
			issues = append(issues, ruleErr.Error())
			continue
		}
		if violations > 0 {
			issues = append(issues, fmt.Sprintf("Rule %q violated by %d rows", rule, violations))
		}
	}

	c.stats.IssuesFound = append(c.stats.IssuesFound, issues...)
}
