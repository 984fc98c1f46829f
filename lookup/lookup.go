// Package lookup enriches a cleaned input table against a master
// reference BOM: a left join on part number that appends project
// status columns and reports the match rate.
package lookup

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lamii21/Etl/sheetscan"
	"github.com/lamii21/Etl/table"
)

// Column names appended to the enriched output.
const (
	ProjectStatusColumn = "Project Status"
	LookupStatusColumn  = "Lookup Status"
)

// Lookup flag values written into the LookupStatusColumn.
const (
	StatusMatch = "MATCH"
	StatusMiss  = "MISS"
)

// Processor joins input tables against a master reference BOM.
type Processor struct {
	opts *Options
}

// NewProcessor creates a Processor with the given options.
func NewProcessor(opts ...Option) *Processor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Processor{opts: o}
}

// MasterSummary is the structural summary of a master BOM workbook.
type MasterSummary struct {
	Sheet          string   `json:"sheet"`
	Rows           int      `json:"rows"`
	Columns        int      `json:"columns"`
	ColumnNames    []string `json:"column_names"`
	PNColumns      []string `json:"pn_columns"`
	ProjectColumns []string `json:"project_columns"`
}

// AnalyzeMasterBOM loads the master workbook, picks its recommended
// sheet, and summarizes the columns relevant to the lookup join.
func (p *Processor) AnalyzeMasterBOM(path string) (*MasterSummary, error) {
	master, sheet, err := loadMaster(path)
	if err != nil {
		return nil, err
	}
	var projectColumns []string
	for _, s := range rankProjectColumns(master.Headers(), p.opts.projectHint) {
		projectColumns = append(projectColumns, s.Column)
	}
	return &MasterSummary{
		Sheet:          sheet,
		Rows:           master.RowCount(),
		Columns:        master.ColumnCount(),
		ColumnNames:    master.Headers(),
		PNColumns:      master.MatchColumns(sheetscan.PNPatterns),
		ProjectColumns: projectColumns,
	}, nil
}

// Suggestion is one ranked project-column candidate.
type Suggestion struct {
	Column string  `json:"column"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// SuggestProjectColumns ranks the master BOM's headers as candidates
// for the project column, best first. Ranking is stable: equal scores
// keep column order.
func (p *Processor) SuggestProjectColumns(path, hint string) ([]Suggestion, error) {
	master, _, err := loadMaster(path)
	if err != nil {
		return nil, err
	}
	return rankProjectColumns(master.Headers(), hint), nil
}

func rankProjectColumns(headers []string, hint string) []Suggestion {
	h := strings.TrimSpace(strings.ToLower(hint))
	var out []Suggestion
	for _, name := range headers {
		n := strings.TrimSpace(strings.ToLower(name))
		var score float64
		var reason string
		switch {
		case h != "" && n == h:
			score, reason = 100, "exact match with hint"
		case h != "" && (strings.Contains(n, h) || strings.Contains(h, n)):
			score, reason = 70, "partial match with hint"
		case strings.Contains(n, "project"):
			score, reason = 50, `header contains "project"`
		case strings.Contains(n, "proj"):
			score, reason = 30, `header contains "proj"`
		default:
			continue
		}
		out = append(out, Suggestion{Column: name, Score: score, Reason: reason})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Stats reports the join outcome.
type Stats struct {
	InputRows      int
	OutputRows     int
	MasterBOMRows  int
	LookupMatches  int
	LookupMisses   int
	ProcessingTime float64 // seconds
}

// MatchRate is the share of input rows that matched, 0 for no input.
func (s *Stats) MatchRate() float64 {
	if s.InputRows == 0 {
		return 0
	}
	return float64(s.LookupMatches) / float64(s.InputRows) * 100
}

// MissRate is the complement of the match rate.
func (s *Stats) MissRate() float64 {
	return 100 - s.MatchRate()
}

// MarshalJSON emits the counters plus the derived rates.
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"input_rows":      s.InputRows,
		"output_rows":     s.OutputRows,
		"master_bom_rows": s.MasterBOMRows,
		"lookup_matches":  s.LookupMatches,
		"lookup_misses":   s.LookupMisses,
		"match_rate":      math.Round(s.MatchRate()*10) / 10,
		"miss_rate":       math.Round(s.MissRate()*10) / 10,
		"processing_time": math.Round(s.ProcessingTime*100) / 100,
	})
}

// Result is the outcome of a processing run.
type Result struct {
	ProcessingID string         `json:"processing_id"`
	OutputFile   string         `json:"output_file"`
	Stats        Stats          `json:"processing_stats"`
	Distribution map[string]int `json:"distribution_data"`
}

// Process left-joins the named sheet of the input workbook against the
// master BOM on normalized part number, appends the project-status and
// match-flag columns, and writes the enriched workbook plus a JSON
// report side-car to the results directory. Every input row is
// preserved.
func (p *Processor) Process(inputPath, sheetName string) (*Result, error) {
	start := time.Now()

	input, err := table.LoadSheet(inputPath, sheetName)
	if err != nil {
		return nil, err
	}
	master, _, err := loadMaster(p.opts.masterPath)
	if err != nil {
		return nil, err
	}

	inputPN, err := firstPNColumn(input)
	if err != nil {
		return nil, fmt.Errorf("input sheet %q: %w", sheetName, err)
	}
	masterPN, err := firstPNColumn(master)
	if err != nil {
		return nil, fmt.Errorf("master BOM: %w", err)
	}

	projectCol := -1
	if ranked := rankProjectColumns(master.Headers(), p.opts.projectHint); len(ranked) > 0 {
		projectCol = master.ColumnIndex(ranked[0].Column)
	}

	// First occurrence wins when the master lists a part twice.
	projects := make(map[string]string, master.RowCount())
	for r := 0; r < master.RowCount(); r++ {
		pn := normalizePN(master.Cell(r, masterPN))
		if pn == "" {
			continue
		}
		if _, dup := projects[pn]; dup {
			continue
		}
		status := ""
		if projectCol >= 0 {
			status = master.Cell(r, projectCol).String()
		}
		projects[pn] = status
	}

	output := input.Clone()
	statusCells := make([]table.Cell, input.RowCount())
	flagCells := make([]table.Cell, input.RowCount())
	matches, misses := 0, 0
	distribution := make(map[string]int)

	for r := 0; r < input.RowCount(); r++ {
		pn := normalizePN(input.Cell(r, inputPN))
		status, found := projects[pn]
		if pn == "" || !found {
			misses++
			statusCells[r] = table.Missing
			flagCells[r] = table.NewText(StatusMiss)
			continue
		}
		matches++
		flagCells[r] = table.NewText(StatusMatch)
		if status == "" {
			statusCells[r] = table.Missing
		} else {
			statusCells[r] = table.NewText(status)
			distribution[status]++
		}
	}
	output.AddColumn(ProjectStatusColumn, statusCells)
	output.AddColumn(LookupStatusColumn, flagCells)

	result := &Result{
		ProcessingID: uuid.NewString(),
		Distribution: distribution,
		Stats: Stats{
			InputRows:     input.RowCount(),
			OutputRows:    output.RowCount(),
			MasterBOMRows: master.RowCount(),
			LookupMatches: matches,
			LookupMisses:  misses,
		},
	}

	if err := os.MkdirAll(p.opts.resultsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outName := fmt.Sprintf("%s_processed_%s.xlsx", base, time.Now().Format("20060102_150405"))
	outPath := filepath.Join(p.opts.resultsDir, outName)
	if err := output.WriteFile(outPath, sheetName); err != nil {
		return nil, err
	}
	result.OutputFile = outName
	result.Stats.ProcessingTime = time.Since(start).Seconds()

	if err := writeReport(outPath+".report.json", result); err != nil {
		return nil, err
	}
	return result, nil
}

// loadMaster opens the master workbook and reads its recommended sheet.
func loadMaster(path string) (*table.Table, string, error) {
	analysis, err := sheetscan.Analyze(path)
	if err != nil {
		return nil, "", err
	}
	t, err := table.LoadSheet(path, analysis.RecommendedSheet)
	if err != nil {
		return nil, "", err
	}
	return t, analysis.RecommendedSheet, nil
}

func firstPNColumn(t *table.Table) (int, error) {
	matched := t.MatchColumns(sheetscan.PNPatterns)
	if len(matched) == 0 {
		return -1, fmt.Errorf("no part-number column found")
	}
	return t.ColumnIndex(matched[0]), nil
}

// normalizePN canonicalizes a part number for joining: stringified,
// trimmed, uppercased. Missing cells normalize to the empty string and
// never match.
func normalizePN(c table.Cell) string {
	if c.IsMissing() {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(c.String()))
}

func writeReport(path string, result *Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %q: %w", path, err)
	}
	return nil
}
