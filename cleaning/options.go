package cleaning

// Options toggles the ten cleaning steps individually. Steps always run
// in their fixed pipeline order; disabling one is the identity
// transform for that step. Rules optionally adds per-row validation
// expressions evaluated during the validate-data step.
type Options struct {
	RemoveEmptyRows    bool `json:"remove_empty_rows"`
	RemoveEmptyColumns bool `json:"remove_empty_columns"`
	CleanColumnNames   bool `json:"clean_column_names"`
	StandardizePN      bool `json:"standardize_pn"`
	RemoveDuplicates   bool `json:"remove_duplicates"`
	CleanWhitespace    bool `json:"clean_whitespace"`
	StandardizeCase    bool `json:"standardize_case"`
	FixDataTypes       bool `json:"fix_data_types"`
	HandleMissing      bool `json:"handle_missing"`
	ValidateData       bool `json:"validate_data"`

	// Rules are boolean expressions that must hold for every row,
	// e.g. `row.Quantity == nil || row.Quantity >= 0`. Rows where a
	// rule is false are reported as issues; data is never mutated.
	Rules []string `json:"rules,omitempty"`
}

// DefaultOptions enables all ten cleaning steps.
func DefaultOptions() Options {
	return Options{
		RemoveEmptyRows:    true,
		RemoveEmptyColumns: true,
		CleanColumnNames:   true,
		StandardizePN:      true,
		RemoveDuplicates:   true,
		CleanWhitespace:    true,
		StandardizeCase:    true,
		FixDataTypes:       true,
		HandleMissing:      true,
		ValidateData:       true,
	}
}
