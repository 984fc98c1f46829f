package lookup

// Options holds configuration for the Processor.
type Options struct {
	masterPath  string
	projectHint string
	resultsDir  string
}

func defaultOptions() *Options {
	return &Options{
		masterPath: "data/Master_BOM_Real.xlsx",
		resultsDir: "storage/processed",
	}
}

// Option configures the Processor.
type Option func(*Options)

// WithMasterBOM sets the master reference workbook path.
func WithMasterBOM(path string) Option {
	return func(o *Options) { o.masterPath = path }
}

// WithProjectHint sets the caller's hint for locating the project
// column in the master BOM.
func WithProjectHint(hint string) Option {
	return func(o *Options) { o.projectHint = hint }
}

// WithResultsDir sets the directory enriched workbooks are written to.
func WithResultsDir(dir string) Option {
	return func(o *Options) { o.resultsDir = dir }
}
