// Package main provides the bomtool CLI: an HTTP server plus one-shot
// sheet analysis, cleaning, and master-BOM lookup commands.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lamii21/Etl/cleaning"
	"github.com/lamii21/Etl/config"
	"github.com/lamii21/Etl/logging"
	"github.com/lamii21/Etl/lookup"
	"github.com/lamii21/Etl/server"
	"github.com/lamii21/Etl/sheetscan"
	"github.com/lamii21/Etl/store"
	"github.com/lamii21/Etl/table"
)

var (
	sheetName   string
	outputPath  string
	masterPath  string
	projectHint string
	rules       []string

	skipSteps []string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "bomtool",
		Short: "Analyze, clean, and enrich BOM workbooks",
		Long: `bomtool scores the worksheets of a BOM workbook, cleans the tabular
data, and cross-references part numbers against a master reference BOM.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd(), analyzeCmd(), cleanCmd(), processCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Setup(cfg.LogLevel, cfg.LogFormat)

			st, err := store.New(cfg.UploadsDir, cfg.ResultsDir, cfg.MaxFileSize)
			if err != nil {
				return err
			}
			srv := server.New(cfg, st)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(cfg.Addr) }()
			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", cfg.Addr)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [workbook.xlsx]",
		Short: "Score every sheet and print the analysis as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			analysis, err := sheetscan.Analyze(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, analysis)
		},
	}
	return cmd
}

func cleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [workbook.xlsx]",
		Short: "Clean a sheet and write the cleaned workbook plus report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			sheet := sheetName
			if sheet == "" {
				analysis, err := sheetscan.Analyze(path)
				if err != nil {
					return err
				}
				sheet = analysis.RecommendedSheet
			}

			t, err := table.LoadSheet(path, sheet)
			if err != nil {
				return err
			}

			opts := cleaning.DefaultOptions()
			opts.Rules = rules
			if err := disableSteps(&opts, skipSteps); err != nil {
				return err
			}

			cleaned, report := cleaning.Clean(t, opts)

			out := outputPath
			if out == "" {
				base := strings.TrimSuffix(path, filepath.Ext(path))
				out = base + "_cleaned.xlsx"
			}
			if err := cleaned.WriteFile(out, sheet); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleaned workbook written to %s\n", out)
			return printJSON(cmd, report)
		},
	}
	cmd.Flags().StringVarP(&sheetName, "sheet", "s", "", "Sheet to clean (default: recommended sheet)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output workbook path")
	cmd.Flags().StringSliceVar(&skipSteps, "skip", nil, "Cleaning steps to skip (e.g. remove_duplicates)")
	cmd.Flags().StringArrayVar(&rules, "rule", nil, "Validation rule expression (repeatable)")
	return cmd
}

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [workbook.xlsx]",
		Short: "Enrich a sheet against the master BOM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			sheet := sheetName
			if sheet == "" {
				analysis, err := sheetscan.Analyze(path)
				if err != nil {
					return err
				}
				sheet = analysis.RecommendedSheet
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			master := masterPath
			if master == "" {
				master = cfg.MasterBOMPath
			}

			processor := lookup.NewProcessor(
				lookup.WithMasterBOM(master),
				lookup.WithProjectHint(projectHint),
				lookup.WithResultsDir(cfg.ResultsDir),
			)
			result, err := processor.Process(path, sheet)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	cmd.Flags().StringVarP(&sheetName, "sheet", "s", "", "Sheet to process (default: recommended sheet)")
	cmd.Flags().StringVar(&masterPath, "master", "", "Master BOM path (default: from config)")
	cmd.Flags().StringVar(&projectHint, "project-hint", "", "Hint for the master BOM project column")
	return cmd
}

// disableSteps maps --skip names onto the option flags.
func disableSteps(opts *cleaning.Options, names []string) error {
	for _, name := range names {
		switch name {
		case "remove_empty_rows":
			opts.RemoveEmptyRows = false
		case "remove_empty_columns":
			opts.RemoveEmptyColumns = false
		case "clean_column_names":
			opts.CleanColumnNames = false
		case "standardize_pn":
			opts.StandardizePN = false
		case "remove_duplicates":
			opts.RemoveDuplicates = false
		case "clean_whitespace":
			opts.CleanWhitespace = false
		case "standardize_case":
			opts.StandardizeCase = false
		case "fix_data_types":
			opts.FixDataTypes = false
		case "handle_missing":
			opts.HandleMissing = false
		case "validate_data":
			opts.ValidateData = false
		default:
			return fmt.Errorf("unknown cleaning step: %s", name)
		}
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
