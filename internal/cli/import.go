package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"transporter-onboarding/internal/models"
	"transporter-onboarding/internal/service"

	"github.com/spf13/cobra"
)

// ImportOutput is the json form of an import.
type ImportOutput struct {
	BatchCode     string                 `json:"batch_code"`
	Summary       models.ImportSummary   `json:"summary"`
	Outcomes      []models.RecordOutcome `json:"outcomes"`
	ProcessedFile string                 `json:"processed_file,omitempty"`
	RejectedFile  string                 `json:"rejected_file,omitempty"`
	Error         string                 `json:"error,omitempty"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Validate a .csv or .xlsx table and store the accepted rows",
		Long: `Validate every row of a transporter table and append the accepted rows to the store.

Processed and rejected reports are written to the export directory, which
defaults to EXPORT_PATH.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, args[0], outDir, cmd)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "directory for the processed and rejected reports")

	return cmd
}

func runImport(opts *RootOptions, path, outDir string, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if outDir != "" {
		cfg.ExportPath = outDir
	}

	logger := newLogger(opts, cmd.ErrOrStderr())
	intake, cleanup, err := openIntake(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	report, err := intake.ImportFile(cmd.Context(), service.NewBatchCode("CLI"), filepath.Base(path), f)
	if report == nil {
		return describeImportError(err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		output := ImportOutput{
			BatchCode:     report.Result.BatchCode,
			Summary:       report.Result.Summary(),
			Outcomes:      report.Result.Outcomes,
			ProcessedFile: reportPath(cfg.ExportPath, report.ProcessedFile),
			RejectedFile:  reportPath(cfg.ExportPath, report.RejectedFile),
		}
		if err != nil {
			output.Error = err.Error()
		}
		if werr := writeJSON(out, output); werr != nil {
			return werr
		}
		return err
	}

	printImportText(out, cfg.ExportPath, report)
	return err
}

func printImportText(w io.Writer, exportPath string, report *service.ImportReport) {
	result := report.Result
	fmt.Fprintln(w, result.Message())
	if result.Warning != "" {
		fmt.Fprintf(w, "Warning: %s\n", result.Warning)
	}
	for _, o := range result.Rejected() {
		fmt.Fprintf(w, "  row %d (%s): %s\n", o.Row.RowNumber, o.Row.Key(), o.Comment)
	}
	if report.ProcessedFile != "" {
		fmt.Fprintf(w, "Processed report: %s\n", reportPath(exportPath, report.ProcessedFile))
	}
	if report.RejectedFile != "" {
		fmt.Fprintf(w, "Rejected report: %s\n", reportPath(exportPath, report.RejectedFile))
	}
}

func describeImportError(err error) error {
	var mismatch *service.SchemaMismatchError
	if errors.As(err, &mismatch) {
		return fmt.Errorf("file is missing required columns %v (expected %v)", mismatch.Missing, models.RequiredColumns)
	}
	return err
}

func reportPath(dir, name string) string {
	if name == "" {
		return ""
	}
	return filepath.Join(dir, name)
}
