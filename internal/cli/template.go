package cli

import (
	"fmt"
	"os"

	"transporter-onboarding/internal/service"

	"github.com/spf13/cobra"
)

// NewTemplateCommand creates the template command.
func NewTemplateCommand(rootOpts *RootOptions) *cobra.Command {
	var fileType string

	cmd := &cobra.Command{
		Use:           "template <output-file>",
		Short:         "Write an empty intake table with sample rows",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplate(args[0], fileType, cmd)
		},
	}

	cmd.Flags().StringVarP(&fileType, "type", "t", "", "csv or xlsx, taken from the file extension when empty")

	return cmd
}

func runTemplate(path, fileType string, cmd *cobra.Command) error {
	format, err := templateFormat(path, fileType)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	// Templates need no store, so no intake service is built here
	switch format {
	case service.FormatCSV:
		err = service.NewCSVService().WriteTemplate(f)
	default:
		err = service.NewExcelService().WriteTemplate(f)
	}
	if err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Template written to %s\n", path)
	return nil
}

func templateFormat(path, fileType string) (service.FileFormat, error) {
	if fileType != "" {
		return service.ParseFormat(fileType)
	}
	return service.FormatFromFilename(path)
}
