package cli

import (
	"fmt"
	"text/tabwriter"

	"transporter-onboarding/internal/models"
	"transporter-onboarding/internal/repository"

	"github.com/spf13/cobra"
)

// ListOutput is the json form of a listing.
type ListOutput struct {
	Total        int                  `json:"total"`
	Transporters []models.Transporter `json:"transporters"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		search string
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List stored transporters",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, search, limit, offset, cmd)
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by company name or GST/PAN")
	cmd.Flags().IntVarP(&limit, "limit", "n", 25, "maximum rows to print")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")

	return cmd
}

func runList(opts *RootOptions, search string, limit, offset int, cmd *cobra.Command) error {
	if limit < 1 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}
	if offset < 0 {
		return fmt.Errorf("offset must not be negative, got %d", offset)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	intake, cleanup, err := openIntake(cfg, newLogger(opts, cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer cleanup()

	transporters, total, err := repository.FindPage(cmd.Context(), intake.Store(), search, limit, offset)
	if err != nil {
		return fmt.Errorf("failed to list transporters: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, ListOutput{Total: total, Transporters: transporters})
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCOMPANY NAME\tGST/PAN\tEMAIL ID\tCONTACT NAME\tCONTACT NUMBER")
	for _, t := range transporters {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.CompanyName, t.TaxID, t.Email, t.ContactName, t.ContactNumber)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d of %d transporters\n", len(transporters), total)
	return nil
}
