package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"transporter-onboarding/internal/config"
	"transporter-onboarding/internal/database"
	"transporter-onboarding/internal/service"
	"transporter-onboarding/internal/utils"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	StorePath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the intake CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "intake",
		Short: "Transporter onboarding intake",
		Long:  "Validate transporter tables against the onboarding rules and append the accepted rows to the record store.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.StorePath, "store", "", "use the file store at this path instead of STORE_DRIVER")

	// Add subcommands
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewTemplateCommand(opts))
	cmd.AddCommand(NewListCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig reads the environment and applies the global flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.StorePath != "" {
		cfg.StoreDriver = "file"
		cfg.StorePath = opts.StorePath
	}
	return cfg, nil
}

// newLogger logs to stderr so json output on stdout stays clean.
func newLogger(opts *RootOptions, errOut io.Writer) *logrus.Logger {
	level := "warn"
	if opts.Verbose {
		level = "debug"
	}
	return utils.NewLogger(level, errOut)
}

// openIntake builds the intake service and returns a cleanup func for the database.
func openIntake(cfg *config.Config, logger *logrus.Logger) (*service.IntakeService, func(), error) {
	var db *sqlx.DB
	cleanup := func() {}
	if cfg.StoreDriver == "mysql" {
		var err error
		db, err = database.NewMySQL(cfg)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to connect to database: %w", err)
		}
		cleanup = func() { db.Close() }
	}

	intake, err := service.NewIntakeServiceFromConfig(cfg, db, logger)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return intake, cleanup, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
