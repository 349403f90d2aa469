package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"transporter-onboarding/internal/config"
	"transporter-onboarding/internal/models"
	"transporter-onboarding/internal/repository"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// FileFormat is the tabular format of an upload or an export.
type FileFormat string

const (
	FormatCSV  FileFormat = "csv"
	FormatXLSX FileFormat = "xlsx"
)

// FormatFromFilename picks the parser from the file extension.
func FormatFromFilename(filename string) (FileFormat, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q, only .csv and .xlsx are accepted", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// ParseFormat accepts a format name from a query string or flag.
func ParseFormat(name string) (FileFormat, error) {
	switch FileFormat(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// NewBatchCode returns a short unique code such as UPLOAD-1a2b3c4d.
func NewBatchCode(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String()[:8])
}

// ImportReport is a batch result plus the export files written for it.
type ImportReport struct {
	Result        *models.BatchResult `json:"result"`
	Format        FileFormat          `json:"format"`
	ProcessedFile string              `json:"processed_file,omitempty"`
	RejectedFile  string              `json:"rejected_file,omitempty"`
}

type tableCodec interface {
	ParseTransporters(r io.Reader) ([]models.CandidateRow, error)
	WriteProcessed(w io.Writer, result *models.BatchResult) error
	WriteRejected(w io.Writer, result *models.BatchResult) error
	WriteTemplate(w io.Writer) error
}

// IntakeService ties the parsers, the validation engine and the store together.
// It is shared by the HTTP handlers, the background worker and the CLI.
type IntakeService struct {
	engine     *ValidationEngine
	blocklist  *Blocklist
	store      repository.Store
	codecs     map[FileFormat]tableCodec
	exportPath string
	logger     *logrus.Logger
}

func NewIntakeService(engine *ValidationEngine, blocklist *Blocklist, store repository.Store, exportPath string, logger *logrus.Logger) *IntakeService {
	return &IntakeService{
		engine:    engine,
		blocklist: blocklist,
		store:     store,
		codecs: map[FileFormat]tableCodec{
			FormatCSV:  NewCSVService(),
			FormatXLSX: NewExcelService(),
		},
		exportPath: exportPath,
		logger:     logger,
	}
}

// NewIntakeServiceFromConfig builds the blocklist, store and engine described by cfg.
// db may be nil unless STORE_DRIVER is mysql.
func NewIntakeServiceFromConfig(cfg *config.Config, db *sqlx.DB, logger *logrus.Logger) (*IntakeService, error) {
	blocklist, err := LoadBlocklist(cfg)
	if err != nil {
		return nil, err
	}

	store, err := repository.NewStore(cfg, db)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"store_driver":   cfg.StoreDriver,
		"blocklist_size": blocklist.Len(),
	}).Info("Intake service ready")
	logger.WithField("disallowed_ids", blocklist.IDs()).Debug("Blocklist loaded")

	return NewIntakeService(NewValidationEngine(logger), blocklist, store, cfg.ExportPath, logger), nil
}

func (s *IntakeService) Store() repository.Store {
	return s.store
}

func (s *IntakeService) ExportPath() string {
	return s.exportPath
}

// Parse reads an upload in the given format. A missing required column fails the
// whole file before any row is evaluated.
func (s *IntakeService) Parse(format FileFormat, r io.Reader) ([]models.CandidateRow, error) {
	codec, ok := s.codecs[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return codec.ParseTransporters(r)
}

// ImportFile parses, evaluates and persists one uploaded file, then writes the
// processed and rejected reports to the export path. On a store write failure
// the report is still returned alongside the error.
func (s *IntakeService) ImportFile(ctx context.Context, batchCode, filename string, r io.Reader) (*ImportReport, error) {
	format, err := FormatFromFilename(filename)
	if err != nil {
		return nil, err
	}

	rows, err := s.Parse(format, r)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"batch_code": batchCode,
			"filename":   filename,
		}).Warn("Upload rejected before validation")
		return nil, err
	}

	batch := models.Batch{
		Code:     batchCode,
		Source:   models.SourceUpload,
		Filename: filename,
		Rows:     rows,
	}
	result, evalErr := s.engine.EvaluateBatch(ctx, batch, s.blocklist, s.store)
	if result == nil {
		return nil, evalErr
	}

	report := &ImportReport{Result: result, Format: format}
	if err := s.writeReports(report); err != nil {
		// Reports are best effort once the batch is decided.
		s.logger.WithError(err).WithField("batch_code", batchCode).Warn("Failed to write import reports")
	}
	return report, evalErr
}

// CreateManual evaluates a single row entered through the form.
func (s *IntakeService) CreateManual(ctx context.Context, req models.TransporterRequest) (*models.BatchResult, error) {
	batch := models.Batch{
		Code:   NewBatchCode("MANUAL"),
		Source: models.SourceManual,
		Rows:   []models.CandidateRow{req.ToCandidate()},
	}
	return s.engine.EvaluateBatch(ctx, batch, s.blocklist, s.store)
}

// WriteTemplate writes an empty intake table in the requested format.
func (s *IntakeService) WriteTemplate(w io.Writer, format FileFormat) error {
	codec, ok := s.codecs[format]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return codec.WriteTemplate(w)
}

// WriteProcessed writes every row of the result with its Comments column.
func (s *IntakeService) WriteProcessed(w io.Writer, format FileFormat, result *models.BatchResult) error {
	codec, ok := s.codecs[format]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return codec.WriteProcessed(w, result)
}

// WriteRejected writes only the rejected rows of the result.
func (s *IntakeService) WriteRejected(w io.Writer, format FileFormat, result *models.BatchResult) error {
	codec, ok := s.codecs[format]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return codec.WriteRejected(w, result)
}

// ReportFilename names the processed or rejected export of a batch.
func ReportFilename(kind, batchCode string, format FileFormat) string {
	return fmt.Sprintf("%s_%s.%s", kind, batchCode, format)
}

// IsReportFilename reports whether name looks like a file written by writeReports.
func IsReportFilename(name string) bool {
	if len(name) == 0 || len(name) > 255 {
		return false
	}

	dangerousChars := []string{"..", "/", "\\", ":", "*", "?", "\"", "<", ">", "|"}
	for _, char := range dangerousChars {
		if strings.Contains(name, char) {
			return false
		}
	}

	if !strings.HasPrefix(name, "processed_") && !strings.HasPrefix(name, "rejected_") {
		return false
	}
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".xlsx")
}

func (s *IntakeService) writeReports(report *ImportReport) error {
	if s.exportPath == "" {
		return nil
	}
	if err := os.MkdirAll(s.exportPath, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	result := report.Result
	processed := ReportFilename("processed", result.BatchCode, report.Format)
	if err := s.writeReportFile(processed, func(w io.Writer) error {
		return s.WriteProcessed(w, report.Format, result)
	}); err != nil {
		return err
	}
	report.ProcessedFile = processed

	if result.RejectedCount == 0 {
		return nil
	}
	rejected := ReportFilename("rejected", result.BatchCode, report.Format)
	if err := s.writeReportFile(rejected, func(w io.Writer) error {
		return s.WriteRejected(w, report.Format, result)
	}); err != nil {
		return err
	}
	report.RejectedFile = rejected
	return nil
}

func (s *IntakeService) writeReportFile(name string, write func(io.Writer) error) (err error) {
	f, err := os.Create(filepath.Join(s.exportPath, name))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// IsClientError reports whether err was caused by the uploaded file itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrSchemaMismatch) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrUnreadableFile)
}
