package handler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"transporter-onboarding/internal/config"
	"transporter-onboarding/internal/models"
	"transporter-onboarding/internal/repository"
	"transporter-onboarding/internal/service"
	"transporter-onboarding/internal/utils"
	"transporter-onboarding/internal/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type UploadHandler struct {
	intake      *service.IntakeService
	jobs        repository.JobStore
	asynqClient TaskEnqueuer
	cfg         *config.Config
	logger      *logrus.Logger
}

// NewUploadHandler wires the import endpoints. jobs and asynqClient may be nil when
// Redis is not available, in which case only synchronous imports are served.
func NewUploadHandler(
	intake *service.IntakeService,
	jobs repository.JobStore,
	asynqClient TaskEnqueuer,
	cfg *config.Config,
	logger *logrus.Logger,
) *UploadHandler {
	return &UploadHandler{
		intake:      intake,
		jobs:        jobs,
		asynqClient: asynqClient,
		cfg:         cfg,
		logger:      logger,
	}
}

// ImportTransporters evaluates an uploaded table. With ?async=true the file is
// queued for the worker and a job code is returned instead.
func (h *UploadHandler) ImportTransporters(c *fiber.Ctx) error {
	// Get uploaded file
	file, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File is required", err)
	}

	// Validate file type
	if _, err := service.FormatFromFilename(file.Filename); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Only CSV (.csv) and Excel (.xlsx) files are allowed", err)
	}

	// Validate file size
	if file.Size > int64(h.cfg.UploadMaxSize) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File size exceeds maximum limit", nil)
	}

	batchCode := service.NewBatchCode("UPLOAD")

	if c.QueryBool("async") {
		return h.enqueueImport(c, batchCode, file.Filename, func(path string) error {
			return c.SaveFile(file, path)
		})
	}

	src, err := file.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read file", err)
	}
	defer src.Close()

	report, err := h.intake.ImportFile(c.UserContext(), batchCode, file.Filename, src)
	if err != nil {
		return h.importError(c, report, err)
	}

	return utils.SuccessResponse(c, report.Result.Message(), importResponse(report))
}

func (h *UploadHandler) enqueueImport(c *fiber.Ctx, batchCode, filename string, save func(path string) error) error {
	if h.asynqClient == nil || h.jobs == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Background job processing is not available (Redis not connected)", nil)
	}

	if err := os.MkdirAll(h.cfg.UploadPath, 0755); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to prepare upload directory", err)
	}

	filePath := filepath.Join(h.cfg.UploadPath, fmt.Sprintf("%s%s", batchCode, filepath.Ext(filename)))
	if err := save(filePath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save file", err)
	}

	job := &models.ImportJob{
		BatchCode: batchCode,
		Filename:  filename,
		FilePath:  filePath,
		Status:    models.JobQueued,
	}
	if err := h.jobs.Save(c.UserContext(), job); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create import job", err)
	}

	task, err := worker.NewImportTask(worker.ImportTaskPayload{
		BatchCode: batchCode,
		Filename:  filename,
		FilePath:  filePath,
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to build import task", err)
	}

	info, err := h.asynqClient.Enqueue(task)
	if err != nil {
		job.Status = models.JobFailed
		job.ErrorMessage = err.Error()
		_ = h.jobs.Save(c.UserContext(), job)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to queue import task", err)
	}

	h.logger.WithFields(logrus.Fields{
		"batch_code": batchCode,
		"task_id":    info.ID,
	}).Info("Import queued")

	c.Status(fiber.StatusAccepted)
	return utils.SuccessResponse(c, "Import queued", fiber.Map{
		"job_id": info.ID,
		"job":    job,
	})
}

// GetImportJob reports the state of a queued import.
func (h *UploadHandler) GetImportJob(c *fiber.Ctx) error {
	if h.jobs == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Background job processing is not available (Redis not connected)", nil)
	}

	job, err := h.jobs.Get(c.UserContext(), c.Params("code"))
	if errors.Is(err, repository.ErrJobNotFound) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Import job not found", nil)
	}
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve import job", err)
	}

	return utils.SuccessResponse(c, "Import job retrieved successfully", job)
}

// DownloadReport downloads a processed or rejected export
func (h *UploadHandler) DownloadReport(c *fiber.Ctx) error {
	filename := c.Params("filename")
	if filename == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Filename is required", nil)
	}

	// Validate filename to prevent directory traversal
	if !service.IsReportFilename(filename) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid filename", nil)
	}

	filePath := filepath.Join(h.intake.ExportPath(), filename)

	// Check if file exists
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Report file not found", err)
	}

	return c.Download(filePath, filename)
}

func (h *UploadHandler) importError(c *fiber.Ctx, report *service.ImportReport, err error) error {
	var mismatch *service.SchemaMismatchError
	switch {
	case errors.As(err, &mismatch):
		return utils.ErrorResponseWithData(c, fiber.StatusBadRequest, "Uploaded file does not have the required columns", fiber.Map{
			"missing_columns":  mismatch.Missing,
			"found_columns":    mismatch.Found,
			"required_columns": models.RequiredColumns,
		}, err)
	case service.IsClientError(err):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to parse uploaded file", err)
	case errors.Is(err, repository.ErrStoreWriteFailed) && report != nil:
		return utils.ErrorResponseWithData(c, fiber.StatusInternalServerError, report.Result.Message(), importResponse(report), err)
	default:
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to import transporters", err)
	}
}

func importResponse(report *service.ImportReport) fiber.Map {
	result := report.Result
	return fiber.Map{
		"batch_code":     result.BatchCode,
		"summary":        result.Summary(),
		"outcomes":       result.Outcomes,
		"processed_file": report.ProcessedFile,
		"rejected_file":  report.RejectedFile,
	}
}
