package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"transporter-onboarding/internal/models"
	"transporter-onboarding/internal/repository"
	"transporter-onboarding/internal/service"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

const TypeTransporterImport = "transporter:import"

type ImportTaskPayload struct {
	BatchCode string `json:"batch_code"`
	Filename  string `json:"filename"`
	FilePath  string `json:"file_path"`
}

// NewImportTask queues an uploaded file for evaluation.
func NewImportTask(payload ImportTaskPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTransporterImport, data, asynq.MaxRetry(3)), nil
}

type ImportTaskHandler struct {
	intake *service.IntakeService
	jobs   repository.JobStore
	logger *logrus.Logger
}

func NewImportTaskHandler(intake *service.IntakeService, jobs repository.JobStore, logger *logrus.Logger) *ImportTaskHandler {
	return &ImportTaskHandler{
		intake: intake,
		jobs:   jobs,
		logger: logger,
	}
}

// Handle evaluates one queued upload. Problems with the file itself are final;
// only store write failures are retried.
func (h *ImportTaskHandler) Handle(ctx context.Context, task *asynq.Task) error {
	var payload ImportTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	log := h.logger.WithFields(logrus.Fields{
		"batch_code": payload.BatchCode,
		"filename":   payload.Filename,
	})

	job, err := h.jobs.Get(ctx, payload.BatchCode)
	if err != nil {
		if !errors.Is(err, repository.ErrJobNotFound) {
			log.WithError(err).Warn("Failed to load import job, starting a new record")
		}
		job = &models.ImportJob{
			BatchCode: payload.BatchCode,
			Filename:  payload.Filename,
			FilePath:  payload.FilePath,
		}
	}

	if job.Status == models.JobCompleted {
		log.Info("Import already completed, skipping")
		return nil
	}

	job.Status = models.JobProcessing
	h.saveJob(ctx, log, job)

	log.Info("Starting import")

	f, err := os.Open(payload.FilePath)
	if err != nil {
		h.failJob(ctx, log, job, err)
		return fmt.Errorf("failed to open upload: %v: %w", err, asynq.SkipRetry)
	}
	defer f.Close()

	report, err := h.intake.ImportFile(ctx, payload.BatchCode, payload.Filename, f)
	if err != nil {
		if report != nil {
			s := report.Result.Summary()
			job.Summary = &s
			job.ProcessedFile = report.ProcessedFile
			job.RejectedFile = report.RejectedFile
		}
		h.failJob(ctx, log, job, err)
		if errors.Is(err, repository.ErrStoreWriteFailed) {
			return err
		}
		removeUpload(log, payload.FilePath)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	summary := report.Result.Summary()
	job.Status = models.JobCompleted
	job.ErrorMessage = ""
	job.Summary = &summary
	job.ProcessedFile = report.ProcessedFile
	job.RejectedFile = report.RejectedFile
	h.saveJob(ctx, log, job)

	removeUpload(log, payload.FilePath)

	log.WithFields(logrus.Fields{
		"accepted": summary.AcceptedCount,
		"rejected": summary.RejectedCount,
	}).Info("Import completed")
	return nil
}

func (h *ImportTaskHandler) failJob(ctx context.Context, log *logrus.Entry, job *models.ImportJob, cause error) {
	log.WithError(cause).Error("Import failed")
	job.Status = models.JobFailed
	job.ErrorMessage = cause.Error()
	h.saveJob(ctx, log, job)
}

func (h *ImportTaskHandler) saveJob(ctx context.Context, log *logrus.Entry, job *models.ImportJob) {
	if err := h.jobs.Save(ctx, job); err != nil {
		log.WithError(err).Warn("Failed to save import job")
	}
}

func removeUpload(log *logrus.Entry, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to remove uploaded file")
	}
}
