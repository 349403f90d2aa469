package worker

import (
	"transporter-onboarding/internal/repository"
	"transporter-onboarding/internal/service"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

func RegisterHandlers(mux *asynq.ServeMux, intake *service.IntakeService, jobs repository.JobStore, logger *logrus.Logger) {
	// Register import task handler
	importHandler := NewImportTaskHandler(intake, jobs, logger)
	mux.HandleFunc(TypeTransporterImport, importHandler.Handle)
}
