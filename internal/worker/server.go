package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// ServerConfig runs the import queue one task at a time.
func ServerConfig(logger *logrus.Logger) asynq.Config {
	return asynq.Config{
		Concurrency: 1,
		Queues: map[string]int{
			"default": 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.WithError(err).WithField("task", task.Type()).Error("Error processing task")
		}),
	}
}
