package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"transporter-onboarding/internal/models"
	"transporter-onboarding/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	storeReadWarning = "Existing transporters could not be read; duplicates were only checked within this batch"
	storeSyncWarning = "Accepted transporters were saved but the store could not confirm they reached disk"
)

// ValidationEngine classifies batches and appends the accepted rows.
// Only one batch is evaluated and persisted at a time: the mutex covers this
// process and the store lock covers every other process sharing the table.
type ValidationEngine struct {
	mu     sync.Mutex
	logger *logrus.Logger
	now    func() time.Time
}

func NewValidationEngine(logger *logrus.Logger) *ValidationEngine {
	return &ValidationEngine{
		logger: logger,
		now:    time.Now,
	}
}

// EvaluateBatch returns one outcome per candidate, in input order. When the append
// fails the result is still returned, with Persisted false, together with an error
// wrapping repository.ErrStoreWriteFailed. If the store lock cannot be taken no
// row is evaluated and only the error is returned.
func (e *ValidationEngine) EvaluateBatch(ctx context.Context, batch models.Batch, blocklist *Blocklist, store repository.Store) (*models.BatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	log := e.logger.WithFields(logrus.Fields{
		"batch_code": batch.Code,
		"source":     batch.Source,
		"rows":       len(batch.Rows),
	})

	unlock, err := store.Lock(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to lock transporter store")
		return nil, fmt.Errorf("%w: %w", repository.ErrStoreWriteFailed, err)
	}
	defer func() {
		if err := unlock(); err != nil {
			log.WithError(err).Warn("Failed to release transporter store lock")
		}
	}()

	warning := ""
	existing, err := store.LoadAll(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to load existing transporters, continuing with an empty table")
		warning = storeReadWarning
		existing = nil
	}
	snapshot := repository.NewSnapshot(existing)
	log.WithField("stored", snapshot.Len()).Debug("Store snapshot taken")

	outcomes := Classify(batch.Rows, blocklist, snapshot)
	result := models.NewBatchResult(batch, outcomes)
	result.Warning = warning

	accepted := make([]models.Transporter, 0, result.AcceptedCount)
	now := e.now()
	for _, o := range outcomes {
		if o.Accepted() {
			accepted = append(accepted, models.NewTransporter(o.Row, storedComment(batch), now))
		}
	}

	err = store.Append(ctx, accepted)
	switch {
	case errors.Is(err, repository.ErrStoreNotDurable):
		// The rows are in the table; only durability is in doubt.
		log.WithError(err).WithField("accepted", len(accepted)).Warn("Accepted transporters written but not flushed")
		result.Warning = joinWarnings(result.Warning, storeSyncWarning)
	case err != nil:
		log.WithError(err).WithField("accepted", len(accepted)).Error("Failed to persist accepted transporters")
		if !errors.Is(err, repository.ErrStoreWriteFailed) {
			err = fmt.Errorf("%w: %v", repository.ErrStoreWriteFailed, err)
		}
		return result, fmt.Errorf("appending %d transporters: %w", len(accepted), err)
	}
	result.Persisted = true

	log.WithFields(logrus.Fields{
		"accepted": result.AcceptedCount,
		"rejected": result.RejectedCount,
	}).Info("Batch evaluated")

	return result, nil
}

func joinWarnings(current, next string) string {
	if current == "" {
		return next
	}
	return current + "; " + next
}

// Classify applies the row rules in order, first match wins: mandatory fields,
// blocklist, stored duplicates, then duplicates inside the batch. Every row that
// shares a tax id with another row of the batch is rejected.
func Classify(rows []models.CandidateRow, blocklist *Blocklist, snapshot *repository.Snapshot) []models.RecordOutcome {
	occurrences := make(map[string]int, len(rows))
	for _, row := range rows {
		if key := row.Key(); key != "" {
			occurrences[key]++
		}
	}

	outcomes := make([]models.RecordOutcome, len(rows))
	for i, row := range rows {
		outcomes[i] = classifyRow(row, blocklist, snapshot, occurrences)
	}
	return outcomes
}

func classifyRow(row models.CandidateRow, blocklist *Blocklist, snapshot *repository.Snapshot, occurrences map[string]int) models.RecordOutcome {
	if missing := row.MissingFields(); len(missing) > 0 {
		return models.RecordOutcome{
			Row:     row,
			Status:  models.StatusRejectedMandatoryFieldMissing,
			Comment: "Failure, missing " + strings.Join(missing, ", "),
		}
	}

	key := row.Key()
	switch {
	case blocklist.Contains(key):
		return models.RecordOutcome{
			Row:     row,
			Status:  models.StatusRejectedDisallowedIdentifier,
			Comment: "Failure, company already exists",
		}
	case snapshot.ContainsIdentifier(key):
		return models.RecordOutcome{
			Row:     row,
			Status:  models.StatusRejectedDuplicateIdentifier,
			Comment: "Failure, company already exists",
		}
	case occurrences[key] > 1:
		return models.RecordOutcome{
			Row:     row,
			Status:  models.StatusRejectedDuplicateIdentifier,
			Comment: "Failure, GST/PAN repeated in this upload",
		}
	}

	return models.RecordOutcome{Row: row, Status: models.StatusAccepted}
}

func storedComment(batch models.Batch) string {
	if batch.Source == models.SourceManual {
		return "Manual entry"
	}
	if batch.Code == "" {
		return "Bulk upload"
	}
	return "Bulk upload " + batch.Code
}
