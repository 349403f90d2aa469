package models

import (
	"fmt"
	"time"
)

// OutcomeStatus is the decision attached to one candidate row.
type OutcomeStatus string

const (
	StatusAccepted                      OutcomeStatus = "accepted"
	StatusRejectedMandatoryFieldMissing OutcomeStatus = "rejected_mandatory_field_missing"
	StatusRejectedDisallowedIdentifier  OutcomeStatus = "rejected_disallowed_identifier"
	StatusRejectedDuplicateIdentifier   OutcomeStatus = "rejected_duplicate_identifier"
)

// Batch sources
const (
	SourceUpload = "upload"
	SourceManual = "manual"
)

const commentSuccessful = "Successful"

// RecordOutcome is created once per row per validation pass and never changed afterwards.
type RecordOutcome struct {
	Row     CandidateRow  `json:"row"`
	Status  OutcomeStatus `json:"status"`
	Comment string        `json:"comment,omitempty"`
}

func (o RecordOutcome) Accepted() bool {
	return o.Status == StatusAccepted
}

// Batch is the set of candidate rows submitted together.
type Batch struct {
	Code     string
	Source   string
	Filename string
	Rows     []CandidateRow
}

// BatchResult is the outcome of evaluating one batch.
type BatchResult struct {
	BatchCode     string                `json:"batch_code"`
	Source        string                `json:"source"`
	Filename      string                `json:"filename,omitempty"`
	Outcomes      []RecordOutcome       `json:"outcomes"`
	TotalRows     int                   `json:"total_rows"`
	AcceptedCount int                   `json:"accepted_count"`
	RejectedCount int                   `json:"rejected_count"`
	StatusCounts  map[OutcomeStatus]int `json:"status_counts"`
	// Persisted is false when rows were accepted but the store append failed.
	Persisted   bool      `json:"persisted"`
	Warning     string    `json:"warning,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// NewBatchResult tallies outcomes. Persisted starts false until the append succeeds.
func NewBatchResult(batch Batch, outcomes []RecordOutcome) *BatchResult {
	result := &BatchResult{
		BatchCode:    batch.Code,
		Source:       batch.Source,
		Filename:     batch.Filename,
		Outcomes:     outcomes,
		TotalRows:    len(outcomes),
		StatusCounts: make(map[OutcomeStatus]int),
		ProcessedAt:  time.Now(),
	}
	for _, o := range outcomes {
		result.StatusCounts[o.Status]++
		if o.Accepted() {
			result.AcceptedCount++
		} else {
			result.RejectedCount++
		}
	}
	return result
}

// Rejected returns the rejected outcomes in input order.
func (r *BatchResult) Rejected() []RecordOutcome {
	rejected := make([]RecordOutcome, 0, r.RejectedCount)
	for _, o := range r.Outcomes {
		if !o.Accepted() {
			rejected = append(rejected, o)
		}
	}
	return rejected
}

// CommentFor is the text written to the Comments column of an export.
func (r *BatchResult) CommentFor(o RecordOutcome) string {
	if o.Accepted() {
		if !r.Persisted {
			return "Failure, validated but not saved"
		}
		return commentSuccessful
	}
	return o.Comment
}

// Message is the plain language summary shown to the user.
func (r *BatchResult) Message() string {
	if r.Source == SourceManual && r.TotalRows == 1 {
		o := r.Outcomes[0]
		switch {
		case o.Accepted() && r.Persisted:
			return "Transporter created successfully"
		case o.Accepted():
			return "Transporter passed validation but could not be saved"
		default:
			return o.Comment
		}
	}

	msg := fmt.Sprintf("Processing Complete: %d successful, %d failed.", r.AcceptedCount, r.RejectedCount)
	if !r.Persisted && r.AcceptedCount > 0 {
		msg += " Accepted rows were not saved."
	}
	return msg
}

// ImportSummary is the compact form of a BatchResult kept for async jobs.
type ImportSummary struct {
	TotalRows     int                   `json:"total_rows"`
	AcceptedCount int                   `json:"accepted_count"`
	RejectedCount int                   `json:"rejected_count"`
	StatusCounts  map[OutcomeStatus]int `json:"status_counts"`
	Persisted     bool                  `json:"persisted"`
	Warning       string                `json:"warning,omitempty"`
	Message       string                `json:"message"`
}

func (r *BatchResult) Summary() ImportSummary {
	return ImportSummary{
		TotalRows:     r.TotalRows,
		AcceptedCount: r.AcceptedCount,
		RejectedCount: r.RejectedCount,
		StatusCounts:  r.StatusCounts,
		Persisted:     r.Persisted,
		Warning:       r.Warning,
		Message:       r.Message(),
	}
}
