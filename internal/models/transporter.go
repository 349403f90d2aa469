package models

import (
	"strings"
	"time"
)

// Canonical column headers of an intake file and of the persisted table.
const (
	ColumnCompanyName   = "Company Name"
	ColumnTaxID         = "GST/PAN"
	ColumnEmail         = "Email ID"
	ColumnContactName   = "Contact Name"
	ColumnContactNumber = "Contact Number"
	ColumnComments      = "Comments"
)

// RequiredColumns lists the business columns in table order.
var RequiredColumns = []string{
	ColumnCompanyName,
	ColumnTaxID,
	ColumnEmail,
	ColumnContactName,
	ColumnContactNumber,
}

// CandidateRow is one prospective transporter from an upload batch or the manual form.
type CandidateRow struct {
	RowNumber     int    `json:"row_number"` // 0 for manual entry
	CompanyName   string `json:"company_name"`
	TaxID         string `json:"gst_pan"`
	Email         string `json:"email_id"`
	ContactName   string `json:"contact_name"`
	ContactNumber string `json:"contact_number"`
}

// Key returns the dedup key: the tax identifier with surrounding whitespace removed.
func (r CandidateRow) Key() string {
	return strings.TrimSpace(r.TaxID)
}

// Values returns the business fields in table order.
func (r CandidateRow) Values() []string {
	return []string{r.CompanyName, r.TaxID, r.Email, r.ContactName, r.ContactNumber}
}

// MissingFields returns the canonical names of the business fields that are blank.
func (r CandidateRow) MissingFields() []string {
	var missing []string
	for i, v := range r.Values() {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, RequiredColumns[i])
		}
	}
	return missing
}

// Transporter is a stored record. Rows are append-only; ID is the append position.
type Transporter struct {
	ID            int64     `db:"id" json:"id"`
	CompanyName   string    `db:"company_name" json:"company_name"`
	TaxID         string    `db:"gst_pan" json:"gst_pan"`
	Email         string    `db:"email_id" json:"email_id"`
	ContactName   string    `db:"contact_name" json:"contact_name"`
	ContactNumber string    `db:"contact_number" json:"contact_number"`
	Comments      string    `db:"comments" json:"comments"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// NewTransporter builds the stored form of an accepted row with trimmed fields.
func NewTransporter(row CandidateRow, comments string, now time.Time) Transporter {
	return Transporter{
		CompanyName:   strings.TrimSpace(row.CompanyName),
		TaxID:         row.Key(),
		Email:         strings.TrimSpace(row.Email),
		ContactName:   strings.TrimSpace(row.ContactName),
		ContactNumber: strings.TrimSpace(row.ContactNumber),
		Comments:      comments,
		CreatedAt:     now,
	}
}

// TransporterRequest is the manual entry form body.
type TransporterRequest struct {
	CompanyName   string `json:"company_name" form:"company_name"`
	TaxID         string `json:"gst_pan" form:"gst_pan"`
	Email         string `json:"email_id" form:"email_id"`
	ContactName   string `json:"contact_name" form:"contact_name"`
	ContactNumber string `json:"contact_number" form:"contact_number"`
}

func (r TransporterRequest) ToCandidate() CandidateRow {
	return CandidateRow{
		CompanyName:   r.CompanyName,
		TaxID:         r.TaxID,
		Email:         r.Email,
		ContactName:   r.ContactName,
		ContactNumber: r.ContactNumber,
	}
}
