package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"transporter-onboarding/internal/models"

	"github.com/dimchansky/utfbom"
	"github.com/gofrs/flock"
)

// TableHeader is the header row of the flat transporter table.
var TableHeader = append(append([]string{}, models.RequiredColumns...), models.ColumnComments)

// FileRepository keeps transporters in a single CSV table. Rows are only ever appended.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Lock takes an exclusive flock on <path>.lock. Each call opens its own handle so
// two repositories on the same table exclude each other even inside one process.
func (r *FileRepository) Lock(ctx context.Context) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreLocked, err)
	}

	ctx, cancel := context.WithTimeout(ctx, storeLockTimeout)
	defer cancel()

	fl := flock.New(r.path + ".lock")
	locked, err := fl.TryLockContext(ctx, 25*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreLocked, err)
	}
	if !locked {
		return nil, ErrStoreLocked
	}
	return fl.Unlock, nil
}

// ensureTable creates the table with its header row when the file does not exist yet.
func (r *FileRepository) ensureTable() error {
	if _, err := os.Stat(r.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(TableHeader); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (r *FileRepository) LoadAll(ctx context.Context) ([]models.Transporter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureTable(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreadable, err)
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreadable, err)
	}
	defer f.Close()

	reader := csv.NewReader(utfbom.SkipOnly(f))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreadable, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s has no header row", ErrStoreUnreadable, r.path)
	}
	if !isTableHeader(records[0]) {
		return nil, fmt.Errorf("%w: unexpected header %v", ErrStoreUnreadable, records[0])
	}

	transporters := make([]models.Transporter, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) < len(models.RequiredColumns) {
			return nil, fmt.Errorf("%w: row %d has %d fields", ErrStoreUnreadable, i+2, len(rec))
		}
		t := models.Transporter{
			ID:            int64(i + 1),
			CompanyName:   rec[0],
			TaxID:         rec[1],
			Email:         rec[2],
			ContactName:   rec[3],
			ContactNumber: rec[4],
		}
		if len(rec) > len(models.RequiredColumns) {
			t.Comments = rec[5]
		}
		transporters = append(transporters, t)
	}

	return transporters, nil
}

func (r *FileRepository) Append(ctx context.Context, transporters []models.Transporter) error {
	if len(transporters) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureTable(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}

	// Encode everything first so the table receives a single write.
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, t := range transporters {
		if err := w.Write([]string{t.CompanyName, t.TaxID, t.Email, t.ContactName, t.ContactNumber, t.Comments}); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}

	f, err := os.OpenFile(r.path, os.O_RDWR|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}

	payload := buf.Bytes()
	if needsNewline(f) {
		payload = append([]byte{'\n'}, payload...)
	}

	if _, err := f.Write(payload); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}
	// The rows are in the table from here on, so later failures must not
	// look like a failed append.
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", ErrStoreNotDurable, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreNotDurable, err)
	}
	return nil
}

// needsNewline reports whether the file ends without a line terminator.
func needsNewline(f *os.File) bool {
	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return false
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false
	}
	return last[0] != '\n'
}

func isTableHeader(header []string) bool {
	if len(header) < len(models.RequiredColumns) || len(header) > len(TableHeader) {
		return false
	}
	for i, h := range header {
		if !strings.EqualFold(strings.TrimSpace(h), TableHeader[i]) {
			return false
		}
	}
	return true
}
