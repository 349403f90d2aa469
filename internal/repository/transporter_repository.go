package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"transporter-onboarding/internal/models"

	"github.com/jmoiron/sqlx"
)

// gst_pan uses a binary collation so identifiers compare case-sensitively.
const createTransportersTable = `CREATE TABLE IF NOT EXISTS transporters (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	company_name VARCHAR(255) NOT NULL,
	gst_pan VARCHAR(64) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
	email_id VARCHAR(255) NOT NULL,
	contact_name VARCHAR(255) NOT NULL,
	contact_number VARCHAR(64) NOT NULL,
	comments VARCHAR(255) NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	UNIQUE KEY uk_transporters_gst_pan (gst_pan)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// Named lock shared by every process writing the table.
const transportersLockName = "transporters"

// Keeps each insert well under the MySQL placeholder limit (65535).
const appendChunkSize = 5000

type TransporterRepository struct {
	db *sqlx.DB

	schemaMu    sync.Mutex
	schemaReady bool
}

func NewTransporterRepository(db *sqlx.DB) *TransporterRepository {
	return &TransporterRepository{db: db}
}

// EnsureSchema creates the transporters table on first use.
func (r *TransporterRepository) EnsureSchema(ctx context.Context) error {
	r.schemaMu.Lock()
	defer r.schemaMu.Unlock()

	if r.schemaReady {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, createTransportersTable); err != nil {
		return err
	}
	r.schemaReady = true
	return nil
}

// Lock takes the MySQL named lock on a dedicated connection. GET_LOCK belongs to
// the session, so the connection is held until unlock releases it.
func (r *TransporterRepository) Lock(ctx context.Context) (func() error, error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreLocked, err)
	}

	var acquired sql.NullInt64
	if err := conn.GetContext(ctx, &acquired, "SELECT GET_LOCK(?, ?)", transportersLockName, int(storeLockTimeout.Seconds())); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreLocked, err)
	}
	if !acquired.Valid || acquired.Int64 != 1 {
		conn.Close()
		return nil, ErrStoreLocked
	}

	return func() error {
		defer conn.Close()
		var released sql.NullInt64
		return conn.GetContext(context.Background(), &released, "SELECT RELEASE_LOCK(?)", transportersLockName)
	}, nil
}

func (r *TransporterRepository) LoadAll(ctx context.Context) ([]models.Transporter, error) {
	if err := r.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreadable, err)
	}

	var transporters []models.Transporter
	query := `
		SELECT id,
		       company_name,
		       gst_pan,
		       email_id,
		       contact_name,
		       contact_number,
		       comments,
		       created_at
		FROM transporters
		ORDER BY id`
	if err := r.db.SelectContext(ctx, &transporters, query); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreadable, err)
	}
	return transporters, nil
}

func (r *TransporterRepository) Append(ctx context.Context, transporters []models.Transporter) error {
	if len(transporters) == 0 {
		return nil
	}
	if err := r.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}
	defer tx.Rollback()

	query := `INSERT INTO transporters (company_name, gst_pan, email_id, contact_name, contact_number, comments, created_at)
	          VALUES (:company_name, :gst_pan, :email_id, :contact_name, :contact_number, :comments, :created_at)`

	for i := 0; i < len(transporters); i += appendChunkSize {
		end := i + appendChunkSize
		if end > len(transporters) {
			end = len(transporters)
		}
		if _, err := tx.NamedExecContext(ctx, query, transporters[i:end]); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreWriteFailed, err)
	}
	return nil
}

// FindAll returns one page of transporters, newest append last.
func (r *TransporterRepository) FindAll(ctx context.Context, limit, offset int, search string) ([]models.Transporter, int, error) {
	if err := r.EnsureSchema(ctx); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStoreUnreadable, err)
	}

	var transporters []models.Transporter
	var total int

	whereClause := ""
	args := []interface{}{}

	if search != "" {
		// gst_pan is stored with a binary collation; listing matches it case-insensitively.
		whereClause = "WHERE company_name LIKE ? OR gst_pan COLLATE utf8mb4_general_ci LIKE ?"
		searchPattern := "%" + search + "%"
		args = append(args, searchPattern, searchPattern)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transporters %s", whereClause)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, company_name, gst_pan, email_id, contact_name, contact_number, comments, created_at
		FROM transporters %s
		ORDER BY id
		LIMIT ? OFFSET ?`, whereClause)
	args = append(args, limit, offset)
	if err := r.db.SelectContext(ctx, &transporters, query, args...); err != nil {
		return nil, 0, err
	}

	return transporters, total, nil
}
