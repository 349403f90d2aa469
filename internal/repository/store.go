package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"transporter-onboarding/internal/config"
	"transporter-onboarding/internal/models"

	"github.com/jmoiron/sqlx"
)

var (
	ErrStoreUnreadable  = errors.New("transporter store unreadable")
	ErrStoreWriteFailed = errors.New("transporter store write failed")
	// ErrStoreNotDurable means the rows were written but could not be flushed to disk.
	ErrStoreNotDurable = errors.New("transporter store write not flushed")
	ErrStoreLocked     = errors.New("transporter store is held by another writer")
)

// storeLockTimeout bounds how long a batch waits for another process to finish.
const storeLockTimeout = 30 * time.Second

// Store is the append-only table of accepted transporters.
type Store interface {
	// LoadAll returns every stored row in append order.
	LoadAll(ctx context.Context) ([]models.Transporter, error)
	// Append adds rows at the end of the table, keeping their order.
	Append(ctx context.Context, transporters []models.Transporter) error
	// Lock holds the table against every other writer, in any process, until
	// unlock is called. A batch takes it around its LoadAll and Append.
	Lock(ctx context.Context) (unlock func() error, err error)
}

// NewStore opens the store selected by STORE_DRIVER. db is only used by the mysql driver.
func NewStore(cfg *config.Config, db *sqlx.DB) (Store, error) {
	switch cfg.StoreDriver {
	case "", "file":
		return NewFileRepository(cfg.StorePath), nil
	case "mysql":
		if db == nil {
			return nil, fmt.Errorf("mysql store requires a database connection")
		}
		return NewTransporterRepository(db), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// Snapshot is the set of stored tax identifiers taken once per batch.
type Snapshot struct {
	ids map[string]struct{}
}

func NewSnapshot(transporters []models.Transporter) *Snapshot {
	ids := make(map[string]struct{}, len(transporters))
	for _, t := range transporters {
		if id := strings.TrimSpace(t.TaxID); id != "" {
			ids[id] = struct{}{}
		}
	}
	return &Snapshot{ids: ids}
}

// ContainsIdentifier reports whether the trimmed id is already stored.
func (s *Snapshot) ContainsIdentifier(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[strings.TrimSpace(id)]
	return ok
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// FindPage filters stored transporters by company name or tax id and returns one page.
func FindPage(ctx context.Context, store Store, search string, limit, offset int) ([]models.Transporter, int, error) {
	if pager, ok := store.(interface {
		FindAll(ctx context.Context, limit, offset int, search string) ([]models.Transporter, int, error)
	}); ok {
		return pager.FindAll(ctx, limit, offset, search)
	}

	all, err := store.LoadAll(ctx)
	if err != nil {
		return nil, 0, err
	}

	matched := all[:0:0]
	needle := strings.ToLower(strings.TrimSpace(search))
	for _, t := range all {
		if needle == "" ||
			strings.Contains(strings.ToLower(t.CompanyName), needle) ||
			strings.Contains(strings.ToLower(t.TaxID), needle) {
			matched = append(matched, t)
		}
	}

	total := len(matched)
	if offset >= total {
		return []models.Transporter{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}
