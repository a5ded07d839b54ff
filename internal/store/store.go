// Package store persists valuation reports in an embedded Badger database.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/timshannon/badgerhold/v4"

	"github.com/seenimoa/smevalue/internal/config"
	"github.com/seenimoa/smevalue/pkg/models"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("valuation not found")

// Record is one persisted valuation.
type Record struct {
	ID        string                 `json:"id"`
	CreatedAt time.Time              `json:"created_at"`
	Sector    string                 `json:"sector" badgerhold:"index"`
	Inputs    models.BusinessInputs  `json:"inputs"`
	Report    models.ValuationReport `json:"report"`
}

// NewRecord wraps an engine result for storage. ID and CreatedAt are
// assigned by Save.
func NewRecord(in models.BusinessInputs, report *models.ValuationReport) *Record {
	return &Record{
		Sector: report.SectorCode,
		Inputs: in,
		Report: *report,
	}
}

// Store is a badgerhold-backed report store. It is safe for concurrent use.
type Store struct {
	db  *badgerhold.Store
	log zerolog.Logger
	now func() time.Time
}

// Open opens (or creates) the store described by cfg.
func Open(cfg config.StoreConfig, log zerolog.Logger) (*Store, error) {
	options := badgerhold.DefaultOptions
	options.Logger = nil // badger's own logger is too chatty; we log here
	// JSON keeps optional pointers that hold zero distinct from absent ones.
	options.Encoder = json.Marshal
	options.Decoder = json.Unmarshal

	if cfg.InMemory {
		options.InMemory = true
		options.Dir = ""
		options.ValueDir = ""
	} else {
		if cfg.Path == "" {
			return nil, eris.New("store: path is required")
		}
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, eris.Wrapf(err, "store: create directory %s", cfg.Path)
		}
		options.Dir = cfg.Path
		options.ValueDir = cfg.Path
	}

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, eris.Wrapf(err, "store: open %s", cfg.Path)
	}

	log = log.With().Str("component", "store").Logger()
	log.Debug().Str("path", cfg.Path).Bool("in_memory", cfg.InMemory).Msg("report store opened")

	return &Store{db: db, log: log, now: time.Now}, nil
}

// Save inserts or replaces a record, assigning an ID and creation time when
// they are missing.
func (s *Store) Save(rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	if rec.Sector == "" {
		rec.Sector = rec.Report.SectorCode
	}

	if err := s.db.Upsert(rec.ID, rec); err != nil {
		return eris.Wrapf(err, "store: save %s", rec.ID)
	}
	s.log.Debug().Str("id", rec.ID).Str("sector", rec.Sector).Msg("valuation saved")
	return nil
}

// Get returns the record with the given ID.
func (s *Store) Get(id string) (*Record, error) {
	var rec Record
	if err := s.db.Get(id, &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "store: get %s", id)
	}
	return &rec, nil
}

// List returns records newest first, optionally filtered by sector code.
// A limit <= 0 returns every match.
func (s *Store) List(sector string, limit int) ([]Record, error) {
	query := badgerhold.Where("ID").Ne("")
	if sector != "" {
		query = query.And("Sector").Eq(sector)
	}
	query = query.SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	recs := []Record{}
	if err := s.db.Find(&recs, query); err != nil {
		return nil, eris.Wrap(err, "store: list valuations")
	}
	return recs, nil
}

// Delete removes a record. It returns ErrNotFound when the ID is unknown.
func (s *Store) Delete(id string) error {
	if err := s.db.Delete(id, &Record{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return ErrNotFound
		}
		return eris.Wrapf(err, "store: delete %s", id)
	}
	s.log.Debug().Str("id", id).Msg("valuation deleted")
	return nil
}

// Count returns the number of stored records.
func (s *Store) Count() (int, error) {
	n, err := s.db.Count(&Record{}, nil)
	if err != nil {
		return 0, eris.Wrap(err, "store: count valuations")
	}
	return int(n), nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
