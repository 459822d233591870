package store

import (
	"context"
	"database/sql"

	"github.com/hrygo/gridiron/internal/profile"
)

// Driver is the history database. Implementations live in store/db/sqlite and store/db/postgres.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate creates the schema if it does not exist.
	Migrate(ctx context.Context) error

	CreateQueryRecord(ctx context.Context, create *QueryRecord) (*QueryRecord, error)
	ListQueryRecords(ctx context.Context, find *FindQueryRecord) ([]*QueryRecord, error)
	FindSimilarQueries(ctx context.Context, opts *SimilarQueryOptions) ([]*QueryRecordWithScore, error)
	GetSourceStats(ctx context.Context, since int64) (*SourceStats, error)
}

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) CreateQueryRecord(ctx context.Context, create *QueryRecord) (*QueryRecord, error) {
	return s.driver.CreateQueryRecord(ctx, create)
}

func (s *Store) ListQueryRecords(ctx context.Context, find *FindQueryRecord) ([]*QueryRecord, error) {
	return s.driver.ListQueryRecords(ctx, find)
}

// GetQueryRecord returns the record with id, or nil when it does not exist.
func (s *Store) GetQueryRecord(ctx context.Context, id string) (*QueryRecord, error) {
	list, err := s.driver.ListQueryRecords(ctx, &FindQueryRecord{ID: &id, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) FindSimilarQueries(ctx context.Context, opts *SimilarQueryOptions) ([]*QueryRecordWithScore, error) {
	return s.driver.FindSimilarQueries(ctx, opts)
}

func (s *Store) GetSourceStats(ctx context.Context, since int64) (*SourceStats, error) {
	return s.driver.GetSourceStats(ctx, since)
}
