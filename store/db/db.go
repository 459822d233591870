// Package db picks the store drivers named in the profile.
package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/gridiron/internal/profile"
	"github.com/hrygo/gridiron/store"
	"github.com/hrygo/gridiron/store/db/postgres"
	"github.com/hrygo/gridiron/store/db/sqlite"
)

// NewDBDriver creates the history database driver.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver: %s", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}

// NewStatsDB opens the read-only statistics database.
func NewStatsDB(profile *profile.Profile) (store.StatsDB, error) {
	switch profile.StatsDriver {
	case "sqlite":
		statsDB, err := sqlite.NewStatsDB(profile.StatsDSN)
		if err != nil {
			return nil, err
		}
		return statsDB, nil
	case "postgres":
		statsDB, err := postgres.NewStatsDB(profile.StatsDSN)
		if err != nil {
			return nil, err
		}
		return statsDB, nil
	default:
		return nil, errors.Errorf("unknown stats db driver: %s", profile.StatsDriver)
	}
}
