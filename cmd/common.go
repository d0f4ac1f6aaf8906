package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"github.com/sw33tLie/callerid/internal/utils"
	"github.com/sw33tLie/callerid/pkg/directory"
	"github.com/sw33tLie/callerid/pkg/storage"
)

// openDirectory opens the configured database and materializes the directory.
// The caller closes the returned DB.
func openDirectory(ctx context.Context) (*storage.DB, *directory.Directory, error) {
	dbPath, err := utils.GetAbsDBPath(viper.GetString("dbpath"))
	if err != nil {
		return nil, nil, err
	}
	utils.Log.Debugf("Using database %s", dbPath)

	db, err := storage.Open(dbPath, storage.DefaultDBTimeout, viper.GetString("region"))
	if err != nil {
		return nil, nil, fmt.Errorf("could not open database %s: %w", dbPath, err)
	}
	dir, err := directory.Open(ctx, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, dir, nil
}

// withWriteLock runs fn while holding the cross-process writer lock.
func withWriteLock(fn func() error) error {
	lock, err := utils.NewDBLock(viper.GetString("dbpath"))
	if err != nil {
		return err
	}
	return lock.WithLock(fn)
}
