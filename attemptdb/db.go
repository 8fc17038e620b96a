package attemptdb

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-errors/errors"
	"go.etcd.io/bbolt"
)

const (
	dbName           = "attempts.db"
	dbFilePermission = 0600
)

var (
	attemptsBucket = []byte("attempts")
)

// DB keeps the history of connect attempts. It does not hold network
// configuration, which stays with the network service.
type DB struct {
	*bbolt.DB
}

func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Errorf("could not create data dir %v: %v", dir, err)
	}

	path := filepath.Join(dir, dbName)

	bdb, err := bbolt.Open(path, dbFilePermission, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Errorf("could not open %v: %v", path, err)
	}

	db := &DB{DB: bdb}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(attemptsBucket)
		return err
	})
	if err != nil {
		_ = bdb.Close()
		return nil, errors.Errorf("could not create buckets: %v", err)
	}

	return db, nil
}
