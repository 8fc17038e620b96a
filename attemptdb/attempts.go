package attemptdb

import (
	"github.com/go-errors/errors"
	"github.com/xploited/ubiquitousd/network"
)

// check DB compliance to its interface during compile time
var _ network.Journal = (*DB)(nil)

func (db *DB) Record(attempt *network.Attempt) error {
	err := db.appendJSON(attemptsBucket, attempt)
	if err != nil {
		return errors.Errorf("could not record attempt: %v", err)
	}

	return nil
}

// Attempts returns up to limit attempts, most recent first.
func (db *DB) Attempts(limit int) ([]*network.Attempt, error) {
	values, err := db.lastJSON(attemptsBucket, limit, func() interface{} {
		return &network.Attempt{}
	})
	if err != nil {
		return nil, errors.Errorf("could not read attempts: %v", err)
	}

	attempts := []*network.Attempt{}
	for _, v := range values {
		attempts = append(attempts, v.(*network.Attempt))
	}

	return attempts, nil
}
