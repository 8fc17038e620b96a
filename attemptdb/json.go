package attemptdb

import (
	"encoding/binary"
	"encoding/json"

	"github.com/go-errors/errors"
	"go.etcd.io/bbolt"
)

// appendJSON stores v under the next sequence number of the bucket.
func (db *DB) appendJSON(bucket []byte, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}

		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}

		return bucket.Put(sequenceKey(seq), payload)
	})
}

// lastJSON walks the bucket from the newest entry backwards and decodes at
// most limit entries with newValue. A limit of zero reads everything.
func (db *DB) lastJSON(bucket []byte, limit int, newValue func() interface{}) ([]interface{}, error) {
	var values []interface{}

	err := db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}

		c := b.Cursor()
		for k, payload := c.Last(); k != nil; k, payload = c.Prev() {
			if limit > 0 && len(values) >= limit {
				break
			}

			v := newValue()
			if err := json.Unmarshal(payload, v); err != nil {
				return errors.Errorf("could not unmarshal entry %x: %v", k, err)
			}

			values = append(values, v)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return values, nil
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
