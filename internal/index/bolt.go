package index

import (
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/xtxerr/firstline/internal/errors"
)

var bucketFirstline = []byte("firstline")

// boltStore keeps all entries in a single bucket.
type boltStore struct {
	db *bolt.DB
}

func openBolt(p openParams) (kv, error) {
	db, err := bolt.Open(p.path, p.fileMode, &bolt.Options{
		Timeout:  p.timeout,
		ReadOnly: p.readOnly,
	})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, fmt.Errorf("open %s: %v: %w", p.path, err, errors.ErrStoreLocked)
		}
		return nil, fmt.Errorf("open %s: %w", p.path, err)
	}

	if !p.readOnly {
		err := db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(bucketFirstline)
			return err
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &boltStore{db: db}, nil
}

func (s *boltStore) get(label string) (value string, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFirstline)
		if b == nil {
			return nil
		}
		// Values are only valid for the life of the transaction.
		if v := b.Get([]byte(label)); v != nil {
			value, ok = string(v), true
		}
		return nil
	})
	return value, ok, err
}

func (s *boltStore) put(label, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketFirstline)
		if err != nil {
			return err
		}
		return b.Put([]byte(label), []byte(value))
	})
}

func (s *boltStore) forEach(fn func(label, value string) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFirstline)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			return fn(string(k), string(v))
		})
	})
}

func (s *boltStore) close() error {
	return s.db.Close()
}
