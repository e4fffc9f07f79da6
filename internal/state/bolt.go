package state

import (
	"bytes"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var stateBucket = []byte("state")

// BoltOptions configure the bbolt file backing a BoltStore.
type BoltOptions struct {
	// NoSync skips fsync on commit. Only for bulk loads and tests.
	NoSync   bool
	ReadOnly bool
}

// BoltStore is a Store backed by a single bbolt file. bbolt serializes writers and
// commits every Update atomically.
type BoltStore struct {
	db     *bolt.DB
	logger *zap.Logger
}

func OpenBolt(logger *zap.Logger, path string, opts BoltOptions) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{
		// open timeout when file is locked
		Timeout:      time.Second,
		FreelistType: bolt.FreelistMapType,
		NoSync:       opts.NoSync,
		ReadOnly:     opts.ReadOnly,
	})
	if err != nil {
		return nil, errors.New("failed to open the state db: " + err.Error())
	}

	if !opts.ReadOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(stateBucket)
			return err
		})
		if err != nil {
			_ = db.Close()
			return nil, errors.New("failed to create the state bucket: " + err.Error())
		}
	}

	logger.Debug("state db opened", zap.String("path", path), zap.Bool("noSync", opts.NoSync), zap.Bool("readOnly", opts.ReadOnly))

	return &BoltStore{db: db, logger: logger}, nil
}

func (s *BoltStore) View(fn func(Tx) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&boltTx{bucket: tx.Bucket(stateBucket)})
	})
}

func (s *BoltStore) Update(fn func(Tx) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTx{bucket: tx.Bucket(stateBucket), writable: true})
	})
}

func (s *BoltStore) Close() error {
	s.logger.Debug("closing the state db")
	return s.db.Close()
}

type boltTx struct {
	bucket   *bolt.Bucket
	writable bool
}

func (t *boltTx) Get(key string) ([]byte, error) {
	if t.bucket == nil {
		return nil, nil
	}
	// bbolt values are only valid for the life of the transaction
	return clone(t.bucket.Get([]byte(key))), nil
}

func (t *boltTx) Put(key string, value []byte) error {
	if !t.writable || t.bucket == nil {
		return ErrReadOnly
	}
	return t.bucket.Put([]byte(key), value)
}

func (t *boltTx) Delete(key string) error {
	if !t.writable || t.bucket == nil {
		return ErrReadOnly
	}
	return t.bucket.Delete([]byte(key))
}

func (t *boltTx) Scan(prefix string, fn func(key string, value []byte) error) error {
	if t.bucket == nil {
		return nil
	}

	type entry struct {
		key   string
		value []byte
	}
	// collect first, fn may write to the bucket
	var entries []entry
	p := []byte(prefix)
	c := t.bucket.Cursor()
	for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
		entries = append(entries, entry{key: string(k), value: clone(v)})
	}

	for _, e := range entries {
		if err := fn(e.key, e.value); err != nil {
			return err
		}
	}
	return nil
}
