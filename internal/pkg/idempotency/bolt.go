package idempotency

import (
	"context"
	"encoding/json"
	"time"

	bolt "github.com/boltdb/bolt"
)

const boltBucket = "idempotency_keys"

type boltEntry struct {
	Result    string    `json:"result"`
	ExpiresAt time.Time `json:"expires_at"`
}

// BoltStore keeps reservations in an embedded BoltDB file, for single-node
// deployments without Redis. Bolt serializes write transactions, which makes
// the check-then-put in Reserve atomic.
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

// OpenBolt opens (or creates) the database file and ensures the bucket exists.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Reserve(ctx context.Context, key string, ttl time.Duration) (Record, error) {
	var rec Record

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(boltBucket))
		now := s.now()

		if raw := b.Get([]byte(key)); raw != nil {
			var e boltEntry
			if err := json.Unmarshal(raw, &e); err != nil {
				return err
			}
			if now.Before(e.ExpiresAt) {
				if e.Result == pendingMarker {
					return ErrInProgress
				}
				rec = Record{Result: e.Result}
				return nil
			}
		}

		rec = Record{Reserved: true}
		return put(b, key, boltEntry{Result: pendingMarker, ExpiresAt: now.Add(ttl)})
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *BoltStore) Complete(ctx context.Context, key, result string, ttl time.Duration) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx.Bucket([]byte(boltBucket)), key, boltEntry{Result: result, ExpiresAt: s.now().Add(ttl)})
	})
}

func (s *BoltStore) Release(ctx context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Delete([]byte(key))
	})
}

// Purge drops expired entries and reports how many were removed.
func (s *BoltStore) Purge() (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(boltBucket))
		now := s.now()

		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var e boltEntry
			if err := json.Unmarshal(v, &e); err != nil || !now.Before(e.ExpiresAt) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	return removed, err
}

func put(b *bolt.Bucket, key string, e boltEntry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), raw)
}
