package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	bolt "go.etcd.io/bbolt"

	"github.com/masmgr/commitsync/internal/record"
)

var (
	boltRootBucket    = []byte("repos")
	boltCommitsBucket = []byte("commits")
	boltOrderBucket   = []byte("order")
	boltMetaBucket    = []byte("meta")
	boltMarkerKey     = []byte("marker")
)

// BoltStore persists records inside a BoltDB file, one bucket per repository.
type BoltStore struct {
	db   *bolt.DB
	once sync.Once
}

// NewBoltStore opens (or creates) a BoltDB file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		return nil, errors.New("bolt store path is required")
	}

	cleaned := filepath.Clean(path)
	if dir := filepath.Dir(cleaned); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := bolt.Open(cleaned, 0o600, nil)
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltRootBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// repoBucket returns the bucket of repo, or nil when it does not exist yet.
func repoBucket(tx *bolt.Tx, repo string) *bolt.Bucket {
	root := tx.Bucket(boltRootBucket)
	if root == nil {
		return nil
	}
	return root.Bucket([]byte(repo))
}

func (s *BoltStore) Marker(ctx context.Context, repo string) (string, bool, error) {
	if err := validateRepo(repo); err != nil {
		return "", false, err
	}

	var marker string
	err := s.db.View(func(tx *bolt.Tx) error {
		if err := checkContext(ctx); err != nil {
			return err
		}
		b := repoBucket(tx, repo)
		if b == nil {
			return nil
		}
		if meta := b.Bucket(boltMetaBucket); meta != nil {
			marker = string(meta.Get(boltMarkerKey))
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return marker, marker != "", nil
}

func (s *BoltStore) Save(ctx context.Context, repo string, records []record.CommitRecord, marker string) (SaveResult, error) {
	if err := validate(repo, records); err != nil {
		return SaveResult{}, err
	}

	var res SaveResult
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := checkContext(ctx); err != nil {
			return err
		}

		root := tx.Bucket(boltRootBucket)
		if root == nil {
			return errors.New("store root bucket missing")
		}
		b, err := root.CreateBucketIfNotExists([]byte(repo))
		if err != nil {
			return err
		}
		commits, err := b.CreateBucketIfNotExists(boltCommitsBucket)
		if err != nil {
			return err
		}
		order, err := b.CreateBucketIfNotExists(boltOrderBucket)
		if err != nil {
			return err
		}
		meta, err := b.CreateBucketIfNotExists(boltMetaBucket)
		if err != nil {
			return err
		}

		for _, r := range records {
			key := []byte(r.CommitHash)
			if commits.Get(key) != nil {
				res.Duplicates++
				continue
			}
			payload, err := json.Marshal(r)
			if err != nil {
				return err
			}
			if err := commits.Put(key, payload); err != nil {
				return err
			}
			seq, err := order.NextSequence()
			if err != nil {
				return err
			}
			if err := order.Put(sequenceKey(seq), key); err != nil {
				return err
			}
			res.Inserted++
		}

		if marker != "" {
			return meta.Put(boltMarkerKey, []byte(marker))
		}
		return nil
	})
	if err != nil {
		return SaveResult{}, err
	}
	return res, nil
}

func (s *BoltStore) Records(ctx context.Context, repo string, limit int) ([]record.CommitRecord, error) {
	if err := validateRepo(repo); err != nil {
		return nil, err
	}

	var out []record.CommitRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		if err := checkContext(ctx); err != nil {
			return err
		}
		b := repoBucket(tx, repo)
		if b == nil {
			return nil
		}
		commits, order := b.Bucket(boltCommitsBucket), b.Bucket(boltOrderBucket)
		if commits == nil || order == nil {
			return nil
		}

		c := order.Cursor()
		for k, hash := c.First(); k != nil; k, hash = c.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			payload := commits.Get(hash)
			if payload == nil {
				return fmt.Errorf("commit %s listed but not stored", hash)
			}
			var r record.CommitRecord
			if err := json.Unmarshal(payload, &r); err != nil {
				return err
			}
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) ResetMarker(ctx context.Context, repo string) error {
	if err := validateRepo(repo); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := checkContext(ctx); err != nil {
			return err
		}
		b := repoBucket(tx, repo)
		if b == nil {
			return nil
		}
		meta := b.Bucket(boltMetaBucket)
		if meta == nil {
			return nil
		}
		return meta.Delete(boltMarkerKey)
	})
}

// Close shuts down the Bolt DB.
func (s *BoltStore) Close() error {
	var err error
	s.once.Do(func() {
		err = s.db.Close()
	})
	return err
}

func sequenceKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
