// Package node implements the CA node service (spec §4.4): it holds one
// scalar share, answers SignPartial/SignRevokePartial/ApplyRevocation/OCSP,
// and owns the node's local revocation set.
package node

import (
	"encoding/json"
	"path"
	"sync"

	bolt "go.etcd.io/bbolt"
)

// RevocationStore is the one piece of mutable shared state a node holds
// (spec §5's "shared-resource policy"): a set of revoked serials, each
// entry terminal once set. Implementations must serialize concurrent
// access; BoltRevocationStore and MemRevocationStore both do.
type RevocationStore interface {
	Add(serial string) error
	Contains(serial string) (bool, error)
	Close() error
}

// MemRevocationStore is an in-memory RevocationStore, the default for tests
// and single-process demos. spec §1's Non-goals explicitly leave
// persistence across restarts to an implementer's discretion; this is the
// "no persistence" choice, BoltRevocationStore is the "added persistence"
// one.
type MemRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]struct{}
}

// NewMemRevocationStore returns an empty in-memory revocation set.
func NewMemRevocationStore() *MemRevocationStore {
	return &MemRevocationStore{revoked: make(map[string]struct{})}
}

func (s *MemRevocationStore) Add(serial string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[serial] = struct{}{}
	return nil
}

func (s *MemRevocationStore) Contains(serial string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[serial]
	return ok, nil
}

func (s *MemRevocationStore) Close() error { return nil }

var revocationBucket = []byte("revoked_serials")

// BoltRevocationStore persists the revocation set to a bbolt file,
// surviving node restarts — an enrichment spec §1 explicitly leaves open
// to an implementer, adapted from the teacher's chain/boltdb store.
type BoltRevocationStore struct {
	mu sync.Mutex
	db *bolt.DB
}

// BoltFileName is the default revocation-set database file name within a
// node's data folder.
const BoltFileName = "revoked.db"

// OpenBoltRevocationStore opens (creating if absent) a bbolt-backed
// revocation store under folder.
func OpenBoltRevocationStore(folder string) (*BoltRevocationStore, error) {
	dbPath := path.Join(folder, BoltFileName)
	db, err := bolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(revocationBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltRevocationStore{db: db}, nil
}

type revocationEntry struct {
	Revoked bool `json:"revoked"`
}

func (s *BoltRevocationStore) Add(serial string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, err := json.Marshal(revocationEntry{Revoked: true})
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(revocationBucket)
		return b.Put([]byte(serial), payload)
	})
}

func (s *BoltRevocationStore) Contains(serial string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(revocationBucket)
		v := b.Get([]byte(serial))
		found = v != nil
		return nil
	})
	return found, err
}

func (s *BoltRevocationStore) Close() error {
	return s.db.Close()
}
