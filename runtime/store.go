package runtime

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// Store persists machine state between rounds: the code image once at
// creation, then one canonical snapshot per round, keyed by machine address.
type Store struct {
	db *leveldb.DB
}

// NewStore opens (creating if necessary) a store at the given path.
func NewStore(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewMemStore opens a store backed by memory only.
func NewMemStore() (*Store, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func codeKey(address string) []byte {
	return []byte("at:code:" + address)
}

func snapshotKey(address string) []byte {
	return []byte("at:snapshot:" + address)
}

// PutCode stores a machine's code image.
func (s *Store) PutCode(address string, code []byte) error {
	return s.db.Put(codeKey(address), code, nil)
}

// Code returns a machine's code image.
func (s *Store) Code(address string) ([]byte, error) {
	return s.db.Get(codeKey(address), nil)
}

// PutSnapshot stores a machine's per-round snapshot.
func (s *Store) PutSnapshot(address string, snapshot []byte) error {
	return s.db.Put(snapshotKey(address), snapshot, nil)
}

// Snapshot returns a machine's latest snapshot.
func (s *Store) Snapshot(address string) ([]byte, error) {
	return s.db.Get(snapshotKey(address), nil)
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
