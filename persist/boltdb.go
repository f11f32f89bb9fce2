package persist

import (
	"errors"
	"fmt"
	"sync"
	"time"

	bolt "github.com/rivine/bbolt"
)

// Metadata stamps every bolt database this package opens with the
// producing component's name and wire version, so an incompatible
// database is rejected at startup rather than silently misread.
type Metadata struct {
	Header  string
	Version string
}

// ErrBadVersion is returned by OpenDatabase when a database's stored
// metadata does not match the expected Metadata.
var ErrBadVersion = errors.New("persist: database metadata mismatch")

var metadataBucket = []byte("Metadata")

// BoltDatabase couples a metadata-checked bolt database with its
// expected schema, for components (BlockChain) that persist to disk.
type BoltDatabase struct {
	Metadata
	*bolt.DB
}

// OpenDatabase opens (creating if necessary) a bolt database at
// filename, verifying or writing md as its metadata header.
func OpenDatabase(md Metadata, filename string) (*BoltDatabase, error) {
	db, err := bolt.Open(filename, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("persist: failed to open bolt database %s: %w", filename, err)
	}
	bd := &BoltDatabase{Metadata: md, DB: db}
	if err := bd.checkMetadata(md); err != nil {
		db.Close()
		return nil, err
	}
	return bd, nil
}

func (db *BoltDatabase) checkMetadata(md Metadata) error {
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(metadataBucket)
		if err != nil {
			return err
		}
		header := b.Get([]byte("Header"))
		if header == nil {
			return db.writeMetadata(b, md)
		}
		if string(header) != md.Header || string(b.Get([]byte("Version"))) != md.Version {
			return ErrBadVersion
		}
		return nil
	})
}

func (db *BoltDatabase) writeMetadata(b *bolt.Bucket, md Metadata) error {
	if err := b.Put([]byte("Header"), []byte(md.Header)); err != nil {
		return err
	}
	return b.Put([]byte("Version"), []byte(md.Version))
}

// SaveMetadata overwrites the stored metadata header, used after an
// on-disk schema migration.
func (db *BoltDatabase) SaveMetadata(md Metadata) error {
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(metadataBucket)
		if err != nil {
			return err
		}
		return db.writeMetadata(b, md)
	})
}

// Close closes the underlying bolt database.
func (db *BoltDatabase) Close() error {
	return db.DB.Close()
}

// LazyBoltBucket lazily resolves a named top-level bucket on first use,
// so call sites that only sometimes touch optional buckets (e.g. the
// transactions-index) do not pay a bucket lookup on every transaction.
type LazyBoltBucket struct {
	name   []byte
	tx     *bolt.Tx
	once   sync.Once
	bucket *bolt.Bucket
	err    error
}

// NewLazyBoltBucket returns a bucket resolver scoped to tx.
func NewLazyBoltBucket(tx *bolt.Tx, name []byte) *LazyBoltBucket {
	return &LazyBoltBucket{name: name, tx: tx}
}

func (b *LazyBoltBucket) resolve() {
	b.once.Do(func() {
		bucket, err := b.tx.CreateBucketIfNotExists(b.name)
		b.bucket, b.err = bucket, err
	})
}

// AsBoltBucket resolves and returns the underlying *bolt.Bucket.
func (b *LazyBoltBucket) AsBoltBucket() (*bolt.Bucket, error) {
	b.resolve()
	return b.bucket, b.err
}

// Get resolves the bucket and looks up key.
func (b *LazyBoltBucket) Get(key []byte) ([]byte, error) {
	bucket, err := b.AsBoltBucket()
	if err != nil {
		return nil, err
	}
	return bucket.Get(key), nil
}

// Put resolves the bucket and stores key/value.
func (b *LazyBoltBucket) Put(key, value []byte) error {
	bucket, err := b.AsBoltBucket()
	if err != nil {
		return err
	}
	return bucket.Put(key, value)
}

// Delete resolves the bucket and removes key.
func (b *LazyBoltBucket) Delete(key []byte) error {
	bucket, err := b.AsBoltBucket()
	if err != nil {
		return err
	}
	return bucket.Delete(key)
}

// ForEach resolves the bucket and iterates its entries.
func (b *LazyBoltBucket) ForEach(fn func(k, v []byte) error) error {
	bucket, err := b.AsBoltBucket()
	if err != nil {
		return err
	}
	return bucket.ForEach(fn)
}
