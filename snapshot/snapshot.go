package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"

	"github.com/tsawler/pdfstore/core"
	"github.com/tsawler/pdfstore/store"
)

// formatVersion is bumped whenever the layout below changes.
const formatVersion = 1

var (
	objectsBucket = []byte("objects")
	metaBucket    = []byte("meta")

	keyVersion    = []byte("version")
	keyTrailer    = []byte("trailer")
	keyTrailerRef = []byte("trailer_ref")
	keyFree       = []byte("free")
)

var (
	// ErrNoSnapshot is returned by Load when the file does not exist or
	// holds no snapshot.
	ErrNoSnapshot = errors.New("snapshot: no snapshot")

	// ErrFormat is returned by Load for snapshots written by an
	// incompatible version.
	ErrFormat = errors.New("snapshot: unsupported format")
)

type freeRef struct {
	Num uint32 `msgpack:"n"`
	Gen uint16 `msgpack:"g"`
}

func boltOptions(readOnly bool) *bbolt.Options {
	opt := *bbolt.DefaultOptions
	opt.Timeout = 10 * time.Second
	opt.ReadOnly = readOnly
	return &opt
}

// Save writes the owned objects of s, its free list and the trailer to a
// Bolt database at path, replacing any snapshot already there. Borrowed
// entries belong to another store and are not saved.
func Save(path string, s *store.Store, trailer *store.Object) error {
	db, err := bbolt.Open(path, 0666, boltOptions(false))
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{objectsBucket, metaBucket} {
			if err := tx.DeleteBucket(name); err != nil && err != bbolt.ErrBucketNotFound {
				return err
			}
		}
		objects, err := tx.CreateBucket(objectsBucket)
		if err != nil {
			return err
		}
		meta, err := tx.CreateBucket(metaBucket)
		if err != nil {
			return err
		}

		for obj := range s.All() {
			if obj.Store() != s {
				continue
			}
			data, err := encodeValue(obj.Value())
			if err != nil {
				return fmt.Errorf("object %v: %w", obj.Reference(), err)
			}
			if err := objects.Put(refKey(obj.Reference()), data); err != nil {
				return err
			}
		}

		if err := putMeta(meta, keyVersion, formatVersion); err != nil {
			return err
		}
		var free []freeRef
		for _, ref := range s.FreeObjects() {
			free = append(free, freeRef{Num: ref.Number, Gen: ref.Generation})
		}
		if err := putMeta(meta, keyFree, free); err != nil {
			return err
		}

		if trailer == nil {
			return nil
		}
		if ref := trailer.Reference(); !ref.IsZero() && s.GetObject(ref) == trailer {
			return meta.Put(keyTrailerRef, refKey(ref))
		}
		data, err := encodeValue(trailer.Value())
		if err != nil {
			return fmt.Errorf("trailer: %w", err)
		}
		return meta.Put(keyTrailer, data)
	})
}

func putMeta(b *bbolt.Bucket, key []byte, v any) error {
	data, err := marshal(v)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

// Load reads a snapshot written by Save into a new store created with opts.
// The trailer is nil if none was saved.
func Load(path string, opts ...store.Option) (*store.Store, *store.Object, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%s: %w", path, ErrNoSnapshot)
	}
	db, err := bbolt.Open(path, 0666, boltOptions(true))
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot: %w", err)
	}
	defer db.Close()

	s := store.New(opts...)
	var trailer *store.Object
	err = db.View(func(tx *bbolt.Tx) error {
		objects, meta := tx.Bucket(objectsBucket), tx.Bucket(metaBucket)
		if objects == nil || meta == nil {
			return fmt.Errorf("%s: %w", path, ErrNoSnapshot)
		}

		var version int
		if err := msgpack.Unmarshal(meta.Get(keyVersion), &version); err != nil || version != formatVersion {
			return fmt.Errorf("%w: version %d", ErrFormat, version)
		}

		// Keys sort as references, so the store is built in order.
		err := objects.ForEach(func(k, v []byte) error {
			ref, err := keyRef(k)
			if err != nil {
				return err
			}
			value, err := decodeValue(v)
			if err != nil {
				return fmt.Errorf("object %v: %w", ref, err)
			}
			s.PushBack(store.NewObject(ref, value))
			return nil
		})
		if err != nil {
			return err
		}

		var free []freeRef
		if data := meta.Get(keyFree); data != nil {
			if err := msgpack.Unmarshal(data, &free); err != nil {
				return fmt.Errorf("free list: %w", err)
			}
		}
		for _, f := range free {
			s.AddFreeObject(core.Ref(f.Num, f.Gen))
		}

		if key := meta.Get(keyTrailerRef); key != nil {
			ref, err := keyRef(key)
			if err != nil {
				return err
			}
			trailer = s.GetObject(ref)
		} else if data := meta.Get(keyTrailer); data != nil {
			value, err := decodeValue(data)
			if err != nil {
				return fmt.Errorf("trailer: %w", err)
			}
			trailer = store.NewObject(core.Reference{}, value)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return s, trailer, nil
}
