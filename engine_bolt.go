package typedstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.etcd.io/bbolt"
)

const checksumSize = 8

// BoltEngine is an Engine backed by a single bucket of a Bolt database.
//
// Each stored value carries a trailing xxhash64 of key and value, so a
// record that was damaged on disk (or written by something else) is
// reported as ErrCorruptedRecord instead of being handed to a codec.
type BoltEngine struct {
	bdb    *bbolt.DB
	bucket []byte
	logger *slog.Logger
	closed atomic.Bool

	ReadCount  atomic.Uint64
	WriteCount atomic.Uint64
}

var _ Engine = (*BoltEngine)(nil)

func OpenBolt(path string, opt Options) (*BoltEngine, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.Timeout != 0 {
		bopt.Timeout = opt.Timeout
	}
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.InitialMmapSize = 1024 * 1024 * 1024
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("typedstore: %w", err)
	}

	e := &BoltEngine{
		bdb:    bdb,
		bucket: []byte(opt.bucket()),
		logger: opt.logger(),
	}
	err = bdb.Update(func(btx *bbolt.Tx) error {
		_, err := btx.CreateBucketIfNotExists(e.bucket)
		return err
	})
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("typedstore: creating bucket %q: %w", e.bucket, err)
	}
	return e, nil
}

func (e *BoltEngine) Bolt() *bbolt.DB {
	return e.bdb
}

func (e *BoltEngine) Get(key []byte) ([]byte, error) {
	if e.closed.Load() {
		return nil, engineErrf("get", key, ErrClosed)
	}
	var result []byte
	err := e.bdb.View(func(btx *bbolt.Tx) error {
		raw := e.bucketIn(btx).Get(key)
		if raw == nil {
			return nil
		}
		v, err := unsealValue(key, raw)
		if err != nil {
			return err
		}
		// raw is only valid for the life of the transaction
		result = append(make([]byte, 0, len(v)), v...)
		return nil
	})
	if err != nil {
		return nil, engineErrf("get", key, mapBoltErr(err))
	}
	e.ReadCount.Add(1)
	return result, nil
}

func (e *BoltEngine) Contains(key []byte) (bool, error) {
	if e.closed.Load() {
		return false, engineErrf("contains", key, ErrClosed)
	}
	var found bool
	err := e.bdb.View(func(btx *bbolt.Tx) error {
		found = e.bucketIn(btx).Get(key) != nil
		return nil
	})
	if err != nil {
		return false, engineErrf("contains", key, mapBoltErr(err))
	}
	return found, nil
}

func (e *BoltEngine) Put(key, value []byte) error {
	if e.closed.Load() {
		return engineErrf("put", key, ErrClosed)
	}
	sealed := sealValue(key, value)
	err := e.bdb.Batch(func(btx *bbolt.Tx) error {
		return e.bucketIn(btx).Put(key, sealed)
	})
	if err != nil {
		e.logger.Warn("typedstore: bolt put failed", hexAttr("key", key), "err", err)
		return engineErrf("put", key, mapBoltErr(err))
	}
	e.WriteCount.Add(1)
	return nil
}

func (e *BoltEngine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	return e.bdb.Close()
}

func (e *BoltEngine) bucketIn(btx *bbolt.Tx) *bbolt.Bucket {
	return nonNil(btx.Bucket(e.bucket))
}

func mapBoltErr(err error) error {
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}

func recordChecksum(key, value []byte) uint64 {
	d := xxhash.New()
	d.Write(key)
	d.Write(value)
	return d.Sum64()
}

func sealValue(key, value []byte) []byte {
	buf := make([]byte, 0, len(value)+checksumSize)
	buf = appendRaw(buf, value)
	return binary.LittleEndian.AppendUint64(buf, recordChecksum(key, value))
}

// unsealValue verifies the checksum trailer. Errors copy raw, which may point
// into Bolt's mmap.
func unsealValue(key, raw []byte) ([]byte, error) {
	n := len(raw)
	if n < checksumSize {
		return nil, dataErrf(slices.Clone(raw), 0, nil, "record shorter than its checksum")
	}
	v := raw[:n-checksumSize]
	stored := binary.LittleEndian.Uint64(raw[n-checksumSize:])
	if actual := recordChecksum(key, v); actual != stored {
		return nil, dataErrf(slices.Clone(raw), n-checksumSize, nil, "checksum mismatch: stored %016x, computed %016x", stored, actual)
	}
	return v, nil
}
