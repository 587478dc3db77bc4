// Package eventdb keeps the counter change history in a LevelDB database so
// that a feed does not rescan the chain from its start block on every run.
package eventdb

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/tos-network/starkcounter"
	"github.com/tos-network/starkcounter/counter"
)

const (
	// minCache is the minimum amount of memory in megabytes to allocate to
	// leveldb read and write caching, split half and half.
	minCache = 16

	// minHandles is the minimum number of files handles to allocate to the
	// open database files.
	minHandles = 16
)

// Database schema:
//
//	"e" + contract + index -> JSON encoded event, index counting from 0
//	"n" + contract         -> number of stored events
//	"b" + contract         -> block the next sync starts from
var (
	eventPrefix = []byte("e")
	countPrefix = []byte("n")
	nextPrefix  = []byte("b")
)

// Database is a persistent counter.EventStore.
type Database struct {
	fn string
	db *leveldb.DB

	mu  sync.Mutex // serializes Append
	log log.Logger
}

var _ counter.EventStore = (*Database)(nil)

// New opens the database at file, creating it if needed. cache is given in
// megabytes.
func New(file string, cache int, handles int) (*Database, error) {
	if cache < minCache {
		cache = minCache
	}
	if handles < minHandles {
		handles = minHandles
	}
	logger := log.New("database", file)
	logger.Info("Allocated cache and file handles", "cache", cache, "handles", handles)

	options := &opt.Options{
		OpenFilesCacheCapacity: handles,
		BlockCacheCapacity:     cache / 2 * opt.MiB,
		WriteBuffer:            cache / 4 * opt.MiB,
	}
	db, err := leveldb.OpenFile(file, options)
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}
	return &Database{fn: file, db: db, log: logger}, nil
}

// NewMemory returns a database that lives in memory only.
func NewMemory() *Database {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		panic(err)
	}
	return &Database{fn: "memory", db: db, log: log.New("database", "memory")}
}

// Close releases the database.
func (d *Database) Close() error {
	return d.db.Close()
}

func contractKey(prefix []byte, contract *starkcounter.Felt) []byte {
	addr := contract.Uint256().Bytes32()
	return append(append([]byte{}, prefix...), addr[:]...)
}

func eventKey(contract *starkcounter.Felt, index uint64) []byte {
	key := contractKey(eventPrefix, contract)
	return binary.BigEndian.AppendUint64(key, index)
}

func (d *Database) readUint64(key []byte) (uint64, error) {
	blob, err := d.db.Get(key, nil)
	switch {
	case err == leveldb.ErrNotFound:
		return 0, nil
	case err != nil:
		return 0, err
	case len(blob) != 8:
		return 0, fmt.Errorf("eventdb: corrupt counter %x", key)
	}
	return binary.BigEndian.Uint64(blob), nil
}

// Load implements counter.EventStore.
func (d *Database) Load(contract *starkcounter.Felt) ([]*counter.CounterChanged, uint64, error) {
	next, err := d.readUint64(contractKey(nextPrefix, contract))
	if err != nil {
		return nil, 0, err
	}
	it := d.db.NewIterator(util.BytesPrefix(contractKey(eventPrefix, contract)), nil)
	defer it.Release()

	var events []*counter.CounterChanged
	for it.Next() {
		ev := new(counter.CounterChanged)
		if err := json.Unmarshal(it.Value(), ev); err != nil {
			return nil, 0, fmt.Errorf("eventdb: bad event %x: %w", it.Key(), err)
		}
		events = append(events, ev)
	}
	if err := it.Error(); err != nil {
		return nil, 0, err
	}
	return events, next, nil
}

// Append implements counter.EventStore.
func (d *Database) Append(contract *starkcounter.Felt, events []*counter.CounterChanged, next uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	countKey := contractKey(countPrefix, contract)
	count, err := d.readUint64(countKey)
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	for _, ev := range events {
		blob, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		batch.Put(eventKey(contract, count), blob)
		count++
	}
	batch.Put(countKey, binary.BigEndian.AppendUint64(nil, count))
	batch.Put(contractKey(nextPrefix, contract), binary.BigEndian.AppendUint64(nil, next))
	if err := d.db.Write(batch, nil); err != nil {
		return err
	}
	if len(events) > 0 {
		d.log.Debug("Stored counter events", "contract", contract, "new", len(events), "total", count, "next", next)
	}
	return nil
}
