package coverart

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Cache maps a track key to a cover art URL.
type Cache interface {
	Get(key string) (string, bool, error)
	Put(key, link string) error
	Close() error
}

const keyPrefix = "coverart/"

type BadgerCache struct {
	db *badger.DB
}

// OpenBadgerCache opens (or creates) the cache under dir. An empty dir keeps
// the cache in memory only.
func OpenBadgerCache(dir string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cover art cache: %w", err)
	}
	return &BadgerCache{db: db}, nil
}

func (c *BadgerCache) Get(key string) (string, bool, error) {
	var link []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		link, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(link), true, nil
}

func (c *BadgerCache) Put(key, link string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), []byte(link))
	})
}

func (c *BadgerCache) Close() error {
	return c.db.Close()
}

type MemoryCache struct {
	mu    sync.RWMutex
	links map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{links: make(map[string]string)}
}

func (c *MemoryCache) Get(key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	link, ok := c.links[key]
	return link, ok, nil
}

func (c *MemoryCache) Put(key, link string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.links[key] = link
	return nil
}

func (c *MemoryCache) Close() error { return nil }
