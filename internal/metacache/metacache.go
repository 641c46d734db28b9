package metacache

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/badger/v4"

	"linkFlowAPI/internal/types/item"
)

// DefaultTTL is how long a resolved URL's metadata stays valid before
// the scraping service is consulted again.
const DefaultTTL = 24 * time.Hour

// Cache stores resolved link metadata on disk, keyed by URL, so the
// external scraping service is only hit once per URL per TTL window.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens (or creates) the cache at dbPath.
func Open(dbPath string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	opts := badger.DefaultOptions(dbPath).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata cache at %s: %w", dbPath, err)
	}
	log.Printf("Metadata cache opened at %s", dbPath)

	return &Cache{db: db, ttl: ttl}, nil
}

func cacheKey(url string) []byte {
	return []byte("meta:" + url)
}

// Get returns the cached metadata for url, or (nil, false) on a miss.
// Cache errors are treated as misses; the cache is best-effort.
func (c *Cache) Get(url string) (*item.LinkMetadata, bool) {
	var meta item.LinkMetadata

	err := c.db.View(func(txn *badger.Txn) error {
		entry, err := txn.Get(cacheKey(url))
		if err != nil {
			return err
		}
		return entry.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if err != nil {
		if err != badger.ErrKeyNotFound {
			log.Printf("Metadata cache read failed for %s: %v", url, err)
		}
		return nil, false
	}

	return &meta, true
}

// Put stores metadata for url with the cache's TTL.
func (c *Cache) Put(url string, meta *item.LinkMetadata) error {
	val, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata for %s: %w", url, err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(cacheKey(url), val).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to cache metadata for %s: %w", url, err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}
