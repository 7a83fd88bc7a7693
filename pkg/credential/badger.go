package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const backendBadger = "badger"

// BadgerStore keeps the credential in a local Badger database, for runners that
// have no Redis but still want the token to survive between invocations.
type BadgerStore struct {
	db    *badger.DB
	owned bool
	now   func() time.Time
}

// OpenBadgerStore opens (or creates) a Badger database at path.
// An empty path opens an in-memory database.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	} else if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create badger directory: %w", err)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	store := NewBadgerStore(db)
	store.owned = true
	return store, nil
}

// NewBadgerStore wraps an already open database. The caller keeps ownership of db.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	if db == nil {
		panic("badger database cannot be nil")
	}
	return &BadgerStore{db: db, now: time.Now}
}

// Get retrieves the stored credential.
func (s *BadgerStore) Get(ctx context.Context) (*Credential, error) {
	var token, expiryStr string

	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		if token, err = readString(txn, KeyToken); err != nil {
			return err
		}
		expiryStr, err = readString(txn, KeyExpiry)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		StoreMisses.WithLabelValues(backendBadger).Inc()
		return nil, ErrCredentialNotFound
	}
	if err != nil {
		StoreErrors.WithLabelValues(backendBadger, "get").Inc()
		return nil, fmt.Errorf("badger get credential: %w", err)
	}

	expiry, err := decodeExpiry(expiryStr)
	if err != nil {
		StoreErrors.WithLabelValues(backendBadger, "get").Inc()
		return nil, err
	}

	StoreHits.WithLabelValues(backendBadger).Inc()
	return &Credential{Token: token, Expiry: expiry}, nil
}

// Set replaces the stored credential. Entries expire with the token.
func (s *BadgerStore) Set(ctx context.Context, cred Credential) error {
	ttl := cred.TTL(s.now())

	err := s.db.Update(func(txn *badger.Txn) error {
		tokenEntry := badger.NewEntry([]byte(KeyToken), []byte(cred.Token))
		expiryEntry := badger.NewEntry([]byte(KeyExpiry), []byte(encodeExpiry(cred.Expiry)))
		if ttl > 0 {
			tokenEntry = tokenEntry.WithTTL(ttl)
			expiryEntry = expiryEntry.WithTTL(ttl)
		}
		if err := txn.SetEntry(tokenEntry); err != nil {
			return err
		}
		return txn.SetEntry(expiryEntry)
	})
	if err != nil {
		StoreErrors.WithLabelValues(backendBadger, "set").Inc()
		return fmt.Errorf("badger set credential: %w", err)
	}

	return nil
}

// Close closes the database if the store opened it.
func (s *BadgerStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func readString(txn *badger.Txn, key string) (string, error) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}
