package store

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/despensaapp/despensa/internal/receipt"
)

const consultPrefix = "consult:"

// SetConsult caches the extraction result for a receipt, keyed by its
// access key. Entries expire so corrected portal data eventually wins.
func (s *Store) SetConsult(accessKey string, products []receipt.Product, ttl time.Duration) error {
	value, err := json.Marshal(products)
	if err != nil {
		return err
	}

	return s.badger.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(consultPrefix+accessKey), value).WithTTL(ttl)
		return txn.SetEntry(e)
	})
}

// GetConsult returns a cached extraction result, if present and fresh.
func (s *Store) GetConsult(accessKey string) ([]receipt.Product, bool, error) {
	var value []byte
	err := s.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(consultPrefix + accessKey))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var products []receipt.Product
	if err := json.Unmarshal(value, &products); err != nil {
		return nil, false, err
	}
	return products, true, nil
}

// DeleteConsult drops one cached consultation.
func (s *Store) DeleteConsult(accessKey string) error {
	return s.badger.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(consultPrefix + accessKey))
	})
}
