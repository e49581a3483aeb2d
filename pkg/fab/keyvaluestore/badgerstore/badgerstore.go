/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package badgerstore is a KVStore on an embedded badger database.
package badgerstore

import (
	"github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"

	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
)

var logger = logging.NewLogger("fab/keyvaluestore/badger")

// Store keeps each key in a badger database
type Store struct {
	db *badger.DB
}

// New opens (or creates) the database at path. An empty path opens an in-memory database.
func New(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{logger})
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening badger database at %q failed", path)
	}
	return &Store{db: db}, nil
}

// Load returns the value stored for key
func (s *Store) Load(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, core.ErrKeyValueNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading %q failed", key)
	}
	return value, nil
}

// Store sets the value for key
func (s *Store) Store(key string, value []byte) error {
	if key == "" {
		return errors.New("key is empty")
	}
	if value == nil {
		return errors.New("value is nil")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Delete removes key
func (s *Store) Delete(key string) error {
	if key == "" {
		return errors.New("key is empty")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger's own messages to the module logger
type badgerLogger struct {
	l *logging.Logger
}

func (b badgerLogger) Errorf(f string, v ...interface{})   { b.l.Errorf(f, v...) }
func (b badgerLogger) Warningf(f string, v ...interface{}) { b.l.Warnf(f, v...) }
func (b badgerLogger) Infof(f string, v ...interface{})    { b.l.Debugf(f, v...) }
func (b badgerLogger) Debugf(f string, v ...interface{})   { b.l.Debugf(f, v...) }
