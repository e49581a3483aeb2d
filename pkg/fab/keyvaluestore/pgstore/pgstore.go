/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package pgstore is a KVStore in a PostgreSQL table, for clients sharing enrollments.
package pgstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
)

const (
	createTable = `CREATE TABLE IF NOT EXISTS kvstore (
	key   TEXT PRIMARY KEY,
	value BYTEA NOT NULL
)`
	selectValue = `SELECT value FROM kvstore WHERE key = $1`
	upsertValue = `INSERT INTO kvstore (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	deleteValue = `DELETE FROM kvstore WHERE key = $1`

	opTimeout = 10 * time.Second
)

// Store is a pooled connection to the kvstore table
type Store struct {
	pool *pgxpool.Pool
}

// New connects to dsn and creates the table if needed
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN is empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to postgres failed")
	}
	if _, err := pool.Exec(ctx, createTable); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "creating kvstore table failed")
	}
	return &Store{pool: pool}, nil
}

// Load returns the value stored for key
func (s *Store) Load(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var value []byte
	err := s.pool.QueryRow(ctx, selectValue, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
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
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	_, err := s.pool.Exec(ctx, upsertValue, key, value)
	return errors.Wrapf(err, "storing %q failed", key)
}

// Delete removes key
func (s *Store) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	_, err := s.pool.Exec(ctx, deleteValue, key)
	return errors.Wrapf(err, "deleting %q failed", key)
}

// Close releases the pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
