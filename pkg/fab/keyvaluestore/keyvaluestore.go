/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package keyvaluestore holds the built-in KVStore backends and selects one
// from configuration.
package keyvaluestore

import (
	"context"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/sdkerr"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
	"github.com/hyperledger/fabric-client-go/pkg/core/config"
	"github.com/hyperledger/fabric-client-go/pkg/fab/keyvaluestore/badgerstore"
	"github.com/hyperledger/fabric-client-go/pkg/fab/keyvaluestore/pgstore"
)

// Store is a KVStore that may hold resources
type Store interface {
	core.KVStore
	Close() error
}

type nopCloser struct {
	core.KVStore
}

func (nopCloser) Close() error { return nil }

// Open creates the store described by cfg
func Open(ctx context.Context, cfg config.KVStoreConfig) (Store, error) {
	switch cfg.Type {
	case config.KVStoreFile, "":
		s, err := NewFileStore(&FileKeyValueStoreOptions{Path: cfg.Path})
		if err != nil {
			return nil, sdkerr.WrapConfiguration(err, "file store")
		}
		return nopCloser{s}, nil
	case config.KVStoreMemory:
		return nopCloser{NewMemoryStore()}, nil
	case config.KVStoreBadger:
		s, err := badgerstore.New(cfg.Path)
		if err != nil {
			return nil, sdkerr.WrapConfiguration(err, "badger store")
		}
		return s, nil
	case config.KVStorePostgres:
		s, err := pgstore.New(ctx, cfg.DSN)
		if err != nil {
			return nil, sdkerr.WrapConfiguration(err, "postgres store")
		}
		return s, nil
	default:
		return nil, sdkerr.Configuration("unsupported key value store type %q", cfg.Type)
	}
}
