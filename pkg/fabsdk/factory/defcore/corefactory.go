/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package defcore holds the default core provider factory of the SDK.
package defcore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
	"github.com/hyperledger/fabric-client-go/pkg/core/config"
	"github.com/hyperledger/fabric-client-go/pkg/core/cryptosuite"
	"github.com/hyperledger/fabric-client-go/pkg/core/cryptosuite/factory"
	"github.com/hyperledger/fabric-client-go/pkg/fab/keyvaluestore"
)

// ProviderFactory represents the default SDK provider factory.
type ProviderFactory struct {
	registry *cryptosuite.Registry
}

// NewProviderFactory returns the default SDK provider factory, selecting crypto
// suites from the built-in SW and PKCS11 implementations.
func NewProviderFactory() *ProviderFactory {
	return &ProviderFactory{registry: factory.DefaultRegistry()}
}

// CreateLoggingProvider returns a logging provider configured from cfg
func (f *ProviderFactory) CreateLoggingProvider(cfg config.LoggingConfig) (*logging.Provider, error) {
	p, err := logging.NewProvider(logging.Options{
		Level:   cfg.Level,
		Format:  cfg.Format,
		Routes:  cfg.Routes,
		Modules: cfg.Modules,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "logging provider creation failed")
	}
	return p, nil
}

// CreateCryptoSuite returns the crypto suite selected by cfg
func (f *ProviderFactory) CreateCryptoSuite(cfg config.CryptoConfig) (core.CryptoSuite, error) {
	return f.registry.New(cryptosuite.Config{
		Provider:   cfg.Provider,
		Algorithm:  cfg.Algorithm,
		KeySize:    cfg.KeySize,
		HashFamily: cfg.HashFamily,
		Ephemeral:  cfg.Ephemeral,
		Library:    cfg.Library,
		Pin:        cfg.Pin,
		Label:      cfg.Label,
		SoftVerify: cfg.SoftVerify,
	})
}

// CreateKVStore opens the key value store backend selected by cfg
func (f *ProviderFactory) CreateKVStore(ctx context.Context, cfg config.KVStoreConfig) (keyvaluestore.Store, error) {
	return keyvaluestore.Open(ctx, cfg)
}
