/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package api declares the extension points of the SDK.
package api

import (
	"context"

	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
	"github.com/hyperledger/fabric-client-go/pkg/common/providers/core"
	"github.com/hyperledger/fabric-client-go/pkg/core/config"
	"github.com/hyperledger/fabric-client-go/pkg/fab/keyvaluestore"
)

// CoreProviderFactory allows overriding of primitives and the fabric core object provider
type CoreProviderFactory interface {
	CreateLoggingProvider(cfg config.LoggingConfig) (*logging.Provider, error)
	CreateCryptoSuite(cfg config.CryptoConfig) (core.CryptoSuite, error)
	CreateKVStore(ctx context.Context, cfg config.KVStoreConfig) (keyvaluestore.Store, error)
}
