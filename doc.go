/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package fabricclient submits transactions to a Hyperledger Fabric channel
// and confirms their commit.
//
// Packages for end developer usage
//
// pkg/fabsdk: Loads the configuration and builds the coordinators, event hubs,
// crypto suite and enrollment store shared by channel clients. It also serves
// the operations endpoint (metrics, health and log levels).
//
// pkg/client/channel: Executes and queries chaincode on one channel. Execute
// endorses a proposal, orders the transaction and waits for its commit event.
//
// pkg/fab/channel: The per-channel coordinator. It fans proposals out to the
// endorsers, aggregates their responses, broadcasts to the orderers and tracks
// every transaction until it commits, is rejected or times out.
//
// pkg/msp: Signing identities and the enrollment store.
//
// Basic workflow
//
//      1) Instantiate a fabsdk instance using a configuration.
//      2) Load a signing identity from the enrollment store.
//      3) Create a channel client for the channel and identity.
//      4) Execute or query chaincode.
//      5) Call fabsdk.Close() to release connections and the event hubs.
//
package fabricclient
