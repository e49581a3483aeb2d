/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocks

//go:generate mockgen -destination mockfab.gen.go -package mocks github.com/hyperledger/fabric-client-go/pkg/common/providers/fab ProposalProcessor,Peer,Orderer,EventHub
