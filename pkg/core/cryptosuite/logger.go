/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cryptosuite

import "github.com/hyperledger/fabric-client-go/pkg/common/logging"

var logger = logging.NewLogger("core/cryptosuite")
