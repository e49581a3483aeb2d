/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package status describes why a remote or client-side operation failed.
// Statuses are grouped by the component that produced them; the code within a
// group is the one that component returned (a gRPC code, a Fabric common.Status,
// a transaction validation code or one of the client codes in this package).
package status

import (
	"fmt"

	pb "github.com/hyperledger/fabric-protos-go-apiv2/peer"
	"github.com/pkg/errors"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/hyperledger/fabric-client-go/pkg/common/errors/multi"
)

// Status carries metadata about an unsuccessful operation
type Status struct {
	// Group status group
	Group Group
	// Code status code
	Code int32
	// Message status message
	Message string
	// Details any additional status details
	Details []interface{}
}

// Group identifies the component a status came from
type Group int32

const (
	// UnknownStatus unknown status group
	UnknownStatus Group = iota

	// GRPCTransportStatus is the status of a failed gRPC call
	GRPCTransportStatus

	// EndorserServerStatus status returned by the endorser server
	EndorserServerStatus
	// EventServerStatus status returned by the event service (a TxValidationCode)
	EventServerStatus
	// OrdererServerStatus status returned by the ordering service
	OrdererServerStatus

	// EndorserClientStatus status inferred by the client while validating endorsements
	EndorserClientStatus
	// OrdererClientStatus status inferred by the client while talking to an orderer
	OrdererClientStatus
	// ClientStatus is a generic client status
	ClientStatus

	// ChaincodeStatus status codes returned by chaincode
	ChaincodeStatus
)

// GroupName maps the groups in this package to human-readable strings
var GroupName = map[int32]string{
	0: "Unknown",
	1: "gRPC Transport Status",
	2: "Endorser Server Status",
	3: "Event Server Status",
	4: "Orderer Server Status",
	5: "Endorser Client Status",
	6: "Orderer Client Status",
	7: "Client Status",
	8: "Chaincode status",
}

func (g Group) String() string {
	if s, ok := GroupName[int32(g)]; ok {
		return s
	}
	return GroupName[int32(UnknownStatus)]
}

// FromError returns the Status carried by err, looking through wrapped errors
// and multi.Errors. It returns nil, false when err carries no status.
func FromError(err error) (s *Status, ok bool) {
	if err == nil {
		return &Status{Code: int32(OK)}, true
	}
	if errors.As(err, &s) {
		return s, true
	}
	if m, ok := errors.Cause(err).(multi.Errors); ok {
		var details []interface{}
		for _, err := range m {
			details = append(details, err)
		}
		return New(ClientStatus, MultipleErrors.ToInt32(), m.Error(), details), true
	}
	return nil, false
}

func (s *Status) Error() string {
	return fmt.Sprintf("%s Code: (%d) %s. Description: %s", s.Group.String(), s.Code, s.codeString(), s.Message)
}

func (s *Status) codeString() string {
	switch s.Group {
	case GRPCTransportStatus:
		return ToGRPCStatusCode(s.Code).String()
	case EndorserServerStatus, OrdererServerStatus:
		return ToFabricCommonStatusCode(s.Code).String()
	case EventServerStatus:
		return ToTransactionValidationCode(s.Code).String()
	case EndorserClientStatus, OrdererClientStatus, ClientStatus:
		return ToSDKStatusCode(s.Code).String()
	default:
		return Unknown.String()
	}
}

// New returns a Status with the given parameters
func New(group Group, code int32, msg string, details []interface{}) *Status {
	return &Status{Group: group, Code: code, Message: msg, Details: details}
}

// NewFromProposalResponse creates a status from an endorser's response
func NewFromProposalResponse(res *pb.ProposalResponse, endorser string) *Status {
	if res == nil || res.GetResponse() == nil {
		return nil
	}
	details := []interface{}{endorser, res.GetResponse().GetPayload()}

	return New(EndorserServerStatus, res.GetResponse().GetStatus(), res.GetResponse().GetMessage(), details)
}

// NewFromGRPCStatus new Status from gRPC status response
func NewFromGRPCStatus(s *grpcstatus.Status) *Status {
	if s == nil {
		return nil
	}
	details := make([]interface{}, len(s.Proto().GetDetails()))
	for i, detail := range s.Proto().GetDetails() {
		details[i] = detail
	}

	return &Status{Group: GRPCTransportStatus, Code: s.Proto().GetCode(),
		Message: s.Message(), Details: details}
}

// NewFromTxValidationCode returns the status of a transaction the committer rejected
func NewFromTxValidationCode(txID string, code pb.TxValidationCode) *Status {
	return New(EventServerStatus, int32(code), fmt.Sprintf("transaction [%s] was not valid", txID), []interface{}{txID})
}
