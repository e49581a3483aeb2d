/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package operations

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"github.com/hyperledger/fabric-client-go/pkg/common/logging"
)

// LogSpec maps a module name to its level name
type LogSpec struct {
	Modules map[string]string `json:"modules"`
}

// ErrorResponse is the body sent with a failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// SpecHandler reads (GET) and updates (PUT) the per-module log levels
type SpecHandler struct {
	Logging *logging.Provider
}

func (h *SpecHandler) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodPut:
		var spec LogSpec
		if err := json.NewDecoder(req.Body).Decode(&spec); err != nil {
			h.sendResponse(resp, http.StatusBadRequest, errors.Wrap(err, "invalid log spec"))
			return
		}

		// parse everything first so that a bad entry changes nothing
		levels := make(map[string]logging.Level, len(spec.Modules))
		for module, name := range spec.Modules {
			level, err := logging.ParseLevel(name)
			if err != nil {
				h.sendResponse(resp, http.StatusBadRequest, err)
				return
			}
			levels[module] = level
		}
		for module, level := range levels {
			h.Logging.SetLevel(module, level)
		}
		resp.WriteHeader(http.StatusNoContent)

	case http.MethodGet:
		h.sendResponse(resp, http.StatusOK, &LogSpec{Modules: h.Logging.Levels()})

	default:
		h.sendResponse(resp, http.StatusMethodNotAllowed, errors.Errorf("invalid request method: %s", req.Method))
	}
}

func (h *SpecHandler) sendResponse(resp http.ResponseWriter, code int, payload interface{}) {
	if err, ok := payload.(error); ok {
		payload = &ErrorResponse{Error: err.Error()}
	}
	resp.Header().Set("Content-Type", "application/json")
	resp.WriteHeader(code)
	if err := json.NewEncoder(resp).Encode(payload); err != nil {
		logger.Errorf("Failed to encode log spec response: %s", err)
	}
}
