// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package trigger

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Request is the wire payload of POST /evaluateStrategy.
type Request struct {
	StrategyType        string `json:"strategy_type"`
	EncryptedUpperBound string `json:"encrypted_upper_bound,omitempty"`
	EncryptedLowerBound string `json:"encrypted_lower_bound,omitempty"`
	// ServerKey is the hex evaluation key. ServerKeyHandle refers to a key
	// uploaded earlier instead.
	ServerKey         string `json:"server_key,omitempty"`
	ServerKeyHandle   string `json:"server_key_handle,omitempty"`
	CurrentPriceCents uint64 `json:"current_price_cents"`
	// EncryptedClientKey is the hex private key for a co-located trust
	// boundary. It is ignored when the engine has a remote boundary.
	EncryptedClientKey string `json:"encrypted_client_key,omitempty"`

	// ZKPData is accepted for compatibility and not verified here.
	ZKPData   json.RawMessage `json:"zkp_data,omitempty"`
	PayloadID string          `json:"payload_id,omitempty"`
}

// Response is the reply of POST /evaluateStrategy.
type Response struct {
	IsTriggered bool   `json:"is_triggered"`
	Error       string `json:"error,omitempty"`
	Kind        string `json:"kind,omitempty"`
}

// ParseRequest decodes a JSON request body.
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, newError(InvalidRequest, "parse request", err)
	}
	return &req, nil
}

// Price returns the current price in cents, which must fit the 32-bit
// plaintext domain of the encrypted bounds.
func (r *Request) Price() (uint32, error) {
	if r.CurrentPriceCents > math.MaxUint32 {
		return 0, newError(InvalidRequest, "price", fmt.Errorf("%d cents exceeds %d", r.CurrentPriceCents, uint64(math.MaxUint32)))
	}
	return uint32(r.CurrentPriceCents), nil
}

// checkPresence verifies every field the strategy needs is non-empty
// before anything is decoded.
func (r *Request) checkPresence(strategy StrategyType) error {
	const op = "request"
	if strategy.NeedsUpper() && r.EncryptedUpperBound == "" {
		return newError(MissingOperand, op, errors.New("encrypted_upper_bound required by "+strategy.String()))
	}
	if strategy.NeedsLower() && r.EncryptedLowerBound == "" {
		return newError(MissingOperand, op, errors.New("encrypted_lower_bound required by "+strategy.String()))
	}
	if r.ServerKey == "" && r.ServerKeyHandle == "" {
		return newError(MissingOperand, op, errors.New("server_key or server_key_handle required"))
	}
	return nil
}
