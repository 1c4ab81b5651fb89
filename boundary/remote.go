// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package boundary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/luxfi/trigger/fhe"
	"go.uber.org/zap"
)

// RevealRequest is the body of POST /reveal.
type RevealRequest struct {
	Result string `json:"result"`
}

// RevealResponse is the reply of POST /reveal.
type RevealResponse struct {
	IsTriggered bool   `json:"is_triggered"`
	Error       string `json:"error,omitempty"`
}

// Remote reveals through a boundary Service in another process.
type Remote struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
	maxRetry time.Duration
}

// RemoteOption configures a Remote.
type RemoteOption func(*Remote)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) { r.client = c }
}

// WithRetryTimeout bounds the total time spent retrying transient failures.
func WithRetryTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) { r.maxRetry = d }
}

// NewRemote creates a client for the boundary service at baseURL.
func NewRemote(baseURL string, logger *zap.Logger, opts ...RemoteOption) *Remote {
	r := &Remote{
		endpoint: strings.TrimRight(baseURL, "/") + "/reveal",
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger.Named("boundary"),
		maxRetry: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reveal sends only the encrypted result across the boundary. Transport
// failures and 5xx replies are retried with exponential backoff; refusals
// by the boundary are final.
func (r *Remote) Reveal(ctx context.Context, result *fhe.Integer) (bool, error) {
	encoded, err := fhe.EncodeHex(result)
	if err != nil {
		return false, fmt.Errorf("encode result: %w", err)
	}
	body, err := json.Marshal(RevealRequest{Result: encoded})
	if err != nil {
		return false, err
	}

	var resp RevealResponse
	operation := func() error {
		return r.post(ctx, body, &resp)
	}

	expBackOff := backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(r.maxRetry),
	)
	notify := func(err error, d time.Duration) {
		r.logger.Warn("reveal failed, retrying", zap.Error(err), zap.Duration("backoff", d))
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(expBackOff, ctx), notify); err != nil {
		var refused *refusedError
		if errors.As(err, &refused) {
			return false, err
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp.IsTriggered, nil
}

// refusedError is a boundary reply that must not be retried.
type refusedError struct {
	status int
	msg    string
}

func (e *refusedError) Error() string {
	return fmt.Sprintf("boundary refused (%d): %s", e.status, e.msg)
}

func (r *Remote) post(ctx context.Context, body []byte, out *RevealResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := middleware.GetReqID(ctx); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}

	res, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("boundary status %d", res.StatusCode)
	}

	var reply RevealResponse
	if err := json.Unmarshal(data, &reply); err != nil {
		return backoff.Permanent(fmt.Errorf("decode reply: %w", err))
	}
	if res.StatusCode != http.StatusOK {
		return backoff.Permanent(&refusedError{status: res.StatusCode, msg: reply.Error})
	}
	*out = reply
	return nil
}
