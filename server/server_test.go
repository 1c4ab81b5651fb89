// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/luxfi/trigger/fhe"
	"github.com/luxfi/trigger/internal/queue"
	"github.com/luxfi/trigger/internal/storage"
	"github.com/luxfi/trigger/internal/worker"
	"github.com/luxfi/trigger/trigger"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type engineFunc func(context.Context, *trigger.Request) (bool, error)

func (f engineFunc) Evaluate(ctx context.Context, req *trigger.Request) (bool, error) {
	return f(ctx, req)
}

// fakeEngine parses the strategy like the real engine and otherwise
// answers from the price: 1 fails with Overloaded, 2 with Unavailable,
// 3 with MissingOperand, even prices trigger.
var fakeEngine = engineFunc(func(_ context.Context, req *trigger.Request) (bool, error) {
	if _, err := trigger.ParseStrategyType(req.StrategyType); err != nil {
		return false, err
	}
	switch req.CurrentPriceCents {
	case 1:
		return false, trigger.ErrOverloaded
	case 2:
		return false, trigger.ErrUnavailable
	case 3:
		return false, trigger.ErrMissingOperand
	}
	return req.CurrentPriceCents%2 == 0, nil
})

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	cfg := Config{BodyLimit: 1 << 10, RequestTimeout: 5 * time.Second, CORSOrigins: []string{"*"}}
	ts := httptest.NewServer(New(cfg, fakeEngine, zap.NewNop(), opts...).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, contentType string, body []byte) (*http.Response, trigger.Response) {
	t.Helper()
	resp, err := http.Post(url, contentType, bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out trigger.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestEvaluateStrategy(t *testing.T) {
	ts := newTestServer(t)

	testCases := []struct {
		name   string
		body   string
		status int
		want   trigger.Response
	}{
		{"triggered", `{"strategy_type":"LIMIT_BUY_DIP","current_price_cents":100}`, http.StatusOK, trigger.Response{IsTriggered: true}},
		{"not triggered", `{"strategy_type":"LIMIT_BUY_DIP","current_price_cents":101}`, http.StatusOK, trigger.Response{}},
		{"unknown strategy", `{"strategy_type":"TRAILING_STOP"}`, http.StatusBadRequest, trigger.Response{Kind: "UnknownStrategy"}},
		{"bad json", `{"strategy_type":`, http.StatusBadRequest, trigger.Response{Kind: "InvalidRequest"}},
		{"overloaded", `{"strategy_type":"BRACKET_ORDER_LONG","current_price_cents":1}`, http.StatusServiceUnavailable, trigger.Response{Kind: "Overloaded"}},
		{"unavailable", `{"strategy_type":"BRACKET_ORDER_LONG","current_price_cents":2}`, http.StatusBadGateway, trigger.Response{Kind: "Unavailable"}},
		{"missing operand", `{"strategy_type":"BRACKET_ORDER_LONG","current_price_cents":3}`, http.StatusInternalServerError, trigger.Response{Kind: "MissingOperand"}},
		{"too large", `{"strategy_type":"LIMIT_BUY_DIP","server_key":"` + strings.Repeat("ab", 1<<10) + `"}`, http.StatusBadRequest, trigger.Response{Kind: "InvalidRequest"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, got := post(t, ts.URL+"/evaluateStrategy", "application/json", []byte(tc.body))
			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			require.Equal(t, tc.want.IsTriggered, got.IsTriggered)
			require.Equal(t, tc.want.Kind, got.Kind)
			if tc.status != http.StatusOK {
				require.NotEmpty(t, got.Error)
			}
			if tc.status == http.StatusServiceUnavailable {
				require.Equal(t, "1", resp.Header.Get("Retry-After"))
			}
		})
	}
}

func TestHealthAndCORS(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/evaluateStrategy", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example")
	pre, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	pre.Body.Close()
	require.Equal(t, http.StatusNoContent, pre.StatusCode)

	// Job and key routes are off unless configured.
	off, err := http.Get(ts.URL + "/jobs/x")
	require.NoError(t, err)
	off.Body.Close()
	require.Equal(t, http.StatusNotFound, off.StatusCode)
}

func TestCORSRestrictedOrigins(t *testing.T) {
	h := cors([]string{"https://app.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for origin, want := range map[string]string{
		"https://app.example":  "https://app.example",
		"https://evil.example": "",
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", origin)
		h.ServeHTTP(rec, req)
		require.Equal(t, want, rec.Header().Get("Access-Control-Allow-Origin"), origin)
	}
}

func TestJobs(t *testing.T) {
	q := queue.NewMemoryQueue(4)
	blobs := storage.NewMemoryStorage(1)
	ts := newTestServer(t, WithJobs(q, blobs))

	pool := worker.NewPool(1, q, blobs, fakeEngine, zap.NewNop())
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop(time.Second)

	resp, err := http.Post(ts.URL+"/jobs", "application/json",
		strings.NewReader(`{"strategy_type":"LIMIT_SELL_RALLY","current_price_cents":200}`))
	require.NoError(t, err)
	var job JobResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, "pending", job.Status)

	require.Eventually(t, func() bool {
		resp, err := http.Get(ts.URL + "/jobs/" + job.ID)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var got JobResponse
		if json.NewDecoder(resp.Body).Decode(&got) != nil {
			return false
		}
		return got.Status == "completed" && got.IsTriggered != nil && *got.IsTriggered
	}, 5*time.Second, 10*time.Millisecond)

	missing, err := http.Get(ts.URL + "/jobs/nope")
	require.NoError(t, err)
	missing.Body.Close()
	require.Equal(t, http.StatusNotFound, missing.StatusCode)

	bad, out := post(t, ts.URL+"/jobs", "application/json", []byte(`{"strategy_type":"NOPE"}`))
	require.Equal(t, http.StatusBadRequest, bad.StatusCode)
	require.Equal(t, "UnknownStrategy", out.Kind)
}

func TestUploadKeyRejectsMalformed(t *testing.T) {
	ts := newTestServer(t, WithKeyStore(storage.NewMemoryStorage(1)))

	resp, out := post(t, ts.URL+"/keys", "application/octet-stream", []byte("not a key"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "MalformedCiphertext", out.Kind)

	resp, out = post(t, ts.URL+"/keys", "text/plain", []byte("zz"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "MalformedCiphertext", out.Kind)
}

func TestUploadKey(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping key generation in short mode")
	}
	params, err := fhe.ParametersByName("PN10QP27")
	require.NoError(t, err)
	_, ek := fhe.NewKeyGenerator(params).GenCeremony()
	hexKey, err := fhe.EncodeHex(ek)
	require.NoError(t, err)

	keys := storage.NewMemoryStorage(1 << 10)
	cfg := Config{BodyLimit: 1 << 30}
	ts := httptest.NewServer(New(cfg, fakeEngine, zap.NewNop(), WithKeyStore(keys)).Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/keys", "text/plain", strings.NewReader(hexKey))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out KeyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, ek.Ceremony.String(), out.Ceremony)
	require.Equal(t, "PN10QP27", out.Params)

	exists, err := keys.Exists(context.Background(), storage.Handle(out.Handle))
	require.NoError(t, err)
	require.True(t, exists)
}
