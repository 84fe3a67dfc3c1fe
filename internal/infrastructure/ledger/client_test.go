package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rpcStub serves scripted JSON-RPC responses in order
type rpcStub struct {
	t         *testing.T
	responses []func(w http.ResponseWriter, req rpcRequest)
	calls     int
}

func (s *rpcStub) handler(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	require.NoError(s.t, json.NewDecoder(r.Body).Decode(&req))

	require.Less(s.t, s.calls, len(s.responses), "unexpected rpc call %d (%s)", s.calls, req.Method)
	s.responses[s.calls](w, req)
	s.calls++
}

func okResult(result interface{}) func(w http.ResponseWriter, req rpcRequest) {
	return func(w http.ResponseWriter, req rpcRequest) {
		raw, _ := json.Marshal(result)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", Result: raw, ID: req.ID})
	}
}

func errResult(code int, message string) func(w http.ResponseWriter, req rpcRequest) {
	return func(w http.ResponseWriter, req rpcRequest) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: code, Message: message},
			ID:      req.ID,
		})
	}
}

func serverError() func(w http.ResponseWriter, req rpcRequest) {
	return func(w http.ResponseWriter, req rpcRequest) {
		w.WriteHeader(http.StatusBadGateway)
	}
}

func newTestClient(t *testing.T, stub *rpcStub, maxAttempts int) Client {
	stub.t = t
	srv := httptest.NewServer(http.HandlerFunc(stub.handler))
	t.Cleanup(srv.Close)

	return NewClient(Config{
		RPCURL:       srv.URL,
		MaxAttempts:  maxAttempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	})
}

func TestSubmit(t *testing.T) {
	stub := &rpcStub{responses: []func(http.ResponseWriter, rpcRequest){
		okResult("0xdeadbeef"),
	}}
	client := newTestClient(t, stub, 3)

	txHash, err := client.Submit(context.Background(), OpPurchaseBook, "0xbuyer", int64(7), "10.00")
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", txHash)
	assert.Equal(t, 1, stub.calls)
}

func TestSubmitRetriesTransientFailures(t *testing.T) {
	stub := &rpcStub{responses: []func(http.ResponseWriter, rpcRequest){
		serverError(),
		serverError(),
		okResult("0xeventually"),
	}}
	client := newTestClient(t, stub, 5)

	txHash, err := client.Submit(context.Background(), OpAddBook, "0xauthor", "title")
	require.NoError(t, err)
	assert.Equal(t, "0xeventually", txHash)
	assert.Equal(t, 3, stub.calls)
}

func TestSubmitExhaustsRetryBudget(t *testing.T) {
	stub := &rpcStub{responses: []func(http.ResponseWriter, rpcRequest){
		serverError(),
		serverError(),
		serverError(),
	}}
	client := newTestClient(t, stub, 3)

	_, err := client.Submit(context.Background(), OpAddBook, "0xauthor", "title")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, stub.calls)
}

func TestSubmitRejectionIsTerminal(t *testing.T) {
	stub := &rpcStub{responses: []func(http.ResponseWriter, rpcRequest){
		errResult(rpcCodeExecutionFailed, "execution reverted"),
	}}
	client := newTestClient(t, stub, 5)

	_, err := client.Submit(context.Background(), OpPurchaseBook, "0xbuyer", int64(7))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRejected)
	// Rejections are never retried
	assert.Equal(t, 1, stub.calls)
}

func TestGetReceipt(t *testing.T) {
	stub := &rpcStub{responses: []func(http.ResponseWriter, rpcRequest){
		okResult(Receipt{Included: true, Success: true, BlockHeight: 42}),
	}}
	client := newTestClient(t, stub, 3)

	receipt, err := client.GetReceipt(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", receipt.TxHash)
	assert.True(t, receipt.Included)
	assert.True(t, receipt.Success)
	assert.Equal(t, int64(42), receipt.BlockHeight)
}

func TestGetReceiptUnknownTx(t *testing.T) {
	stub := &rpcStub{responses: []func(http.ResponseWriter, rpcRequest){
		errResult(rpcCodeNotFound, "unknown transaction"),
	}}
	client := newTestClient(t, stub, 3)

	_, err := client.GetReceipt(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEvents(t *testing.T) {
	stub := &rpcStub{responses: []func(http.ResponseWriter, rpcRequest){
		okResult([]Event{
			{Name: EventBookPurchased, TxHash: "0x1", BlockHeight: 3, LedgerID: 7},
			{Name: EventBookPurchased, TxHash: "0x2", BlockHeight: 4, LedgerID: 7},
		}),
	}}
	client := newTestClient(t, stub, 3)

	events, err := client.Events(context.Background(), 1, 10, []string{EventBookPurchased})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "0x1", events[0].TxHash)
	assert.Equal(t, int64(4), events[1].BlockHeight)
}

func TestBlockHeight(t *testing.T) {
	stub := &rpcStub{responses: []func(http.ResponseWriter, rpcRequest){
		okResult(int64(1234)),
	}}
	client := newTestClient(t, stub, 3)

	height, err := client.BlockHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1234), height)
}

func TestConcurrentRequestsGetDistinctIDs(t *testing.T) {
	var mu sync.Mutex
	seen := map[int64]int{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		mu.Lock()
		seen[req.ID]++
		mu.Unlock()

		raw, _ := json.Marshal(int64(99))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rpcResponse{JSONRPC: "2.0", Result: raw, ID: req.ID})
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{RPCURL: srv.URL, MaxAttempts: 1})

	// One client is shared by HTTP handlers and job workers
	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			height, err := client.BlockHeight(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, int64(99), height)
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers)
	for id, count := range seen {
		assert.Equal(t, 1, count, "request id %d reused", id)
	}
}

func TestContextCancelStopsRetries(t *testing.T) {
	stub := &rpcStub{responses: []func(http.ResponseWriter, rpcRequest){
		serverError(),
		serverError(),
		serverError(),
		serverError(),
		serverError(),
	}}
	client := newTestClient(t, stub, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Submit(ctx, OpAddBook, "0xauthor", "title")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, stub.calls, 5)
}
