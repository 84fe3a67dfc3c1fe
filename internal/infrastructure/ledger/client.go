package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"

	"bookchain-backend/pkg/logger"
)

// =====================================================
// LEDGER CLIENT INTERFACE
// =====================================================
// The one surface the settlement engine has onto the chain. Submission and
// receipt fetch are slow network calls; callers must never hold local locks
// across them.
type Client interface {
	// Submit sends a signed operation and returns the transaction hash
	Submit(ctx context.Context, op string, signer string, params ...interface{}) (string, error)

	// GetReceipt fetches the inclusion result for a transaction.
	// Included=false means not yet mined (not an error).
	GetReceipt(ctx context.Context, txHash string) (*Receipt, error)

	// Call performs a read-only contract call, decoding into out
	Call(ctx context.Context, op string, out interface{}, params ...interface{}) error

	// BlockHeight returns the current chain head
	BlockHeight(ctx context.Context) (int64, error)

	// Events returns finalized events in [fromBlock, toBlock], ascending
	Events(ctx context.Context, fromBlock, toBlock int64, names []string) ([]Event, error)
}

// =====================================================
// JSON-RPC CLIENT IMPLEMENTATION
// =====================================================

// Config tunes the RPC endpoint and the transient-failure retry budget
type Config struct {
	RPCURL       string
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Timeout      time.Duration
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int64         `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      int64           `json:"id"`
}

// Execution failures come back as a distinct RPC error code so the caller
// can tell "node is down" apart from "transaction reverted".
const (
	rpcCodeExecutionFailed = -32050
	rpcCodeNotFound        = -32051
)

type rpcClient struct {
	http *resty.Client
	cfg  Config
	seq  int64
}

// NewClient creates the JSON-RPC ledger client
func NewClient(cfg Config) Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 250 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	http := resty.New().
		SetBaseURL(cfg.RPCURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &rpcClient{http: http, cfg: cfg}
}

// rpc performs one JSON-RPC exchange, retrying transient failures with
// exponential backoff up to the bounded attempt count. Exhaustion surfaces
// as ErrUnavailable; callers never see the raw network error alone.
func (c *rpcClient) rpc(ctx context.Context, method string, out interface{}, params ...interface{}) error {
	if params == nil {
		params = []interface{}{}
	}

	// One client instance is shared across HTTP handlers and job workers
	id := atomic.AddInt64(&c.seq, 1)
	req := rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: id}

	var lastErr error
	delay := c.cfg.InitialDelay

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		var rpcResp rpcResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&rpcResp).
			Post("")

		switch {
		case err != nil:
			lastErr = fmt.Errorf("%w: %v", ErrTransient, err)
		case resp.StatusCode() >= 500:
			lastErr = fmt.Errorf("%w: node returned %d", ErrTransient, resp.StatusCode())
		case rpcResp.Error != nil:
			if rpcResp.Error.Code == rpcCodeExecutionFailed {
				return fmt.Errorf("%w: %s", ErrRejected, rpcResp.Error.Message)
			}
			if rpcResp.Error.Code == rpcCodeNotFound {
				return fmt.Errorf("%w: %s", ErrNotFound, rpcResp.Error.Message)
			}
			// Other RPC errors are caller bugs (bad method/params), not
			// worth retrying.
			return fmt.Errorf("ledger rpc %s failed: %s", method, rpcResp.Error.Message)
		default:
			if out != nil {
				if err := json.Unmarshal(rpcResp.Result, out); err != nil {
					return fmt.Errorf("failed to decode %s result: %w", method, err)
				}
			}
			return nil
		}

		logger.Error(fmt.Sprintf("Ledger rpc %s attempt %d/%d failed", method, attempt, c.cfg.MaxAttempts), lastErr)

		if attempt < c.cfg.MaxAttempts {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			}
			delay *= 2
			if delay > c.cfg.MaxDelay {
				delay = c.cfg.MaxDelay
			}
		}
	}

	return errors.Join(ErrUnavailable, lastErr)
}

func (c *rpcClient) Submit(ctx context.Context, op string, signer string, params ...interface{}) (string, error) {
	var txHash string
	args := append([]interface{}{op, signer}, params...)
	if err := c.rpc(ctx, "ledger_submit", &txHash, args...); err != nil {
		return "", err
	}
	return txHash, nil
}

func (c *rpcClient) GetReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	var receipt Receipt
	if err := c.rpc(ctx, "ledger_getReceipt", &receipt, txHash); err != nil {
		return nil, err
	}
	receipt.TxHash = txHash
	return &receipt, nil
}

func (c *rpcClient) Call(ctx context.Context, op string, out interface{}, params ...interface{}) error {
	args := append([]interface{}{op}, params...)
	return c.rpc(ctx, "ledger_call", out, args...)
}

func (c *rpcClient) BlockHeight(ctx context.Context) (int64, error) {
	var height int64
	if err := c.rpc(ctx, "ledger_blockHeight", &height); err != nil {
		return 0, err
	}
	return height, nil
}

func (c *rpcClient) Events(ctx context.Context, fromBlock, toBlock int64, names []string) ([]Event, error) {
	var events []Event
	if err := c.rpc(ctx, "ledger_getEvents", &events, fromBlock, toBlock, names); err != nil {
		return nil, err
	}
	return events, nil
}
