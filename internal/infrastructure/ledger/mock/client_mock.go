package mock

import (
	"context"
	"fmt"
	"sync"

	"bookchain-backend/internal/infrastructure/ledger"
)

// =====================================================
// IN-MEMORY LEDGER MOCK
// =====================================================
// Deterministic stand-in for the chain node. Used by unit tests and by
// local development when no node is reachable. Transactions are "mined"
// only when the test (or MineAll) says so.

type Submission struct {
	Op     string
	Signer string
	Params []interface{}
	TxHash string
}

type Client struct {
	mu sync.Mutex

	height      int64
	seq         int
	submissions []Submission
	receipts    map[string]*ledger.Receipt
	events      []ledger.Event

	// SubmitErr, when set, is returned by the next Submit call
	SubmitErr error
	// ReceiptErr, when set, is returned by every GetReceipt call
	ReceiptErr error
}

func NewClient() *Client {
	return &Client{
		height:   1,
		receipts: map[string]*ledger.Receipt{},
	}
}

func (c *Client) Submit(_ context.Context, op string, signer string, params ...interface{}) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.SubmitErr != nil {
		err := c.SubmitErr
		c.SubmitErr = nil
		return "", err
	}

	c.seq++
	txHash := fmt.Sprintf("0xmock%06d", c.seq)
	c.submissions = append(c.submissions, Submission{Op: op, Signer: signer, Params: params, TxHash: txHash})
	c.receipts[txHash] = &ledger.Receipt{TxHash: txHash, Included: false}
	return txHash, nil
}

func (c *Client) GetReceipt(_ context.Context, txHash string) (*ledger.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ReceiptErr != nil {
		return nil, c.ReceiptErr
	}

	receipt, ok := c.receipts[txHash]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	copied := *receipt
	return &copied, nil
}

func (c *Client) Call(_ context.Context, _ string, _ interface{}, _ ...interface{}) error {
	return nil
}

func (c *Client) BlockHeight(_ context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height, nil
}

func (c *Client) Events(_ context.Context, fromBlock, toBlock int64, names []string) ([]ledger.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	wanted := map[string]bool{}
	for _, n := range names {
		wanted[n] = true
	}

	var out []ledger.Event
	for _, ev := range c.events {
		if ev.BlockHeight < fromBlock || ev.BlockHeight > toBlock {
			continue
		}
		if len(wanted) > 0 && !wanted[ev.Name] {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// =====================================================
// TEST CONTROLS
// =====================================================

// Mine marks a transaction included at the given block and moves the head
func (c *Client) Mine(txHash string, blockHeight int64, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.receipts[txHash] = &ledger.Receipt{
		TxHash:      txHash,
		Included:    true,
		Success:     success,
		BlockHeight: blockHeight,
	}
	if blockHeight > c.height {
		c.height = blockHeight
	}
}

// EmitEvent appends a finalized event visible to Events sweeps
func (c *Client) EmitEvent(ev ledger.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, ev)
	if ev.BlockHeight > c.height {
		c.height = ev.BlockHeight
	}
}

// SetHeight moves the chain head without mining anything
func (c *Client) SetHeight(h int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height = h
}

// Submissions returns a copy of everything submitted so far
func (c *Client) Submissions() []Submission {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Submission, len(c.submissions))
	copy(out, c.submissions)
	return out
}
