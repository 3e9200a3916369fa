package bridge

import (
	"errors"

	"balatro-bridge/jsonval"
)

// Client turns one request value into one line-delimited exchange. Exactly
// one exchange is in flight at a time; the poll loop serializes calls by
// construction, so the client carries no locking.
type Client struct {
	transport Transport
}

func NewClient(t Transport) *Client {
	return &Client{transport: t}
}

func (c *Client) Connected() bool { return c.transport.Connected() }

// Connect establishes the session. There is no automatic background
// reconnect and no backoff: the poll loop re-invokes this lazily on the
// next eligible tick, throttled only by its own interval. That is an
// intentional simplicity/availability tradeoff — the cost of a failed
// cycle is a missed recommendation, not data loss.
func (c *Client) Connect() error { return c.transport.Connect() }

func (c *Client) Close() error { return c.transport.Close() }

// Exchange encodes the request, sends one line, receives one line, and
// decodes the response. The first failing stage aborts the rest and is
// reported as an ExchangeError. On a send failure or a non-timeout receive
// failure the client eagerly closes so the next attempt re-establishes a
// fresh connection instead of reusing a half-broken socket; a timeout
// leaves the connection open because the peer may just be slow to decide.
func (c *Client) Exchange(req jsonval.Value) (jsonval.Value, error) {
	if !c.transport.Connected() {
		return nil, &ExchangeError{Stage: StageNotConnected, Cause: ErrNotConnected}
	}

	line, err := jsonval.Encode(req)
	if err != nil {
		return nil, &ExchangeError{Stage: StageEncode, Cause: err}
	}

	if err := c.transport.SendLine(line); err != nil {
		_ = c.transport.Close()
		return nil, &ExchangeError{Stage: StageSend, Cause: err}
	}

	reply, err := c.transport.ReceiveLine()
	if err != nil {
		if !errors.Is(err, ErrTimeout) {
			_ = c.transport.Close()
		}
		return nil, &ExchangeError{Stage: StageReceive, Cause: err}
	}

	v, err := jsonval.Decode(reply)
	if err != nil {
		return nil, &ExchangeError{Stage: StageDecode, Cause: err}
	}
	return v, nil
}
